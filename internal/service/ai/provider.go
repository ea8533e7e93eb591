package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/civicconnect/civicconnect-ai/internal/config"
	"github.com/civicconnect/civicconnect-ai/internal/model/chat"
)

// ErrEmptyReply is returned when the provider answers without any text.
var ErrEmptyReply = errors.New("model returned no text")

// Provider starts conversations against a hosted model.
type Provider interface {
	StartConversation(history []chat.Turn) Conversation
}

// Conversation is a provider-owned chat handle. A successful SendMessage
// appends the user turn and the reply turn to History; a failed one leaves
// History untouched. Implementations are not safe for concurrent use.
type Conversation interface {
	SendMessage(ctx context.Context, parts ...chat.Part) (string, error)
	History() []chat.Turn
}

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg)
	case config.ProviderArk:
		chatModel, err := cfg.NewArkChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create ark chat model: %w", err)
		}
		return NewEinoProvider(chatModel), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
