package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/civicconnect/civicconnect-ai/internal/config"
	"github.com/civicconnect/civicconnect-ai/internal/model/chat"
)

// GeminiProvider talks to the Gemini API through the generative-ai-go client.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiProvider dials the Gemini API with the configured key and model.
// Extra client options are applied after the API key.
func NewGeminiProvider(ctx context.Context, cfg config.AIConfig, opts ...option.ClientOption) (*GeminiProvider, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, config.ErrMissingGeminiKey
	}

	opts = append([]option.ClientOption{option.WithAPIKey(cfg.GeminiAPIKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.GeminiModel)
	if t := cfg.Float32Temperature(); t != nil {
		model.SetTemperature(*t)
	}
	if p := cfg.Float32TopP(); p != nil {
		model.SetTopP(*p)
	}
	if cfg.MaxTokens != nil {
		model.SetMaxOutputTokens(int32(*cfg.MaxTokens))
	}

	return &GeminiProvider{client: client, model: model}, nil
}

// StartConversation opens a chat session whose history is seeded with history.
func (p *GeminiProvider) StartConversation(history []chat.Turn) Conversation {
	session := p.model.StartChat()
	session.History = toGenaiContents(history)
	return newGeminiConversation(session, history)
}

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

type geminiConversation struct {
	session    *genai.ChatSession
	transcript *chat.Transcript
}

func newGeminiConversation(session *genai.ChatSession, history []chat.Turn) *geminiConversation {
	return &geminiConversation{session: session, transcript: chat.NewTranscript(history)}
}

// SendMessage restores the SDK session history on failure. The SDK records
// the user content before the call and keeps it when the call fails.
func (c *geminiConversation) SendMessage(ctx context.Context, parts ...chat.Part) (string, error) {
	n := len(c.session.History)

	resp, err := c.session.SendMessage(ctx, toGenaiParts(parts)...)
	if err != nil {
		c.session.History = c.session.History[:n]
		return "", fmt.Errorf("gemini send message: %w", err)
	}

	reply, err := responseText(resp)
	if err != nil {
		c.session.History = c.session.History[:n]
		return "", err
	}

	c.transcript.Append(chat.RoleUser, parts...)
	c.transcript.Append(chat.RoleModel, chat.TextPart(reply))

	zerolog.Ctx(ctx).Debug().
		Int("turns", c.transcript.Len()).
		Int("length", len(reply)).
		Msg("gemini reply received")
	return reply, nil
}

func (c *geminiConversation) History() []chat.Turn {
	return c.transcript.Turns()
}

func toGenaiContents(turns []chat.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		contents = append(contents, &genai.Content{
			Role:  string(turn.Role),
			Parts: toGenaiParts(turn.Parts),
		})
	}
	return contents
}

// toGenaiParts drops empty text parts; the API rejects them.
func toGenaiParts(parts []chat.Part) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.IsImage():
			out = append(out, genai.Blob{MIMEType: p.Image.MIMEType, Data: p.Image.Data})
		case p.Text != "":
			out = append(out, genai.Text(p.Text))
		}
	}
	return out
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyReply
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("%w (finish reason %v)", ErrEmptyReply, candidate.FinishReason)
	}

	var builder strings.Builder
	found := false
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
			found = true
		}
	}
	if !found {
		return "", ErrEmptyReply
	}
	return builder.String(), nil
}
