package ai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/civicconnect/civicconnect-ai/internal/model/chat"
)

// EinoProvider drives any eino chat model (Ark in production).
type EinoProvider struct {
	chatModel model.BaseChatModel
}

// NewEinoProvider wraps chatModel.
func NewEinoProvider(chatModel model.BaseChatModel) *EinoProvider {
	return &EinoProvider{chatModel: chatModel}
}

// StartConversation returns a conversation replaying history on every call.
func (p *EinoProvider) StartConversation(history []chat.Turn) Conversation {
	return &einoConversation{chatModel: p.chatModel, transcript: chat.NewTranscript(history)}
}

type einoConversation struct {
	chatModel  model.BaseChatModel
	transcript *chat.Transcript
}

func (c *einoConversation) SendMessage(ctx context.Context, parts ...chat.Part) (string, error) {
	input := toSchemaMessages(c.transcript.Turns())
	input = append(input, userMessage(parts))

	out, err := c.chatModel.Generate(ctx, input)
	if err != nil {
		return "", fmt.Errorf("eino generate: %w", err)
	}
	if out == nil || out.Content == "" {
		return "", ErrEmptyReply
	}

	c.transcript.Append(chat.RoleUser, parts...)
	c.transcript.Append(chat.RoleModel, chat.TextPart(out.Content))

	zerolog.Ctx(ctx).Debug().
		Int("turns", c.transcript.Len()).
		Int("length", len(out.Content)).
		Msg("eino reply received")
	return out.Content, nil
}

func (c *einoConversation) History() []chat.Turn {
	return c.transcript.Turns()
}

func toSchemaMessages(turns []chat.Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(turns)+1)
	for _, turn := range turns {
		switch {
		case turn.Instruction:
			messages = append(messages, schema.SystemMessage(turn.Text()))
		case turn.Role == chat.RoleModel:
			messages = append(messages, schema.AssistantMessage(turn.Text(), nil))
		default:
			messages = append(messages, userMessage(turn.Parts))
		}
	}
	return messages
}

func userMessage(parts []chat.Part) *schema.Message {
	hasImage := false
	for _, p := range parts {
		if p.IsImage() {
			hasImage = true
			break
		}
	}

	if !hasImage {
		return schema.UserMessage(chat.Turn{Parts: parts}.Text())
	}

	multi := make([]schema.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.IsImage():
			multi = append(multi, schema.ChatMessagePart{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:      dataURL(p.Image),
					MIMEType: p.Image.MIMEType,
				},
			})
		case p.Text != "":
			multi = append(multi, schema.ChatMessagePart{
				Type: schema.ChatMessagePartTypeText,
				Text: p.Text,
			})
		}
	}
	return &schema.Message{Role: schema.User, MultiContent: multi}
}

func dataURL(img *chat.Image) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
