package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Image is a decoded attachment ready to be forwarded to a model provider.
type Image struct {
	Format   string `json:"format"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Part is a single content item of a turn: text or an image.
type Part struct {
	Text  string `json:"text,omitempty"`
	Image *Image `json:"image,omitempty"`
}

// TextPart wraps s as a text part.
func TextPart(s string) Part {
	return Part{Text: s}
}

// ImagePart wraps img as an image part.
func ImagePart(img *Image) Part {
	return Part{Image: img}
}

// IsImage reports whether the part carries an image.
func (p Part) IsImage() bool {
	return p.Image != nil
}

// Turn is one entry of a conversation transcript.
type Turn struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Parts       []Part    `json:"parts"`
	Instruction bool      `json:"instruction,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// InstructionTurn builds the system instruction turn that opens every transcript.
func InstructionTurn(text string) Turn {
	return Turn{
		ID:          uuid.NewString(),
		Role:        RoleModel,
		Parts:       []Part{TextPart(text)},
		Instruction: true,
		CreatedAt:   time.Now().UTC(),
	}
}

// Text joins the text parts of the turn.
func (t Turn) Text() string {
	var b strings.Builder
	for _, p := range t.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
