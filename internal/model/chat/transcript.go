package chat

import (
	"time"

	"github.com/google/uuid"
)

// Transcript is the ordered turn history of one conversation. It is not
// safe for concurrent use; callers serialize access.
type Transcript struct {
	turns []Turn
}

// NewTranscript seeds a transcript with the given turns.
func NewTranscript(history []Turn) *Transcript {
	turns := make([]Turn, 0, len(history)+16)
	turns = append(turns, history...)
	return &Transcript{turns: turns}
}

// Append records a new turn and returns it.
func (t *Transcript) Append(role Role, parts ...Part) Turn {
	turn := Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Parts:     append([]Part(nil), parts...),
		CreatedAt: time.Now().UTC(),
	}
	t.turns = append(t.turns, turn)
	return turn
}

// Turns returns a copy of the recorded turns.
func (t *Transcript) Turns() []Turn {
	copied := make([]Turn, len(t.turns))
	copy(copied, t.turns)
	return copied
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}
