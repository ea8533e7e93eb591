package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptAppend(t *testing.T) {
	tr := NewTranscript([]Turn{InstructionTurn("be nice")})
	require.Equal(t, 1, tr.Len())

	user := tr.Append(RoleUser, TextPart("hello"))
	reply := tr.Append(RoleModel, TextPart("hi"))

	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, user.ID, reply.ID)
	assert.Equal(t, 3, tr.Len())

	turns := tr.Turns()
	assert.True(t, turns[0].Instruction)
	assert.Equal(t, RoleModel, turns[0].Role)
	assert.Equal(t, "be nice", turns[0].Text())
	assert.Equal(t, RoleUser, turns[1].Role)
	assert.Equal(t, "hi", turns[2].Text())
}

func TestTranscriptTurnsIsCopy(t *testing.T) {
	tr := NewTranscript(nil)
	tr.Append(RoleUser, TextPart("a"))

	turns := tr.Turns()
	turns[0].Role = RoleModel

	assert.Equal(t, RoleUser, tr.Turns()[0].Role)
}

func TestPartKinds(t *testing.T) {
	assert.False(t, TextPart("x").IsImage())
	assert.True(t, ImagePart(&Image{Format: "png"}).IsImage())
}
