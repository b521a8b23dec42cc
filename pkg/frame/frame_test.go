package frame

import (
	"testing"

	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/stretchr/testify/assert"
)

func TestFrameTailByteExtraction(t *testing.T) {
	id, err := NewMessageID(PriorityNominal, 1234, Node(42))
	assert.NoError(t, err)

	tb := PackTailByte(true, true, true, 7)
	f := New(instant.New(instant.Width32, 0), id, []byte{0xDE, 0xAD, 0xBE, 0xEF, byte(tb)})

	assert.Equal(t, tb, f.TailByte())
	assert.True(t, f.TailByte().SingleFrame())
	assert.True(t, f.IsExtended())
}

func TestEmptyFrameTailByteIsZero(t *testing.T) {
	f := New(instant.New(instant.Width32, 0), 0, nil)
	assert.EqualValues(t, 0, f.TailByte())
}
