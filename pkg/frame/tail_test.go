package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTailByteRoundTrip(t *testing.T) {
	tb := PackTailByte(true, true, true, 7)
	assert.EqualValues(t, 0b11100111, tb)
	assert.True(t, tb.StartOfTransfer())
	assert.True(t, tb.EndOfTransfer())
	assert.True(t, tb.Toggle())
	assert.EqualValues(t, 7, tb.TransferID())
	assert.True(t, tb.SingleFrame())
}

func TestTailByteMultiFrame(t *testing.T) {
	start := PackTailByte(true, false, true, 3)
	mid := PackTailByte(false, false, false, 3)
	end := PackTailByte(false, true, true, 3)

	assert.False(t, start.SingleFrame())
	assert.True(t, start.StartOfTransfer())
	assert.False(t, start.EndOfTransfer())

	assert.False(t, mid.StartOfTransfer())
	assert.False(t, mid.EndOfTransfer())
	assert.False(t, mid.Toggle())

	assert.False(t, end.StartOfTransfer())
	assert.True(t, end.EndOfTransfer())
	assert.True(t, end.Toggle())
}

func TestRoundUpCanFDLength(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 8: 8, 9: 12, 12: 12, 17: 20, 33: 48, 64: 64}
	for in, want := range cases {
		assert.Equal(t, want, RoundUpCanFDLength(in), "in=%d", in)
	}
	assert.Equal(t, -1, RoundUpCanFDLength(65))
}
