package transport

import (
	"testing"

	"github.com/samsamfire/gouavcan/internal/crc"
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(ticks uint64) instant.Instant { return instant.New(instant.Width32, ticks) }

// Reproduces spec scenario S1: a 4-byte payload, priority 4, subject
// 1234, source 42, transfer id 7 -- fits in a single Classic CAN frame,
// carried as-is with a tail byte of 0b111_00111.
func TestSingleFrameMessageMatchesScenarioS1(t *testing.T) {
	id, err := frame.NewMessageID(frame.PriorityNominal, 1234, frame.Node(42))
	require.NoError(t, err)

	frames := buildFrames(ts(0), id, []byte{0xDE, 0xAD, 0xBE, 0xEF}, 7, Classic)
	require.Len(t, frames, 1)

	f := frames[0]
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0b11100111}, f.Data)
	assert.True(t, f.TailByte().SingleFrame())
	assert.EqualValues(t, 7, f.TailByte().TransferID())
}

func TestMultiFrameClassicSplitAndCRC(t *testing.T) {
	id, _ := frame.NewMessageID(frame.PriorityNominal, 1, frame.Node(1))
	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = byte(i)
	}

	frames := buildFrames(ts(0), id, payload, 3, Classic)
	require.Len(t, frames, 4) // 20 + 2 crc bytes = 22 bytes, 7 per frame -> 4 frames

	assert.True(t, frames[0].TailByte().StartOfTransfer())
	assert.False(t, frames[0].TailByte().EndOfTransfer())
	assert.True(t, frames[len(frames)-1].TailByte().EndOfTransfer())
	assert.False(t, frames[len(frames)-1].TailByte().StartOfTransfer())

	for i, f := range frames {
		assert.EqualValues(t, 3, f.TailByte().TransferID())
		expectToggle := i%2 == 0
		assert.Equal(t, expectToggle, f.TailByte().Toggle())
	}

	// Reassembling (stripping tail bytes) and running it back through the
	// CRC must land on zero: the CRC is appended big-endian, which is
	// what gives the whole-stream residue check its zero property.
	var reassembled []byte
	for _, f := range frames {
		reassembled = append(reassembled, f.Data[:len(f.Data)-1]...)
	}
	assert.EqualValues(t, 0, crc.Of(reassembled))
}

func TestSingleFrameCanFDPadsToValidLength(t *testing.T) {
	id, _ := frame.NewMessageID(frame.PriorityNominal, 1, frame.Node(1))
	frames := buildFrames(ts(0), id, make([]byte, 9), 0, CanFD)
	require.Len(t, frames, 1)
	// 9 bytes payload + 1 tail = 10, rounds up to 12.
	assert.Len(t, frames[0].Data, 12)
	assert.True(t, frames[0].TailByte().SingleFrame())
}

func TestMultiFrameCanFDInteriorFramesUseFullMTU(t *testing.T) {
	id, _ := frame.NewMessageID(frame.PriorityNominal, 1, frame.Node(1))
	payload := make([]byte, 100)
	frames := buildFrames(ts(0), id, payload, 0, CanFD)
	require.Greater(t, len(frames), 1)
	for _, f := range frames[:len(frames)-1] {
		assert.Len(t, f.Data, 64)
	}
}
