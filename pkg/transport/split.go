package transport

import (
	"github.com/samsamfire/gouavcan/internal/crc"
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
)

// buildFrames splits payload into one or more CAN frames addressed to id,
// per SPEC_FULL.md §4.4: a payload that fits in a single frame is sent
// as-is with both start and end bits set; anything larger is split into
// mtu.PayloadBytes-sized chunks of payload||crc16(payload) with the
// toggle bit alternating from true on the first frame.
//
// On CAN FD, every frame but the last must use the full mtu.PayloadBytes
// capacity -- a CAN FD controller can only transmit one of sixteen fixed
// data-field lengths, so non-final frames round up to the largest of
// those (64 bytes); only the final frame of a transfer, which may be
// shorter, gets rounded up to the smallest length that fits. Trailing
// zero bytes introduced by that rounding are harmless: the CRC is
// appended big-endian (crc.CRC16.Bytes), so the whole reassembled stream
// -- real payload, CRC, and any zero padding after it -- always reduces
// to a zero residue under the same CRC, regardless of how much padding
// trails the real CRC bytes. Appending the check value little-endian
// would not have this property.
func buildFrames(now instant.Instant, id frame.CanId, payload []byte, transferID frame.TransferID, mtu MTU) []frame.Frame {
	if len(payload) <= mtu.PayloadBytes {
		data := make([]byte, 0, mtu.finalFrameLength(len(payload)+1))
		data = append(data, payload...)
		tb := frame.PackTailByte(true, true, true, transferID)
		data = padAndAppendTail(data, tb, mtu, true)
		return []frame.Frame{frame.New(now, id, data)}
	}

	sum := crc.Of(payload)
	crcBytes := sum.Bytes()
	full := make([]byte, 0, len(payload)+2)
	full = append(full, payload...)
	full = append(full, crcBytes[0], crcBytes[1])

	var frames []frame.Frame
	toggle := true
	for offset := 0; offset < len(full); {
		remaining := len(full) - offset
		isLast := remaining <= mtu.PayloadBytes
		chunkLen := mtu.PayloadBytes
		if isLast {
			chunkLen = remaining
		}
		chunk := full[offset : offset+chunkLen]

		tb := frame.PackTailByte(offset == 0, isLast, toggle, transferID)
		data := make([]byte, 0, mtu.finalFrameLength(chunkLen+1))
		data = append(data, chunk...)
		data = padAndAppendTail(data, tb, mtu, isLast)

		frames = append(frames, frame.New(now, id, data))
		toggle = !toggle
		offset += chunkLen
	}
	return frames
}

// finalFrameLength is the total on-wire frame length (payload + tail,
// after any FD rounding) for a frame whose payload-plus-tail length would
// otherwise be n bytes.
func (m MTU) finalFrameLength(n int) int {
	if !m.FD {
		return n
	}
	return frame.RoundUpCanFDLength(n)
}

// padAndAppendTail appends zero padding (CAN FD only, and only when this
// is the transfer's final frame -- interior frames are never shorter
// than a full MTU chunk so they need no rounding) followed by the tail
// byte, leaving the tail byte as the last byte of the frame.
func padAndAppendTail(data []byte, tb frame.TailByte, mtu MTU, isFinalFrame bool) []byte {
	if mtu.FD && isFinalFrame {
		want := frame.RoundUpCanFDLength(len(data) + 1)
		for len(data) < want-1 {
			data = append(data, 0)
		}
	}
	return append(data, byte(tb))
}
