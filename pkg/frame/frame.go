package frame

import "github.com/samsamfire/gouavcan/pkg/instant"

// Frame is a single CAN frame, timestamped at the moment it was received
// or is to be transmitted. Data always includes the tail byte; callers
// that only care about the transfer payload strip the last byte
// themselves once they know whether this is the sole frame of a transfer.
type Frame struct {
	Timestamp instant.Instant
	ID        CanId
	Data      []byte
}

// New builds a Frame from its parts. Data is stored as given, without
// padding; a caller targeting CAN FD pads it to one of the CAN FD frame
// lengths (RoundUpCanFDLength) itself.
func New(timestamp instant.Instant, id CanId, data []byte) Frame {
	return Frame{Timestamp: timestamp, ID: id, Data: data}
}

// TailByte returns the last byte of Data, which is always the tail byte
// for a well-formed UAVCAN/CAN v1 frame.
func (f Frame) TailByte() TailByte {
	if len(f.Data) == 0 {
		return 0
	}
	return TailByte(f.Data[len(f.Data)-1])
}

// IsExtended reports that this frame uses a 29-bit identifier. UAVCAN/CAN
// v1 never uses 11-bit (standard) identifiers, so this is always true; it
// exists so link drivers have a named field to set on the wire frame they
// build from this one.
func (f Frame) IsExtended() bool { return true }
