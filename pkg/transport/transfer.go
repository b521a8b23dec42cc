package transport

import (
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
)

// Transfer is a complete, reassembled (or not-yet-split) application
// message: a transfer id and a payload, independent of how many CAN
// frames it took to carry it.
type Transfer struct {
	Timestamp  instant.Instant
	TransferID frame.TransferID
	Payload    []byte
}

// MTU describes the link's frame capacity: the maximum payload bytes a
// non-final frame of a multi-frame transfer may carry, and whether the
// link is CAN FD (and so must round frame lengths up to a valid FD
// length) or Classic CAN (any length up to 8 is valid as-is).
type MTU struct {
	PayloadBytes int
	FD           bool
}

// Classic is the Classic CAN MTU: 7 payload bytes plus a 1-byte tail.
var Classic = MTU{PayloadBytes: frame.MaxClassicMTU, FD: false}

// CanFD is the maximum CAN FD MTU: 63 payload bytes plus a 1-byte tail.
var CanFD = MTU{PayloadBytes: frame.MaxCanFDMTU, FD: true}
