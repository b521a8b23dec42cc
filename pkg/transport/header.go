// Package transport implements transfer-level send and receive logic on
// top of pkg/frame: splitting a transfer into frames and reassembling
// frames back into a transfer, per SPEC_FULL.md §4.4 and §4.6.
package transport

import (
	"errors"

	"github.com/samsamfire/gouavcan/pkg/frame"
)

var (
	ErrPayloadTooLarge   = errors.New("transport: payload exceeds the maximum a transfer may carry")
	ErrCRCMismatch       = errors.New("transport: multi-frame transfer failed CRC verification")
	ErrToggleMismatch    = errors.New("transport: frame arrived with the wrong toggle bit")
	ErrUnexpectedStart   = errors.New("transport: non-start frame arrived with no transfer in progress")
	ErrDuplicateTransfer = errors.New("transport: transfer id repeats the last one accepted from this sender")
)

// maxMultiFrameTransferBytes bounds how large a reassembled transfer may
// grow before a session gives up on it -- this is the embedded "no
// unbounded allocation" guard referenced in SPEC_FULL.md's Non-goals
// (flow control is out of scope, but a hard ceiling on memory used per
// session is not).
const maxMultiFrameTransferBytes = 64 * 1024

// MessageHeader addresses a message-transfer transfer: a subject id plus
// the transmitting node id (or Anonymous).
type MessageHeader struct {
	Priority frame.Priority
	Subject  frame.SubjectID
	Source   frame.OptionalNodeID
}

func (h MessageHeader) canID() (frame.CanId, error) {
	return frame.NewMessageID(h.Priority, h.Subject, h.Source)
}

// ServiceHeader addresses a service-transfer (request or response).
type ServiceHeader struct {
	Priority    frame.Priority
	Service     frame.ServiceID
	Source      frame.NodeID
	Destination frame.NodeID
	Request     bool
}

func (h ServiceHeader) canID() (frame.CanId, error) {
	return frame.NewServiceID(h.Priority, h.Request, h.Service, h.Destination, h.Source)
}
