package transport

import (
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/samsamfire/gouavcan/pkg/queue"
)

// Requester sends service requests, tracking a transfer id per
// destination node (requests to different nodes are independent
// sequences, since a response is matched by service id + source +
// transfer id, not by a single shared counter -- two outstanding requests
// to different servers must not collide on transfer id by accident).
type Requester struct {
	Priority    frame.Priority
	Service     frame.ServiceID
	Source      frame.NodeID
	MTU         MTU
	Timeout     instant.Duration
	transferIDs map[frame.NodeID]frame.TransferID
}

// NewRequester creates a Requester with no per-destination state yet.
func NewRequester(priority frame.Priority, service frame.ServiceID, source frame.NodeID, mtu MTU, timeout instant.Duration) *Requester {
	return &Requester{
		Priority:    priority,
		Service:     service,
		Source:      source,
		MTU:         mtu,
		Timeout:     timeout,
		transferIDs: make(map[frame.NodeID]frame.TransferID),
	}
}

// Request splits payload into frames addressed to destination and pushes
// them onto q, returning the transfer id used so the caller can match the
// eventual response. Enqueueing is all-or-nothing: if q lacks room for
// every frame of this request, none are enqueued, the per-destination
// transfer id is not advanced, and Request returns queue.ErrOutOfMemory.
func (r *Requester) Request(now instant.Instant, destination frame.NodeID, payload []byte, q *queue.Queue) (frame.TransferID, int, error) {
	id, err := frame.NewServiceID(r.Priority, true, r.Service, destination, r.Source)
	if err != nil {
		return 0, 0, err
	}
	transferID := r.transferIDs[destination]
	deadline := now.Add(r.Timeout)
	frames := buildFrames(now, id, payload, transferID, r.MTU)

	if !q.PushAll(frames, deadline) {
		return transferID, 0, queue.ErrOutOfMemory
	}
	r.transferIDs[destination] = transferID.Next()
	return transferID, len(frames), nil
}
