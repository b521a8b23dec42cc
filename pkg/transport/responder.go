package transport

import (
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/samsamfire/gouavcan/pkg/queue"
)

// Responder answers service requests. Unlike Publisher/Requester it
// carries no transfer-id state of its own: a response echoes the
// transfer id of the request it answers, which is how a Requester
// matches a response back to the call that produced it.
type Responder struct {
	Source  frame.NodeID
	MTU     MTU
	Timeout instant.Duration
}

// NewResponder creates a Responder for node source.
func NewResponder(source frame.NodeID, mtu MTU, timeout instant.Duration) *Responder {
	return &Responder{Source: source, MTU: mtu, Timeout: timeout}
}

// Respond sends payload back to the source node the given request header
// names, reusing requestTransferID, at the request's own priority. Enqueueing is
// all-or-nothing: if q lacks room for every frame of this response, none
// are enqueued and Respond returns queue.ErrOutOfMemory.
func (r *Responder) Respond(now instant.Instant, request ServiceHeader, requestTransferID frame.TransferID, payload []byte, q *queue.Queue) (int, error) {
	id, err := frame.NewServiceID(request.Priority, false, request.Service, request.Source, r.Source)
	if err != nil {
		return 0, err
	}
	deadline := now.Add(r.Timeout)
	frames := buildFrames(now, id, payload, requestTransferID, r.MTU)

	if !q.PushAll(frames, deadline) {
		return 0, queue.ErrOutOfMemory
	}
	return len(frames), nil
}
