package transport

import (
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/samsamfire/gouavcan/pkg/queue"
)

// Publisher sends message transfers on one subject, allocating and
// incrementing its own transfer id on every call. Grounded on
// canadensis's Publisher: a thin, stateful wrapper around buildFrames
// that owns exactly the state a sender needs (next transfer id, timeout,
// MTU) and nothing a receiver would.
type Publisher struct {
	Priority   frame.Priority
	Subject    frame.SubjectID
	Source     frame.OptionalNodeID
	MTU        MTU
	Timeout    instant.Duration
	transferID frame.TransferID
}

// NewPublisher creates a Publisher starting at transfer id 0.
func NewPublisher(priority frame.Priority, subject frame.SubjectID, source frame.OptionalNodeID, mtu MTU, timeout instant.Duration) *Publisher {
	return &Publisher{Priority: priority, Subject: subject, Source: source, MTU: mtu, Timeout: timeout}
}

// Publish splits payload into frames and pushes them onto q, each with a
// deadline of now+Timeout, then advances the transfer id for next time.
// Enqueueing is all-or-nothing: if q lacks room for every frame of this
// transfer, none are enqueued, the transfer id is not advanced (so the
// caller may retry with the same id), and Publish returns
// queue.ErrOutOfMemory. On success admitted equals len of the frames
// generated.
func (p *Publisher) Publish(now instant.Instant, payload []byte, q *queue.Queue) (admitted int, err error) {
	id, err := frame.NewMessageID(p.Priority, p.Subject, p.Source)
	if err != nil {
		return 0, err
	}
	deadline := now.Add(p.Timeout)
	frames := buildFrames(now, id, payload, p.transferID, p.MTU)
	if !q.PushAll(frames, deadline) {
		return 0, queue.ErrOutOfMemory
	}
	p.transferID = p.transferID.Next()
	return len(frames), nil
}
