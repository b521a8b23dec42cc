// Package queue implements the bounded, priority-ordered outgoing frame
// queue described in SPEC_FULL.md §4.5: frames are drained lowest-CanId
// (highest priority) first, FIFO among frames of equal priority, and a
// frame whose deadline has passed is dropped silently rather than sent
// late.
package queue

import (
	"container/heap"
	"errors"

	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
)

// ErrOutOfMemory is what senders return when PushAll rejects a transfer
// because the queue does not have room for every frame of it, per
// SPEC_FULL.md §4.4 step 3: admitting
// only some of a multi-frame transfer's frames would put a truncated
// transfer on the wire and strand every receiver's reassembly session
// until it times out, so a transfer that doesn't fit is rejected whole.
var ErrOutOfMemory = errors.New("queue: not enough capacity for every frame of this transfer")

// item is one queued frame plus the bookkeeping the heap needs: seq breaks
// ties between frames of equal CanId in FIFO order (a bare CanId compare
// is not a strict order once two frames share a priority/address).
type item struct {
	f        frame.Frame
	deadline instant.Instant
	seq      uint64
	index    int
}

type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].f.ID != h[j].f.ID {
		return h[i].f.ID < h[j].f.ID
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// Queue is a bounded priority queue of outgoing frames. Not safe for
// concurrent use without external locking -- the core is single-threaded
// per spec §5, and any locking needed for a multi-goroutine host lives in
// pkg/node, not here.
type Queue struct {
	h        itemHeap
	capacity int
	nextSeq  uint64
}

// New creates a queue bounded to capacity frames.
func New(capacity int) *Queue {
	q := &Queue{capacity: capacity, nextSeq: 1}
	heap.Init(&q.h)
	return q
}

// Len returns the number of frames currently queued.
func (q *Queue) Len() int { return q.h.Len() }

// Full reports whether the queue is at capacity.
func (q *Queue) Full() bool { return q.h.Len() >= q.capacity }

// Push enqueues f with the given transmission deadline. It reports false
// and drops f silently if the queue is already at capacity -- per spec
// §4.5, a full queue prefers the frames it already admitted over a new
// arrival, since the new arrival is (by construction) never older than
// what's already queued.
func (q *Queue) Push(f frame.Frame, deadline instant.Instant) bool {
	if q.Full() {
		return false
	}
	heap.Push(&q.h, &item{f: f, deadline: deadline, seq: q.nextSeq})
	q.nextSeq++
	return true
}

// Room reports how many more frames Push/PushAll can admit before the
// queue is full.
func (q *Queue) Room() int {
	return q.capacity - q.h.Len()
}

// PushAll enqueues every frame in fs with the same deadline, or none at
// all: it reports false and admits nothing if fs does not fit in the
// queue's remaining capacity, rather than admitting a partial prefix.
// Callers building a multi-frame transfer must use this instead of
// looping over Push, so a transfer is never split across "sent" and
// "dropped" frames.
func (q *Queue) PushAll(fs []frame.Frame, deadline instant.Instant) bool {
	if len(fs) > q.Room() {
		return false
	}
	for _, f := range fs {
		heap.Push(&q.h, &item{f: f, deadline: deadline, seq: q.nextSeq})
		q.nextSeq++
	}
	return true
}

// Return re-admits a frame that failed to transmit, preserving its
// original deadline and giving it priority over frames pushed after it at
// the same CanId (seq 0 sorts before anything Push has handed out).
// Unlike Push, Return never drops for capacity: the frame was already
// accounted for before it was popped out for transmission.
func (q *Queue) Return(f frame.Frame, deadline instant.Instant) {
	heap.Push(&q.h, &item{f: f, deadline: deadline, seq: 0})
}

// Pop removes and returns the highest-priority, oldest frame whose
// deadline has not yet passed as of now. Frames at the head whose
// deadline has passed are discarded (not returned, not retried) before
// Pop looks further; ok is false once the queue is empty of live frames.
func (q *Queue) Pop(now instant.Instant) (f frame.Frame, ok bool) {
	for q.h.Len() > 0 {
		it := heap.Pop(&q.h).(*item)
		if now.OverflowSafeCompare(it.deadline) == instant.Greater {
			continue
		}
		return it.f, true
	}
	return frame.Frame{}, false
}

// PeekPriority returns the CanId of the head-of-queue frame without
// removing it, for a host loop deciding whether it's worth polling the
// link for room to transmit.
func (q *Queue) PeekPriority() (frame.CanId, bool) {
	if q.h.Len() == 0 {
		return 0, false
	}
	return q.h[0].f.ID, true
}

// DropExpired removes (and counts) every frame at the head of the queue
// whose deadline has already passed as of now, without popping a live
// frame. Useful for a periodic maintenance tick that wants an expiry
// count independent of whether anything is being transmitted right now.
func (q *Queue) DropExpired(now instant.Instant) int {
	dropped := 0
	for q.h.Len() > 0 {
		it := q.h[0]
		if now.OverflowSafeCompare(it.deadline) != instant.Greater {
			break
		}
		heap.Pop(&q.h)
		dropped++
	}
	return dropped
}
