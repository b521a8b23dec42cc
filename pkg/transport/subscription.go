package transport

import (
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
)

// Subscription tracks one reassembly session per distinct sender on a
// single subject or service id. The number of concurrent senders a
// subscription will track is bounded (MaxSessions); once at capacity, the
// least-recently-active sender's session is evicted to make room for a
// new one, rather than growing without bound -- this bounds the number of
// sessions the way maxMultiFrameTransferBytes (header.go) bounds the bytes
// each session buffers.
type Subscription struct {
	Timeout     instant.Duration
	MaxSessions int

	sessions map[frame.NodeID]*session
	order    []frame.NodeID // least- to most-recently-touched
}

// DefaultMaxSessions is used when a Subscription is built with MaxSessions
// left at zero.
const DefaultMaxSessions = 4

// NewSubscription creates a Subscription with the given reassembly
// timeout and, optionally, a session-count ceiling (0 uses
// DefaultMaxSessions).
func NewSubscription(timeout instant.Duration, maxSessions int) *Subscription {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Subscription{
		Timeout:     timeout,
		MaxSessions: maxSessions,
		sessions:    make(map[frame.NodeID]*session),
	}
}

func (s *Subscription) touch(source frame.NodeID) {
	for i, id := range s.order {
		if id == source {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.order = append(s.order, source)
}

func (s *Subscription) sessionFor(source frame.NodeID) *session {
	if sess, ok := s.sessions[source]; ok {
		s.touch(source)
		return sess
	}
	if len(s.sessions) >= s.MaxSessions && len(s.order) > 0 {
		evict := s.order[0]
		s.order = s.order[1:]
		delete(s.sessions, evict)
	}
	sess := &session{}
	s.sessions[source] = sess
	s.touch(source)
	return sess
}

// Accept routes f to the reassembly session for its source node,
// creating one if this is a sender this Subscription hasn't seen yet (or
// has evicted).
func (s *Subscription) Accept(now instant.Instant, f frame.Frame) (Transfer, bool, error) {
	source := f.ID.Source()
	sess := s.sessionFor(source)
	return sess.accept(now, f, s.Timeout)
}

// PruneExpired drops any tracked session whose in-progress transfer has
// gone silent for longer than Timeout, freeing its slot without waiting
// for a new sender to need it. Meant to be called from a periodic
// maintenance tick (pkg/node's per-second tasks), not from the frame
// ingest path.
func (s *Subscription) PruneExpired(now instant.Instant) int {
	pruned := 0
	for source, sess := range s.sessions {
		if sess.inProgress && now.DurationSince(sess.lastActivity) > s.Timeout {
			delete(s.sessions, source)
			for i, id := range s.order {
				if id == source {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
			pruned++
		}
	}
	return pruned
}
