package transport

import (
	"github.com/samsamfire/gouavcan/pkg/filter"
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
)

// PortKind distinguishes the three port namespaces a Receiver dispatches
// into: messages are addressed by subject id alone; requests and
// responses share a service id but are addressed to this node (not
// broadcast) and are kept separate so a node acting as both client and
// server for the same service doesn't confuse one for the other.
type PortKind uint8

const (
	PortMessage PortKind = iota
	PortRequest
	PortResponse
)

type portKey struct {
	kind PortKind
	id   uint16
}

// Receiver dispatches incoming frames to the Subscription registered for
// their port, per SPEC_FULL.md §4.6. Grounded on bus_manager.go's
// Subscribe/Handle dispatch-by-id pattern, generalized from an 11-bit
// direct lookup table (CANopen COB-IDs fit a small array) to a map keyed
// by 13-bit subject or 9-bit service id, since UAVCAN's 29-bit space
// isn't directly indexable.
type Receiver struct {
	subs map[portKey]*Subscription
}

// NewReceiver creates an empty Receiver.
func NewReceiver() *Receiver {
	return &Receiver{subs: make(map[portKey]*Subscription)}
}

// Subscribe registers (or replaces) the Subscription for one port.
func (r *Receiver) Subscribe(kind PortKind, id uint16, sub *Subscription) {
	r.subs[portKey{kind, id}] = sub
}

// Unsubscribe removes a previously registered port, if any.
func (r *Receiver) Unsubscribe(kind PortKind, id uint16) {
	delete(r.subs, portKey{kind, id})
}

// Accept routes f to the matching Subscription, if this node is
// subscribed to its port at all. localNode is this node's own id
// (service frames not addressed to it are ignored outright); pass
// frame.Anonymous if this node has no id yet, in which case no service
// frame will ever match (an anonymous node cannot be addressed).
func (r *Receiver) Accept(now instant.Instant, f frame.Frame, localNode frame.OptionalNodeID) (Transfer, PortKind, uint16, bool, error) {
	var key portKey
	if f.ID.IsServiceNotMessage() {
		self, present := localNode.Get()
		if !present || f.ID.Destination() != self {
			return Transfer{}, 0, 0, false, nil
		}
		kind := PortResponse
		if f.ID.IsRequestNotResponse() {
			kind = PortRequest
		}
		key = portKey{kind, uint16(f.ID.Service())}
	} else {
		key = portKey{PortMessage, uint16(f.ID.Subject())}
	}

	sub, ok := r.subs[key]
	if !ok {
		return Transfer{}, 0, 0, false, nil
	}
	transfer, complete, err := sub.Accept(now, f)
	return transfer, key.kind, key.id, complete, err
}

// IdealFilters returns one hardware acceptance filter per subscribed
// port, unreduced -- the caller (pkg/node) passes these through
// pkg/filter.Reduce before installing them on a link.
func (r *Receiver) IdealFilters() []filter.Ideal {
	out := make([]filter.Ideal, 0, len(r.subs))
	for key := range r.subs {
		var id, mask uint32
		switch key.kind {
		case PortMessage:
			id, mask = frame.SubjectFilter(frame.SubjectID(key.id))
		case PortRequest:
			id, mask = frame.ServiceFilter(frame.ServiceID(key.id), true)
		case PortResponse:
			id, mask = frame.ServiceFilter(frame.ServiceID(key.id), false)
		}
		out = append(out, filter.Ideal{ID: id, Mask: mask})
	}
	return out
}

// PruneExpired runs Subscription.PruneExpired over every registered port
// and returns the total number of sessions dropped.
func (r *Receiver) PruneExpired(now instant.Instant) int {
	total := 0
	for _, sub := range r.subs {
		total += sub.PruneExpired(now)
	}
	return total
}

// SubscribedPorts reports the subject and service ids currently
// registered on this Receiver, split by namespace. Used to build the
// subscribed half of a node's periodic port list.
func (r *Receiver) SubscribedPorts() (subjects []frame.SubjectID, requests []frame.ServiceID, responses []frame.ServiceID) {
	for key := range r.subs {
		switch key.kind {
		case PortMessage:
			subjects = append(subjects, frame.SubjectID(key.id))
		case PortRequest:
			requests = append(requests, frame.ServiceID(key.id))
		case PortResponse:
			responses = append(responses, frame.ServiceID(key.id))
		}
	}
	return subjects, requests, responses
}
