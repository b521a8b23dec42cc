// Package node provides the single node facade SPEC_FULL.md §4.8
// describes: it binds publishers, requesters, responders and
// subscriptions to one node id, dispatches accepted frames, and drives
// the periodic (once-a-second) heartbeat and port-list publication. The
// Node type itself is the cooperative core: AcceptFrame and
// RunPerSecondTasks never block, spawn goroutines, or start timers, per
// spec §5 -- all of that lives in Processor, below, which is the only
// part of this package that touches goroutines.
package node

import (
	"errors"
	"log/slog"

	"github.com/samsamfire/gouavcan/pkg/filter"
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/samsamfire/gouavcan/pkg/queue"
	"github.com/samsamfire/gouavcan/pkg/transport"
)

// ErrAnonymousRequester is returned by Node.NewRequester and
// Node.NewResponder when the node has no assigned id yet: service
// transfers are addressed, and an anonymous node cannot be addressed.
var ErrAnonymousRequester = errors.New("node: cannot build a requester/responder for an anonymous node")

// Metrics is the set of counters pkg/node maintains; a concrete
// implementation (see pkg/node/metrics.go) wires these to Prometheus.
type Metrics interface {
	FrameDropped()
	SessionTimedOut()
	DuplicateTransferDropped()
	CRCFailure()
}

type noopMetrics struct{}

func (noopMetrics) FrameDropped()            {}
func (noopMetrics) SessionTimedOut()          {}
func (noopMetrics) DuplicateTransferDropped() {}
func (noopMetrics) CRCFailure()               {}

// TransferHandler is called with every successfully reassembled transfer
// this node accepts, on whichever port it arrived.
type TransferHandler func(transfer transport.Transfer, kind transport.PortKind, portID uint16, source frame.NodeID)

// Node is the cooperative UAVCAN/CAN v1 transfer-layer core for one
// node id (or the anonymous state, before a node id has been assigned).
type Node struct {
	ID      frame.OptionalNodeID
	MTU     transport.MTU
	Clock   instant.Clock
	Logger  *slog.Logger
	Metrics Metrics

	Queue    *queue.Queue
	Receiver *transport.Receiver

	OnTransfer TransferHandler

	heartbeat *heartbeatState
	portList  *portListState
	info      *getInfoResponder
}

// Config bundles what New needs to build a Node.
type Config struct {
	ID          frame.OptionalNodeID
	MTU         transport.MTU
	Clock       instant.Clock
	Logger      *slog.Logger
	Metrics     Metrics
	QueueDepth  int
	MaxSessions int

	// Info is returned verbatim on every uavcan.node.GetInfo request. The
	// zero value is a valid, if uninformative, NodeInfo.
	Info NodeInfo
}

// New builds a Node ready to have subscriptions and publishers attached.
func New(cfg Config) *Node {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id, present := cfg.ID.Get()
	logArgs := []any{"service", "[NODE]"}
	if present {
		logArgs = append(logArgs, "id", id)
	} else {
		logArgs = append(logArgs, "id", "anonymous")
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	queueDepth := cfg.QueueDepth
	if queueDepth <= 0 {
		queueDepth = 64
	}

	n := &Node{
		ID:       cfg.ID,
		MTU:      cfg.MTU,
		Clock:    cfg.Clock,
		Logger:   logger.With(logArgs...),
		Metrics:  metrics,
		Queue:    queue.New(queueDepth),
		Receiver: transport.NewReceiver(),
	}
	n.heartbeat = newHeartbeatState(n)
	n.portList = newPortListState(n)
	n.info = newGetInfoResponder(cfg.Info)
	n.Subscribe(transport.PortRequest, uint16(GetInfoServiceID), instant.Duration(1_000_000), 8)
	return n
}

// Subscribe registers a Subscription for a message subject, service
// request, or service response port.
func (n *Node) Subscribe(kind transport.PortKind, id uint16, timeout instant.Duration, maxSessions int) {
	n.Receiver.Subscribe(kind, id, transport.NewSubscription(timeout, maxSessions))
}

// NewPublisher builds a Publisher bound to this node's id and MTU, and
// records subject as one this node advertises, so it appears in the
// node's next periodic port list.
func (n *Node) NewPublisher(priority frame.Priority, subject frame.SubjectID, timeout instant.Duration) *transport.Publisher {
	n.portList.AnnouncePublished(subject)
	return transport.NewPublisher(priority, subject, n.ID, n.MTU, timeout)
}

// NewRequester builds a Requester bound to this node's id and MTU.
// Returns ErrAnonymousRequester if this node has no id yet: an anonymous
// node has no address a response could be routed back to.
func (n *Node) NewRequester(priority frame.Priority, service frame.ServiceID, timeout instant.Duration) (*transport.Requester, error) {
	id, present := n.ID.Get()
	if !present {
		return nil, ErrAnonymousRequester
	}
	return transport.NewRequester(priority, service, id, n.MTU, timeout), nil
}

// NewResponder builds a Responder bound to this node's id and MTU.
// Returns ErrAnonymousRequester if this node has no id yet.
func (n *Node) NewResponder(timeout instant.Duration) (*transport.Responder, error) {
	id, present := n.ID.Get()
	if !present {
		return nil, ErrAnonymousRequester
	}
	return transport.NewResponder(id, n.MTU, timeout), nil
}

// AcceptFrame feeds one received frame into the node: reassembly,
// duplicate/timeout handling, and -- on a completed transfer -- the
// registered TransferHandler. It never blocks.
func (n *Node) AcceptFrame(f frame.Frame) {
	now := n.Clock.Now()
	transfer, kind, portID, complete, err := n.Receiver.Accept(now, f, n.ID)
	if err != nil {
		switch err {
		case transport.ErrCRCMismatch:
			n.Metrics.CRCFailure()
		case transport.ErrDuplicateTransfer:
			n.Metrics.DuplicateTransferDropped()
		}
		n.Logger.Debug("dropped frame", "err", err, "id", f.ID)
		return
	}
	if !complete {
		return
	}
	if kind == transport.PortRequest && frame.ServiceID(portID) == GetInfoServiceID {
		header := transport.ServiceHeader{
			Priority:    f.ID.Priority(),
			Service:     f.ID.Service(),
			Source:      f.ID.Source(),
			Destination: f.ID.Destination(),
			Request:     true,
		}
		n.info.respond(n, now, header, transfer.TransferID)
		return
	}
	if n.OnTransfer != nil {
		n.OnTransfer(transfer, kind, portID, f.ID.Source())
	}
}

// RunPerSecondTasks performs the once-a-second bookkeeping SPEC_FULL.md
// §4.8 describes: publishing a heartbeat, publishing the port list on its
// own slower cadence, and pruning reassembly sessions that have gone
// silent past their timeout. Call this from a 1Hz tick in the host loop
// (see Processor).
func (n *Node) RunPerSecondTasks() {
	now := n.Clock.Now()
	pruned := n.Receiver.PruneExpired(now)
	for i := 0; i < pruned; i++ {
		n.Metrics.SessionTimedOut()
	}
	n.heartbeat.tick(now)
	n.portList.tick(now)
}

// FrameFilters returns the ideal hardware acceptance filters this node's
// subscriptions currently need, unreduced. A host loop passes these
// through pkg/filter.Reduce before installing them on the link.
func (n *Node) FrameFilters() []filter.Ideal {
	return n.Receiver.IdealFilters()
}
