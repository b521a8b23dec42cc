package node

import (
	"github.com/samsamfire/gouavcan/pkg/bitcursor"
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/samsamfire/gouavcan/pkg/queue"
	"github.com/samsamfire/gouavcan/pkg/transport"
)

// PortListSubjectID is the fixed subject id this node's port list
// publishes on, one past HeartbeatSubjectID the same way the real
// uavcan.node.port.List port sits next to uavcan.node.Heartbeat in the
// standard fixed port id table.
const PortListSubjectID frame.SubjectID = 7510

// portListPeriodSeconds is how many RunPerSecondTasks ticks separate two
// port-list publications. The real uavcan.node.port.List message uses a
// sparse bitmask covering the whole subject/service id space; at these id
// widths that's over a kilobyte un-packed, so it's published far less
// often than the heartbeat it rides alongside.
const portListPeriodSeconds = 10

// PortList is a sparse summary of the ports this node currently has open,
// supplementing spec.md's "publishes a port list periodically" bullet
// with a concrete, allocation-light record: rather than the real DSDL
// type's full subject/service id bitmask (8192 + 512 + 512 bits), this
// lists only the ids actually in use, which is what a diagnostic tool
// cares about and is cheap to build on a no-allocator target.
type PortList struct {
	PublishedSubjects  []frame.SubjectID
	SubscribedSubjects []frame.SubjectID
	ClientServices     []frame.ServiceID
	ServerServices     []frame.ServiceID
}

func (p *PortList) SizeBits() int {
	lists := [][]uint16{
		widen16(p.PublishedSubjects),
		widen16(p.SubscribedSubjects),
		widen16(p.ClientServices),
		widen16(p.ServerServices),
	}
	bits := 0
	for _, l := range lists {
		bits += 8 + 16*len(l)
	}
	return bits
}

func (p *PortList) Serialize(w *bitcursor.Writer) {
	writeIDList(w, widen16(p.PublishedSubjects))
	writeIDList(w, widen16(p.SubscribedSubjects))
	writeIDList(w, widen16(p.ClientServices))
	writeIDList(w, widen16(p.ServerServices))
}

func writeIDList(w *bitcursor.Writer, ids []uint16) {
	n := len(ids)
	if n > 255 {
		n = 255 // truncate rather than overflow the 8-bit count field
	}
	w.WriteUint(uint64(n), 8)
	for _, id := range ids[:n] {
		w.WriteUint(uint64(id), 16)
	}
}

func widen16[T ~uint16](in []T) []uint16 {
	out := make([]uint16, len(in))
	for i, v := range in {
		out[i] = uint16(v)
	}
	return out
}

// portListState owns the Publisher backing a node's periodic port list
// and the slower countdown that gates it relative to the heartbeat.
type portListState struct {
	n                 *Node
	pub               *transport.Publisher
	ticksUntilNext    int
	publishedSubjects []frame.SubjectID
}

func newPortListState(n *Node) *portListState {
	return &portListState{
		n: n,
		pub: transport.NewPublisher(
			frame.PriorityOptional, PortListSubjectID, n.ID, n.MTU, instant.Duration(1_000_000),
		),
		ticksUntilNext: 0,
	}
}

// AnnouncePublished records subject as one this node publishes on, so it
// shows up in the next port list. Call this once per Publisher the host
// application creates.
func (pl *portListState) AnnouncePublished(subject frame.SubjectID) {
	pl.publishedSubjects = append(pl.publishedSubjects, subject)
}

func (pl *portListState) tick(now instant.Instant) {
	pl.ticksUntilNext--
	if pl.ticksUntilNext > 0 {
		return
	}
	pl.ticksUntilNext = portListPeriodSeconds

	// requests: services this node has a PortRequest subscription for,
	// i.e. it serves them. responses: services it has a PortResponse
	// subscription for, i.e. it called them and is awaiting a reply.
	subjects, requests, responses := pl.n.Receiver.SubscribedPorts()
	list := PortList{
		PublishedSubjects:  append([]frame.SubjectID{HeartbeatSubjectID, PortListSubjectID}, pl.publishedSubjects...),
		SubscribedSubjects: subjects,
		ServerServices:     requests,
		ClientServices:     responses,
	}
	payload := bitcursor.Marshal(&list)
	_, err := pl.pub.Publish(now, payload, pl.n.Queue)
	if err != nil {
		if err == queue.ErrOutOfMemory {
			pl.n.Metrics.FrameDropped()
		}
		pl.n.Logger.Warn("failed to publish port list", "err", err)
		return
	}
}
