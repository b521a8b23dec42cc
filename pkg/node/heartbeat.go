package node

import (
	"github.com/samsamfire/gouavcan/pkg/bitcursor"
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/samsamfire/gouavcan/pkg/queue"
	"github.com/samsamfire/gouavcan/pkg/transport"
)

// HeartbeatSubjectID is the fixed subject id uavcan.node.Heartbeat.1.0
// publishes on, matching the real UAVCAN standard port id so this node's
// heartbeat is recognizable to any compliant tooling on the bus.
const HeartbeatSubjectID frame.SubjectID = 7509

// Health mirrors uavcan.node.Health.1.0.
type Health uint8

const (
	HealthNominal  Health = 0
	HealthAdvisory Health = 1
	HealthCaution  Health = 2
	HealthWarning  Health = 3
)

// Mode mirrors uavcan.node.Mode.1.0.
type Mode uint8

const (
	ModeOperational     Mode = 0
	ModeInitialization  Mode = 1
	ModeMaintenance     Mode = 2
	ModeSoftwareUpdate  Mode = 3
)

// Heartbeat is this node's liveness report, published once a second.
type Heartbeat struct {
	UptimeSeconds            uint32
	Health                   Health
	Mode                     Mode
	VendorSpecificStatusCode byte
}

// SizeBits is 7 bytes: health (2 bits) and mode (3 bits) are each a
// composite padded to a whole byte.
func (h *Heartbeat) SizeBits() int { return 32 + 8 + 8 + 8 }

func (h *Heartbeat) Serialize(w *bitcursor.Writer) {
	w.WriteUint(uint64(h.UptimeSeconds), 32)
	w.WriteUint(uint64(h.Health), 2)
	w.AlignToByte()
	w.WriteUint(uint64(h.Mode), 3)
	w.AlignToByte()
	w.WriteUint(uint64(h.VendorSpecificStatusCode), 8)
}

func (h *Heartbeat) Deserialize(r *bitcursor.Reader) error {
	h.UptimeSeconds = uint32(r.ReadUint(32))
	h.Health = Health(r.ReadUint(2))
	r.AlignToByte()
	h.Mode = Mode(r.ReadUint(3))
	r.AlignToByte()
	h.VendorSpecificStatusCode = byte(r.ReadUint(8))
	return nil
}

// heartbeatState owns the Publisher backing a node's periodic heartbeat
// and tracks uptime since the node came up.
type heartbeatState struct {
	n         *Node
	pub       *transport.Publisher
	startedAt instant.Instant
	started   bool
}

func newHeartbeatState(n *Node) *heartbeatState {
	return &heartbeatState{
		n: n,
		pub: transport.NewPublisher(
			frame.PriorityNominal, HeartbeatSubjectID, n.ID, n.MTU, instant.Duration(1_000_000),
		),
	}
}

// tick publishes one heartbeat, meant to be called once a second.
func (hb *heartbeatState) tick(now instant.Instant) {
	if !hb.started {
		hb.startedAt = now
		hb.started = true
	}
	uptime := now.DurationSince(hb.startedAt)
	hbMsg := Heartbeat{
		UptimeSeconds: uint32(uptime / 1_000_000),
		Health:        HealthNominal,
		Mode:          ModeOperational,
	}
	payload := bitcursor.Marshal(&hbMsg)
	_, err := hb.pub.Publish(now, payload, hb.n.Queue)
	if err != nil {
		if err == queue.ErrOutOfMemory {
			hb.n.Metrics.FrameDropped()
		}
		hb.n.Logger.Warn("failed to publish heartbeat", "err", err)
		return
	}
}
