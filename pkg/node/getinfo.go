package node

import (
	"github.com/samsamfire/gouavcan/pkg/bitcursor"
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/samsamfire/gouavcan/pkg/queue"
	"github.com/samsamfire/gouavcan/pkg/transport"
)

// GetInfoServiceID is the fixed service id uavcan.node.GetInfo.1.0 is
// served on, matching the real UAVCAN standard port id.
const GetInfoServiceID frame.ServiceID = 430

const maxNodeInfoNameBytes = 50

// NodeInfo is this node's static identity, handed to New and returned
// verbatim on every GetInfo request -- grounded on canadensis's
// basic_node.rs, which always registers a GetInfo responder backed by a
// fixed NodeInfo the application supplies at startup.
type NodeInfo struct {
	ProtocolVersionMajor, ProtocolVersionMinor uint8
	HardwareVersionMajor, HardwareVersionMinor uint8
	SoftwareVersionMajor, SoftwareVersionMinor uint8
	SoftwareVCSRevisionID                      uint64
	UniqueID                                   [16]byte
	Name                                       string // truncated to maxNodeInfoNameBytes on serialize
}

func (info *NodeInfo) name() []byte {
	b := []byte(info.Name)
	if len(b) > maxNodeInfoNameBytes {
		b = b[:maxNodeInfoNameBytes]
	}
	return b
}

func (info *NodeInfo) SizeBits() int {
	return 8*2 + 8*2 + 8*2 + 64 + 8*16 + 8 + 8*len(info.name())
}

func (info *NodeInfo) Serialize(w *bitcursor.Writer) {
	w.WriteUint(uint64(info.ProtocolVersionMajor), 8)
	w.WriteUint(uint64(info.ProtocolVersionMinor), 8)
	w.WriteUint(uint64(info.HardwareVersionMajor), 8)
	w.WriteUint(uint64(info.HardwareVersionMinor), 8)
	w.WriteUint(uint64(info.SoftwareVersionMajor), 8)
	w.WriteUint(uint64(info.SoftwareVersionMinor), 8)
	w.WriteUint(info.SoftwareVCSRevisionID, 64)
	for _, b := range info.UniqueID {
		w.WriteUint(uint64(b), 8)
	}
	name := info.name()
	w.WriteUint(uint64(len(name)), 8)
	w.WriteBytes(name)
}

// getInfoResponder answers uavcan.node.GetInfo requests with a fixed
// NodeInfo, via the same buildFrames/queue path every other response
// takes -- there is nothing node-specific in the dispatch beyond knowing
// which service id triggers it, which AcceptFrame checks directly.
type getInfoResponder struct {
	info NodeInfo
	resp *transport.Responder
}

func newGetInfoResponder(info NodeInfo) *getInfoResponder {
	return &getInfoResponder{info: info}
}

// respond builds and enqueues the GetInfo response to the request whose
// service frame header is given. respond is a silent no-op if this
// node is anonymous, since an anonymous node cannot be the destination
// of a service request in the first place.
func (g *getInfoResponder) respond(n *Node, now instant.Instant, header transport.ServiceHeader, requestTransferID frame.TransferID) {
	if g.resp == nil {
		id, present := n.ID.Get()
		if !present {
			return
		}
		g.resp = transport.NewResponder(id, n.MTU, instant.Duration(1_000_000))
	}
	payload := bitcursor.Marshal(&g.info)
	_, err := g.resp.Respond(now, header, requestTransferID, payload, n.Queue)
	if err != nil {
		if err == queue.ErrOutOfMemory {
			n.Metrics.FrameDropped()
		}
		n.Logger.Warn("failed to respond to GetInfo", "err", err)
		return
	}
}
