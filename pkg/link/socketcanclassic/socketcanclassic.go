// Package socketcanclassic implements pkg/link.Link over
// github.com/brutella/can, for hosts where raw AF_CAN socket setup for
// CAN FD isn't wanted or available. It only ever sends/receives Classic
// CAN frames (8-byte data field); a node built on this driver must size
// its MTU at transport.Classic. Adapted directly from the teacher's
// pkg/can/socketcan package, which wraps the same library.
package socketcanclassic

import (
	sockcan "github.com/brutella/can"
	"github.com/samsamfire/gouavcan/pkg/filter"
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/samsamfire/gouavcan/pkg/link"
)

func init() {
	link.RegisterInterface("socketcanclassic", New)
}

// Bus wraps a brutella/can.Bus as a pkg/link.Link.
type Bus struct {
	bus   *sockcan.Bus
	rx    link.Listener
	clock instant.Clock
}

// New opens a Classic CAN socketcan bus on the named interface.
func New(name string) (link.Link, error) {
	bus, err := sockcan.NewBusForInterfaceWithName(name)
	if err != nil {
		return nil, err
	}
	return &Bus{bus: bus, clock: instant.NewSystemClock(instant.Width64)}, nil
}

func (b *Bus) Connect(...any) error {
	go b.bus.ConnectAndPublish()
	return nil
}

func (b *Bus) Disconnect() error {
	return b.bus.Disconnect()
}

func (b *Bus) Send(f frame.Frame) error {
	var data [8]byte
	copy(data[:], f.Data)
	return b.bus.Publish(sockcan.Frame{
		ID:     uint32(f.ID),
		Length: uint8(len(f.Data)),
		Flags:  0x80, // CAN_EFF_FLAG equivalent used by brutella/can for extended ids
		Data:   data,
	})
}

func (b *Bus) Subscribe(l link.Listener) error {
	b.rx = l
	b.bus.Subscribe(b)
	return nil
}

// Handle implements brutella/can's frame-handler interface.
func (b *Bus) Handle(f sockcan.Frame) {
	if b.rx == nil {
		return
	}
	data := append([]byte(nil), f.Data[:f.Length]...)
	b.rx.Handle(frame.New(b.clock.Now(), frame.CanId(f.ID), data))
}

// SetFilters is a no-op: brutella/can exposes no hardware filter API, so
// a node using this driver relies on software filtering in pkg/node
// instead.
func (b *Bus) SetFilters(filters []filter.Ideal) error {
	return nil
}
