// Package link defines the Link interface a pkg/node driver pumps frames
// through, and the registry concrete drivers (pkg/link/socketcan,
// pkg/link/socketcanclassic, pkg/link/virtualcan) register themselves
// under. Generalized from the teacher's pkg/can.Bus interface and
// RegisterInterface/NewBus registry.
package link

import (
	"fmt"

	"github.com/samsamfire/gouavcan/pkg/filter"
	"github.com/samsamfire/gouavcan/pkg/frame"
)

// Listener receives frames as they arrive off the wire.
type Listener interface {
	Handle(f frame.Frame)
}

// Link is one physical or virtual CAN bus connection.
type Link interface {
	Connect(...any) error
	Disconnect() error
	Send(f frame.Frame) error
	Subscribe(l Listener) error
	// SetFilters installs hardware (or best-effort software) acceptance
	// filters. A driver that cannot filter in hardware may implement this
	// as a no-op and let pkg/node filter in software instead.
	SetFilters(filters []filter.Ideal) error
}

// NewLinkFunc constructs a Link bound to channel (an interface name for
// socketcan, a host:port for virtualcan).
type NewLinkFunc func(channel string) (Link, error)

var registry = make(map[string]NewLinkFunc)

// RegisterInterface makes a driver available under name, for New to find.
// Concrete drivers call this from an init() function.
func RegisterInterface(name string, ctor NewLinkFunc) {
	registry[name] = ctor
}

// New builds a Link for the named interface ("socketcan", "socketcanclassic",
// "virtualcan", ...) connected to channel.
func New(name, channel string) (Link, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("link: unsupported interface %q", name)
	}
	return ctor(channel)
}
