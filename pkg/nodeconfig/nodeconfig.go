// Package nodeconfig loads the static, per-node configuration the cmd/
// binaries need at startup: node id, link driver/channel, subscription
// list, and the tuning knobs pkg/node needs for queue depth, filter bank
// size, and timeouts. UAVCAN has no object dictionary, so there's nothing
// EDS-shaped to parse -- instead this package gives the teacher's
// `gopkg.in/ini.v1` dependency (pkg/od's EDS loader in the teacher repo)
// a new, much smaller job: a handful of [section] blocks instead of a
// full object dictionary export.
package nodeconfig

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/transport"
	"gopkg.in/ini.v1"
)

// Config is everything a cmd/ binary needs to stand up one node.
type Config struct {
	NodeID frame.NodeID

	LinkInterface string
	LinkChannel   string

	CanFD          bool
	QueueCapacity  int
	MaxHWFilters   int
	SessionTimeout int // milliseconds
	PublishTimeout int // milliseconds

	Subjects []frame.SubjectID
	Services []frame.ServiceID
}

// Default returns the configuration used when no INI file is given: node
// id 0 talking Classic CAN over the "virtual" link driver, with no
// channel set, and conservative queue/session sizing.
func Default() Config {
	return Config{
		LinkInterface:  "virtual",
		CanFD:          false,
		QueueCapacity:  64,
		MaxHWFilters:   8,
		SessionTimeout: 2000,
		PublishTimeout: 1000,
	}
}

// Load reads a node configuration from an INI file shaped like:
//
//	[node]
//	id = 42
//
//	[link]
//	interface = socketcan
//	channel = can0
//	fd = true
//
//	[queue]
//	capacity = 64
//	max_hw_filters = 8
//	session_timeout_ms = 2000
//	publish_timeout_ms = 1000
//
//	[subscriptions]
//	subjects = 1234, 1235
//	services = 10, 11
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("nodeconfig: %w", err)
	}

	if sec := f.Section("node"); sec.HasKey("id") {
		id, err := sec.Key("id").Int()
		if err != nil {
			return Config{}, fmt.Errorf("nodeconfig: [node] id: %w", err)
		}
		if id < 0 || id > int(frame.MaxNodeID) {
			return Config{}, fmt.Errorf("nodeconfig: [node] id %d out of range", id)
		}
		cfg.NodeID = frame.NodeID(id)
	}

	if sec := f.Section("link"); sec != nil {
		if sec.HasKey("interface") {
			cfg.LinkInterface = sec.Key("interface").String()
		}
		cfg.LinkChannel = sec.Key("channel").String()
		if sec.HasKey("fd") {
			cfg.CanFD, err = sec.Key("fd").Bool()
			if err != nil {
				return Config{}, fmt.Errorf("nodeconfig: [link] fd: %w", err)
			}
		}
	}

	if sec := f.Section("queue"); sec != nil {
		if v, err := sec.Key("capacity").Int(); err == nil && sec.HasKey("capacity") {
			cfg.QueueCapacity = v
		}
		if v, err := sec.Key("max_hw_filters").Int(); err == nil && sec.HasKey("max_hw_filters") {
			cfg.MaxHWFilters = v
		}
		if v, err := sec.Key("session_timeout_ms").Int(); err == nil && sec.HasKey("session_timeout_ms") {
			cfg.SessionTimeout = v
		}
		if v, err := sec.Key("publish_timeout_ms").Int(); err == nil && sec.HasKey("publish_timeout_ms") {
			cfg.PublishTimeout = v
		}
	}

	if sec := f.Section("subscriptions"); sec != nil {
		cfg.Subjects, err = parseIDList[frame.SubjectID](sec.Key("subjects").String())
		if err != nil {
			return Config{}, fmt.Errorf("nodeconfig: [subscriptions] subjects: %w", err)
		}
		cfg.Services, err = parseIDList[frame.ServiceID](sec.Key("services").String())
		if err != nil {
			return Config{}, fmt.Errorf("nodeconfig: [subscriptions] services: %w", err)
		}
	}

	return cfg, nil
}

// MTU returns the transport.MTU this configuration implies.
func (c Config) MTU() transport.MTU {
	if c.CanFD {
		return transport.CanFD
	}
	return transport.Classic
}

func parseIDList[T ~uint16](raw string) ([]T, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]T, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return nil, err
		}
		out = append(out, T(v))
	}
	return out, nil
}
