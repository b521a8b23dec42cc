// Command node runs one UAVCAN/CAN v1 node: it connects to a link,
// publishes Heartbeat and PortList, answers GetInfo requests, and
// otherwise idles, forever. Grounded on the teacher's cmd/canopen, with
// the state-machine/EDS loading replaced by pkg/node.Processor and
// pkg/nodeconfig -- this binary's only job is wiring, not protocol logic.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/samsamfire/gouavcan/pkg/link"
	_ "github.com/samsamfire/gouavcan/pkg/link/socketcan"
	_ "github.com/samsamfire/gouavcan/pkg/link/socketcanclassic"
	_ "github.com/samsamfire/gouavcan/pkg/link/virtualcan"
	"github.com/samsamfire/gouavcan/pkg/node"
	"github.com/samsamfire/gouavcan/pkg/nodeconfig"
	"github.com/samsamfire/gouavcan/pkg/transport"
)

func main() {
	logger := slog.Default()

	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <interface-name> <node-id> [config.ini]\n", os.Args[0])
		os.Exit(1)
	}
	interfaceName := os.Args[1]
	nodeIDArg, err := strconv.Atoi(os.Args[2])
	if err != nil || nodeIDArg < 0 || nodeIDArg > int(frame.MaxNodeID) {
		fmt.Fprintf(os.Stderr, "invalid node id %q\n", os.Args[2])
		os.Exit(1)
	}

	cfg := nodeconfig.Default()
	if len(os.Args) > 3 {
		cfg, err = nodeconfig.Load(os.Args[3])
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.LinkChannel = interfaceName
	cfg.NodeID = frame.NodeID(nodeIDArg)

	bus, err := link.New(cfg.LinkInterface, cfg.LinkChannel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build link %q: %v\n", cfg.LinkInterface, err)
		os.Exit(1)
	}
	if err := bus.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %q on %q: %v\n", cfg.LinkInterface, cfg.LinkChannel, err)
		os.Exit(1)
	}
	defer bus.Disconnect()

	n := node.New(node.Config{
		ID:         frame.Node(cfg.NodeID),
		MTU:        cfg.MTU(),
		Clock:      instant.NewSystemClock(instant.Width64),
		Logger:     logger,
		QueueDepth: cfg.QueueCapacity,
		Info: node.NodeInfo{
			ProtocolVersionMajor: 1,
			Name:                 "org.gouavcan.node",
		},
	})

	timeout := instant.Duration(int64(cfg.SessionTimeout) * 1000)
	for _, subject := range cfg.Subjects {
		n.Subscribe(transport.PortMessage, uint16(subject), timeout, 8)
	}
	for _, service := range cfg.Services {
		n.Subscribe(transport.PortRequest, uint16(service), timeout, 8)
	}

	proc := node.NewProcessor(n, bus, 0, cfg.MaxHWFilters, logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := proc.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start processor: %v\n", err)
		os.Exit(1)
	}
	logger.Info("node running", "interface", cfg.LinkInterface, "channel", cfg.LinkChannel, "id", cfg.NodeID)

	<-ctx.Done()
	proc.Stop()
	proc.Wait()
}
