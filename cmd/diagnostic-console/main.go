// Command diagnostic-console is an anonymous node that subscribes to
// uavcan.diagnostic.Record and prints every log record it sees to
// stdout, directly grounded on canadensis's diagnostic_console.rs
// example (see original_source/canadensis/examples/diagnostic_console.rs):
// same fixed subject, same severity-to-single-character mapping, same
// "[source][level] text" output line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samsamfire/gouavcan/pkg/bitcursor"
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/samsamfire/gouavcan/pkg/link"
	_ "github.com/samsamfire/gouavcan/pkg/link/socketcan"
	_ "github.com/samsamfire/gouavcan/pkg/link/socketcanclassic"
	_ "github.com/samsamfire/gouavcan/pkg/link/virtualcan"
	"github.com/samsamfire/gouavcan/pkg/node"
	"github.com/samsamfire/gouavcan/pkg/transport"
)

// diagnosticRecordSubjectID is the fixed subject id uavcan.diagnostic.Record
// publishes on.
const diagnosticRecordSubjectID frame.SubjectID = 8184

// severity mirrors uavcan.diagnostic.Severity.1.0's value field.
type severity uint8

const (
	severityTrace    severity = 0
	severityDebug    severity = 1
	severityInfo     severity = 2
	severityNotice   severity = 3
	severityWarning  severity = 4
	severityError    severity = 5
	severityCritical severity = 6
	severityAlert    severity = 7
)

func (s severity) letter() byte {
	switch s {
	case severityTrace:
		return 'T'
	case severityDebug:
		return 'D'
	case severityInfo:
		return 'I'
	case severityNotice:
		return 'N'
	case severityWarning:
		return 'W'
	case severityError:
		return 'E'
	case severityCritical:
		return 'C'
	case severityAlert:
		return 'A'
	default:
		return '?'
	}
}

// diagnosticRecord mirrors uavcan.diagnostic.Record.1.1: a synchronized
// timestamp, a severity, and free-form UTF-8 text.
type diagnosticRecord struct {
	TimestampMicros uint64 // 56 bits on the wire
	Severity        severity
	Text            string
}

func (r *diagnosticRecord) Deserialize(reader *bitcursor.Reader) error {
	r.TimestampMicros = reader.ReadUint(56)
	r.Severity = severity(reader.ReadUint(8) & 0x7)
	n := int(reader.ReadUint(8))
	r.Text = string(reader.ReadBytes(n))
	return nil
}

func main() {
	logger := slog.Default()

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interface-name>\n", os.Args[0])
		os.Exit(1)
	}
	interfaceName := os.Args[1]

	bus, err := link.New("socketcan", interfaceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build link: %v\n", err)
		os.Exit(1)
	}
	if err := bus.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %q: %v\n", interfaceName, err)
		os.Exit(1)
	}
	defer bus.Disconnect()

	n := node.New(node.Config{
		ID:     frame.Anonymous,
		MTU:    transport.Classic,
		Clock:  instant.NewSystemClock(instant.Width64),
		Logger: logger,
	})
	n.Subscribe(transport.PortMessage, uint16(diagnosticRecordSubjectID), instant.Duration(1_000_000), 4)
	n.OnTransfer = func(transfer transport.Transfer, kind transport.PortKind, portID uint16, source frame.NodeID) {
		if kind != transport.PortMessage || frame.SubjectID(portID) != diagnosticRecordSubjectID {
			return
		}
		var rec diagnosticRecord
		if err := rec.Deserialize(bitcursor.NewReader(transfer.Payload)); err != nil {
			fmt.Fprintf(os.Stderr, "couldn't deserialize log record: %v\n", err)
			return
		}
		fmt.Printf("[%d][%c] %s\n", source, rec.Severity.letter(), rec.Text)
	}

	proc := node.NewProcessor(n, bus, 0, 8, logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := proc.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start processor: %v\n", err)
		os.Exit(1)
	}

	<-ctx.Done()
	proc.Stop()
	proc.Wait()
}
