// Package virtualcan implements pkg/link.Link over a length-prefixed TCP
// stream, for tests and non-Linux development where a real CAN interface
// isn't available. A broker process (see
// https://github.com/windelbouwman/virtualcan) fans frames out to every
// connected client. Adapted from the teacher's pkg/can/virtual, changed
// to serialize pkg/frame.Frame (a variable-length payload plus a 29-bit
// id) instead of CANopen's fixed 8-byte frame.
package virtualcan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/samsamfire/gouavcan/pkg/filter"
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/samsamfire/gouavcan/pkg/link"
)

func init() {
	link.RegisterInterface("virtual", New)
	link.RegisterInterface("virtualcan", New)
}

// Bus is a TCP-backed virtual CAN bus: one connection to a broker at
// channel ("host:port").
type Bus struct {
	logger     *slog.Logger
	mu         sync.Mutex
	channel    string
	conn       net.Conn
	receiveOwn bool
	rx         link.Listener
	clock      instant.Clock
	stopChan   chan struct{}
	wg         sync.WaitGroup
	isRunning  bool
	errored    bool
}

// New creates a virtual bus that will dial channel on Connect.
func New(channel string) (link.Link, error) {
	return &Bus{
		channel:  channel,
		stopChan: make(chan struct{}),
		clock:    instant.NewSystemClock(instant.Width64),
		logger:   slog.Default().With("service", "[VIRTUALCAN]"),
	}, nil
}

// SetReceiveOwn controls whether frames sent by this bus are also
// delivered to its own Listener, useful for single-process loopback
// tests that don't run a broker at all.
func (b *Bus) SetReceiveOwn(receiveOwn bool) { b.receiveOwn = receiveOwn }

func (b *Bus) Connect(...any) error {
	conn, err := net.Dial("tcp", b.channel)
	if err != nil {
		return err
	}
	b.conn = conn
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.errored && b.isRunning {
		close(b.stopChan)
		b.wg.Wait()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func (b *Bus) Send(f frame.Frame) error {
	if b.receiveOwn && b.rx != nil {
		b.rx.Handle(f)
	}
	if b.conn == nil {
		return errors.New("virtualcan: no active connection")
	}
	buf, err := serialize(f)
	if err != nil {
		return err
	}
	_ = b.conn.SetWriteDeadline(time.Now().Add(10 * time.Millisecond))
	_, err = b.conn.Write(buf)
	return err
}

func (b *Bus) Subscribe(l link.Listener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rx = l
	if b.isRunning {
		return nil
	}
	b.wg.Add(1)
	b.isRunning = true
	b.errored = false
	go b.run()
	return nil
}

func (b *Bus) SetFilters(filters []filter.Ideal) error {
	// The virtual bus has no hardware filter bank; every connected client
	// sees every frame and software-level filtering (pkg/node) applies.
	return nil
}

// serialize packs a frame as: 4-byte big-endian CanId, 1-byte data
// length, data bytes; the whole thing then gets a 4-byte big-endian
// length prefix, mirroring the teacher's length-prefixed framing.
func serialize(f frame.Frame) ([]byte, error) {
	if len(f.Data) > 255 {
		return nil, fmt.Errorf("virtualcan: frame data too long: %d bytes", len(f.Data))
	}
	body := make([]byte, 0, 5+len(f.Data))
	body = binary.BigEndian.AppendUint32(body, uint32(f.ID))
	body = append(body, byte(len(f.Data)))
	body = append(body, f.Data...)

	out := make([]byte, 4, 4+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body)))
	return append(out, body...), nil
}

func deserialize(body []byte) (frame.CanId, []byte, error) {
	if len(body) < 5 {
		return 0, nil, fmt.Errorf("virtualcan: short frame body: %d bytes", len(body))
	}
	id := binary.BigEndian.Uint32(body)
	n := int(body[4])
	if len(body) < 5+n {
		return 0, nil, fmt.Errorf("virtualcan: truncated frame data: want %d, got %d", n, len(body)-5)
	}
	return frame.CanId(id), append([]byte(nil), body[5:5+n]...), nil
}

func (b *Bus) recv() (frame.Frame, error) {
	_ = b.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	header := make([]byte, 4)
	if _, err := readFull(b.conn, header); err != nil {
		return frame.Frame{}, err
	}
	length := binary.BigEndian.Uint32(header)
	body := make([]byte, length)
	_ = b.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, err := readFull(b.conn, body); err != nil {
		return frame.Frame{}, err
	}
	id, data, err := deserialize(body)
	if err != nil {
		return frame.Frame{}, err
	}
	return frame.New(b.clock.Now(), id, data), nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (b *Bus) run() {
	defer func() {
		b.isRunning = false
		b.wg.Done()
	}()
	for {
		select {
		case <-b.stopChan:
			return
		default:
			if !b.mu.TryLock() {
				continue
			}
			f, err := b.recv()
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				// Nothing arrived within the deadline; normal.
			} else if err != nil {
				b.logger.Error("virtualcan reception stopped", "err", err)
				b.errored = true
				b.mu.Unlock()
				return
			} else if b.rx != nil {
				b.rx.Handle(f)
			}
			b.mu.Unlock()
		}
	}
}
