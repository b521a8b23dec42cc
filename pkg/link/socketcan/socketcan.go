// Package socketcan implements pkg/link.Link over a raw Linux AF_CAN
// socket, using the 72-byte canfd_frame layout so it can carry both
// Classic CAN (8-byte) and CAN FD (up to 64-byte) frames. Generalized
// from the teacher's pkg/can/socketcanv3 package, which only spoke the
// 16-byte classic can_frame layout.
package socketcan

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"unsafe"

	"github.com/samsamfire/gouavcan/pkg/filter"
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/instant"
	"github.com/samsamfire/gouavcan/pkg/link"
	"golang.org/x/sys/unix"
)

func init() {
	link.RegisterInterface("socketcan", New)
}

const (
	// canfdFrameSize is sizeof(struct canfd_frame): id(4) + len(1) +
	// flags(1) + res0(1) + res1(1) + data[64].
	canfdFrameSize = 72
	msgBatchSize   = 64
)

// canfdFrame mirrors struct canfd_frame from linux/can.h.
type canfdFrame struct {
	id    uint32
	len   uint8
	flags uint8
	res0  uint8
	res1  uint8
	data  [64]byte
}

const canfdBRS = 0x01 // bit rate switch flag, unused by this transport but part of the wire layout

// Bus is a socketcan Link backed by one AF_CAN raw socket.
type Bus struct {
	fd     int
	clock  instant.Clock
	rx     link.Listener
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

// New opens and binds a raw CAN FD socket on channel (e.g. "can0"). The
// interface must already be up.
func New(channel string) (link.Link, error) {
	iface, err := net.InterfaceByName(channel)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socketcan: create socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, 1); err != nil {
		return nil, fmt.Errorf("socketcan: enable CAN FD frames: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		return nil, fmt.Errorf("socketcan: bind: %w", err)
	}
	return &Bus{fd: fd, clock: instant.NewSystemClock(instant.Width64), logger: slog.Default().With("service", "[SOCKETCAN]")}, nil
}

func (b *Bus) Connect(...any) error {
	var ctx context.Context
	ctx, b.cancel = context.WithCancel(context.Background())
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.processIncoming(ctx)
	}()
	return nil
}

func (b *Bus) Disconnect() error {
	if b.cancel == nil {
		return nil
	}
	b.cancel()
	b.wg.Wait()
	return unix.Close(b.fd)
}

func (b *Bus) Send(f frame.Frame) error {
	var raw canfdFrame
	raw.id = uint32(f.ID) | unix.CAN_EFF_FLAG
	raw.len = uint8(len(f.Data))
	copy(raw.data[:], f.Data)

	bytes := (*(*[canfdFrameSize]byte)(unsafe.Pointer(&raw)))[:]
	n, err := unix.Write(b.fd, bytes)
	if err != nil {
		return fmt.Errorf("socketcan: write: %w", err)
	}
	if n != canfdFrameSize {
		return fmt.Errorf("socketcan: short write: wrote %d of %d bytes", n, canfdFrameSize)
	}
	return nil
}

func (b *Bus) Subscribe(l link.Listener) error {
	b.rx = l
	return nil
}

func (b *Bus) SetFilters(filters []filter.Ideal) error {
	raw := make([]unix.CanFilter, len(filters))
	for i, f := range filters {
		raw[i] = unix.CanFilter{Id: f.ID | unix.CAN_EFF_FLAG, Mask: f.Mask | unix.CAN_EFF_FLAG}
	}
	b.logger.Info("installing hardware filters", "count", len(raw))
	return unix.SetsockoptCanRawFilter(b.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, raw)
}

func (b *Bus) processIncoming(ctx context.Context) {
	if err := unix.SetNonblock(b.fd, false); err != nil {
		b.logger.Error("failed to set blocking mode", "err", err)
		return
	}
	if err := unix.SetsockoptTimeval(b.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &unix.Timeval{Usec: 100_000}); err != nil {
		b.logger.Error("failed to set read timeout", "err", err)
		return
	}

	raws := make([]canfdFrame, msgBatchSize)
	iovecs := make([]unix.Iovec, msgBatchSize)
	mmsgs := make([]mmsghdr, msgBatchSize)
	for i := range msgBatchSize {
		iovecs[i].Base = (*byte)(unsafe.Pointer(&raws[i]))
		iovecs[i].SetLen(canfdFrameSize)
		mmsgs[i].Hdr.Iov = &iovecs[i]
		mmsgs[i].Hdr.Iovlen = 1
	}

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("closing socketcan reception")
			return
		default:
			ts := unix.Timespec{Nsec: 10_000_000}
			n, _, errno := unix.Syscall6(
				unix.SYS_RECVMMSG,
				uintptr(b.fd),
				uintptr(unsafe.Pointer(&mmsgs[0])),
				uintptr(msgBatchSize),
				0,
				uintptr(unsafe.Pointer(&ts)),
				0,
			)
			if errno != 0 {
				if errno == unix.EAGAIN || errno == unix.EWOULDBLOCK || errno == unix.EINTR {
					continue
				}
				b.logger.Error("recvmmsg failed", "err", errno)
				return
			}
			if n == 0 {
				b.logger.Info("socket closed")
				return
			}
			now := b.clock.Now()
			for i := 0; i < int(n); i++ {
				raw := raws[i]
				data := append([]byte(nil), raw.data[:raw.len]...)
				f := frame.New(now, frame.CanId(raw.id&unix.CAN_EFF_MASK), data)
				if b.rx != nil {
					b.rx.Handle(f)
				}
			}
		}
	}
}
