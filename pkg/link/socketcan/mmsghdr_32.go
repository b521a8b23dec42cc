//go:build 386 || arm || mips || mipsle || ppc

package socketcan

import "golang.org/x/sys/unix"

// mmsghdr is a Go representation of the C struct mmsghdr (absent from
// golang.org/x/sys/unix), needed for the batched recvmmsg syscall.
type mmsghdr struct {
	Hdr unix.Msghdr
	Len uint32
}
