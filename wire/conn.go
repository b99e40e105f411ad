// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"net"
	"sync"

	"golang.org/x/sys/unix"
)

// Frame is one decoded message read off the wire, with any file
// descriptors that rode along as ancillary data.
type Frame struct {
	Kind    Kind
	Payload []byte
	FDs     []int
}

// pendingWrite is one queued outbound message, held back until the
// socket is writable (§4.2's "pending outbound queue").
type pendingWrite struct {
	buf []byte
	fds []int
}

// Conn wraps one client's control socket: a UNIX stream connection
// carrying length-prefixed TLV frames plus SCM_RIGHTS ancillary file
// descriptors.
type Conn struct {
	uc *net.UnixConn

	mu      sync.Mutex
	pending []pendingWrite
}

// NewConn wraps an accepted UNIX socket connection.
func NewConn(uc *net.UnixConn) *Conn {
	return &Conn{uc: uc}
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.uc.Close()
}

// Send writes one frame, with fds attached as ancillary data. If the
// socket is not currently writable, the message is queued and Send
// returns nil; call Flush when a writability notification arrives.
func (c *Conn) Send(buf []byte, fds ...int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) > 0 {
		c.pending = append(c.pending, pendingWrite{buf: buf, fds: fds})
		return nil
	}

	ok, err := c.tryWrite(buf, fds)
	if err != nil {
		return err
	}
	if !ok {
		c.pending = append(c.pending, pendingWrite{buf: buf, fds: fds})
	}
	return nil
}

// tryWrite attempts a single non-blocking send (MSG_DONTWAIT). ok is
// false, with a nil error, if the socket is not writable (EAGAIN) and
// the caller should queue the message instead.
func (c *Conn) tryWrite(buf []byte, fds []int) (bool, error) {
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	rawConn, err := c.uc.SyscallConn()
	if err != nil {
		return false, err
	}
	var writeErr error
	wouldBlock := false
	ctrlErr := rawConn.Write(func(fd uintptr) bool {
		n, oobn, sendErr := unix.SendmsgN(int(fd), buf, oob, nil, unix.MSG_DONTWAIT)
		if sendErr == unix.EAGAIN {
			// Returning false would make RawConn.Write wait for
			// writability; stop instead and let the caller queue.
			wouldBlock = true
			return true
		}
		if sendErr != nil {
			writeErr = sendErr
			return true
		}
		if n != len(buf) || oobn != len(oob) {
			writeErr = fmt.Errorf("wire: short send: wrote %d/%d bytes, %d/%d oob", n, len(buf), oobn, len(oob))
		}
		return true
	})
	if ctrlErr != nil {
		return false, ctrlErr
	}
	if writeErr != nil {
		return false, writeErr
	}
	if wouldBlock {
		return false, nil
	}
	return true, nil
}

// Flush retries queued messages in order, stopping at the first one
// that still cannot be written.
func (c *Conn) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.pending) > 0 {
		pw := c.pending[0]
		ok, err := c.tryWrite(pw.buf, pw.fds)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		c.pending = c.pending[1:]
	}
	return nil
}

// PendingCount reports how many messages are queued behind
// backpressure, for tests and diagnostics.
func (c *Conn) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// ReadFrame blocks for the next frame, parsing ancillary file
// descriptors alongside the payload.
func (c *Conn) ReadFrame() (Frame, error) {
	hdr := make([]byte, HeaderSize)
	oob := make([]byte, unix.CmsgSpace(64*4)) // room for several fds

	n, oobn, err := c.readFull(hdr, oob)
	if err != nil {
		return Frame{}, err
	}
	if n < HeaderSize {
		return Frame{}, fmt.Errorf("wire: short header: %d bytes", n)
	}

	kind, payloadLen, ok := ParseHeader(hdr)
	if !ok {
		return Frame{}, fmt.Errorf("wire: malformed header")
	}

	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, _, err := c.readFull(payload, nil); err != nil {
			return Frame{}, err
		}
	}

	fds, err := parseFDs(oob[:oobn])
	if err != nil {
		return Frame{}, err
	}

	return Frame{Kind: kind, Payload: payload, FDs: fds}, nil
}

func (c *Conn) readFull(buf []byte, oob []byte) (int, int, error) {
	total, oobTotal := 0, 0
	for total < len(buf) {
		n, oobn, _, _, err := c.uc.ReadMsgUnix(buf[total:], oob)
		if err != nil {
			return total, oobTotal, err
		}
		total += n
		oobTotal += oobn
		if oobn > 0 {
			oob = oob[oobn:]
		}
	}
	return total, oobTotal, nil
}

func parseFDs(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, err
	}
	var fds []int
	for _, m := range msgs {
		got, err := unix.ParseUnixRights(&m)
		if err != nil {
			continue
		}
		fds = append(fds, got...)
	}
	return fds, nil
}
