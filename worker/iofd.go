// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package worker

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// NewEventFD creates one event-fd handle for a ring pair's enq_fd or
// deq_fd (§2 component 2, §6.1). It is non-blocking so Signal/Drain
// never stall a worker, matching §5's "workers never block" rule.
func NewEventFD() (int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1, fmt.Errorf("worker: eventfd: %w", err)
	}
	return fd, nil
}

// SignalEventFD writes one count to fd, waking a level-triggered
// waiter on the other side (§4.1 step 6, §4.3 enqueue node batch
// boundary).
func SignalEventFD(fd int) error {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(fd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("worker: eventfd signal: %w", err)
	}
	return nil
}

// DrainEventFD reads and discards fd's counter, clearing its
// level-triggered readiness (§4.1 step 3: drain deq_fd only after the
// consume loop, to avoid losing a wakeup that arrived mid-drain).
func DrainEventFD(fd int) error {
	var buf [8]byte
	_, err := unix.Read(fd, buf[:])
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("worker: eventfd drain: %w", err)
	}
	return nil
}

// CloseEventFD releases an event-fd handle. Safe to call once per fd,
// per the "every event-fd... is owned by exactly one component and
// released on one well-defined path" resource discipline (§5).
func CloseEventFD(fd int) error {
	return unix.Close(fd)
}

// ShmSegment is one instance's anonymous shared-memory segment, backed
// by memfd_create so it can be handed to the client as a plain fd over
// SCM_RIGHTS without a filesystem path (§3.1 Instance "shm_base,
// shm_size, shm_fd").
type ShmSegment struct {
	FD   int
	Size uint64
	Base []byte
}

// NewShmSegment allocates and maps a size-byte anonymous segment.
func NewShmSegment(name string, size uint64) (*ShmSegment, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("worker: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("worker: ftruncate: %w", err)
	}
	base, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("worker: mmap: %w", err)
	}
	return &ShmSegment{FD: fd, Size: size, Base: base}, nil
}

// Close unmaps and closes the segment. Safe to call once, on the
// instance-delete path that owns this segment's lifetime (§5).
func (s *ShmSegment) Close() error {
	if s.Base != nil {
		if err := unix.Munmap(s.Base); err != nil {
			return fmt.Errorf("worker: munmap: %w", err)
		}
		s.Base = nil
	}
	if s.FD >= 0 {
		err := unix.Close(s.FD)
		s.FD = -1
		if err != nil {
			return fmt.Errorf("worker: close shm fd: %w", err)
		}
	}
	return nil
}
