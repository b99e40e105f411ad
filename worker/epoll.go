// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package worker

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// EpollNotifier is the file-notifier the dequeue graph node polls for
// deq_fd readiness (§4.3 "a file-notifier (level-triggered on deq_fd)
// marks its worker"). Registration is level-triggered: a ring pair
// with unconsumed verdicts keeps signaling ready on every Wait call
// until DrainEventFD clears its counter, matching the "one wakeup
// consumes all available verdicts" requirement.
type EpollNotifier struct {
	epfd   int
	events []unix.EpollEvent
}

// NewEpollNotifier creates an epoll instance sized for up to maxEvents
// simultaneous ready fds per Wait call.
func NewEpollNotifier(maxEvents int) (*EpollNotifier, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("worker: epoll_create1: %w", err)
	}
	if maxEvents < 1 {
		maxEvents = 1
	}
	return &EpollNotifier{epfd: epfd, events: make([]unix.EpollEvent, maxEvents)}, nil
}

// Register starts level-triggered monitoring of fd for readability,
// tagging the returned readiness with userData (typically a qpair
// index) so the caller can route it back to the right ring pair.
func (n *EpollNotifier) Register(fd int, userData int32) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: userData}
	if err := unix.EpollCtl(n.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("worker: epoll_ctl add fd=%d: %w", fd, err)
	}
	return nil
}

// Unregister stops monitoring fd, on the disconnect/delete path that
// owns this registration (§5 resource discipline).
func (n *EpollNotifier) Unregister(fd int) error {
	if err := unix.EpollCtl(n.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("worker: epoll_ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Wait polls for ready fds, non-blocking (timeoutMS=0), matching §5's
// "workers never block" rule: a dispatcher tick calls Wait once and
// moves on regardless of whether anything was ready. It returns the
// userData tags supplied at Register time for every fd currently
// readable.
func (n *EpollNotifier) Wait(timeoutMS int) ([]int32, error) {
	nReady, err := unix.EpollWait(n.epfd, n.events, timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("worker: epoll_wait: %w", err)
	}
	ready := make([]int32, nReady)
	for i := 0; i < nReady; i++ {
		ready[i] = n.events[i].Fd
	}
	return ready, nil
}

// Close releases the epoll instance.
func (n *EpollNotifier) Close() error {
	return unix.Close(n.epfd)
}
