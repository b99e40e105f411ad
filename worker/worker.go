// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package worker

import (
	"code.hybscloud.com/dataplane/async"
	"code.hybscloud.com/dataplane/bridge"
)

// Worker ties one pinned dataplane thread's slice of both cores
// together: its mailbox (cross-worker RPC inbox), its async dispatcher
// (event pool, run queues, engine poll), and its epoll notifier for
// ring-pair deq_fd wakeups (§5 "Each worker owns its slice of both
// cores: its run queues, its event pool, its event-fd registrations,
// and its set of ring-pair endpoints").
type Worker struct {
	ID int

	router *Router
	notify *EpollNotifier
	async  *async.Dispatcher

	// fdToInstance resolves a deq_fd-readiness tag back to the
	// instance and qpair that owns it, since epoll only returns the
	// tag supplied at Register time.
	fdToInstance map[int32]fdRoute

	mailboxBudget int
}

type fdRoute struct {
	inst *bridge.Instance
	fwd  bridge.Forwarder
}

// NewWorker builds one worker's runtime state. router and dispatcher
// are shared infrastructure the worker addresses by its own ID;
// maxEvents bounds how many ring pairs this worker can have
// simultaneously registered with epoll.
func NewWorker(id int, router *Router, dispatcher *async.Dispatcher, maxEvents int) (*Worker, error) {
	notify, err := NewEpollNotifier(maxEvents)
	if err != nil {
		return nil, err
	}
	return &Worker{
		ID:            id,
		router:        router,
		notify:        notify,
		async:         dispatcher,
		fdToInstance:  make(map[int32]fdRoute),
		mailboxBudget: 4096,
	}, nil
}

// WatchQPair registers inst's deq_fd for this worker's epoll set and
// records the instance/forwarder pair needed to route a wakeup back
// to bridge.DequeueNode.RunOne.
func (w *Worker) WatchQPair(inst *bridge.Instance, deqFD int, fwd bridge.Forwarder) error {
	tag := deqFD
	if err := w.notify.Register(deqFD, int32(tag)); err != nil {
		return err
	}
	w.fdToInstance[int32(tag)] = fdRoute{inst: inst, fwd: fwd}
	return nil
}

// UnwatchQPair reverses WatchQPair, on the disconnect/delete path.
func (w *Worker) UnwatchQPair(deqFD int) error {
	delete(w.fdToInstance, int32(deqFD))
	return w.notify.Unregister(deqFD)
}

// Tick runs one full worker pass (§5): drain the local mailbox so
// cross-worker hand-offs are visible before any local processing,
// drive the async resumption dispatcher, then poll for deq_fd
// readiness and drain every signaled ring pair. No step here ever
// blocks; a tick with nothing to do simply returns quickly.
func (w *Worker) Tick(dq *bridge.DequeueNode) error {
	w.router.DrainLocal(w.ID, w.mailboxBudget)

	if w.async != nil {
		if err := w.async.Tick(); err != nil {
			return err
		}
	}

	ready, err := w.notify.Wait(0)
	if err != nil {
		return err
	}
	var firstErr error
	for _, tag := range ready {
		route, ok := w.fdToInstance[tag]
		if !ok {
			continue
		}
		// A replace verdict (or any other per-ring-pair error) on one
		// ring pair must not stop the rest of this tick's ring pairs
		// from draining; report the first one but keep going.
		if _, err := dq.RunOne(route.inst, w.ID, route.fwd); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close releases the worker's epoll instance. Ring-pair fds and the
// shared-memory segment they reference are released on the
// instance-delete/disconnect path, not here (§5 resource discipline:
// one owner per resource).
func (w *Worker) Close() error {
	return w.notify.Close()
}
