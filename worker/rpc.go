// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package worker ties the IDS bridge and the async crypto engine
// together per worker (§5): each Worker owns its slice of both
// subsystems' state, and cross-worker hand-off only ever happens
// through Router's send_rpc_to_thread.
package worker

import (
	"fmt"

	"code.hybscloud.com/dataplane/internal/lfq"
)

// defaultMailboxCapacity bounds the number of pending cross-worker
// closures a worker will buffer before Send reports backpressure.
const defaultMailboxCapacity = 4096

// Mailbox is one worker's inbound queue of closures handed off from
// other workers or from arbitrary engine callback threads (§5 "Cross-
// worker messaging only via send_rpc_to_thread").
type Mailbox struct {
	q *lfq.MPSC[func()]
}

// NewMailbox builds a mailbox with room for capacity pending closures.
func NewMailbox(capacity int) *Mailbox {
	if capacity < 2 {
		capacity = 2
	}
	return &Mailbox{q: lfq.NewMPSC[func()](capacity)}
}

// Send enqueues fn for later execution by the mailbox's owner.
func (m *Mailbox) Send(fn func()) error {
	return m.q.Enqueue(&fn)
}

// Drain runs up to budget queued closures in FIFO order, returning the
// number executed. Must only be called by the mailbox's owning worker.
func (m *Mailbox) Drain(budget int) int {
	n := 0
	for n < budget {
		fn, err := m.q.Dequeue()
		if err != nil {
			break
		}
		fn()
		n++
	}
	return n
}

// Router is the process-wide send_rpc_to_thread implementation: one
// mailbox per worker, addressed by index.
type Router struct {
	mailboxes []*Mailbox
}

// NewRouter builds a router with numWorkers mailboxes.
func NewRouter(numWorkers int) *Router {
	r := &Router{mailboxes: make([]*Mailbox, numWorkers)}
	for i := range r.mailboxes {
		r.mailboxes[i] = NewMailbox(defaultMailboxCapacity)
	}
	return r
}

// SendRPCToThread hands fn off to targetWorker's mailbox, matching the
// async engine's RPC type (§5, async.RPC).
func (r *Router) SendRPCToThread(targetWorker int, fn func()) error {
	if targetWorker < 0 || targetWorker >= len(r.mailboxes) {
		return fmt.Errorf("worker: invalid target worker %d", targetWorker)
	}
	return r.mailboxes[targetWorker].Send(fn)
}

// DrainLocal drains the calling worker's own mailbox. Each Worker
// calls this once per tick before touching its run queues or rings, so
// hand-offs are visible before any local processing for that tick.
func (r *Router) DrainLocal(workerID, budget int) int {
	return r.mailboxes[workerID].Drain(budget)
}
