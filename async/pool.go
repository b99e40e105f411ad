// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import (
	"fmt"

	"code.hybscloud.com/dataplane/internal/lfq"
)

// EventPool is one worker's slab of reusable Event records (§2 "Event
// pool"). alloc is owner-only; free may be called from any worker, in
// which case the freed slot is routed through a remote-free mailbox
// and reclaimed on the owner's next drain, since only the owner may
// touch the local freelist (§4.4, §5).
type EventPool struct {
	workerID int
	events   []Event

	freelist []int32
	freeTop  int

	remoteFrees *lfq.MPSC[int32]
}

// NewEventPool builds a pool of capacity slots for workerID.
func NewEventPool(workerID, capacity int) *EventPool {
	p := &EventPool{
		workerID: workerID,
		events:   make([]Event, capacity),
		freelist: make([]int32, capacity),
	}
	for i := range p.events {
		p.events[i].slot = int32(i)
		p.events[i].worker = workerID
		p.events[i].next = -1
		p.freelist[i] = int32(i)
	}
	p.freeTop = capacity

	mailboxCap := capacity
	if mailboxCap < 2 {
		mailboxCap = 2
	}
	p.remoteFrees = lfq.NewMPSC[int32](mailboxCap)
	return p
}

// WorkerID returns the worker this pool belongs to.
func (p *EventPool) WorkerID() int { return p.workerID }

// Cap returns the pool's slot count.
func (p *EventPool) Cap() int { return len(p.events) }

// Live reports how many slots are currently allocated (not on the
// local freelist and not awaiting remote-free reclamation is not
// tracked precisely here; Live is an upper bound used only to decide
// whether polling the engine this tick is worthwhile, per §4.5).
func (p *EventPool) Live() int {
	return len(p.events) - p.freeTop
}

// alloc takes a free slot from this worker's own freelist. Must only
// be called by the owning worker.
func (p *EventPool) alloc() (*Event, error) {
	p.drainRemoteFrees()
	if p.freeTop == 0 {
		return nil, fmt.Errorf("async: event pool for worker %d exhausted", p.workerID)
	}
	p.freeTop--
	slot := p.freelist[p.freeTop]
	ev := &p.events[slot]
	ev.reset()
	return ev, nil
}

// free returns a slot to the pool. fromWorker identifies the caller's
// own worker id; when it differs from the pool's owner the slot is
// routed through the cross-worker mailbox instead of touching the
// local freelist directly (§4.4 "free(slot, worker) may target a
// different worker").
func (p *EventPool) free(slot int32, fromWorker int) {
	if fromWorker == p.workerID {
		p.pushLocal(slot)
		return
	}
	s := slot
	if err := p.remoteFrees.Enqueue(&s); err != nil {
		// Mailbox full under extreme pressure: the reclamation is
		// dropped and the slot is never returned to the freelist.
		// NewEventPool sizes the mailbox to at least the pool capacity,
		// so this is not expected in practice.
		return
	}
}

func (p *EventPool) pushLocal(slot int32) {
	p.events[slot].reset()
	p.freelist[p.freeTop] = slot
	p.freeTop++
}

// drainRemoteFrees reclaims slots freed by other workers into the
// local freelist. Called at the start of alloc and at the start of
// each dispatcher tick.
func (p *EventPool) drainRemoteFrees() {
	for {
		slot, err := p.remoteFrees.Dequeue()
		if err != nil {
			return
		}
		p.pushLocal(slot)
	}
}

// Event returns a pointer to the slot at index, for callers that hold
// a raw slot index (e.g. a run queue link) rather than an *Event.
func (p *EventPool) Event(slot int32) *Event {
	return &p.events[slot]
}
