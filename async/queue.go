// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

// RunQueue is a per-worker, intrusive singly-linked FIFO over event
// pool slots (§3.2 "Per-worker run queue", §4.4). Two exist per
// worker: init_queue and data_queue. A queue is only ever drained by
// its owning worker; Enqueue may be called from the owning worker's
// own code (self re-arm) or from a send_rpc_to_thread hand-off already
// running on that worker (§5).
type RunQueue struct {
	pool *EventPool
	head int32
	tail int32
	size int
}

// NewRunQueue builds an empty run queue backed by pool.
func NewRunQueue(pool *EventPool) *RunQueue {
	return &RunQueue{pool: pool, head: -1, tail: -1}
}

// Depth returns the number of events currently queued.
func (q *RunQueue) Depth() int { return q.size }

// Enqueue appends slot's event to the tail (§4.4 "enqueue"). If the
// event is already status==ready (already queued and not yet drained),
// this call instead marks it for reentry and returns false: the event
// is not linked twice, and its single queued entry is dispatched once
// when it is eventually drained.
func (q *RunQueue) Enqueue(slot int32) bool {
	ev := q.pool.Event(slot)
	if ev.Status() == StatusReady {
		ev.reenter = true
		return false
	}
	ev.setStatus(StatusReady)
	ev.next = -1
	if q.tail == -1 {
		q.head = slot
	} else {
		q.pool.Event(q.tail).next = slot
	}
	q.tail = slot
	q.size++
	return true
}

// Drain pops up to budget events and dispatches each via dispatch. A
// reentered event is linked only once, so it is dispatched once: its
// reenter mark is cleared and no second handler invocation follows
// (§4.4). It returns the number of slots popped.
func (q *RunQueue) Drain(budget int, dispatch func(ev *Event)) int {
	n := 0
	for n < budget && q.head != -1 {
		slot := q.head
		ev := q.pool.Event(slot)

		q.head = ev.next
		if q.head == -1 {
			q.tail = -1
		}
		q.size--

		ev.reenter = false
		ev.setStatus(StatusDeqDone)
		dispatch(ev)
		n++
	}
	return n
}
