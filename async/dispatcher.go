// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

// DefaultBudget is the per-tick, per-queue drain budget (§4.4).
const DefaultBudget = 256

// RPC delivers fn to run on targetWorker's dispatcher loop. It models
// send_rpc_to_thread (§5, §9): the only permitted way a completion
// arriving on an arbitrary thread may reach an event's owning worker.
type RPC func(targetWorker int, fn func()) error

// Dispatcher is one worker's resumption dispatcher (§4.5): each tick it
// polls the registered engine (if the pool has live events) and drains
// data_queue then init_queue, both every tick.
type Dispatcher struct {
	workerID int
	pool     *EventPool
	engine   Adapter
	rpc      RPC

	InitQueue *RunQueue
	DataQueue *RunQueue
}

// NewDispatcher builds a dispatcher for workerID, backed by pool and
// polling engine. rpc is used by NotifyComplete to safely deliver
// completions that originate off-worker.
func NewDispatcher(workerID int, pool *EventPool, engine Adapter, rpc RPC) *Dispatcher {
	return &Dispatcher{
		workerID:  workerID,
		pool:      pool,
		engine:    engine,
		rpc:       rpc,
		InitQueue: NewRunQueue(pool),
		DataQueue: NewRunQueue(pool),
	}
}

// WorkerID returns the dispatcher's owning worker index.
func (d *Dispatcher) WorkerID() int { return d.workerID }

// Pool returns the dispatcher's event pool.
func (d *Dispatcher) Pool() *EventPool { return d.pool }

// Tick runs one dispatch pass (§4.5). Both queues are drained every
// tick regardless of whether the engine was polled.
func (d *Dispatcher) Tick() error {
	d.pool.drainRemoteFrees()

	if d.pool.Live() > 0 {
		if err := d.engine.Poll(); err != nil {
			return err
		}
	}

	d.DataQueue.Drain(DefaultBudget, d.dispatch)
	d.InitQueue.Drain(DefaultBudget, d.dispatch)
	return nil
}

func (d *Dispatcher) dispatch(ev *Event) {
	ev.handler(d, ev)
}

// queueFor returns the run queue an event of kind belongs to: write
// and read events share data_queue, init (handshake) events use
// init_queue. Tick drains data_queue before init_queue.
func (d *Dispatcher) queueFor(kind Kind) *RunQueue {
	if kind == KindInit {
		return d.InitQueue
	}
	return d.DataQueue
}

// NotifyComplete re-arms slot's event onto its queue, from the worker
// that owns it. A caller on a different worker (e.g. an engine
// completion callback firing on an arbitrary thread) must go through
// rpc instead of calling this directly (§5).
func (d *Dispatcher) NotifyComplete(kind Kind, slot int32) bool {
	return d.queueFor(kind).Enqueue(slot)
}

// NotifyCompleteRemote delivers a completion for slot/kind from a
// foreign worker, via send_rpc_to_thread.
func (d *Dispatcher) NotifyCompleteRemote(kind Kind, slot int32) error {
	if d.rpc == nil {
		d.NotifyComplete(kind, slot)
		return nil
	}
	return d.rpc(d.workerID, func() {
		d.NotifyComplete(kind, slot)
	})
}

// Free releases slot back to its owning pool. fromWorker is the
// caller's own worker id (§4.4).
func (d *Dispatcher) Free(slot int32, fromWorker int) {
	d.pool.free(slot, fromWorker)
}
