// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfq provides the bounded lock-free FIFO queues used internally
// by the dataplane and crypto-offload packages.
//
// Two access patterns cover every internal use:
//
//   - SPSC: one worker-owned ring with exactly one producer goroutine and
//     one consumer goroutine. Used (as SPSCIndirect) for the free-slot
//     list of each descriptor ring pair, which its one worker both fills
//     and drains.
//   - MPSC: many goroutines enqueue, a single owning worker dequeues. Used
//     for cross-worker RPC hand-off and for free lists reachable from more
//     than one worker.
//
// # Quick Start
//
//	q := lfq.NewSPSC[Descriptor](1024)
//	mailbox := lfq.NewMPSC[rpcTask](256)
//
// Builder API enforces the access pattern at construction time:
//
//	q := lfq.BuildSPSC[Descriptor](lfq.New(1024).SingleProducer().SingleConsumer())
//	mailbox := lfq.BuildMPSC[rpcTask](lfq.New(256).SingleConsumer())
//
// # Basic Usage
//
//	value := 42
//	err := q.Enqueue(&value)
//	if lfq.IsWouldBlock(err) {
//	    // queue full, apply backpressure
//	}
//
//	elem, err := q.Dequeue()
//	if lfq.IsWouldBlock(err) {
//	    // queue empty, try again later
//	}
//
// # Indirect Queues
//
// SPSCIndirect and MPSCIndirect carry uintptr slot indices instead of
// values, which is how the free-slot list of each descriptor ring pair
// is implemented (SPSCIndirect):
//
//	pool := make([]slot, 1024)
//	free := lfq.NewSPSCIndirect(1024)
//	for i := range pool {
//	    free.Enqueue(uintptr(i))
//	}
//	idx, err := free.Dequeue()
//	s := &pool[idx]
//
// # Error Handling
//
// Queues return [ErrWouldBlock] when an operation cannot proceed. This is
// sourced from [code.hybscloud.com/iox] for ecosystem consistency; treat it
// as a control-flow signal, not a failure:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Enqueue(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !lfq.IsWouldBlock(err) {
//	        return err
//	    }
//	    backoff.Wait()
//	}
//
// # Capacity
//
// Capacity rounds up to the next power of 2. Minimum capacity is 2; New
// panics below that.
//
// Length is intentionally not provided: accurate counts in lock-free
// algorithms require expensive cross-core synchronization. Track counts
// in application logic when needed.
//
// # Graceful Shutdown
//
// MPSC implements the [Drainer] interface. Drain records that producers
// have finished; MPSC's Dequeue has no threshold check and does not
// consult that record, so calling Drain does not change what Dequeue
// returns:
//
//	prodWg.Wait()
//	if d, ok := q.(lfq.Drainer); ok {
//	    d.Drain()
//	}
//
// SPSC does not implement Drainer.
//
// # Race Detection
//
// Go's race detector tracks explicit synchronization primitives but cannot
// observe happens-before relationships established purely through acquire
// release atomics on separate variables. Lock-free queues here rely on
// that ordering to protect non-atomic fields, so the detector may report
// false positives on the concurrent tests. The tests carry no build
// constraint and also run under -race.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit memory
// ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package lfq
