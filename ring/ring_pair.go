// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"

	"code.hybscloud.com/dataplane/internal/lfq"
)

// ErrCongested is returned by Produce when the ring is full. It is not a
// failure: the caller drops the packet to error-drop and counts it.
var ErrCongested = iox.ErrWouldBlock

// Route is supplied by the dequeue graph node. It receives the shadow
// state recorded at Produce time and the verdict decoded from the
// descriptor, and must route the original packet accordingly.
type Route func(bufferIndex uint32, nextIndex uint16, action Action)

// RingPair is the lock-free SPSC descriptor ring shared between one
// worker and one connected client for one instance. The bridge is the
// sole producer on enq_ring/enq_head and the sole consumer on
// deq_ring/deq_head; the client is the mirror image on its side of the
// shared-memory segment.
//
// Cursors are published with release stores and observed with acquire
// loads so no mutex sits on the hot path (§5).
type RingPair struct {
	logSize uint8
	mask    uint32

	descriptors   []Descriptor
	bufferIndices []uint32
	nextIndices   []uint16

	enqRing []uint32
	deqRing []uint32

	_       [64]byte
	enqHead atomix.Uint32
	_       [64 - 4]byte
	deqHead atomix.Uint32
	_       [64 - 4]byte

	// deqCursor is the bridge-private cursor into deqRing; it never
	// needs to be atomic because only the owning worker reads it.
	deqCursor uint32

	// freeList holds free descriptor slots (as slot indices, indirect
	// through lfq.SPSCIndirect); nextDesc is the rotating allocator used
	// once freeList runs dry (supplements the distilled spec with the
	// original's next_desc field). The bridge worker is both the sole
	// producer (free) and sole consumer (allocate) of its own ring
	// pair's freeList, so the SPSC variant applies directly.
	freeList *lfq.SPSCIndirect
	nextDesc uint32

	EnqFD int
	DeqFD int

	DropOnDisconnect bool
}

// NewRingPair builds a ring pair with 2^logSize descriptor slots.
func NewRingPair(logSize uint8, enqFD, deqFD int, dropOnDisconnect bool) *RingPair {
	n := uint32(1) << logSize
	rp := &RingPair{
		logSize:          logSize,
		mask:             n - 1,
		descriptors:      make([]Descriptor, n),
		bufferIndices:    make([]uint32, n),
		nextIndices:      make([]uint16, n),
		enqRing:          make([]uint32, n),
		deqRing:          make([]uint32, n),
		EnqFD:            enqFD,
		DeqFD:            deqFD,
		DropOnDisconnect: dropOnDisconnect,
	}
	rp.resetFreelist()
	return rp
}

// resetFreelist fills freeList with every slot index, as
// snort_freelist_init does in the original implementation.
func (rp *RingPair) resetFreelist() {
	n := int(rp.mask) + 1
	capacity := n
	if capacity < 2 {
		capacity = 2
	}
	rp.freeList = lfq.New(capacity).SingleProducer().SingleConsumer().BuildIndirectSPSC()
	for i := 0; i < n; i++ {
		_ = rp.freeList.Enqueue(uintptr(i))
	}
	rp.nextDesc = 0
}

// Size returns the number of descriptor slots (2^logSize).
func (rp *RingPair) Size() uint32 {
	return rp.mask + 1
}

// EnqHead returns the current published enqueue cursor.
func (rp *RingPair) EnqHead() uint32 {
	return rp.enqHead.LoadAcquire()
}

// DeqHead returns the current published dequeue cursor, as last
// observed by this worker.
func (rp *RingPair) DeqHead() uint32 {
	return rp.deqHead.LoadAcquire()
}

// allocate returns a free descriptor slot, preferring freeList and
// falling back to the rotating next_desc allocator (§4.1 step 2).
func (rp *RingPair) allocate() uint32 {
	if slot, err := rp.freeList.Dequeue(); err == nil {
		return uint32(slot)
	}
	slot := rp.nextDesc
	rp.nextDesc = (rp.nextDesc + 1) & rp.mask
	return slot
}

func (rp *RingPair) free(slot uint32) {
	// freeList is sized to this ring's slot count, so Enqueue can only
	// fail if a slot were freed twice; nothing to do but drop it, since
	// the rotating allocator still guarantees forward progress.
	_ = rp.freeList.Enqueue(uintptr(slot))
}

// Produce enqueues one descriptor. It returns ErrCongested (never
// blocks) when enq_head - deq_head == 2^k; the caller must drop the
// packet to error-drop.
func (rp *RingPair) Produce(bufferIndex, length uint32, address uint64, nextIndex uint16) error {
	head := rp.enqHead.LoadRelaxed()
	tail := rp.deqHead.LoadAcquire()
	if head-tail == rp.Size() {
		return ErrCongested
	}

	slot := rp.allocate()
	rp.descriptors[slot] = Descriptor{
		BufferIndex: bufferIndex,
		Length:      length,
		Address:     address,
		Action:      ActionPass,
	}
	rp.bufferIndices[slot] = bufferIndex
	rp.nextIndices[slot] = nextIndex

	rp.enqRing[head&rp.mask] = slot
	rp.enqHead.StoreRelease(head + 1)
	return nil
}

// Consume drains every verdict currently published on deq_head,
// invoking route for each one, and returns the number processed. If any
// descriptor decoded with ActionReplace, the first such occurrence is
// returned as ErrReplaceUnsupported — the verdict is still routed
// through route (as ActionReplace, so callers can count/log it) and the
// slot is still freed, but the caller must treat the round as having
// hit an unsupported verdict rather than a clean one. The caller is
// responsible for draining deq_fd exactly once after Consume returns,
// per §4.1 step 3.
func (rp *RingPair) Consume(route Route) (int, error) {
	published := rp.deqHead.LoadAcquire()
	n := 0
	var firstErr error
	for rp.deqCursor != published {
		slot := rp.deqRing[rp.deqCursor&rp.mask]
		d := rp.descriptors[slot]
		if d.Action == ActionReplace && firstErr == nil {
			firstErr = ErrReplaceUnsupported
		}
		route(rp.bufferIndices[slot], rp.nextIndices[slot], d.Action)
		rp.free(slot)
		rp.deqCursor++
		n++
	}
	return n, firstErr
}

// Disconnect handles loss of the client mid-batch (§4.1 "Disconnect
// semantics"). Every in-flight slot (allocated but not yet freed) is
// either dropped (dropOnDisconnect) or logically forwarded with PASS,
// and the ring is reset to a clean state for a future reconnect.
func (rp *RingPair) Disconnect(route Route) int {
	// Slots still sitting in freeList are not in flight; drain it into a
	// set so the scan below can skip them (the freeList is about to be
	// rebuilt by resetFreelist anyway, so draining it here is free).
	freeSlots := make(map[uint32]bool, rp.mask+1)
	for {
		slot, err := rp.freeList.Dequeue()
		if err != nil {
			break
		}
		freeSlots[uint32(slot)] = true
	}
	n := int(rp.mask) + 1
	dropped := 0
	for slot := uint32(0); slot < uint32(n); slot++ {
		if freeSlots[slot] {
			continue
		}
		if rp.DropOnDisconnect {
			dropped++
			continue
		}
		route(rp.bufferIndices[slot], rp.nextIndices[slot], ActionPass)
	}
	rp.resetFreelist()
	rp.deqCursor = 0
	rp.enqHead.StoreRelease(0)
	rp.deqHead.StoreRelease(0)
	return dropped
}
