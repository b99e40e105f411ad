// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

// SimulateClient mirrors what the external client does on its side of
// the shared-memory ring: it walks every slot published on enq_ring
// since its own cursor, stamps the descriptor with the given action,
// appends the slot to deq_ring in the same order, and publishes
// deq_head with a release store. It returns the number of slots
// processed.
//
// This module has no in-tree client binary (the real client is a
// separate process on the other side of the shared-memory segment), so
// SimulateClient exists purely to drive that side of the protocol from
// Go tests, both within package ring and from bridge/worker tests that
// need a connected client's verdicts without a real client process.
func (rp *RingPair) SimulateClient(action Action) int {
	clientEnqCursor := uint32(0) // test drives a single pass per call
	published := rp.enqHead.LoadAcquire()
	deqHead := rp.deqHead.LoadRelaxed()
	n := 0
	for clientEnqCursor+deqHead != published {
		slot := rp.enqRing[(deqHead+clientEnqCursor)&rp.mask]
		rp.descriptors[slot].Action = action
		rp.deqRing[(deqHead+clientEnqCursor)&rp.mask] = slot
		clientEnqCursor++
		n++
	}
	rp.deqHead.StoreRelease(deqHead + clientEnqCursor)
	return n
}
