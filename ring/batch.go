// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

// Batch groups the descriptor publishes of one traversal of a frame and
// signals enq_fd once at the batch boundary (§2 component 5). Each Add
// publishes its descriptor, and enq_head, immediately through Produce;
// only the enq_fd wakeup is deferred to Flush.
type Batch struct {
	rp      *RingPair
	signal  func(fd int) error
	touched bool
}

// NewBatch begins staging against rp. signal is called with rp.EnqFD
// exactly once, when Flush is called after at least one successful
// Add.
func NewBatch(rp *RingPair, signal func(fd int) error) *Batch {
	return &Batch{rp: rp, signal: signal}
}

// Add produces one descriptor into the underlying ring. It returns
// ErrCongested on a full ring without affecting the pending signal
// state — a dropped packet does not suppress the wakeup for packets
// already added to this batch.
func (b *Batch) Add(bufferIndex, length uint32, address uint64, nextIndex uint16) error {
	if err := b.rp.Produce(bufferIndex, length, address, nextIndex); err != nil {
		return err
	}
	b.touched = true
	return nil
}

// Flush signals enq_fd if any Add succeeded since the batch began.
func (b *Batch) Flush() error {
	if !b.touched {
		return nil
	}
	b.touched = false
	return b.signal(b.rp.EnqFD)
}
