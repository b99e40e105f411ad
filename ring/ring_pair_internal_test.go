// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

import "testing"

func TestHappyPathSingleWorker(t *testing.T) {
	rp := NewRingPair(4, 10, 11, true)

	for i := uint32(0); i < 3; i++ {
		if err := rp.Produce(i, 100, uint64(i), 7); err != nil {
			t.Fatalf("Produce(%d): %v", i, err)
		}
	}
	if got := rp.EnqHead(); got != 3 {
		t.Fatalf("EnqHead: got %d, want 3", got)
	}

	if n := rp.SimulateClient(ActionPass); n != 3 {
		t.Fatalf("SimulateClient: processed %d, want 3", n)
	}

	forwarded := map[uint32]uint16{}
	if _, err := rp.Consume(func(buf uint32, next uint16, action Action) {
		if action != ActionPass {
			t.Fatalf("unexpected action %v", action)
		}
		forwarded[buf] = next
	}); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	if len(forwarded) != 3 {
		t.Fatalf("forwarded: got %d, want 3", len(forwarded))
	}
	for i := uint32(0); i < 3; i++ {
		if forwarded[i] != 7 {
			t.Fatalf("forwarded[%d]: got %d, want 7", i, forwarded[i])
		}
	}

	// The full round trip must have returned every slot to freeList: a
	// fresh batch of Size() produces should all succeed with no
	// congestion and no slot collisions.
	for i := uint32(0); i < rp.Size(); i++ {
		if err := rp.Produce(100+i, 10, uint64(i), 0); err != nil {
			t.Fatalf("post-round-trip Produce(%d): %v", i, err)
		}
	}
}

func TestRoundTripDropVerdict(t *testing.T) {
	rp := NewRingPair(4, 0, 0, true)
	const n = 6
	for i := uint32(0); i < n; i++ {
		if err := rp.Produce(i, 100, uint64(i), 0); err != nil {
			t.Fatalf("Produce(%d): %v", i, err)
		}
	}
	rp.SimulateClient(ActionDrop)

	dropped := 0
	if _, err := rp.Consume(func(buf uint32, next uint16, action Action) {
		if action != ActionDrop {
			t.Fatalf("unexpected action %v", action)
		}
		dropped++
	}); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if dropped != n {
		t.Fatalf("dropped: got %d, want %d", dropped, n)
	}

	// freeList must have every slot back: the ring can be filled to
	// capacity again right away.
	for i := uint32(0); i < rp.Size(); i++ {
		if err := rp.Produce(100+i, 10, uint64(i), 0); err != nil {
			t.Fatalf("post-round-trip Produce(%d): %v", i, err)
		}
	}
}

func TestAllocateUsesFreelistBeforeNextDesc(t *testing.T) {
	rp := NewRingPair(2, 0, 0, true) // 4 slots
	if err := rp.Produce(0, 1, 0, 0); err != nil {
		t.Fatal(err)
	}
	rp.SimulateClient(ActionPass)
	if _, err := rp.Consume(func(uint32, uint16, Action) {}); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	// freeList should have 4 slots again; next allocation must come
	// from freeList, not advance nextDesc.
	beforeNextDesc := rp.nextDesc
	if err := rp.Produce(1, 1, 0, 0); err != nil {
		t.Fatal(err)
	}
	if rp.nextDesc != beforeNextDesc {
		t.Fatalf("nextDesc advanced on freelist allocation: got %d, want %d", rp.nextDesc, beforeNextDesc)
	}
}

func TestConsumeRejectsReplaceVerdict(t *testing.T) {
	rp := NewRingPair(2, 0, 0, true)
	if err := rp.Produce(0, 10, 0, 0); err != nil {
		t.Fatal(err)
	}
	rp.SimulateClient(ActionReplace)

	var gotAction Action
	count, err := rp.Consume(func(buf uint32, next uint16, action Action) {
		gotAction = action
	})
	if count != 1 {
		t.Fatalf("count: got %d, want 1", count)
	}
	if gotAction != ActionReplace {
		t.Fatalf("routed action: got %v, want replace", gotAction)
	}
	if err != ErrReplaceUnsupported {
		t.Fatalf("Consume error: got %v, want ErrReplaceUnsupported", err)
	}
}
