// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bridge_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/dataplane/bridge"
	"code.hybscloud.com/dataplane/ring"
)

type recordingForwarder struct {
	forwarded []uint32
	dropped   []uint32
}

func (f *recordingForwarder) Forward(bufferIndex uint32, nextIndex uint16) {
	f.forwarded = append(f.forwarded, bufferIndex)
}

func (f *recordingForwarder) Drop(bufferIndex uint32) {
	f.dropped = append(f.dropped, bufferIndex)
}

func TestEnqueueNodeDropsForUnknownInstance(t *testing.T) {
	b := newTestBridge()
	node := bridge.NewEnqueueNode(b, func(fd int) error { return nil })

	fwd := &recordingForwarder{}
	node.Run(0, []bridge.Packet{{BufferIndex: 1, InstanceID: 99, NextIndex: 3}}, fwd)

	if len(fwd.dropped) != 1 || fwd.dropped[0] != 1 {
		t.Fatalf("expected buffer 1 dropped, got %+v", fwd)
	}
}

func TestEnqueueNodePassThroughWhenNotDropOnDisconnect(t *testing.T) {
	b := newTestBridge()
	if _, err := b.CreateInstance("ids0", 4, false, 1, 0, 4096, newTestQPairs(1)); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	inst, err := b.InstanceByName("ids0")
	if err != nil {
		t.Fatal(err)
	}

	node := bridge.NewEnqueueNode(b, func(fd int) error { return nil })
	fwd := &recordingForwarder{}
	node.Run(0, []bridge.Packet{{BufferIndex: 7, InstanceID: inst.ID, NextIndex: 5}}, fwd)

	if len(fwd.forwarded) != 1 || fwd.forwarded[0] != 7 {
		t.Fatalf("expected buffer 7 passed through, got %+v", fwd)
	}
}

func TestEnqueueNodeSignalsOncePerInstanceBatch(t *testing.T) {
	b := newTestBridge()
	if _, err := b.CreateInstance("ids0", 4, true, 1, 0, 4096, newTestQPairs(1)); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	inst, err := b.InstanceByName("ids0")
	if err != nil {
		t.Fatal(err)
	}
	cs := bridge.NewClientSession(nil)
	if err := cs.HandleHello(b, wireHello("ids0")); err != nil {
		t.Fatalf("HandleHello: %v", err)
	}

	signals := 0
	node := bridge.NewEnqueueNode(b, func(fd int) error { signals++; return nil })
	fwd := &recordingForwarder{}
	pkts := []bridge.Packet{
		{BufferIndex: 1, InstanceID: inst.ID, NextIndex: 1},
		{BufferIndex: 2, InstanceID: inst.ID, NextIndex: 1},
		{BufferIndex: 3, InstanceID: inst.ID, NextIndex: 1},
	}
	node.Run(0, pkts, fwd)

	if signals != 1 {
		t.Fatalf("expected exactly one enq_fd signal for one instance batch, got %d", signals)
	}
	if len(fwd.dropped) != 0 {
		t.Fatalf("expected no drops, got %+v", fwd.dropped)
	}
}

func TestRunInterfaceHonorsAttachMode(t *testing.T) {
	b := newTestBridge()
	if _, err := b.CreateInstance("a", 4, true, 1, 0, 4096, newTestQPairs(1)); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if err := b.InterfaceAttach("a", 9, bridge.DirectionInout); err != nil {
		t.Fatalf("InterfaceAttach: %v", err)
	}
	// No client connected, so every resolved visit is a drop (the
	// instance's DropOnDisconnect=true) — an observable stand-in for
	// how many times the packet was submitted to the instance.
	node := bridge.NewEnqueueNode(b, func(fd int) error { return nil })
	pkts := []bridge.InterfacePacket{{BufferIndex: 1, NextIndex: 1}}

	fwdOnce := &recordingForwarder{}
	node.RunInterface(0, 9, bridge.DirectionInout, pkts, fwdOnce)
	if len(fwdOnce.dropped) != 1 {
		t.Fatalf("TraverseOnce: expected 1 drop, got %+v", fwdOnce.dropped)
	}

	b.SetInterfaceAttachMode(9, bridge.TraverseTwice)
	fwdTwice := &recordingForwarder{}
	node.RunInterface(0, 9, bridge.DirectionInout, pkts, fwdTwice)
	if len(fwdTwice.dropped) != 2 {
		t.Fatalf("TraverseTwice: expected 2 drops (one per visit), got %+v", fwdTwice.dropped)
	}
}

func TestRunInterfaceDropsWhenNoAttachment(t *testing.T) {
	b := newTestBridge()
	node := bridge.NewEnqueueNode(b, func(fd int) error { return nil })
	fwd := &recordingForwarder{}

	node.RunInterface(0, 42, bridge.DirectionInput, []bridge.InterfacePacket{{BufferIndex: 5}}, fwd)

	if len(fwd.dropped) != 1 || fwd.dropped[0] != 5 {
		t.Fatalf("expected buffer 5 dropped, got %+v", fwd)
	}
}

func TestDequeueNodeRunOneSurfacesReplaceVerdict(t *testing.T) {
	b := newTestBridge()
	qpairs := newTestQPairs(1)
	inst, err := b.CreateInstance("ids0", 4, true, 1, 0, 4096, qpairs)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	rp := qpairs[0]
	if err := rp.Produce(1, 10, 1, 0); err != nil {
		t.Fatalf("Produce: %v", err)
	}
	rp.SimulateClient(ring.ActionReplace)

	drains := 0
	node := bridge.NewDequeueNode(b, func(fd int) error { drains++; return nil })
	fwd := &recordingForwarder{}

	count, err := node.RunOne(inst, 0, fwd)
	if count != 1 {
		t.Fatalf("count: got %d, want 1", count)
	}
	if !errors.Is(err, ring.ErrReplaceUnsupported) {
		t.Fatalf("RunOne error: got %v, want ErrReplaceUnsupported", err)
	}
	if len(fwd.dropped) != 1 || fwd.dropped[0] != 1 {
		t.Fatalf("expected buffer 1 dropped, got %+v", fwd)
	}
	if len(fwd.forwarded) != 0 {
		t.Fatalf("expected no forwards, got %+v", fwd.forwarded)
	}
	if drains != 1 {
		t.Fatalf("expected deq_fd drained once, got %d", drains)
	}
}
