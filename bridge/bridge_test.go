// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bridge_test

import (
	"testing"

	"github.com/rs/zerolog"

	"code.hybscloud.com/dataplane/bridge"
	"code.hybscloud.com/dataplane/ring"
	"code.hybscloud.com/dataplane/wire"
)

func wireHello(name string) wire.Hello {
	return wire.Hello{InstanceName: name}
}

func newTestBridge() *bridge.Bridge {
	log := zerolog.Nop()
	return bridge.New(&log)
}

func newTestQPairs(n int) []*ring.RingPair {
	qpairs := make([]*ring.RingPair, n)
	for i := range qpairs {
		qpairs[i] = ring.NewRingPair(4, 100+i, 200+i, true)
	}
	return qpairs
}

func TestCreateInstanceRejectsDuplicateName(t *testing.T) {
	b := newTestBridge()
	if _, err := b.CreateInstance("ids0", 4, true, 1, 0, 4096, newTestQPairs(2)); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if _, err := b.CreateInstance("ids0", 4, true, 2, 0, 4096, newTestQPairs(2)); err == nil {
		t.Fatal("expected error creating duplicate instance name")
	}
}

func TestInstanceByNameAndID(t *testing.T) {
	b := newTestBridge()
	inst, err := b.CreateInstance("ids0", 4, true, 1, 0, 4096, newTestQPairs(2))
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	byName, err := b.InstanceByName("ids0")
	if err != nil || byName.ID != inst.ID {
		t.Fatalf("InstanceByName mismatch: %v %+v", err, byName)
	}
	byID, err := b.InstanceByID(inst.ID)
	if err != nil || byID.Name != "ids0" {
		t.Fatalf("InstanceByID mismatch: %v %+v", err, byID)
	}
	if _, err := b.InstanceByName("nope"); err == nil {
		t.Fatal("expected error for unknown instance name")
	}
}

func TestInstanceDeleteRefusesWhileAttached(t *testing.T) {
	b := newTestBridge()
	inst, err := b.CreateInstance("ids0", 4, true, 1, 0, 4096, newTestQPairs(1))
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if err := b.InterfaceAttach("ids0", 7, bridge.DirectionInput); err != nil {
		t.Fatalf("InterfaceAttach: %v", err)
	}
	if err := b.InstanceDelete(inst.ID); err == nil {
		t.Fatal("expected delete to be refused while attached")
	}
	b.InterfaceDetachAll(7)
	if err := b.InstanceDelete(inst.ID); err != nil {
		t.Fatalf("InstanceDelete after detach: %v", err)
	}
	if _, err := b.InstanceByID(inst.ID); err == nil {
		t.Fatal("expected instance to be gone after delete")
	}
}

func TestInterfaceTraversalOrder(t *testing.T) {
	b := newTestBridge()
	if _, err := b.CreateInstance("a", 4, true, 1, 0, 4096, newTestQPairs(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := b.CreateInstance("b", 4, true, 2, 0, 4096, newTestQPairs(1)); err != nil {
		t.Fatal(err)
	}
	if err := b.InterfaceAttach("a", 1, bridge.DirectionInput); err != nil {
		t.Fatal(err)
	}
	if err := b.InterfaceAttach("b", 1, bridge.DirectionInput); err != nil {
		t.Fatal(err)
	}
	got := b.Traversal(1, bridge.DirectionInput)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected traversal order: %v", got)
	}
	if out := b.Traversal(1, bridge.DirectionOutput); out != nil {
		t.Fatalf("expected no output traversal, got %v", out)
	}
}

func TestInterfaceTraversalInoutHonorsMode(t *testing.T) {
	b := newTestBridge()
	if _, err := b.CreateInstance("a", 4, true, 1, 0, 4096, newTestQPairs(1)); err != nil {
		t.Fatal(err)
	}
	if err := b.InterfaceAttach("a", 9, bridge.DirectionInout); err != nil {
		t.Fatal(err)
	}

	// Default Mode is TraverseOnce: an instance attached to both
	// directions is visited exactly once for an inout query.
	once := b.Traversal(9, bridge.DirectionInout)
	if len(once) != 1 || once[0] != 1 {
		t.Fatalf("TraverseOnce: got %v, want [1]", once)
	}

	b.SetInterfaceAttachMode(9, bridge.TraverseTwice)
	twice := b.Traversal(9, bridge.DirectionInout)
	if len(twice) != 2 || twice[0] != 1 || twice[1] != 1 {
		t.Fatalf("TraverseTwice: got %v, want [1 1]", twice)
	}
}

func TestClientSessionHappyPath(t *testing.T) {
	b := newTestBridge()
	inst, err := b.CreateInstance("ids0", 4, true, 1, 0, 4096, newTestQPairs(1))
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	cs := bridge.NewClientSession(nil)
	if cs.State != bridge.StateHelloWait {
		t.Fatalf("want hello_w, got %s", cs.State)
	}

	if err := cs.HandleHello(b, wireHello("ids0")); err != nil {
		t.Fatalf("HandleHello: %v", err)
	}
	if cs.State != bridge.StateConfigSend {
		t.Fatalf("want config_s, got %s", cs.State)
	}
	if inst.Client() != cs {
		t.Fatal("instance should be bound to this session")
	}
}

func TestClientSessionRejectsDuplicateClient(t *testing.T) {
	b := newTestBridge()
	if _, err := b.CreateInstance("ids0", 4, true, 1, 0, 4096, newTestQPairs(1)); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	cs1 := bridge.NewClientSession(nil)
	if err := cs1.HandleHello(b, wireHello("ids0")); err != nil {
		t.Fatalf("first HandleHello: %v", err)
	}

	cs2 := bridge.NewClientSession(nil)
	if err := cs2.HandleHello(b, wireHello("ids0")); err == nil {
		t.Fatal("expected second client to be rejected")
	}
}

func TestClientSessionHelloWrongState(t *testing.T) {
	b := newTestBridge()
	if _, err := b.CreateInstance("ids0", 4, true, 1, 0, 4096, newTestQPairs(1)); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	cs := bridge.NewClientSession(nil)
	if err := cs.HandleHello(b, wireHello("ids0")); err != nil {
		t.Fatalf("HandleHello: %v", err)
	}
	if err := cs.HandleHello(b, wireHello("ids0")); err == nil {
		t.Fatal("expected HandleHello to reject re-entry from config_s")
	}
}

func TestInstanceDisconnectClosesClient(t *testing.T) {
	b := newTestBridge()
	inst, err := b.CreateInstance("ids0", 4, true, 1, 0, 4096, newTestQPairs(1))
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	cs := bridge.NewClientSession(nil)
	if err := cs.HandleHello(b, wireHello("ids0")); err != nil {
		t.Fatalf("HandleHello: %v", err)
	}
	if err := b.InstanceDisconnect(inst.ID); err != nil {
		t.Fatalf("InstanceDisconnect: %v", err)
	}
	if cs.State != bridge.StateClosed {
		t.Fatalf("want closed, got %s", cs.State)
	}
	if inst.Client() != nil {
		t.Fatal("instance should have no client after disconnect")
	}
}
