// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async_test

import (
	"testing"

	"code.hybscloud.com/dataplane/async"
)

func TestDispatcherTickDrainsBothQueues(t *testing.T) {
	pool := async.NewEventPool(0, 4)
	engine := async.NewDasyncAdapter()
	d := async.NewDispatcher(0, pool, engine, nil)

	sess := newFakeSession()
	sess.resumeOutcome = async.OutcomeWantRead

	ctxA := async.NewContext(1)
	must(t, ctxA.InitEvent(pool, async.HandshakeHandler, sess, async.KindInit, nil, 0))
	d.NotifyComplete(async.KindInit, ctxA.EventFor(async.KindInit).Slot())

	ctxB := async.NewContext(2)
	must(t, ctxB.InitEvent(pool, async.ReadHandler, sess, async.KindRead, nil, 0))
	d.NotifyComplete(async.KindRead, ctxB.EventFor(async.KindRead).Slot())

	if err := d.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if ctxA.EventFor(async.KindInit).Status() != async.StatusCbExecuted {
		t.Fatalf("init event status = %v, want cb_executed", ctxA.EventFor(async.KindInit).Status())
	}
	if ctxB.EventFor(async.KindRead).Status() != async.StatusCbExecuted {
		t.Fatalf("read event status = %v, want cb_executed", ctxB.EventFor(async.KindRead).Status())
	}
}

func TestDispatcherPollsEngineOnlyWhenLive(t *testing.T) {
	pool := async.NewEventPool(0, 2)
	polls := 0
	engine := async.NewQatAdapter(func() error { polls++; return nil })
	d := async.NewDispatcher(0, pool, engine, nil)

	if err := d.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if polls != 0 {
		t.Fatalf("expected no poll with an empty pool, got %d", polls)
	}

	sess := newFakeSession()
	sess.resumeOutcome = async.OutcomeWantAsync
	ctx := async.NewContext(1)
	must(t, ctx.InitEvent(pool, async.HandshakeHandler, sess, async.KindInit, nil, 0))

	if err := d.Tick(); err != nil {
		t.Fatalf("second Tick: %v", err)
	}
	if polls != 1 {
		t.Fatalf("expected exactly one poll with a live event, got %d", polls)
	}
}

func TestNotifyCompleteRemoteUsesRPC(t *testing.T) {
	pool := async.NewEventPool(1, 2)
	var delivered int
	var deliveredFn func()
	rpc := func(target int, fn func()) error {
		delivered = target
		deliveredFn = fn
		return nil
	}
	d := async.NewDispatcher(1, pool, async.NewDasyncAdapter(), rpc)

	sess := newFakeSession()
	sess.resumeOutcome = async.OutcomeWantRead
	ctx := async.NewContext(1)
	must(t, ctx.InitEvent(pool, async.HandshakeHandler, sess, async.KindInit, nil, 0))
	slot := ctx.EventFor(async.KindInit).Slot()

	if err := d.NotifyCompleteRemote(async.KindInit, slot); err != nil {
		t.Fatalf("NotifyCompleteRemote: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("rpc target = %d, want 1", delivered)
	}
	// The event should not yet be queued; delivery happens when the RPC
	// closure actually runs.
	deliveredFn()
	if err := d.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if ctx.EventFor(async.KindInit).Status() != async.StatusCbExecuted {
		t.Fatal("expected the event to have been dispatched after the RPC closure ran")
	}
}
