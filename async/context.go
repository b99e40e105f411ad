// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import "fmt"

// Context is the per-TLS-context extension recording at-most-one
// outstanding event per kind (§3.2, §4.7).
type Context struct {
	ID uint32

	evt [numKinds]*Event
}

// NewContext builds an empty context with the given identity.
func NewContext(id uint32) *Context {
	return &Context{ID: id}
}

// IsInflight reports whether any of ctx's event slots is currently
// inflight (§4.7 is_inflight).
func (ctx *Context) IsInflight() bool {
	for _, ev := range ctx.evt {
		if ev != nil && ev.Status() == StatusInflight {
			return true
		}
	}
	return false
}

// EventFor returns the event currently bound to kind, or nil.
func (ctx *Context) EventFor(kind Kind) *Event {
	return ctx.evt[kind]
}

// InitEvent implements init_event (§4.7): allocate (or reuse) the
// event slot for kind on pool, bind it to session and handler, and
// record it on ctx.
//
//   - write-kind already allocated: reuse the slot, update send params
//     and the running write-byte total rather than allocating again.
//     Deschedule and DESCHED are re-applied on every call, not just the
//     first, matching the original's update_wr_evnt label reached by
//     both the reuse path and the fresh-alloc fallthrough.
//   - init/read-kind already allocated: no-op, the existing event is
//     still outstanding.
//   - otherwise: allocate a fresh slot, populate identity, set status
//     invalid, and record it on ctx. Write events additionally
//     deschedule the transport and mark DESCHED on the send params.
func (ctx *Context) InitEvent(pool *EventPool, handler Handler, session Session, kind Kind, sendParams *WriteParams, totalAsyncWrite int) error {
	existing := ctx.evt[kind]

	if kind == KindWrite && existing != nil {
		existing.sendParams = sendParams
		session.Deschedule()
		if existing.sendParams != nil {
			existing.sendParams.Desched = true
			existing.sendParams.Size = totalAsyncWrite
		}
		return nil
	}
	if existing != nil {
		// init/read: already outstanding, nothing to do.
		return nil
	}

	ev, err := pool.alloc()
	if err != nil {
		return fmt.Errorf("async: init_event kind=%s ctx=%d: %w", kind, ctx.ID, err)
	}
	ev.ctx = ctx
	ev.session = session
	ev.kind = kind
	ev.handler = handler
	ev.sendParams = sendParams
	ev.setStatus(StatusInvalid)

	if kind == KindWrite {
		session.Deschedule()
		if ev.sendParams != nil {
			ev.sendParams.Desched = true
			ev.sendParams.Size = totalAsyncWrite
		}
	}

	ctx.evt[kind] = ev
	session.SetEventIdentity(kind, ev.Worker(), ev.Slot())
	return nil
}

// ClearEvent unbinds kind's event from ctx, e.g. once it has been
// freed back to its pool.
func (ctx *Context) ClearEvent(kind Kind) {
	ctx.evt[kind] = nil
}
