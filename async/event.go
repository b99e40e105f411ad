// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package async implements the asynchronous crypto offload event
// dispatcher: a per-worker event pool, two run queues per worker
// (init and data), an engine adapter registry, and the resumption
// handlers that drive a TLS-like state machine's handshake, read, and
// write operations one step at a time (§3.2, §4.4-§4.7).
//
// The package never drives the actual cryptographic or transport
// machinery itself — that belongs to the session's ResumeHandler,
// the narrow external collaborator named at the boundary. This
// package owns only the event lifecycle, queueing, and dispatch.
package async

import (
	"fmt"

	"code.hybscloud.com/atomix"
)

// Kind identifies which of a context's at-most-one-outstanding events
// this is (§3.2 "Context extension").
type Kind uint8

const (
	KindInit Kind = iota
	KindRead
	KindWrite
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Status is one state in an event's lifecycle (§3.2):
// invalid -> inflight -> ready -> (reenter)? -> deq_done -> cb_executed -> invalid.
type Status uint32

const (
	StatusInvalid Status = iota
	StatusInflight
	StatusReady
	StatusDeqDone
	StatusCbExecuted
)

func (s Status) String() string {
	switch s {
	case StatusInvalid:
		return "invalid"
	case StatusInflight:
		return "inflight"
	case StatusReady:
		return "ready"
	case StatusDeqDone:
		return "deq_done"
	case StatusCbExecuted:
		return "cb_executed"
	default:
		return fmt.Sprintf("status(%d)", uint32(s))
	}
}

// WriteParams carries the extra state a write-kind event needs beyond
// a bare slot: the transport must already be descheduled (DESCHED) by
// the time the event is queued (§3.2 invariants).
type WriteParams struct {
	Desched bool
	Size    int
}

// Handler is invoked once per successful (non-reentrant) drain of an
// event. It is selected by kind at init_event time.
type Handler func(d *Dispatcher, ev *Event)

// Event is one reusable record in a worker's event pool (§3.2).
type Event struct {
	slot   int32
	worker int

	ctx     *Context
	session Session
	kind    Kind
	handler Handler

	status  atomix.Uint32
	next    int32
	reenter bool

	sendParams *WriteParams
}

// Slot returns the event's stable index within its owning worker's
// pool, part of its callback identity (§9).
func (ev *Event) Slot() int32 { return ev.slot }

// Worker returns the worker that owns this event slot.
func (ev *Event) Worker() int { return ev.worker }

// Kind returns which context slot this event occupies.
func (ev *Event) Kind() Kind { return ev.kind }

// Session returns the session bound to this event.
func (ev *Event) Session() Session { return ev.session }

// Ctx returns the context bound to this event.
func (ev *Event) Ctx() *Context { return ev.ctx }

// SendParams returns the write-kind parameters, or nil for other kinds.
func (ev *Event) SendParams() *WriteParams { return ev.sendParams }

// Status returns the event's current lifecycle status.
func (ev *Event) Status() Status {
	return Status(ev.status.LoadAcquire())
}

func (ev *Event) setStatus(s Status) {
	ev.status.StoreRelease(uint32(s))
}

func (ev *Event) reset() {
	ev.ctx = nil
	ev.session = nil
	ev.handler = nil
	ev.sendParams = nil
	ev.next = -1
	ev.reenter = false
	ev.status.StoreRelease(uint32(StatusInvalid))
}
