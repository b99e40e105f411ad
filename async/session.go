// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

// Outcome classifies the result of one driven step of a session's TLS
// state machine (§4.6). The act of actually driving the step — the
// real handshake/read/write logic — belongs to the session
// implementation, the narrow external collaborator named at this
// package's boundary (§1 "resume_handler(ctx, session)").
type Outcome int

const (
	OutcomeWantAsync Outcome = iota
	OutcomeWantRead
	OutcomeWantWrite
	OutcomeSuccessServer
	OutcomeSuccessClient
	OutcomeFatalError
	OutcomePassiveClose
	OutcomeProgress
	OutcomeDone
)

// Session is the narrow interface the async engine drives. Everything
// about how a step is actually performed — record layer, transport
// I/O, the cryptographic engine call itself — is out of scope for this
// package; Session is the boundary named in §1.
type Session interface {
	// ResumeHandler drives one step of kind's operation and classifies
	// the result. n reports how many bytes of application data the step
	// actually moved (read into the application rx buffer, or drained
	// from the application tx buffer); it is meaningful only for
	// KindRead/KindWrite and is 0 for KindInit. WriteHandler decrements
	// the write counter by n rather than by the event's originally
	// requested size, since a write can take more than one resume step
	// to drain (§4.6 write handler, scenario 6's partial-drain case).
	ResumeHandler(kind Kind) (outcome Outcome, n int, err error)

	// HandshakeDone reports whether the handshake has already
	// completed, short-circuiting the handshake handler (§4.6).
	HandshakeDone() bool
	MarkHandshakeDone()

	// PendingRx reports whether there is unread ciphertext or pending
	// transport rx to resume on (§4.6 handshake "not resuming and rx
	// empty").
	PendingRx() bool

	// PassiveClosed and AppClosed expose the two cancellation flags
	// checked on resume (§5 "Cancellation is implicit via context
	// flags").
	PassiveClosed() bool
	AppClosed() bool

	// NotifyAcceptSuccess reports a completed server-side handshake to
	// the session layer. A failure here marks the transport
	// disconnected, per §4.6.
	NotifyAcceptSuccess() error
	// NotifySessionFailure reports a fatal protocol error (§4.6, §7).
	NotifySessionFailure(err error)
	// NotifyIOError reports an unrecoverable I/O error on read or
	// write (§4.6).
	NotifyIOError(err error)
	// NotifyAppDataReady signals the application that read data is
	// available.
	NotifyAppDataReady()
	// NotifyCloseConfirmed signals that a requested close has been
	// confirmed at the transport (§4.6 write handler).
	NotifyCloseConfirmed()

	// PendingCiphertext and PendingTransportRx gate whether the read
	// handler must re-arm a builtin rx event on partial progress.
	PendingCiphertext() bool
	PendingTransportRx() bool
	ArmBuiltinRxEvent()

	// Write accounting (§4.6 write handler).
	WriteCounter() int
	DecrementWriteCounter(n int)
	DropConsumedTxBytes(n int)
	RemainingTxSpace() int
	TxControlReserve() int
	FifoSize() int

	Deschedule()
	Reschedule()
	RequestDequeueNotify()
	MarkCustomTx()

	// SetEventIdentity records the owning worker and slot for an
	// event just bound to this session, so a later hardware completion
	// callback can correlate back to it (§4.7 "register identity with
	// TLS object").
	SetEventIdentity(kind Kind, worker int, slot int32)
}
