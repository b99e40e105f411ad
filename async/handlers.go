// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import "errors"

// HandshakeHandler implements the handshake event handler (§4.6). It
// runs on the event's owning worker.
func HandshakeHandler(d *Dispatcher, ev *Event) {
	defer ev.setStatus(StatusCbExecuted)

	s := ev.session
	if s.HandshakeDone() {
		return
	}
	if !s.PendingRx() {
		// Spurious callback: nothing queued to resume, nothing to do,
		// even if the context is passively closing (§4.6's first rule).
		return
	}

	outcome, _, err := s.ResumeHandler(KindInit)
	switch outcome {
	case OutcomeWantAsync:
		// Left cb_executed; the engine itself will re-arm this event
		// slot via NotifyComplete/NotifyCompleteRemote on completion.
		return
	case OutcomeFatalError:
		s.NotifySessionFailure(err)
		return
	case OutcomeWantRead, OutcomeWantWrite:
		return
	case OutcomeSuccessServer:
		s.MarkHandshakeDone()
		if err := s.NotifyAcceptSuccess(); err != nil {
			s.NotifyIOError(err)
		}
	case OutcomeSuccessClient:
		// Client-side handshake completion is not driven through this
		// path (§1 non-goal: only server accept is supported here).
		s.MarkHandshakeDone()
	case OutcomePassiveClose:
		s.NotifySessionFailure(errPassiveCloseDuringHandshake)
	}
}

// ReadHandler implements the read event handler (§4.6).
func ReadHandler(d *Dispatcher, ev *Event) {
	defer ev.setStatus(StatusCbExecuted)

	s := ev.session
	outcome, _, err := s.ResumeHandler(KindRead)
	switch outcome {
	case OutcomeWantAsync:
		return
	case OutcomeFatalError:
		s.NotifyIOError(err)
	case OutcomeProgress:
		if !s.AppClosed() {
			s.NotifyAppDataReady()
		}
		if s.PendingCiphertext() || s.PendingTransportRx() {
			s.ArmBuiltinRxEvent()
		}
	case OutcomeDone:
		// No further progress possible this tick; nothing to notify.
	}
}

// WriteHandler implements the write event handler (§4.6).
func WriteHandler(d *Dispatcher, ev *Event) {
	defer ev.setStatus(StatusCbExecuted)

	s := ev.session
	if s.WriteCounter() == 0 {
		return
	}

	outcome, written, err := s.ResumeHandler(KindWrite)
	switch outcome {
	case OutcomeWantAsync:
		return
	case OutcomeFatalError:
		s.NotifyIOError(err)
		return
	case OutcomeProgress, OutcomeDone:
		s.DecrementWriteCounter(written)
		s.DropConsumedTxBytes(written)

		if s.WriteCounter() == 0 && s.AppClosed() && !s.PendingCiphertext() {
			s.NotifyCloseConfirmed()
			return
		}

		threshold := s.FifoSize() / 2
		if threshold < s.TxControlReserve() {
			threshold = s.TxControlReserve()
		}
		remaining := s.RemainingTxSpace() - s.TxControlReserve()
		if remaining < threshold {
			s.RequestDequeueNotify()
			return
		}
		s.Reschedule()
		s.MarkCustomTx()
	}
}

var errPassiveCloseDuringHandshake = errors.New("async: passive close during handshake")
