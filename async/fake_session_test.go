// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async_test

import (
	"code.hybscloud.com/dataplane/async"
)

// fakeSession is a minimal, scriptable async.Session for tests. It
// records every notification it receives so tests can assert on the
// sequence of effects a handler produced.
type fakeSession struct {
	handshakeDone bool
	passiveClosed bool
	appClosed     bool
	pendingRx     bool
	pendingCiph   bool
	pendingTrans  bool

	writeCounter  int
	txRemaining   int
	txReserve     int
	fifoSize      int

	resumeOutcome async.Outcome
	resumeBytes   int
	resumeErr     error

	acceptSuccessErr error

	notifications []string
	identityKind   async.Kind
	identityWorker int
	identitySlot   int32
}

func newFakeSession() *fakeSession {
	return &fakeSession{pendingRx: true, fifoSize: 1024, txReserve: 64}
}

func (s *fakeSession) ResumeHandler(kind async.Kind) (async.Outcome, int, error) {
	return s.resumeOutcome, s.resumeBytes, s.resumeErr
}

func (s *fakeSession) HandshakeDone() bool     { return s.handshakeDone }
func (s *fakeSession) MarkHandshakeDone()      { s.handshakeDone = true }
func (s *fakeSession) PendingRx() bool         { return s.pendingRx }
func (s *fakeSession) PassiveClosed() bool     { return s.passiveClosed }
func (s *fakeSession) AppClosed() bool         { return s.appClosed }

func (s *fakeSession) NotifyAcceptSuccess() error {
	s.notifications = append(s.notifications, "accept_success")
	return s.acceptSuccessErr
}
func (s *fakeSession) NotifySessionFailure(err error) {
	s.notifications = append(s.notifications, "session_failure:"+errString(err))
}
func (s *fakeSession) NotifyIOError(err error) {
	s.notifications = append(s.notifications, "io_error:"+errString(err))
}
func (s *fakeSession) NotifyAppDataReady() {
	s.notifications = append(s.notifications, "app_data_ready")
}
func (s *fakeSession) NotifyCloseConfirmed() {
	s.notifications = append(s.notifications, "close_confirmed")
}

func (s *fakeSession) PendingCiphertext() bool  { return s.pendingCiph }
func (s *fakeSession) PendingTransportRx() bool { return s.pendingTrans }
func (s *fakeSession) ArmBuiltinRxEvent() {
	s.notifications = append(s.notifications, "arm_builtin_rx")
}

func (s *fakeSession) WriteCounter() int           { return s.writeCounter }
func (s *fakeSession) DecrementWriteCounter(n int) { s.writeCounter -= n }
func (s *fakeSession) DropConsumedTxBytes(n int) {
	s.notifications = append(s.notifications, "drop_consumed_tx")
}
func (s *fakeSession) RemainingTxSpace() int  { return s.txRemaining }
func (s *fakeSession) TxControlReserve() int  { return s.txReserve }
func (s *fakeSession) FifoSize() int          { return s.fifoSize }

func (s *fakeSession) Deschedule() { s.notifications = append(s.notifications, "deschedule") }
func (s *fakeSession) Reschedule() { s.notifications = append(s.notifications, "reschedule") }
func (s *fakeSession) RequestDequeueNotify() {
	s.notifications = append(s.notifications, "request_dequeue_notify")
}
func (s *fakeSession) MarkCustomTx() { s.notifications = append(s.notifications, "mark_custom_tx") }

func (s *fakeSession) SetEventIdentity(kind async.Kind, worker int, slot int32) {
	s.identityKind = kind
	s.identityWorker = worker
	s.identitySlot = slot
}

func errString(err error) string {
	if err == nil {
		return "nil"
	}
	return err.Error()
}
