// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bridge

import (
	"fmt"

	"github.com/google/uuid"

	"code.hybscloud.com/dataplane/wire"
)

// State is one state of the client control-socket state machine
// (§4.2).
type State int

const (
	StateListening State = iota
	StateHelloWait
	StateConfigSend
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateHelloWait:
		return "hello_w"
	case StateConfigSend:
		return "config_s"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ClientSession tracks one connected client's progress through the
// handshake/config/ready/closed state machine (§4.2, §3.1).
type ClientSession struct {
	ID   uuid.UUID
	Conn *wire.Conn

	State      State
	InstanceID uint32
	Instance   *Instance
}

// NewClientSession creates a session in the initial listening state,
// immediately advanced to hello_w as §4.2's "accept" transition
// describes (accept itself is the caller's responsibility — this
// constructor models "create client slot").
func NewClientSession(conn *wire.Conn) *ClientSession {
	return &ClientSession{
		ID:    uuid.New(),
		Conn:  conn,
		State: StateHelloWait,
	}
}

// HandleHello resolves the named instance and transitions to
// config_s. It rejects the session if the instance is unknown or
// already has a connected client, matching §4.2's "if duplicate
// client, reject".
func (cs *ClientSession) HandleHello(b *Bridge, hello wire.Hello) error {
	if cs.State != StateHelloWait {
		return fmt.Errorf("bridge: HELLO received in state %s, want %s", cs.State, StateHelloWait)
	}

	inst, err := b.InstanceByName(hello.InstanceName)
	if err != nil {
		return err
	}
	if err := inst.bindClient(cs); err != nil {
		return err
	}

	cs.InstanceID = inst.ID
	cs.Instance = inst
	cs.State = StateConfigSend
	return nil
}

// SendConfig transmits the CONFIG message with the shared-memory fd
// and per-qpair enq/deq fds as ancillary data, ordered shm_fd first
// then ascending qpair order (§4.2, §6.1), and advances to ready.
func (cs *ClientSession) SendConfig() error {
	if cs.State != StateConfigSend {
		return fmt.Errorf("bridge: SendConfig called in state %s, want %s", cs.State, StateConfigSend)
	}
	inst := cs.Instance

	cfg := wire.Config{
		NumQPairs:     uint32(len(inst.QPairs)),
		ShmSize:       inst.ShmSize,
		ShmBaseHint:   uint64(inst.ShmBase),
		Log2QueueSize: inst.Log2QueueSize,
	}
	buf := wire.EncodeConfig(cfg)

	fds := make([]int, 0, 1+2*len(inst.QPairs))
	fds = append(fds, inst.ShmFD)
	for _, qp := range inst.QPairs {
		fds = append(fds, qp.EnqFD, qp.DeqFD)
	}

	if err := cs.Conn.Send(buf, fds...); err != nil {
		return err
	}
	cs.State = StateReady
	return nil
}

// HandleReady records the client's READY message. The bridge may
// begin producing descriptors onto this instance's rings from this
// point on.
func (cs *ClientSession) HandleReady() error {
	if cs.State != StateReady {
		return fmt.Errorf("bridge: READY received in state %s, want %s", cs.State, StateReady)
	}
	return nil
}

// Close tears the session down: unbinds it from its instance and
// transitions to closed. Safe to call more than once.
func (cs *ClientSession) Close() {
	if cs.State == StateClosed {
		return
	}
	if cs.Instance != nil {
		cs.Instance.unbindClient()
	}
	cs.State = StateClosed
	if cs.Conn != nil {
		_ = cs.Conn.Close()
	}
}
