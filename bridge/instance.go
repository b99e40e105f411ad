// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package bridge implements the IDS bridge: instance and interface
// configuration, the client control-socket state machine, and the
// per-worker enqueue/dequeue graph nodes that move packets through the
// descriptor ring pairs in package ring.
package bridge

import (
	"fmt"

	"code.hybscloud.com/dataplane/ring"
)

// Instance is a named IDS endpoint: a shared-memory segment and one
// descriptor ring pair per worker, bound to at most one client at a
// time (§3.1).
type Instance struct {
	ID   uint32
	Name string

	ShmBase uintptr
	ShmSize uint64
	ShmFD   int

	Log2QueueSize    uint8
	DropOnDisconnect bool

	QPairs []*ring.RingPair

	client *ClientSession

	stats Stats
}

// Stats holds the hot-path counters that error handling never raises
// but always counts (§7).
type Stats struct {
	CongestionDrops uint64
	DisconnectDrops uint64
	Forwarded       uint64
}

// Client returns the instance's currently bound client session, or nil
// if none is connected.
func (inst *Instance) Client() *ClientSession {
	return inst.client
}

// bindClient attaches session as the instance's sole client. It
// rejects a second concurrent client per §3.1 ("exactly one client per
// instance at a time").
func (inst *Instance) bindClient(session *ClientSession) error {
	if inst.client != nil {
		return fmt.Errorf("bridge: instance %q already has a connected client", inst.Name)
	}
	inst.client = session
	return nil
}

func (inst *Instance) unbindClient() {
	inst.client = nil
}

// Stats returns a snapshot of this instance's drop/forward counters.
func (inst *Instance) Stats() Stats {
	return inst.stats
}
