// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bridge

import (
	"code.hybscloud.com/dataplane/ring"
)

// Packet is one frame element carrying the opaque buffer handle, the
// instance it must be inspected by, and its graph successor (§4.3).
type Packet struct {
	BufferIndex uint32
	Length      uint32
	Address     uint64
	InstanceID  uint32
	NextIndex   uint16
}

// Forwarder is invoked by the dequeue node for each verdict: either to
// forward the packet to its stored next_index, or (action==drop and
// friends) to error-drop.
type Forwarder interface {
	Forward(bufferIndex uint32, nextIndex uint16)
	Drop(bufferIndex uint32)
}

// Signal writes one byte to fd to wake the other side of a ring pair
// (enq_fd or deq_fd level-signal). It is pluggable so tests can avoid
// real eventfds.
type Signal func(fd int) error

// EnqueueNode implements §4.3's enqueue graph node: given a frame of
// packets, it groups them by instance and publishes one batch per
// instance, dropping (or passing through) packets for instances with
// no connected client.
type EnqueueNode struct {
	bridge *Bridge
	signal Signal
}

// NewEnqueueNode builds an enqueue node bound to b, signaling enq_fd
// via signal at each instance's batch boundary.
func NewEnqueueNode(b *Bridge, signal Signal) *EnqueueNode {
	return &EnqueueNode{bridge: b, signal: signal}
}

// Run processes one frame of packets for workerIdx, the caller's
// worker index into each instance's QPairs slice.
func (n *EnqueueNode) Run(workerIdx int, packets []Packet, fwd Forwarder) {
	byInstance := make(map[uint32][]Packet)
	order := make([]uint32, 0, 4)
	for _, p := range packets {
		if _, ok := byInstance[p.InstanceID]; !ok {
			order = append(order, p.InstanceID)
		}
		byInstance[p.InstanceID] = append(byInstance[p.InstanceID], p)
	}

	for _, instID := range order {
		pkts := byInstance[instID]
		inst, err := n.bridge.InstanceByID(instID)
		if err != nil || inst.Client() == nil {
			// No instance or no connected client: drop, unless the
			// instance configuration says to pass through on
			// disconnect (§4.3, mirroring §4.1's disconnect policy).
			passThrough := inst != nil && !inst.DropOnDisconnect
			for _, p := range pkts {
				if passThrough {
					fwd.Forward(p.BufferIndex, p.NextIndex)
				} else {
					fwd.Drop(p.BufferIndex)
				}
			}
			continue
		}

		rp := inst.QPairs[workerIdx]
		batch := ring.NewBatch(rp, n.signal)
		for _, p := range pkts {
			if err := batch.Add(p.BufferIndex, p.Length, p.Address, p.NextIndex); err != nil {
				inst.stats.CongestionDrops++
				fwd.Drop(p.BufferIndex)
			}
		}
		_ = batch.Flush()
	}
}

// InterfacePacket is a packet not yet bound to a specific instance: it
// names the interface and direction it arrived on instead of a
// pre-resolved InstanceID, so EnqueueNode resolves the actual
// traversal itself via the bridge's interface binding table.
type InterfacePacket struct {
	BufferIndex uint32
	Length      uint32
	Address     uint64
	NextIndex   uint16
}

// RunInterface resolves ifID/dir to its ordered instance traversal
// (InterfaceBinding.Mode decides, per §9, whether an instance attached
// to both input and output is visited once or twice) and submits every
// packet to each instance in that traversal via Run. Packets for an
// interface with no attachment in dir are dropped, matching Run's
// no-connected-client drop policy.
func (n *EnqueueNode) RunInterface(workerIdx int, ifID uint32, dir Direction, pkts []InterfacePacket, fwd Forwarder) {
	instances := n.bridge.Traversal(ifID, dir)
	if len(instances) == 0 {
		for _, p := range pkts {
			fwd.Drop(p.BufferIndex)
		}
		return
	}

	resolved := make([]Packet, 0, len(pkts)*len(instances))
	for _, instID := range instances {
		for _, p := range pkts {
			resolved = append(resolved, Packet{
				BufferIndex: p.BufferIndex,
				Length:      p.Length,
				Address:     p.Address,
				InstanceID:  instID,
				NextIndex:   p.NextIndex,
			})
		}
	}
	n.Run(workerIdx, resolved, fwd)
}

// DequeueNode implements §4.3's dequeue graph node: on deq_fd
// readiness, drains every signaled ring pair fully before returning.
type DequeueNode struct {
	bridge *Bridge
	drain  func(fd int) error // drains one byte from deq_fd
}

// NewDequeueNode builds a dequeue node bound to b. drain is called
// once per ring pair per wakeup, after the ring has been fully
// consumed, to avoid lost wakeups between the last read and the
// cursor update (§4.1 step 3).
func NewDequeueNode(b *Bridge, drain func(fd int) error) *DequeueNode {
	return &DequeueNode{bridge: b, drain: drain}
}

// RunOne drains a single ring pair's outstanding verdicts, forwarding
// or dropping each packet, and then drains deq_fd exactly once. It
// returns ring.ErrReplaceUnsupported if any verdict in this round
// carried ActionReplace (§9 open question: no payload convention is
// defined, so such verdicts are dropped rather than guessed at, but the
// error is still surfaced to the caller instead of silently vanishing).
func (n *DequeueNode) RunOne(inst *Instance, workerIdx int, fwd Forwarder) (int, error) {
	rp := inst.QPairs[workerIdx]
	count, err := rp.Consume(func(bufferIndex uint32, nextIndex uint16, action ring.Action) {
		switch action {
		case ring.ActionPass, ring.ActionWhitelist:
			fwd.Forward(bufferIndex, nextIndex)
			inst.stats.Forwarded++
		default: // drop, block, replace, blacklist
			fwd.Drop(bufferIndex)
		}
	})
	_ = n.drain(rp.DeqFD)
	return count, err
}

// Disconnect runs the disconnect path for inst's workerIdx qpair
// (§4.1 "Disconnect semantics"): every in-flight slot is dropped or
// forwarded with PASS per DropOnDisconnect, and counters are updated.
func (n *DequeueNode) Disconnect(inst *Instance, workerIdx int, fwd Forwarder) {
	rp := inst.QPairs[workerIdx]
	dropped := rp.Disconnect(func(bufferIndex uint32, nextIndex uint16, action ring.Action) {
		fwd.Forward(bufferIndex, nextIndex)
	})
	inst.stats.DisconnectDrops += uint64(dropped)
}
