// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bridge

// Direction selects which side(s) of an interface an instance is
// attached to (§6.3, mirroring the original's snort_attach_dir_t).
type Direction uint8

const (
	DirectionInvalid Direction = 0
	DirectionInput   Direction = 1 << 0
	DirectionOutput  Direction = 1 << 1
	DirectionInout   Direction = DirectionInput | DirectionOutput
)

// AttachMode resolves the open question on bidirectional attach
// ordering (SPEC_FULL.md §9): whether an instance listed for both
// directions is traversed once or twice per packet. Decided to be
// explicit and configurable rather than silently picking one.
type AttachMode uint8

const (
	// TraverseOnce visits an instance attached to both directions
	// exactly once regardless of how many directions list it.
	TraverseOnce AttachMode = iota
	// TraverseTwice visits the instance once per listed direction.
	TraverseTwice
)

// InterfaceBinding maps one interface to the ordered instance lists it
// must traverse on input and output (§2 component 7, §3.1).
type InterfaceBinding struct {
	InputInstances  []uint32
	OutputInstances []uint32
	Mode            AttachMode
}

// Attach appends instanceID to the direction(s) requested, preserving
// insertion order. An instance already present for a direction is not
// duplicated.
func (ib *InterfaceBinding) Attach(instanceID uint32, dir Direction) {
	if dir&DirectionInput != 0 {
		ib.InputInstances = appendOnce(ib.InputInstances, instanceID)
	}
	if dir&DirectionOutput != 0 {
		ib.OutputInstances = appendOnce(ib.OutputInstances, instanceID)
	}
}

// DetachAll clears every attachment, as interface_detach_all (§6.3).
func (ib *InterfaceBinding) DetachAll() {
	ib.InputInstances = nil
	ib.OutputInstances = nil
}

func appendOnce(list []uint32, id uint32) []uint32 {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}

// Traversal returns the ordered instance IDs a packet traveling in dir
// must visit. For DirectionInput or DirectionOutput alone, it is simply
// the matching attachment list. For DirectionInout — a packet crossing
// an attachment point that lists the same interface on both sides — it
// honors Mode: TraverseTwice visits an instance bound to both input and
// output once per direction it is listed under (input arcs, then
// output arcs, in attachment order); TraverseOnce collapses that into a
// single visit per distinct instance, in first-seen order. This is the
// concrete, caller-selected resolution of SPEC_FULL.md §9's
// bidirectional-attach-ordering question; EnqueueNode.RunInterface
// (graph.go) is the production caller that makes Mode's choice
// observable on the forwarding path.
func (ib *InterfaceBinding) Traversal(dir Direction) []uint32 {
	switch dir {
	case DirectionInput:
		return ib.InputInstances
	case DirectionOutput:
		return ib.OutputInstances
	case DirectionInout:
		if ib.Mode == TraverseTwice {
			both := make([]uint32, 0, len(ib.InputInstances)+len(ib.OutputInstances))
			both = append(both, ib.InputInstances...)
			both = append(both, ib.OutputInstances...)
			return both
		}
		return unionPreserveOrder(ib.InputInstances, ib.OutputInstances)
	default:
		return nil
	}
}

// unionPreserveOrder merges a and b, keeping each distinct value's
// first-seen position and dropping later duplicates.
func unionPreserveOrder(a, b []uint32) []uint32 {
	out := make([]uint32, 0, len(a)+len(b))
	seen := make(map[uint32]bool, len(a)+len(b))
	for _, id := range a {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
