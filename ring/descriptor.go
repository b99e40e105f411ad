// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ring implements the per-worker, per-instance descriptor ring
// pair shared between the bridge and a connected client.
package ring

import (
	"encoding/binary"
	"fmt"
)

// Action is the client's verdict for a descriptor.
type Action uint8

const (
	ActionPass Action = iota
	ActionDrop
	ActionBlock
	ActionReplace
	ActionWhitelist
	ActionBlacklist
)

func (a Action) String() string {
	switch a {
	case ActionPass:
		return "pass"
	case ActionDrop:
		return "drop"
	case ActionBlock:
		return "block"
	case ActionReplace:
		return "replace"
	case ActionWhitelist:
		return "whitelist"
	case ActionBlacklist:
		return "blacklist"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// ErrReplaceUnsupported is returned when a verdict carries ActionReplace.
// The wire layout has no payload convention for replacement bytes, so
// replace verdicts are rejected rather than guessed at (see SPEC_FULL.md
// §9 open question).
var ErrReplaceUnsupported = fmt.Errorf("ring: replace verdict has no defined payload convention")

// DescriptorSize is the fixed wire size of one Descriptor: 24 bytes,
// little-endian, 8-aligned (§6.1).
const DescriptorSize = 24

// Descriptor is the fixed-size record carrying one packet's verdict
// state. It is the shared-memory wire contract between bridge and
// client; do not reorder or resize its fields without updating Encode
// and Decode.
type Descriptor struct {
	BufferIndex uint32
	Length      uint32
	Address     uint64
	Action      Action
}

// Encode writes d into buf in the wire layout. buf must be at least
// DescriptorSize bytes.
func (d Descriptor) Encode(buf []byte) {
	_ = buf[DescriptorSize-1]
	binary.LittleEndian.PutUint32(buf[0:4], d.BufferIndex)
	binary.LittleEndian.PutUint32(buf[4:8], d.Length)
	binary.LittleEndian.PutUint64(buf[8:16], d.Address)
	buf[16] = byte(d.Action)
	for i := 17; i < DescriptorSize; i++ {
		buf[i] = 0
	}
}

// Decode reads a Descriptor from buf. buf must be at least
// DescriptorSize bytes.
func Decode(buf []byte) Descriptor {
	_ = buf[DescriptorSize-1]
	return Descriptor{
		BufferIndex: binary.LittleEndian.Uint32(buf[0:4]),
		Length:      binary.LittleEndian.Uint32(buf[4:8]),
		Address:     binary.LittleEndian.Uint64(buf[8:16]),
		Action:      Action(buf[16]),
	}
}
