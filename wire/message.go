// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wire implements the length-prefixed TLV control protocol and
// file-descriptor handoff between the bridge and a connected client
// (§6.1).
package wire

import (
	"encoding/binary"
	"fmt"
)

// Kind identifies a control message type on the wire.
type Kind uint8

const (
	KindHello Kind = iota + 1
	KindConfig
	KindReady
	KindBye
)

func (k Kind) String() string {
	switch k {
	case KindHello:
		return "HELLO"
	case KindConfig:
		return "CONFIG"
	case KindReady:
		return "READY"
	case KindBye:
		return "BYE"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// headerSize is the length prefix (u32) plus the kind byte.
const headerSize = 5

// Hello is sent by the client as the first message, naming the
// instance it wants to attach to.
type Hello struct {
	InstanceName string
}

// Config is sent by the bridge in response to a valid Hello. The
// shared-memory fd and per-qpair enq/deq fds are not carried in the
// payload; they travel as ancillary data on the same write, ordered
// shm_fd first then ascending qpair order (§4.2, §6.1).
type Config struct {
	NumQPairs     uint32
	ShmSize       uint64
	ShmBaseHint   uint64
	Log2QueueSize uint8
}

// Ready is sent by the client once it has mapped the shared-memory
// segment and is prepared to exchange descriptors.
type Ready struct{}

// Bye is sent by either side to request a clean teardown.
type Bye struct{}

// Encode serializes msg into a length-prefixed TLV frame.
func Encode(kind Kind, payload []byte) []byte {
	buf := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(payload)))
	buf[4] = byte(kind)
	copy(buf[headerSize:], payload)
	return buf
}

// EncodeHello serializes a Hello message.
func EncodeHello(h Hello) []byte {
	name := []byte(h.InstanceName)
	return Encode(KindHello, name)
}

// DecodeHello parses a Hello payload.
func DecodeHello(payload []byte) Hello {
	return Hello{InstanceName: string(payload)}
}

const configPayloadSize = 4 + 8 + 8 + 1

// EncodeConfig serializes a Config message.
func EncodeConfig(c Config) []byte {
	payload := make([]byte, configPayloadSize)
	binary.LittleEndian.PutUint32(payload[0:4], c.NumQPairs)
	binary.LittleEndian.PutUint64(payload[4:12], c.ShmSize)
	binary.LittleEndian.PutUint64(payload[12:20], c.ShmBaseHint)
	payload[20] = c.Log2QueueSize
	return Encode(KindConfig, payload)
}

// DecodeConfig parses a Config payload. It returns an error if the
// payload is short, since a truncated CONFIG means the client cannot
// safely derive qpair count or ring geometry.
func DecodeConfig(payload []byte) (Config, error) {
	if len(payload) < configPayloadSize {
		return Config{}, fmt.Errorf("wire: CONFIG payload too short: %d bytes", len(payload))
	}
	return Config{
		NumQPairs:     binary.LittleEndian.Uint32(payload[0:4]),
		ShmSize:       binary.LittleEndian.Uint64(payload[4:12]),
		ShmBaseHint:   binary.LittleEndian.Uint64(payload[12:20]),
		Log2QueueSize: payload[20],
	}, nil
}

// EncodeReady serializes a Ready message.
func EncodeReady() []byte {
	return Encode(KindReady, nil)
}

// EncodeBye serializes a Bye message.
func EncodeBye() []byte {
	return Encode(KindBye, nil)
}

// ParseHeader reads the length prefix and kind from the start of buf.
// It returns (kind, payloadLen, ok); ok is false if buf is shorter
// than headerSize.
func ParseHeader(buf []byte) (kind Kind, payloadLen uint32, ok bool) {
	if len(buf) < headerSize {
		return 0, 0, false
	}
	return Kind(buf[4]), binary.LittleEndian.Uint32(buf[0:4]), true
}

// HeaderSize is the number of bytes preceding a message's payload.
const HeaderSize = headerSize
