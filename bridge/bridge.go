// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bridge

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"code.hybscloud.com/dataplane/ring"
)

// Bridge is the process-wide IDS bridge singleton: the instance table,
// the interface binding table, and the set of connected clients (§9
// "Global engine state" — realized here as an explicit singleton
// rather than ambient package state).
type Bridge struct {
	log *zerolog.Logger

	mu             sync.RWMutex
	instances      map[uint32]*Instance
	instanceByName map[string]uint32
	interfaces     map[uint32]*InterfaceBinding
	nextInstanceID uint32
}

// New creates an empty Bridge. log must not be nil; callers pass a
// configured zerolog.Logger rather than relying on a package-level
// global, per the "no hidden ambient state" design note (§9).
func New(log *zerolog.Logger) *Bridge {
	return &Bridge{
		log:            log,
		instances:      make(map[uint32]*Instance),
		instanceByName: make(map[string]uint32),
		interfaces:     make(map[uint32]*InterfaceBinding),
	}
}

// CreateInstance implements instance_create (§6.3). Ring pair fd
// lifetime (eventfd creation, shared-memory mapping) is the caller's
// responsibility — typically the worker package — and qpairs must
// already be built, one per worker, before this is called.
func (b *Bridge) CreateInstance(name string, log2QueueSize uint8, dropOnDisconnect bool, shmFD int, shmBase uintptr, shmSize uint64, qpairs []*ring.RingPair) (*Instance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.instanceByName[name]; exists {
		return nil, fmt.Errorf("bridge: instance %q already exists", name)
	}

	b.nextInstanceID++
	id := b.nextInstanceID

	inst := &Instance{
		ID:               id,
		Name:             name,
		Log2QueueSize:    log2QueueSize,
		DropOnDisconnect: dropOnDisconnect,
		ShmFD:            shmFD,
		ShmBase:          shmBase,
		ShmSize:          shmSize,
		QPairs:           qpairs,
	}

	b.instances[id] = inst
	b.instanceByName[name] = id

	b.log.Info().Str("instance", name).Uint32("id", id).Msg("instance created")
	return inst, nil
}

// InstanceByName implements the lookup underlying instance resolution
// during HELLO handling (§4.2).
func (b *Bridge) InstanceByName(name string) (*Instance, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	id, ok := b.instanceByName[name]
	if !ok {
		return nil, fmt.Errorf("bridge: no such instance %q", name)
	}
	return b.instances[id], nil
}

// InstanceByID looks up an instance by its numeric ID.
func (b *Bridge) InstanceByID(id uint32) (*Instance, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	inst, ok := b.instances[id]
	if !ok {
		return nil, fmt.Errorf("bridge: no instance with id %d", id)
	}
	return inst, nil
}

// InstanceDisconnect implements instance_disconnect (§6.3): forces the
// current client off, if any, releasing its session without deleting
// the instance itself.
func (b *Bridge) InstanceDisconnect(id uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	inst, ok := b.instances[id]
	if !ok {
		return fmt.Errorf("bridge: no instance with id %d", id)
	}
	if inst.client != nil {
		inst.client.Close()
	}
	return nil
}

// InstanceDelete implements instance_delete (§6.3). It refuses to
// delete an instance still referenced by an interface binding.
func (b *Bridge) InstanceDelete(id uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	inst, ok := b.instances[id]
	if !ok {
		return fmt.Errorf("bridge: no instance with id %d", id)
	}
	for ifID, ib := range b.interfaces {
		for _, ref := range ib.InputInstances {
			if ref == id {
				return fmt.Errorf("bridge: instance %d still attached to interface %d (input)", id, ifID)
			}
		}
		for _, ref := range ib.OutputInstances {
			if ref == id {
				return fmt.Errorf("bridge: instance %d still attached to interface %d (output)", id, ifID)
			}
		}
	}
	if inst.client != nil {
		inst.client.Close()
	}
	delete(b.instances, id)
	delete(b.instanceByName, inst.Name)
	return nil
}

// InterfaceAttach implements interface_attach (§6.3).
func (b *Bridge) InterfaceAttach(instanceName string, ifID uint32, dir Direction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	instID, ok := b.instanceByName[instanceName]
	if !ok {
		return fmt.Errorf("bridge: no such instance %q", instanceName)
	}
	if dir == DirectionInvalid {
		return fmt.Errorf("bridge: invalid attach direction")
	}

	ib, ok := b.interfaces[ifID]
	if !ok {
		ib = &InterfaceBinding{}
		b.interfaces[ifID] = ib
	}
	ib.Attach(instID, dir)
	return nil
}

// SetInterfaceAttachMode configures, for ifID, whether an instance
// attached to both input and output is traversed once or twice per
// packet (SPEC_FULL.md §9's bidirectional-attach-ordering open
// question, made explicit and caller-selected rather than picked
// silently). The binding is created on first use, defaulting to
// TraverseOnce until set.
func (b *Bridge) SetInterfaceAttachMode(ifID uint32, mode AttachMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ib, ok := b.interfaces[ifID]
	if !ok {
		ib = &InterfaceBinding{}
		b.interfaces[ifID] = ib
	}
	ib.Mode = mode
}

// InterfaceDetachAll implements interface_detach_all (§6.3).
func (b *Bridge) InterfaceDetachAll(ifID uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ib, ok := b.interfaces[ifID]; ok {
		ib.DetachAll()
	}
}

// Traversal returns the ordered instances a packet on ifID traveling
// in dir must visit.
func (b *Bridge) Traversal(ifID uint32, dir Direction) []uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ib, ok := b.interfaces[ifID]
	if !ok {
		return nil
	}
	return ib.Traversal(dir)
}
