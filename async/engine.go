// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package async

import (
	"fmt"
	"sync"
)

// Adapter abstracts one asynchronous crypto engine's lifecycle hooks
// (§6.2): a process-wide pre-init step, a per-worker init step, and a
// per-tick poll invoked by the resumption dispatcher.
type Adapter interface {
	Name() string
	PreInit() error
	InitWorker(workerIndex int) error
	Poll() error
}

// QatAdapter models the "qat" engine: pre-init enables external
// polling, and each worker's init sets the engine's instance index to
// its own worker index so completions land on the right run queue
// (§6.2).
type QatAdapter struct {
	// ExternalPolling is set by PreInit: the engine is polled from the
	// dispatcher's tick rather than polling itself.
	ExternalPolling bool

	// InstanceIndex is set to workerIndex by InitWorker, per worker.
	InstanceIndex int

	pollFn func() error
}

// NewQatAdapter builds a qat adapter. pollFn issues the engine poll
// (e.g. ENGINE_ctrl POLL); nil defaults to a no-op, useful for tests.
func NewQatAdapter(pollFn func() error) *QatAdapter {
	return &QatAdapter{pollFn: pollFn}
}

func (a *QatAdapter) Name() string { return "qat" }

func (a *QatAdapter) PreInit() error {
	a.ExternalPolling = true
	return nil
}

func (a *QatAdapter) InitWorker(workerIndex int) error {
	a.InstanceIndex = workerIndex
	return nil
}

func (a *QatAdapter) Poll() error {
	if a.pollFn == nil {
		return nil
	}
	return a.pollFn()
}

// DasyncAdapter models the "dasync" engine: every lifecycle hook is a
// no-op (§6.2).
type DasyncAdapter struct{}

func NewDasyncAdapter() *DasyncAdapter { return &DasyncAdapter{} }

func (DasyncAdapter) Name() string                     { return "dasync" }
func (DasyncAdapter) PreInit() error                   { return nil }
func (DasyncAdapter) InitWorker(workerIndex int) error { return nil }
func (DasyncAdapter) Poll() error                      { return nil }

// Registry is the process-wide engine adapter registry (§6.2, §9
// "Global engine state as explicit singletons"). Registration is
// idempotent by name; registering a different adapter under a name
// already bound is rejected.
type Registry struct {
	mu       sync.Mutex
	adapters map[string]Adapter
}

// NewRegistry builds an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register binds name to adapter, calling PreInit on first
// registration. A second call with the same name and the same adapter
// value is a no-op; a second call with a different adapter is
// rejected, per "changing engine after registration is rejected".
func (r *Registry) Register(name string, adapter Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.adapters[name]; ok {
		if existing == adapter {
			return nil
		}
		return fmt.Errorf("async: engine %q already registered, cannot change adapter", name)
	}
	if err := adapter.PreInit(); err != nil {
		return fmt.Errorf("async: %s pre-init: %w", name, err)
	}
	r.adapters[name] = adapter
	return nil
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("async: no engine registered as %q", name)
	}
	return a, nil
}
