package notify

import (
	"github.com/wasmlink/ffigen/errors"
)

// Registry is the host-side table of pending wake callbacks, scoped
// per host runtime instance. It relies on the single-threaded
// cooperative discipline of the generated-call runtime.
type Registry struct {
	next      uint64
	callbacks map[uint64]func()
	queue     []func()
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{callbacks: make(map[uint64]func())}
}

// ReserveSlot returns the next slot index. Slots are never reused.
func (r *Registry) ReserveSlot() uint64 {
	slot := r.next
	r.next++
	return slot
}

// Register installs the callback woken by the given slot.
func (r *Registry) Register(slot uint64, fn func()) {
	r.callbacks[slot] = fn
}

// Unregister removes a slot's callback. Unregistering an unknown slot
// is a no-op.
func (r *Registry) Unregister(slot uint64) {
	delete(r.callbacks, slot)
}

// Pending returns the number of registered slots.
func (r *Registry) Pending() int {
	return len(r.callbacks)
}

// Wake enqueues the callback registered at slot. It is the only
// channel for foreign-to-host async notification. A wake for an
// unregistered slot reports a dangling-slot error.
func (r *Registry) Wake(slot uint64) error {
	fn, ok := r.callbacks[slot]
	if !ok {
		return errors.New(errors.PhaseRuntime, errors.KindDanglingSlot,
			"wake for unregistered notifier slot %d", slot)
	}
	r.queue = append(r.queue, fn)
	return nil
}

// Drain runs queued callbacks to completion, including any enqueued
// while draining.
func (r *Registry) Drain() {
	for len(r.queue) > 0 {
		fn := r.queue[0]
		r.queue = r.queue[1:]
		fn()
	}
}
