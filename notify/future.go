package notify

import (
	"github.com/wasmlink/ffigen/handle"
)

// PollFunc attempts one poll of a foreign future. ready is false while
// the operation is pending; err rejects the future.
type PollFunc func(slot uint64) (value any, ready bool, err error)

// Future drives one foreign future to completion: reserve a slot,
// register a re-polling callback, poll once immediately to avoid an
// unnecessary suspension when already ready, then re-poll on every
// wake. On the final resolution the slot is unregistered and the
// handle dropped, both exactly once.
type Future struct {
	reg     *Registry
	box     *handle.Handle
	poll    PollFunc
	slot    uint64
	settled bool
	value   any
	err     error
	waiters []func(any, error)
}

// NewFuture starts driving a foreign future.
func NewFuture(reg *Registry, box *handle.Handle, poll PollFunc) *Future {
	f := &Future{reg: reg, box: box, poll: poll, slot: reg.ReserveSlot()}
	reg.Register(f.slot, f.tryPoll)
	f.tryPoll()
	return f
}

// Done reports whether the future has settled.
func (f *Future) Done() bool {
	return f.settled
}

// Result returns the settled value or rejection. It is only
// meaningful once Done reports true.
func (f *Future) Result() (any, error) {
	return f.value, f.err
}

// OnSettle registers a completion callback. A callback added after
// settlement runs immediately.
func (f *Future) OnSettle(fn func(any, error)) {
	if f.settled {
		fn(f.value, f.err)
		return
	}
	f.waiters = append(f.waiters, fn)
}

// Cancel abandons a pending future: the slot is unregistered and the
// handle dropped without a resolution. Settled futures ignore it.
func (f *Future) Cancel() {
	if f.settled {
		return
	}
	f.settled = true
	f.reg.Unregister(f.slot)
	f.err = f.box.Drop()
}

func (f *Future) tryPoll() {
	if f.settled {
		return
	}
	value, ready, err := f.poll(f.slot)
	if err != nil {
		f.settle(nil, err)
		return
	}
	if !ready {
		return
	}
	f.settle(value, nil)
}

func (f *Future) settle(value any, err error) {
	f.settled = true
	f.value = value
	f.err = err
	f.reg.Unregister(f.slot)
	if dropErr := f.box.Drop(); dropErr != nil && f.err == nil {
		f.err = dropErr
	}
	for _, fn := range f.waiters {
		fn(f.value, f.err)
	}
	f.waiters = nil
}
