package handle

import (
	"runtime"

	"github.com/wasmlink/ffigen/errors"
)

// State is the lifecycle state of a handle.
type State uint8

const (
	Live State = iota
	Moved
	Dropped
)

func (s State) String() string {
	switch s {
	case Live:
		return "live"
	case Moved:
		return "moved"
	case Dropped:
		return "dropped"
	}
	return "unknown"
}

// Handle wraps one foreign-owned raw value plus its destructor.
type Handle struct {
	raw        uint64
	dtor       func()
	state      State
	cleanup    runtime.Cleanup
	hasCleanup bool
}

// New wraps a freshly received raw value. The destructor is invoked at
// most once, by Drop or by the optional GC backstop.
func New(raw uint64, dtor func()) *Handle {
	return &Handle{raw: raw, dtor: dtor}
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return h.state
}

// Borrow returns the raw value for a call that does not take
// ownership.
func (h *Handle) Borrow() (uint64, error) {
	switch h.state {
	case Dropped:
		return 0, errors.New(errors.PhaseRuntime, errors.KindUseAfterFree, "borrow of dropped handle")
	case Moved:
		return 0, errors.New(errors.PhaseRuntime, errors.KindUseAfterMove, "borrow of moved handle")
	}
	return h.raw, nil
}

// Move transfers ownership onward without freeing. The handle cannot
// be used afterwards.
func (h *Handle) Move() (uint64, error) {
	switch h.state {
	case Dropped:
		return 0, errors.New(errors.PhaseRuntime, errors.KindUseAfterFree, "move of dropped handle")
	case Moved:
		return 0, errors.New(errors.PhaseRuntime, errors.KindUseAfterMove, "handle moved twice")
	}
	h.state = Moved
	h.stopCleanup()
	return h.raw, nil
}

// Drop invokes the destructor exactly once.
func (h *Handle) Drop() error {
	switch h.state {
	case Dropped:
		return errors.New(errors.PhaseRuntime, errors.KindDoubleFree, "handle already dropped")
	case Moved:
		return errors.New(errors.PhaseRuntime, errors.KindUseAfterMove, "drop of moved handle")
	}
	h.state = Dropped
	h.stopCleanup()
	h.dtor()
	return nil
}

// SetFinalizer registers a GC backstop running the destructor if the
// handle becomes unreachable while still live. Drop and Move cancel
// it.
func (h *Handle) SetFinalizer() {
	if h.hasCleanup || h.state != Live {
		return
	}
	h.cleanup = runtime.AddCleanup(h, func(dtor func()) { dtor() }, h.dtor)
	h.hasCleanup = true
}

func (h *Handle) stopCleanup() {
	if h.hasCleanup {
		h.cleanup.Stop()
		h.hasCleanup = false
	}
}
