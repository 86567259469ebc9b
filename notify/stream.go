package notify

import (
	"github.com/wasmlink/ffigen/handle"
)

// StreamPollFunc attempts one poll of a foreign stream. ok is false
// when nothing is ready yet.
type StreamPollFunc func(nextSlot, doneSlot uint64) (value any, ok bool, err error)

// Stream drives a foreign stream: one slot for item readiness and one
// for completion, under the same wake discipline as futures. Items
// flow to the sink in arrival order. The foreign side controls the
// lifetime: the handle is dropped when the done slot fires. Cancel is
// the host-side escape hatch for abandoning a stream early without
// leaving dangling slots.
type Stream struct {
	reg      *Registry
	box      *handle.Handle
	poll     StreamPollFunc
	nextSlot uint64
	doneSlot uint64
	sink     func(any)
	onDone   func(error)
	closed   bool
}

// NewStream starts driving a foreign stream. sink receives each item;
// onDone fires once when the stream completes or fails.
func NewStream(reg *Registry, box *handle.Handle, poll StreamPollFunc, sink func(any), onDone func(error)) *Stream {
	s := &Stream{
		reg:      reg,
		box:      box,
		poll:     poll,
		nextSlot: reg.ReserveSlot(),
		doneSlot: reg.ReserveSlot(),
		sink:     sink,
		onDone:   onDone,
	}
	reg.Register(s.nextSlot, s.pollNext)
	reg.Register(s.doneSlot, s.finish)
	// Kick off the first poll through the queue so items never arrive
	// before the caller holds the stream.
	_ = reg.Wake(s.nextSlot)
	return s
}

// Closed reports whether the stream has completed, failed or been
// cancelled.
func (s *Stream) Closed() bool {
	return s.closed
}

// Cancel abandons the stream early: both slots are unregistered and
// the handle dropped. Completed streams ignore it.
func (s *Stream) Cancel() {
	if s.closed {
		return
	}
	s.close()
}

func (s *Stream) pollNext() {
	if s.closed {
		return
	}
	value, ok, err := s.poll(s.nextSlot, s.doneSlot)
	if err != nil {
		s.close()
		if s.onDone != nil {
			s.onDone(err)
		}
		return
	}
	if ok {
		s.sink(value)
	}
}

func (s *Stream) finish() {
	if s.closed {
		return
	}
	s.close()
	if s.onDone != nil {
		s.onDone(nil)
	}
}

func (s *Stream) close() {
	s.closed = true
	s.reg.Unregister(s.nextSlot)
	s.reg.Unregister(s.doneSlot)
	_ = s.box.Drop()
}
