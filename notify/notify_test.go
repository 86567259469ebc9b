package notify

import (
	stderrors "errors"
	"reflect"
	"testing"

	ffierrors "github.com/wasmlink/ffigen/errors"
	"github.com/wasmlink/ffigen/handle"
)

func TestRegistrySlots(t *testing.T) {
	r := NewRegistry()
	a := r.ReserveSlot()
	b := r.ReserveSlot()
	if a == b {
		t.Fatal("slots must be unique")
	}
	if b != a+1 {
		t.Errorf("slots must be monotonic: got %d after %d", b, a)
	}
}

func TestRegistryWakeRuns(t *testing.T) {
	r := NewRegistry()
	slot := r.ReserveSlot()
	runs := 0
	r.Register(slot, func() { runs++ })

	if err := r.Wake(slot); err != nil {
		t.Fatal(err)
	}
	if runs != 0 {
		t.Fatal("wake must queue, not run inline")
	}
	r.Drain()
	if runs != 1 {
		t.Fatalf("callback ran %d times, want 1", runs)
	}
}

func TestRegistryDanglingSlot(t *testing.T) {
	r := NewRegistry()
	slot := r.ReserveSlot()
	r.Register(slot, func() {})
	r.Unregister(slot)

	err := r.Wake(slot)
	if !stderrors.Is(err, &ffierrors.Error{Phase: ffierrors.PhaseRuntime, Kind: ffierrors.KindDanglingSlot}) {
		t.Errorf("got %v, want dangling_slot", err)
	}
}

func TestFutureImmediatelyReady(t *testing.T) {
	r := NewRegistry()
	drops := 0
	box := handle.New(1, func() { drops++ })

	polls := 0
	f := NewFuture(r, box, func(slot uint64) (any, bool, error) {
		polls++
		return int32(7), true, nil
	})

	if !f.Done() {
		t.Fatal("already-ready future must settle without suspension")
	}
	v, err := f.Result()
	if err != nil || v != int32(7) {
		t.Fatalf("got (%v, %v)", v, err)
	}
	if polls != 1 {
		t.Errorf("polled %d times, want 1", polls)
	}
	if drops != 1 {
		t.Errorf("handle dropped %d times, want exactly 1", drops)
	}
	if r.Pending() != 0 {
		t.Error("slot must be unregistered after settlement")
	}
}

func TestFuturePendingThenWake(t *testing.T) {
	// First poll returns pending; second poll, after one simulated
	// wake at the registered slot, returns 42.
	r := NewRegistry()
	drops := 0
	box := handle.New(1, func() { drops++ })

	polls := 0
	var gotSlot uint64
	f := NewFuture(r, box, func(slot uint64) (any, bool, error) {
		polls++
		gotSlot = slot
		if polls == 1 {
			return nil, false, nil
		}
		return int32(42), true, nil
	})

	if f.Done() {
		t.Fatal("future must stay pending after first poll")
	}

	settles := 0
	var settled any
	f.OnSettle(func(v any, err error) {
		settles++
		settled = v
	})

	if err := r.Wake(gotSlot); err != nil {
		t.Fatal(err)
	}
	r.Drain()

	if !f.Done() || settles != 1 {
		t.Fatalf("settled %d times, want exactly 1", settles)
	}
	if settled != int32(42) {
		t.Errorf("got %v, want 42", settled)
	}
	if drops != 1 {
		t.Errorf("handle dropped %d times, want exactly 1", drops)
	}
	if r.Pending() != 0 {
		t.Error("slot must be unregistered after settlement")
	}
	// A late wake at the old slot is a dangling-slot error.
	if err := r.Wake(gotSlot); err == nil {
		t.Error("wake after settlement must report dangling slot")
	}
}

func TestFutureRejects(t *testing.T) {
	r := NewRegistry()
	box := handle.New(1, func() {})
	boom := stderrors.New("boom")

	f := NewFuture(r, box, func(slot uint64) (any, bool, error) {
		return nil, false, boom
	})
	if !f.Done() {
		t.Fatal("poll error must settle the future")
	}
	if _, err := f.Result(); !stderrors.Is(err, boom) {
		t.Errorf("got %v, want rejection", err)
	}
}

func TestFutureCancelUnregisters(t *testing.T) {
	r := NewRegistry()
	drops := 0
	box := handle.New(1, func() { drops++ })

	f := NewFuture(r, box, func(slot uint64) (any, bool, error) {
		return nil, false, nil
	})
	f.Cancel()

	if drops != 1 {
		t.Errorf("handle dropped %d times, want 1", drops)
	}
	if r.Pending() != 0 {
		t.Error("cancelled future must leave no dangling slot")
	}
}

func TestStreamDeliversThenDone(t *testing.T) {
	r := NewRegistry()
	drops := 0
	box := handle.New(1, func() { drops++ })

	items := []any{int32(1), int32(2), int32(3)}
	var delivered []any
	doneCalls := 0

	var s *Stream
	i := 0
	s = NewStream(r, box,
		func(next, done uint64) (any, bool, error) {
			if i < len(items) {
				v := items[i]
				i++
				return v, true, nil
			}
			return nil, false, nil
		},
		func(v any) { delivered = append(delivered, v) },
		func(err error) {
			doneCalls++
			if err != nil {
				t.Errorf("unexpected stream error: %v", err)
			}
		},
	)

	// The foreign side wakes next once per item, then fires done.
	r.Drain() // initial kick delivers the first item
	_ = r.Wake(s.nextSlot)
	_ = r.Wake(s.nextSlot)
	r.Drain()
	_ = r.Wake(s.doneSlot)
	r.Drain()

	if !reflect.DeepEqual(delivered, items) {
		t.Errorf("got %v, want %v", delivered, items)
	}
	if doneCalls != 1 {
		t.Errorf("done fired %d times, want 1", doneCalls)
	}
	if drops != 1 {
		t.Errorf("handle dropped %d times, want exactly 1", drops)
	}
	if r.Pending() != 0 {
		t.Error("both slots must be unregistered on completion")
	}
	if !s.Closed() {
		t.Error("stream must report closed")
	}
}

func TestStreamCancel(t *testing.T) {
	r := NewRegistry()
	drops := 0
	box := handle.New(1, func() { drops++ })

	s := NewStream(r, box,
		func(next, done uint64) (any, bool, error) { return nil, false, nil },
		func(any) {}, nil,
	)
	s.Cancel()

	if drops != 1 {
		t.Errorf("handle dropped %d times, want 1", drops)
	}
	if r.Pending() != 0 {
		t.Error("cancel must unregister both slots")
	}
	// Queued wakes from before the cancel are ignored, not errors.
	r.Drain()
}

func TestIteratorPullsUntilEnd(t *testing.T) {
	drops := 0
	box := handle.New(1, func() { drops++ })

	vals := []any{int32(10), int32(20)}
	i := 0
	it := NewIterator(box, func() (any, bool, error) {
		if i < len(vals) {
			v := vals[i]
			i++
			return v, true, nil
		}
		return nil, false, nil
	})

	got, err := it.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, vals) {
		t.Errorf("got %v, want %v", got, vals)
	}
	if drops != 1 {
		t.Errorf("handle dropped %d times, want exactly 1", drops)
	}

	// Pulling an exhausted iterator stays at the end sentinel.
	if _, ok, _ := it.Next(); ok {
		t.Error("exhausted iterator must keep returning the end sentinel")
	}
	if drops != 1 {
		t.Error("end must drop exactly once")
	}
}
