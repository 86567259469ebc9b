package notify

import (
	"github.com/wasmlink/ffigen/handle"
)

// NextFunc pulls one element from a foreign iterator. ok is false at
// the end sentinel.
type NextFunc func() (value any, ok bool, err error)

// Iterator is the purely synchronous pull protocol: the host pulls
// next until the end sentinel, then the handle is dropped. No
// suspension occurs.
type Iterator struct {
	box  *handle.Handle
	next NextFunc
	done bool
}

// NewIterator wraps a foreign iterator handle.
func NewIterator(box *handle.Handle, next NextFunc) *Iterator {
	return &Iterator{box: box, next: next}
}

// Next returns the next element, or ok=false once exhausted. The
// handle is dropped exactly once, when the end sentinel is reached.
func (it *Iterator) Next() (any, bool, error) {
	if it.done {
		return nil, false, nil
	}
	value, ok, err := it.next()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		it.done = true
		if err := it.box.Drop(); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return value, true, nil
}

// Collect drains the iterator into a slice.
func (it *Iterator) Collect() ([]any, error) {
	var out []any
	for {
		value, ok, err := it.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, value)
	}
}
