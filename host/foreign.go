package host

import "context"

// Memory is the slice of linear memory the interpreter reads and
// writes. wazero's api.Memory satisfies it directly.
type Memory interface {
	// Read returns count bytes starting at offset, or false when the
	// range is out of bounds.
	Read(offset, count uint32) ([]byte, bool)

	// Write copies data into memory at offset, or returns false when
	// the range is out of bounds.
	Write(offset uint32, data []byte) bool
}

// Foreign is the compiled side an Instance calls into. Exported
// functions take and return raw slot words.
type Foreign interface {
	// Call invokes the export named symbol. It fails when the export
	// is missing or the foreign side traps.
	Call(ctx context.Context, symbol string, params ...uint64) ([]uint64, error)

	// Memory returns the module's linear memory.
	Memory() Memory
}
