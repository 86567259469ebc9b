package lower

import "github.com/wasmlink/ffigen/abi"

// Deterministic name mangling for the exported foreign-module
// surface. The allocator pair and the notifier entry point have fixed
// names; everything else derives from the interface.

const (
	AllocateSymbol   = "allocate"
	DeallocateSymbol = "deallocate"
	NotifierSymbol   = "__notifier_callback"
)

// ExportName returns the foreign export symbol for a function.
func ExportName(fqn string) string {
	return "__ffigen_" + fqn
}

// ObjectDropName returns the destructor export for an object type.
func ObjectDropName(object string) string {
	return "__ffigen_drop_" + object
}

// IterDropName returns the destructor export for the n-th iterator
// occurrence of a function's return.
func IterDropName(fqn string, n int) string {
	return "__ffigen_" + trimOp(abi.IterNextName(fqn, n), "_next") + "_drop"
}

// FutureDropName returns the destructor export for the n-th future
// occurrence of a function's return.
func FutureDropName(fqn string, n int) string {
	return "__ffigen_" + trimOp(abi.FuturePollName(fqn, n), "_poll") + "_drop"
}

// StreamDropName returns the destructor export for the n-th stream
// occurrence of a function's return.
func StreamDropName(fqn string, n int) string {
	return "__ffigen_" + trimOp(abi.StreamPollName(fqn, n), "_poll") + "_drop"
}

func trimOp(name, suffix string) string {
	return name[:len(name)-len(suffix)]
}
