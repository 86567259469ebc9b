package host

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wasmlink/ffigen/errors"
	"github.com/wasmlink/ffigen/lower"
	"github.com/wasmlink/ffigen/notify"
)

// Runtime owns a wazero runtime plus the notifier registry its
// instances share. The interpreter engine is used so modules behave
// identically across platforms.
type Runtime struct {
	rt  wazero.Runtime
	reg *notify.Registry
}

// NewRuntime creates a runtime and installs the env module exporting
// the notifier entry point. Foreign code calls it with a slot index to
// wake a pending future or stream; the wake is queued, never run
// inline, so the foreign side is not re-entered mid-call.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	r := &Runtime{
		rt:  wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter()),
		reg: notify.NewRegistry(),
	}
	_, err := r.rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(_ context.Context, slot int64) {
			if err := r.reg.Wake(uint64(slot)); err != nil {
				Logger().Error("notifier wake failed",
					zap.Uint64("slot", uint64(slot)), zap.Error(err))
			}
		}).
		Export(lower.NotifierSymbol).
		Instantiate(ctx)
	if err != nil {
		_ = r.rt.Close(ctx)
		return nil, errors.New(errors.PhaseRuntime, errors.KindForeign,
			"instantiate notifier module").Wrap(err)
	}
	return r, nil
}

// Registry returns the shared notifier registry.
func (r *Runtime) Registry() *notify.Registry { return r.reg }

// Load instantiates a compiled module and binds the lowered imports
// to it.
func (r *Runtime) Load(ctx context.Context, wasm []byte, imports []*lower.Import) (*Instance, error) {
	mod, err := r.rt.Instantiate(ctx, wasm)
	if err != nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindForeign,
			"instantiate module").Wrap(err)
	}
	if mod.Memory() == nil {
		_ = mod.Close(ctx)
		return nil, errors.New(errors.PhaseRuntime, errors.KindMissingExport,
			"module exports no memory")
	}
	return NewInstance(&wasmForeign{mod: mod}, r.reg, imports), nil
}

// Close releases the runtime and every module instantiated in it.
func (r *Runtime) Close(ctx context.Context) error {
	return r.rt.Close(ctx)
}

// wasmForeign adapts an instantiated wazero module to Foreign.
type wasmForeign struct {
	mod api.Module
}

func (w *wasmForeign) Call(ctx context.Context, symbol string, params ...uint64) ([]uint64, error) {
	fn := w.mod.ExportedFunction(symbol)
	if fn == nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindMissingExport,
			"module does not export %q", symbol)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindForeign,
			"call %q", symbol).Wrap(err)
	}
	return results, nil
}

func (w *wasmForeign) Memory() Memory {
	return w.mod.Memory()
}
