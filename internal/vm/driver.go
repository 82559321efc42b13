package vm

import (
	"github.com/wasmerio/wasmer-go/wasmer"
	"go.uber.org/zap"
)

// Driver instantiates a split-and-metered module against the resolver,
// charges initial-memory gas, runs the start function, invokes the
// exported call entry, and shapes the final GasLeft result (spec §4.4).
type Driver struct {
	Schedule *Schedule
	Metrics  *Metrics
	Log      *zap.SugaredLogger
}

// NewDriver constructs a Driver. log may be nil, in which case a no-op
// sugared logger is used — matching the teacher's pattern of a
// per-component logger handed in at construction, never created ad hoc.
func NewDriver(sched *Schedule, metrics *Metrics, log *zap.SugaredLogger) *Driver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Driver{Schedule: sched, Metrics: metrics, Log: log}
}

// initialMemoryStipend is the number of pages granted for free before the
// per-page static_region charge applies, per spec §4.4 step 5.
const initialMemoryStipend = 17

// Exec runs one contract invocation end to end.
func (d *Driver) Exec(params *ActionParams, ext Ext) (GasLeft, error) {
	if !params.Gas.IsUint64() {
		return GasLeft{}, &WasmError{Inner: ErrOtherf("gas budget does not fit in 64 bits")}
	}
	gasLimit := params.Gas.Uint64()

	module, input, splitErr := SplitPayload(params, d.Schedule)
	if splitErr != nil {
		return GasLeft{}, &WasmError{Inner: splitErr}
	}

	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)

	wasmBytes := EncodeModule(module)
	wasmerModule, err := wasmer.NewModule(store, wasmBytes)
	if err != nil {
		return GasLeft{}, &WasmError{Inner: ErrOtherf("wasm module error: %s", err)}
	}

	if d.Schedule.Wasm.StaticRegion >= 1<<16 {
		panic("static_region must be < 65536 for the initial-memory charge to fit in u64")
	}

	ctx := RuntimeContext{
		Address:  params.Address,
		Sender:   params.Sender,
		Origin:   params.Origin,
		CodeAddr: params.CodeAddr,
	}
	if params.Value != nil {
		ctx.Value = *params.Value
	}

	rt := NewRuntime(ctx, gasLimit, input, ext, d.Schedule, d.Metrics, d.Log)

	resolver := NewResolver(store, DefaultMemoryPageCap)
	resolver.BindRuntime(rt)

	imports, err := resolver.Build(wasmerModule)
	if err != nil {
		return GasLeft{}, &WasmError{Inner: ErrOtherf("%s", err)}
	}

	instance, err := wasmer.NewInstance(wasmerModule, imports)
	if err != nil {
		return GasLeft{}, &WasmError{Inner: ErrOtherf("instantiation error: %s", err)}
	}

	mem := resolver.Memory()
	if mem == nil {
		if m, err := instance.Exports.GetMemory("memory"); err == nil {
			mem = m
		}
	}
	if mem != nil {
		rt.SetMemory(mem)
		pages := mem.Size()
		if uint32(pages) > initialMemoryStipend {
			billablePages := uint64(uint32(pages) - initialMemoryStipend)
			charge := billablePages * 65536 * d.Schedule.Wasm.StaticRegion
			if err := rt.charge(charge); err != nil {
				return GasLeft{}, &WasmError{Inner: err}
			}
		}
	}

	// The WASM spec has the embedder invoke a module's start function
	// immediately as part of instantiation, using the same host imports —
	// wasmer-go's NewInstance already did that above, so step 7 of the
	// driver flow (spec §4.4) is satisfied by the call already made.

	call, err := instance.Exports.GetFunction("call")
	if err != nil {
		return GasLeft{}, &WasmError{Inner: ErrOtherf("module does not export call: %s", err)}
	}
	if _, err := call(); err != nil {
		return GasLeft{}, d.wrapTrap(err)
	}

	if d.Metrics != nil {
		d.Metrics.ObserveGasSpent(rt.gas.spent())
	}

	result := rt.Dissolve()
	gasLeft := rt.GasLeft()
	if len(result) == 0 {
		return KnownGasLeft(gasLeft), nil
	}
	return NeedsReturnGasLeft(gasLeft, result), nil
}

// wrapTrap translates an engine-level trap into the outer VM's wasm-error
// variant: a host-returned *vm.Error is wrapped as is, and any other error
// goes through translateEngineError. It handles returned errors only; the
// Unknown-dispatch-index abort is a panic in Runtime.Invoke, not an error
// that reaches this function.
func (d *Driver) wrapTrap(err error) *WasmError {
	if vmErr, ok := err.(*Error); ok {
		return &WasmError{Inner: vmErr}
	}
	return &WasmError{Inner: translateEngineError(err)}
}
