package vm

import (
	"github.com/holiman/uint256"
	"github.com/wasmerio/wasmer-go/wasmer"
	"go.uber.org/zap"
)

// Runtime owns everything one contract invocation touches: the memory
// handle, the gas counter/limit, the invocation context, the input
// buffer, and the result buffer. It implements the host-function surface
// of spec §4.3 and the single dispatch entry host code calls through.
//
// A Runtime is single-use: constructed by the driver for exactly one
// invocation, consumed on success (Dissolve extracts its result) or
// discarded on any trap (spec §3's lifecycle note).
type Runtime struct {
	gas     *gasCounter
	memory  *wasmer.Memory
	ctx     RuntimeContext
	args    []byte
	result  []byte
	ext     Ext
	sched   *Schedule
	metrics *Metrics
	log     *zap.SugaredLogger
}

// NewRuntime constructs a Runtime for one invocation. memory is attached
// after resolution (see Resolver.Memory); the driver sets it via
// SetMemory once the module has been instantiated.
func NewRuntime(ctx RuntimeContext, gasLimit uint64, args []byte, ext Ext, sched *Schedule, metrics *Metrics, log *zap.SugaredLogger) *Runtime {
	return &Runtime{
		gas:     newGasCounter(gasLimit),
		ctx:     ctx,
		args:    args,
		ext:     ext,
		sched:   sched,
		metrics: metrics,
		log:     log,
	}
}

func (rt *Runtime) SetMemory(m *wasmer.Memory) { rt.memory = m }

// GasLeft returns the unspent portion of the gas budget.
func (rt *Runtime) GasLeft() uint64 { return rt.gas.left() }

// Dissolve consumes the Runtime and returns its result buffer, per the
// original's Runtime::dissolve — documents that a Runtime is never reused
// after the driver is done with it.
func (rt *Runtime) Dissolve() []byte {
	r := rt.result
	rt.result = nil
	return r
}

func (rt *Runtime) memSlice(ptr, length uint32) ([]byte, *Error) {
	data := rt.memory.Data()
	end := uint64(ptr) + uint64(length)
	if end > uint64(len(data)) {
		return nil, ErrMemoryAccess()
	}
	return data[ptr:end], nil
}

func (rt *Runtime) readHash(ptr uint32) (Hash, *Error) {
	b, err := rt.memSlice(ptr, 32)
	if err != nil {
		return Hash{}, err
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

func (rt *Runtime) writeHash(ptr uint32, h Hash) *Error {
	b, err := rt.memSlice(ptr, 32)
	if err != nil {
		return err
	}
	copy(b, h[:])
	return nil
}

func (rt *Runtime) readAddress(ptr uint32) (Address, *Error) {
	b, err := rt.memSlice(ptr, 20)
	if err != nil {
		return Address{}, err
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

func (rt *Runtime) writeAddress(ptr uint32, a Address) *Error {
	b, err := rt.memSlice(ptr, 20)
	if err != nil {
		return err
	}
	copy(b, a[:])
	return nil
}

func (rt *Runtime) writeU256(ptr uint32, v *uint256.Int) *Error {
	b, err := rt.memSlice(ptr, 32)
	if err != nil {
		return err
	}
	be := v.Bytes32()
	copy(b, be[:])
	return nil
}

// charge is the single enforcement point host functions use: compute,
// check, then commit — never charge then roll back (DESIGN.md #5).
func (rt *Runtime) charge(amount uint64) *Error {
	if err := rt.gas.charge(amount); err != nil {
		if rt.metrics != nil {
			rt.metrics.ObserveGasLimitHit()
		}
		return err
	}
	return nil
}

// Invoke is the Runtime's single host-dispatch entry: the engine calls it
// polymorphically for every env-namespace host function, keyed by the
// fixed numeric index from spec §6. An index with no mapped function is a
// driver invariant violation — the resolver and this switch drifted out
// of sync — and panics rather than returning an error (DESIGN.md's Open
// Question #3), mirroring the source's invoke_index default arm.
func (rt *Runtime) Invoke(index int32, args []wasmer.Value) ([]wasmer.Value, error) {
	if rt.metrics != nil {
		rt.metrics.ObserveHostCall(index)
	}
	switch index {
	case 10:
		return rt.hostStorageRead(args)
	case 11:
		return rt.hostStorageWrite(args)
	case 20:
		return rt.hostRet(args)
	case 30:
		return rt.hostGas(args)
	case 40:
		return rt.hostFetchInput(args)
	case 50:
		return rt.hostInputLength(args)
	case 100:
		return rt.hostPanic(args)
	case 110:
		return rt.hostDebug(args)
	case 120:
		return rt.hostCall(CallTypeCall, args)
	case 121:
		return rt.hostCall(CallTypeDelegateCall, args)
	case 122:
		return rt.hostCall(CallTypeStaticCall, args)
	case 130:
		return rt.hostValue(args)
	case 140:
		return rt.hostCreate(args)
	case 150:
		return rt.hostSuicide(args)
	case 160:
		return rt.hostBlockhash(args)
	case 161:
		return rt.hostBlocknumber(args)
	case 162:
		return rt.hostCoinbase(args)
	case 163:
		return rt.hostDifficulty(args)
	case 164:
		return rt.hostGaslimit(args)
	case 165:
		return rt.hostTimestamp(args)
	case 170:
		return rt.hostMemcpy(args)
	case 171:
		return rt.hostMemcmp(args)
	default:
		panic(ErrOtherf("env module doesn't provide function at index %d", index))
	}
}

func i32(v wasmer.Value) uint32 { return uint32(v.I32()) }
func i64(v wasmer.Value) uint64 { return uint64(v.I64()) }

func retI32(v int32) []wasmer.Value   { return []wasmer.Value{wasmer.NewI32(v)} }
func retI64(v int64) []wasmer.Value   { return []wasmer.Value{wasmer.NewI64(v)} }
func retVoid() ([]wasmer.Value, error) { return nil, nil }
