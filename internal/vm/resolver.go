package vm

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// hostSig is one entry in the fixed name -> (index, signature) table
// satisfying the contract's env import namespace (spec §6). Signatures are
// authoritative: wasmer-go cross-checks them against the contract's
// declared import type at instantiation time.
type hostSig struct {
	name    string
	index   int32
	params  []wasmer.ValueKind
	results []wasmer.ValueKind
}

var hostTable = []hostSig{
	{"storage_read", 10, i32s(2), nil},
	{"storage_write", 11, i32s(2), nil},
	{"ret", 20, i32s(2), nil},
	{"gas", 30, i32s(1), nil},
	{"fetch_input", 40, i32s(1), nil},
	{"input_length", 50, nil, i32s(1)},
	{"panic", 100, i32s(2), nil},
	{"debug", 110, i32s(2), nil},
	{"ccall", 120, append([]wasmer.ValueKind{wasmer.I64}, i32s(6)...), i32s(1)},
	{"dcall", 121, append([]wasmer.ValueKind{wasmer.I64}, i32s(5)...), i32s(1)},
	{"scall", 122, append([]wasmer.ValueKind{wasmer.I64}, i32s(5)...), i32s(1)},
	{"value", 130, i32s(1), nil},
	{"create", 140, i32s(4), i32s(1)},
	{"suicide", 150, i32s(1), nil},
	{"blockhash", 160, []wasmer.ValueKind{wasmer.I64, wasmer.I32}, nil},
	{"blocknumber", 161, nil, []wasmer.ValueKind{wasmer.I64}},
	{"coinbase", 162, i32s(1), nil},
	{"difficulty", 163, i32s(1), nil},
	{"gaslimit", 164, i32s(1), nil},
	{"timestamp", 165, nil, []wasmer.ValueKind{wasmer.I64}},
	{"memcpy", 170, i32s(3), i32s(1)},
	{"memcmp", 171, i32s(3), i32s(1)},
}

func i32s(n int) []wasmer.ValueKind {
	out := make([]wasmer.ValueKind, n)
	for i := range out {
		out[i] = wasmer.I32
	}
	return out
}

// DefaultMemoryPageCap is the maximum number of 64 KiB pages the resolver
// will grant a contract's memory import.
const DefaultMemoryPageCap = 64

// Resolver builds the wasmer import object satisfying a contract's env
// namespace and caches the resolved memory handle so the driver can read
// the post-instantiation page count (spec §4.2's "interior mutability"
// design note: a single-writer, single-reader field assigned exactly once
// during resolution, never touched concurrently).
type Resolver struct {
	store    *wasmer.Store
	pageCap  uint32
	memory   *wasmer.Memory
	runtime  *Runtime // set just before instantiation, read by host closures
}

// NewResolver constructs a resolver bound to store, capping memory imports
// at pageCap pages.
func NewResolver(store *wasmer.Store, pageCap uint32) *Resolver {
	return &Resolver{store: store, pageCap: pageCap}
}

// Memory returns the resolved memory handle, valid only after a successful
// Build+Instantiate cycle.
func (r *Resolver) Memory() *wasmer.Memory { return r.memory }

// BindRuntime attaches the Runtime whose host-function bodies back every
// import. It must be called before Build.
func (r *Resolver) BindRuntime(rt *Runtime) { r.runtime = rt }

// Build resolves module against the fixed host-function table plus a
// capped memory import, returning a wasmer import object ready for
// instantiation. Unknown import names, or a memory request exceeding the
// cap, are instantiation errors.
func (r *Resolver) Build(module *wasmer.Module) (*wasmer.ImportObject, error) {
	if r.runtime == nil {
		return nil, fmt.Errorf("resolver: BindRuntime must be called before Build")
	}

	byName := make(map[string]hostSig, len(hostTable))
	for _, h := range hostTable {
		byName[h.name] = h
	}

	imports := wasmer.NewImportObject()
	envFuncs := make(map[string]wasmer.IntoExtern)

	for _, imp := range module.Imports() {
		if imp.Namespace() != "env" {
			return nil, fmt.Errorf("resolver: unknown import namespace %q", imp.Namespace())
		}
		switch imp.Type().Kind() {
		case wasmer.FUNCTION:
			sig, ok := byName[imp.Name()]
			if !ok {
				return nil, fmt.Errorf("resolver: unknown import function %q", imp.Name())
			}
			envFuncs[imp.Name()] = r.makeHostFunc(sig)
		case wasmer.MEMORY:
			if imp.Name() != "memory" {
				return nil, fmt.Errorf("resolver: unknown memory import %q", imp.Name())
			}
			memType := imp.Type().IntoMemoryType()
			limits := memType.Limits()
			if limits.Minimum >= r.pageCap {
				return nil, fmt.Errorf("module requested too much memory")
			}
			if limits.Maximum > 0 && limits.Maximum > r.pageCap {
				return nil, fmt.Errorf("module requested too much memory")
			}
			mem := wasmer.NewMemory(r.store, wasmer.NewMemoryType(limits))
			r.memory = mem
			envFuncs["memory"] = mem
		default:
			return nil, fmt.Errorf("resolver: unsupported import kind for %q", imp.Name())
		}
	}

	imports.Register("env", envFuncs)
	return imports, nil
}

func (r *Resolver) makeHostFunc(sig hostSig) *wasmer.Function {
	ft := wasmer.NewFunctionType(wasmer.NewValueTypes(sig.params...), wasmer.NewValueTypes(sig.results...))
	idx := sig.index
	return wasmer.NewFunction(r.store, ft, func(args []wasmer.Value) ([]wasmer.Value, error) {
		return r.runtime.Invoke(idx, args)
	})
}
