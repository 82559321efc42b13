package vm

import "fmt"

const gasImportModule = "env"
const gasImportField = "gas"

// InjectGasCounter rewrites m in place so that every basic block in every
// locally defined function body begins with a call charging the summed
// cost of its instructions, per spec §4.1. If the module does not already
// import env.gas, one is added — which shifts every local-function-index
// reference (export section, start section, element segments, and call
// operands) up by one, since imported functions occupy
// the low end of the function index space.
func InjectGasCounter(m *Module, rules *Rules) error {
	gasFuncIdx, shift, err := ensureGasImport(m)
	if err != nil {
		return err
	}
	if shift {
		shiftLocalFuncIndices(m)
	}

	for i := range m.Codes {
		instrs, err := decodeBody(m.Codes[i].Body)
		if err != nil {
			return fmt.Errorf("wasm: decode function %d body: %w", i, err)
		}
		metered := meterInstrs(instrs, rules, gasFuncIdx)
		m.Codes[i].Body = encodeBody(metered)
	}
	return nil
}

// ensureGasImport returns the function index of env.gas, adding the
// import if the module does not already declare it. The second return
// value reports whether local function indices must be shifted by one.
func ensureGasImport(m *Module) (uint32, bool, error) {
	if im, ok := m.FuncImport(gasImportModule, gasImportField); ok {
		ft := FuncType{Params: []ValType{ValI32}}
		if im.TypeIdx >= uint32(len(m.Types)) || !sameSig(m.Types[im.TypeIdx], ft) {
			return 0, false, fmt.Errorf("wasm: existing env.gas import has the wrong signature")
		}
		return uint32(indexOfFuncImport(m, gasImportModule, gasImportField)), false, nil
	}

	typeIdx := findOrAddType(m, FuncType{Params: []ValType{ValI32}})

	// New function imports are inserted immediately after the last
	// existing function import, so the imported function index space
	// stays contiguous and every OTHER import kind keeps its own index
	// numbering untouched.
	insertAt := 0
	for i, im := range m.Imports {
		if im.Kind == ImportFunc {
			insertAt = i + 1
		}
	}
	newImport := Import{Module: gasImportModule, Field: gasImportField, Kind: ImportFunc, TypeIdx: typeIdx}
	m.Imports = append(m.Imports, Import{})
	copy(m.Imports[insertAt+1:], m.Imports[insertAt:])
	m.Imports[insertAt] = newImport

	gasIdx := uint32(insertAt)
	return gasIdx, true, nil
}

func indexOfFuncImport(m *Module, module, field string) int {
	idx := 0
	for _, im := range m.Imports {
		if im.Kind != ImportFunc {
			continue
		}
		if im.Module == module && im.Field == field {
			return idx
		}
		idx++
	}
	return -1
}

func sameSig(a, b FuncType) bool {
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}

func findOrAddType(m *Module, ft FuncType) uint32 {
	for i, t := range m.Types {
		if sameSig(t, ft) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

// shiftLocalFuncIndices adds one to every reference to a locally defined
// function, to account for a newly inserted function import occupying
// index 0 of what used to be the local function's slot in a unified
// index space shared between imports and locally defined functions.
//
// Only indices >= the insertion point conceptually need shifting, but
// since the new import was placed at the end of the imported-function
// run, every local function's absolute index increases by exactly one
// regardless of where in that run it landed.
func shiftLocalFuncIndices(m *Module) {
	shift := func(idx uint32) uint32 {
		importedBefore := uint32(m.ImportedFuncCount()) - 1 // -1: the gas import itself was just added
		if idx >= importedBefore {
			return idx + 1
		}
		return idx
	}

	for i := range m.Exports {
		if m.Exports[i].Kind == ImportFunc {
			m.Exports[i].Idx = shift(m.Exports[i].Idx)
		}
	}
	if m.HasStart {
		m.Start = shift(m.Start)
	}
	for i := range m.Elements {
		for j := range m.Elements[i].FuncIdxs {
			m.Elements[i].FuncIdxs[j] = shift(m.Elements[i].FuncIdxs[j])
		}
	}
	for i := range m.Codes {
		instrs, err := decodeBody(m.Codes[i].Body)
		if err != nil {
			continue
		}
		for j := range instrs {
			if instrs[j].Op == opCall {
				instrs[j].FuncIdx = shift(instrs[j].FuncIdx)
			}
		}
		m.Codes[i].Body = encodeBody(instrs)
	}
}

// meterInstrs walks a flat instruction stream and inserts
// "i32.const cost; call $gas" at the start of every basic block: the
// function entry, and immediately after every control-flow instruction
// that can be a block boundary's target or successor (spec §4.1's
// maximal straight-line runs).
func meterInstrs(instrs []Instr, rules *Rules, gasFuncIdx uint32) []Instr {
	out := make([]Instr, 0, len(instrs)+len(instrs)/4+2)
	var pending []Instr
	var blockCost uint64

	// flush emits the accumulated block's gas charge FIRST, then the
	// buffered instructions it covers — the charge must land before any
	// of the instructions it pays for can run.
	flush := func() {
		if blockCost > 0 {
			out = append(out,
				Instr{Op: opI32Const, I32: int32(blockCost)},
				Instr{Op: opCall, FuncIdx: gasFuncIdx},
			)
		}
		out = append(out, pending...)
		pending = pending[:0]
		blockCost = 0
	}

	for _, ins := range instrs {
		if isBlockBoundary(ins.Op) {
			flush()
			out = append(out, ins)
			continue
		}
		blockCost += rules.Cost(ins)
		pending = append(pending, ins)
	}
	flush()
	return out
}
