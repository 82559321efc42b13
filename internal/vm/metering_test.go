package vm

import "testing"

func buildMinimalModule(body []byte, locals []LocalGroup) *Module {
	return &Module{
		Types: []FuncType{{}},
		FuncSigs: []uint32{0},
		Exports: []Export{{Name: "call", Kind: ImportFunc, Idx: 0}},
		Codes: []Code{{Locals: locals, Body: body}},
	}
}

func TestInjectGasCounterAddsImportWhenMissing(t *testing.T) {
	body := encodeBody([]Instr{
		{Op: opI32Const, I32: 1},
		{Op: opEnd},
	})
	m := buildMinimalModule(body, nil)
	rules := BuildRules(DefaultSchedule())

	if err := InjectGasCounter(m, rules); err != nil {
		t.Fatalf("InjectGasCounter: %v", err)
	}

	im, ok := m.FuncImport(gasImportModule, gasImportField)
	if !ok {
		t.Fatal("expected env.gas import to be added")
	}
	if len(m.Types[im.TypeIdx].Params) != 1 || m.Types[im.TypeIdx].Params[0] != ValI32 {
		t.Fatalf("gas import has wrong signature: %+v", m.Types[im.TypeIdx])
	}

	// The locally defined "call" function used to be index 0; after one
	// import is added it must shift to index 1.
	if m.Exports[0].Idx != 1 {
		t.Fatalf("call export index = %d, want 1 after shift", m.Exports[0].Idx)
	}

	instrs, err := decodeBody(m.Codes[0].Body)
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}
	if instrs[0].Op != opI32Const || instrs[1].Op != opCall {
		t.Fatalf("expected gas charge prefix, got %+v", instrs[:2])
	}
	if instrs[1].FuncIdx != 0 {
		t.Fatalf("gas call should target the new import at index 0, got %d", instrs[1].FuncIdx)
	}
}

func TestInjectGasCounterChargesPerBlock(t *testing.T) {
	sched := DefaultSchedule()
	// i32.const 0; i32.load; block; i32.const 1; end; end
	body := encodeBody([]Instr{
		{Op: opI32Const, I32: 0},
		{Op: opMemLoadLo},
		{Op: opBlock, BlockType: -64},
		{Op: opI32Const, I32: 1},
		{Op: opEnd},
		{Op: opEnd},
	})
	m := buildMinimalModule(body, nil)
	rules := BuildRules(sched)
	if err := InjectGasCounter(m, rules); err != nil {
		t.Fatalf("InjectGasCounter: %v", err)
	}

	instrs, err := decodeBody(m.Codes[0].Body)
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}

	// Expect: const(cost) call$gas i32.const i32.load block const(cost) call$gas i32.const end end
	if instrs[0].Op != opI32Const || instrs[1].Op != opCall {
		t.Fatalf("missing entry-block gas charge: %+v", instrs[:2])
	}
	firstCost := uint64(instrs[0].I32)
	wantFirst := uint64(1) + sched.Wasm.Mem // i32.const(1) + i32.load(mem)
	if firstCost != wantFirst {
		t.Fatalf("first block cost = %d, want %d", firstCost, wantFirst)
	}

	foundSecondCharge := false
	for i := 0; i+1 < len(instrs); i++ {
		if instrs[i].Op == opI32Const && instrs[i+1].Op == opCall && i > 1 {
			foundSecondCharge = true
			if uint64(instrs[i].I32) != 1 {
				t.Fatalf("second block cost = %d, want 1", instrs[i].I32)
			}
		}
	}
	if !foundSecondCharge {
		t.Fatal("expected a second gas charge after the block instruction")
	}
}

func TestInjectGasCounterReusesExistingImport(t *testing.T) {
	body := encodeBody([]Instr{{Op: opEnd}})
	m := &Module{
		Types:    []FuncType{{Params: []ValType{ValI32}}, {}},
		Imports:  []Import{{Module: "env", Field: "gas", Kind: ImportFunc, TypeIdx: 0}},
		FuncSigs: []uint32{1},
		Codes:    []Code{{Body: body}},
	}
	rules := BuildRules(DefaultSchedule())
	if err := InjectGasCounter(m, rules); err != nil {
		t.Fatalf("InjectGasCounter: %v", err)
	}
	if len(m.Imports) != 1 {
		t.Fatalf("expected no new import, got %d imports", len(m.Imports))
	}
}
