package vm

import (
	"reflect"
	"testing"
)

// buildSampleModule constructs a small but structurally complete module by
// hand: one imported function (env.gas), one local function exporting
// "call", a memory, a global, an element segment, a data segment, and a
// custom section. The table and start sections are not exercised.
func buildSampleModule() *Module {
	body := encodeBody([]Instr{
		{Op: opI32Const, I32: 1},
		{Op: opCall, FuncIdx: 0},
		{Op: opEnd},
	})
	return &Module{
		Types: []FuncType{
			{Params: []ValType{ValI32}},
			{Params: nil, Results: nil},
		},
		Imports: []Import{
			{Module: "env", Field: "gas", Kind: ImportFunc, TypeIdx: 0},
		},
		FuncSigs: []uint32{1},
		Mems:     []Limits{{Min: 1, Max: 64, HasMax: true}},
		Globals: []Global{
			{Type: ValI32, Mutable: true, InitExpr: encodeConstExpr(0)},
		},
		Exports: []Export{
			{Name: "call", Kind: ImportFunc, Idx: 1},
			{Name: "memory", Kind: ImportMemory, Idx: 0},
		},
		Elements: []Element{
			{TableIdx: 0, OffsetExpr: encodeConstExpr(0), FuncIdxs: []uint32{1}},
		},
		Codes: []Code{
			{Locals: []LocalGroup{{Count: 1, Type: ValI32}}, Body: body},
		},
		Data: []DataSegment{
			{MemIdx: 0, OffsetExpr: encodeConstExpr(0), Bytes: []byte("hi")},
		},
		Customs: []CustomSection{
			{Name: "name", Payload: []byte("sample"), AfterSection: secData},
		},
	}
}

func encodeConstExpr(v int32) []byte {
	b := []byte{opI32Const}
	b = putVarInt(b, int64(v))
	b = append(b, opEnd)
	return b
}

func TestEncodeDecodeModuleRoundTrip(t *testing.T) {
	m := buildSampleModule()
	encoded := EncodeModule(m)

	decoded, err := DecodeModule(encoded)
	if err != nil {
		t.Fatalf("DecodeModule: %v", err)
	}

	if len(decoded.Types) != 2 {
		t.Fatalf("types = %d, want 2", len(decoded.Types))
	}
	if len(decoded.Imports) != 1 || decoded.Imports[0].Module != "env" || decoded.Imports[0].Field != "gas" {
		t.Fatalf("imports decoded wrong: %+v", decoded.Imports)
	}
	if len(decoded.Mems) != 1 || decoded.Mems[0].Min != 1 || decoded.Mems[0].Max != 64 || !decoded.Mems[0].HasMax {
		t.Fatalf("memory decoded wrong: %+v", decoded.Mems)
	}
	if len(decoded.Exports) != 2 || decoded.Exports[0].Name != "call" {
		t.Fatalf("exports decoded wrong: %+v", decoded.Exports)
	}
	if len(decoded.Elements) != 1 || !reflect.DeepEqual(decoded.Elements[0].FuncIdxs, []uint32{1}) {
		t.Fatalf("elements decoded wrong: %+v", decoded.Elements)
	}
	if len(decoded.Data) != 1 || string(decoded.Data[0].Bytes) != "hi" {
		t.Fatalf("data decoded wrong: %+v", decoded.Data)
	}
	if len(decoded.Customs) != 1 || decoded.Customs[0].Name != "name" || decoded.Customs[0].AfterSection != secData {
		t.Fatalf("customs decoded wrong: %+v", decoded.Customs)
	}

	reencoded := EncodeModule(decoded)
	if !reflect.DeepEqual(reencoded, encoded) {
		t.Fatalf("re-encoding decoded module did not reproduce the original bytes")
	}
}

func TestModuleHelperMethods(t *testing.T) {
	m := buildSampleModule()
	if got := m.ImportedFuncCount(); got != 1 {
		t.Fatalf("ImportedFuncCount = %d, want 1", got)
	}
	im, ok := m.FuncImport("env", "gas")
	if !ok || im.Field != "gas" {
		t.Fatalf("FuncImport(env, gas) = %+v, %v", im, ok)
	}
	if _, ok := m.FuncImport("env", "missing"); ok {
		t.Fatal("FuncImport(env, missing) should not be found")
	}
}

func TestDecodeModuleRejectsBadMagic(t *testing.T) {
	bad := []byte{0, 1, 2, 3, 1, 0, 0, 0}
	if _, err := DecodeModule(bad); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestDecodeModuleRejectsTruncatedHeader(t *testing.T) {
	if _, err := DecodeModule([]byte{0x00, 0x61, 0x73}); err == nil {
		t.Fatal("expected error for truncated header")
	}
}
