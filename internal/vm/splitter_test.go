package vm

import (
	"testing"

	"github.com/holiman/uint256"
)

func buildRawModule() []byte {
	body := encodeBody([]Instr{{Op: opEnd}})
	m := &Module{
		Types:    []FuncType{{}},
		FuncSigs: []uint32{0},
		Exports:  []Export{{Name: "call", Kind: ImportFunc, Idx: 0}},
		Codes:    []Code{{Body: body}},
	}
	return EncodeModule(m)
}

func TestSplitPayloadSeparateFraming(t *testing.T) {
	raw := buildRawModule()
	p := &ActionParams{
		Code:       raw,
		Data:       []byte("hello"),
		ParamsType: Separate,
		Gas:        uint256.NewInt(1000),
	}
	m, input, err := SplitPayload(p, DefaultSchedule())
	if err != nil {
		t.Fatalf("SplitPayload: %v", err)
	}
	if string(input) != "hello" {
		t.Fatalf("input = %q, want %q", input, "hello")
	}
	// Gas injection must have added the env.gas import.
	if _, ok := m.FuncImport(gasImportModule, gasImportField); !ok {
		t.Fatal("expected metering to inject env.gas import")
	}
}

func TestSplitPayloadEmbeddedFraming(t *testing.T) {
	raw := buildRawModule()
	combined := append(append([]byte{}, raw...), []byte("trailing-input")...)
	p := &ActionParams{
		Code:       combined,
		ParamsType: Embedded,
		Gas:        uint256.NewInt(1000),
	}
	m, input, err := SplitPayload(p, DefaultSchedule())
	if err != nil {
		t.Fatalf("SplitPayload: %v", err)
	}
	if string(input) != "trailing-input" {
		t.Fatalf("input = %q, want %q", input, "trailing-input")
	}
	if len(m.Codes) != 1 {
		t.Fatalf("expected one code entry, got %d", len(m.Codes))
	}
}

func TestSplitPayloadRejectsEmptyCode(t *testing.T) {
	p := &ActionParams{Code: nil, ParamsType: Separate, Gas: uint256.NewInt(1000)}
	if _, _, err := SplitPayload(p, DefaultSchedule()); err == nil {
		t.Fatal("expected error for empty code")
	}
}

func TestSplitPayloadRejectsTruncatedEmbeddedModule(t *testing.T) {
	p := &ActionParams{Code: []byte{0x00, 0x61, 0x73, 0x6d}, ParamsType: Embedded, Gas: uint256.NewInt(1000)}
	if _, _, err := SplitPayload(p, DefaultSchedule()); err == nil {
		t.Fatal("expected error for truncated embedded header")
	}
}

func TestPeekModuleSizeMatchesWholeModuleWhenNoTrailingInput(t *testing.T) {
	raw := buildRawModule()
	n, err := peekModuleSize(raw)
	if err != nil {
		t.Fatalf("peekModuleSize: %v", err)
	}
	if n != len(raw) {
		t.Fatalf("peekModuleSize = %d, want %d", n, len(raw))
	}
}
