package vm

import (
	"reflect"
	"testing"
)

func TestDecodeEncodeBodyRoundTrip(t *testing.T) {
	// local.get 0; i32.const 5; i32.add; i32.load offset=4 align=2; end
	body := encodeBody([]Instr{
		{Op: opLocalGet, LocalOrGlobal: 0},
		{Op: opI32Const, I32: 5},
		{Op: 0x6a}, // i32.add, no operand
		{Op: opMemLoadLo, Align: 2, Offset: 4},
		{Op: opEnd},
	})

	instrs, err := decodeBody(body)
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}
	if len(instrs) != 5 {
		t.Fatalf("got %d instructions, want 5", len(instrs))
	}
	if instrs[0].Op != opLocalGet || instrs[0].LocalOrGlobal != 0 {
		t.Fatalf("instr0 = %+v", instrs[0])
	}
	if instrs[1].Op != opI32Const || instrs[1].I32 != 5 {
		t.Fatalf("instr1 = %+v", instrs[1])
	}
	if instrs[3].Op != opMemLoadLo || instrs[3].Align != 2 || instrs[3].Offset != 4 {
		t.Fatalf("instr3 = %+v", instrs[3])
	}

	reencoded := encodeBody(instrs)
	if !reflect.DeepEqual(reencoded, body) {
		t.Fatalf("re-encoded body differs:\n got  %x\n want %x", reencoded, body)
	}
}

func TestDecodeBodyCallAndBrTable(t *testing.T) {
	body := encodeBody([]Instr{
		{Op: opCall, FuncIdx: 7},
		{Op: opBrTable, BrTargets: []uint32{1, 2, 3}, BrDefault: 4},
		{Op: opEnd},
	})
	instrs, err := decodeBody(body)
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}
	if instrs[0].FuncIdx != 7 {
		t.Fatalf("call func idx = %d, want 7", instrs[0].FuncIdx)
	}
	if !reflect.DeepEqual(instrs[1].BrTargets, []uint32{1, 2, 3}) || instrs[1].BrDefault != 4 {
		t.Fatalf("br_table decoded wrong: %+v", instrs[1])
	}
}

func TestIsBlockBoundary(t *testing.T) {
	for _, op := range []byte{opBlock, opLoop, opIf, opElse, opEnd, opBr, opBrIf, opBrTable, opReturn, opCall, opCallIndirect, opUnreachable} {
		if !isBlockBoundary(op) {
			t.Fatalf("op 0x%x should be a block boundary", op)
		}
	}
	for _, op := range []byte{opLocalGet, opI32Const, opMemLoadLo, 0x6a} {
		if isBlockBoundary(op) {
			t.Fatalf("op 0x%x should not be a block boundary", op)
		}
	}
}
