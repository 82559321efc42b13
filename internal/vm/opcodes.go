package vm

import (
	"encoding/binary"
	"fmt"
)

// Opcode constants, WASM MVP subset — enough to decode, classify, and
// re-encode any function body the metering injector needs to touch.
const (
	opUnreachable = 0x00
	opNop         = 0x01
	opBlock       = 0x02
	opLoop        = 0x03
	opIf          = 0x04
	opElse        = 0x05
	opEnd         = 0x0b
	opBr          = 0x0c
	opBrIf        = 0x0d
	opBrTable     = 0x0e
	opReturn      = 0x0f
	opCall        = 0x10
	opCallIndirect = 0x11
	opDrop        = 0x1a
	opSelect      = 0x1b
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opLocalTee    = 0x22
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opMemLoadLo   = 0x28
	opMemLoadHi   = 0x35
	opMemStoreLo  = 0x36
	opMemStoreHi  = 0x3e
	opMemSize     = 0x3f
	opMemGrow     = 0x40
	opI32Const    = 0x41
	opI64Const    = 0x42
	opF32Const    = 0x43
	opF64Const    = 0x44
	opI32DivS     = 0x6d
	opI32DivU     = 0x6e
	opI32RemS     = 0x6f
	opI32RemU     = 0x70
	opI32Mul      = 0x6c
	opI64MulLo    = 0x7e
	opI64DivSLo   = 0x7f
	opI64DivULo   = 0x80
	opI64RemSLo   = 0x81
	opI64RemULo   = 0x82
)

// Instr is one decoded instruction. Only the fields relevant to its
// opcode are populated; encodeInstr knows which based on Op.
type Instr struct {
	Op             byte
	BlockType      int64  // block/loop/if
	LabelIdx       uint32 // br, br_if
	BrTargets      []uint32
	BrDefault      uint32 // br_table
	FuncIdx        uint32 // call
	TypeIdx        uint32 // call_indirect
	LocalOrGlobal  uint32 // local.*/global.*
	Align, Offset  uint32 // memory loads/stores
	I32            int32
	I64            int64
	F32Bits        uint32
	F64Bits        uint64
}

// decodeBody decodes a flat instruction stream (a function body, minus the
// locals vector, including the trailing top-level end).
func decodeBody(b []byte) ([]Instr, error) {
	var out []Instr
	off := 0
	for off < len(b) {
		op := b[off]
		off++
		ins := Instr{Op: op}
		var err error
		switch {
		case op == opBlock || op == opLoop || op == opIf:
			ins.BlockType, off, err = readVarInt(b, off)
		case op == opBr || op == opBrIf:
			var v uint64
			v, off, err = readVarUint(b, off)
			ins.LabelIdx = uint32(v)
		case op == opBrTable:
			var count uint64
			count, off, err = readVarUint(b, off)
			if err != nil {
				break
			}
			targets := make([]uint32, 0, count)
			for i := uint64(0); i < count; i++ {
				var v uint64
				v, off, err = readVarUint(b, off)
				if err != nil {
					break
				}
				targets = append(targets, uint32(v))
			}
			if err != nil {
				break
			}
			var def uint64
			def, off, err = readVarUint(b, off)
			ins.BrTargets = targets
			ins.BrDefault = uint32(def)
		case op == opCall:
			var v uint64
			v, off, err = readVarUint(b, off)
			ins.FuncIdx = uint32(v)
		case op == opCallIndirect:
			var v uint64
			v, off, err = readVarUint(b, off)
			ins.TypeIdx = uint32(v)
			if err == nil {
				_, off, err = readVarUint(b, off) // reserved table index, always 0
			}
		case op == opLocalGet || op == opLocalSet || op == opLocalTee ||
			op == opGlobalGet || op == opGlobalSet:
			var v uint64
			v, off, err = readVarUint(b, off)
			ins.LocalOrGlobal = uint32(v)
		case op >= opMemLoadLo && op <= opMemLoadHi, op >= opMemStoreLo && op <= opMemStoreHi:
			var a, o uint64
			a, off, err = readVarUint(b, off)
			if err == nil {
				o, off, err = readVarUint(b, off)
			}
			ins.Align, ins.Offset = uint32(a), uint32(o)
		case op == opMemSize || op == opMemGrow:
			if off >= len(b) {
				err = fmt.Errorf("wasm: truncated memory.size/grow")
				break
			}
			off++ // reserved byte, always 0x00
		case op == opI32Const:
			var v int64
			v, off, err = readVarInt(b, off)
			ins.I32 = int32(v)
		case op == opI64Const:
			ins.I64, off, err = readVarInt(b, off)
		case op == opF32Const:
			if off+4 > len(b) {
				err = fmt.Errorf("wasm: truncated f32.const")
				break
			}
			ins.F32Bits = binary.LittleEndian.Uint32(b[off:])
			off += 4
		case op == opF64Const:
			if off+8 > len(b) {
				err = fmt.Errorf("wasm: truncated f64.const")
				break
			}
			ins.F64Bits = binary.LittleEndian.Uint64(b[off:])
			off += 8
		default:
			// unreachable, nop, else, end, return, drop, select, all
			// comparisons/arithmetic/conversions: no immediate operand.
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ins)
	}
	return out, nil
}

func encodeBody(instrs []Instr) []byte {
	var buf []byte
	for _, ins := range instrs {
		buf = append(buf, ins.Op)
		switch {
		case ins.Op == opBlock || ins.Op == opLoop || ins.Op == opIf:
			buf = putVarInt(buf, ins.BlockType)
		case ins.Op == opBr || ins.Op == opBrIf:
			buf = putVarUint(buf, uint64(ins.LabelIdx))
		case ins.Op == opBrTable:
			buf = putVarUint(buf, uint64(len(ins.BrTargets)))
			for _, t := range ins.BrTargets {
				buf = putVarUint(buf, uint64(t))
			}
			buf = putVarUint(buf, uint64(ins.BrDefault))
		case ins.Op == opCall:
			buf = putVarUint(buf, uint64(ins.FuncIdx))
		case ins.Op == opCallIndirect:
			buf = putVarUint(buf, uint64(ins.TypeIdx))
			buf = putVarUint(buf, 0)
		case ins.Op == opLocalGet || ins.Op == opLocalSet || ins.Op == opLocalTee ||
			ins.Op == opGlobalGet || ins.Op == opGlobalSet:
			buf = putVarUint(buf, uint64(ins.LocalOrGlobal))
		case ins.Op >= opMemLoadLo && ins.Op <= opMemLoadHi, ins.Op >= opMemStoreLo && ins.Op <= opMemStoreHi:
			buf = putVarUint(buf, uint64(ins.Align))
			buf = putVarUint(buf, uint64(ins.Offset))
		case ins.Op == opMemSize || ins.Op == opMemGrow:
			buf = append(buf, 0x00)
		case ins.Op == opI32Const:
			buf = putVarInt(buf, int64(ins.I32))
		case ins.Op == opI64Const:
			buf = putVarInt(buf, ins.I64)
		case ins.Op == opF32Const:
			var tmp [4]byte
			binary.LittleEndian.PutUint32(tmp[:], ins.F32Bits)
			buf = append(buf, tmp[:]...)
		case ins.Op == opF64Const:
			var tmp [8]byte
			binary.LittleEndian.PutUint64(tmp[:], ins.F64Bits)
			buf = append(buf, tmp[:]...)
		}
	}
	return buf
}

// isBlockBoundary reports whether op ends a basic block: control-flow
// instructions split straight-line code per spec §4.1.
func isBlockBoundary(op byte) bool {
	switch op {
	case opBlock, opLoop, opIf, opElse, opEnd,
		opBr, opBrIf, opBrTable, opReturn,
		opCall, opCallIndirect, opUnreachable:
		return true
	default:
		return false
	}
}
