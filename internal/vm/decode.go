package vm

import (
	"encoding/binary"
	"fmt"
)

// DecodeModule parses a WASM binary into a Module. It is scoped to the
// MVP feature set the injector and resolver need; it rejects anything it
// cannot round-trip rather than silently dropping it.
func DecodeModule(b []byte) (*Module, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("wasm: truncated header")
	}
	if binary.LittleEndian.Uint32(b[0:4]) != wasmMagic {
		return nil, fmt.Errorf("wasm: bad magic")
	}
	if binary.LittleEndian.Uint32(b[4:8]) != wasmVersion {
		return nil, fmt.Errorf("wasm: unsupported version")
	}

	m := &Module{}
	off := 8
	lastKnown := byte(0)
	for off < len(b) {
		id := b[off]
		off++
		size, next, err := readVarUint(b, off)
		if err != nil {
			return nil, fmt.Errorf("wasm: section %d length: %w", id, err)
		}
		off = next
		if uint64(off)+size > uint64(len(b)) {
			return nil, fmt.Errorf("wasm: section %d overruns module", id)
		}
		body := b[off : off+int(size)]
		off += int(size)

		switch id {
		case secCustom:
			name, rest, err := readName(body, 0)
			if err != nil {
				return nil, fmt.Errorf("wasm: custom section name: %w", err)
			}
			m.Customs = append(m.Customs, CustomSection{
				Name: name, Payload: body[rest:], AfterSection: lastKnown,
			})
		case secType:
			if err := decodeTypeSection(m, body); err != nil {
				return nil, err
			}
			lastKnown = id
		case secImport:
			if err := decodeImportSection(m, body); err != nil {
				return nil, err
			}
			lastKnown = id
		case secFunction:
			if err := decodeFunctionSection(m, body); err != nil {
				return nil, err
			}
			lastKnown = id
		case secTable:
			if err := decodeTableSection(m, body); err != nil {
				return nil, err
			}
			lastKnown = id
		case secMemory:
			if err := decodeMemorySection(m, body); err != nil {
				return nil, err
			}
			lastKnown = id
		case secGlobal:
			if err := decodeGlobalSection(m, body); err != nil {
				return nil, err
			}
			lastKnown = id
		case secExport:
			if err := decodeExportSection(m, body); err != nil {
				return nil, err
			}
			lastKnown = id
		case secStart:
			v, _, err := readVarUint(body, 0)
			if err != nil {
				return nil, fmt.Errorf("wasm: start section: %w", err)
			}
			m.HasStart = true
			m.Start = uint32(v)
			lastKnown = id
		case secElement:
			if err := decodeElementSection(m, body); err != nil {
				return nil, err
			}
			lastKnown = id
		case secCode:
			if err := decodeCodeSection(m, body); err != nil {
				return nil, err
			}
			lastKnown = id
		case secData:
			if err := decodeDataSection(m, body); err != nil {
				return nil, err
			}
			lastKnown = id
		default:
			return nil, fmt.Errorf("wasm: unknown section id %d", id)
		}
	}
	return m, nil
}

func readName(b []byte, off int) (string, int, error) {
	n, off, err := readVarUint(b, off)
	if err != nil {
		return "", off, err
	}
	if uint64(off)+n > uint64(len(b)) {
		return "", off, fmt.Errorf("wasm: truncated name")
	}
	return string(b[off : off+int(n)]), off + int(n), nil
}

func decodeValType(b byte) (ValType, error) {
	switch ValType(b) {
	case ValI32, ValI64, ValF32, ValF64:
		return ValType(b), nil
	default:
		return 0, fmt.Errorf("wasm: unknown value type 0x%x", b)
	}
}

func decodeLimits(b []byte, off int) (Limits, int, error) {
	if off >= len(b) {
		return Limits{}, off, fmt.Errorf("wasm: truncated limits")
	}
	flag := b[off]
	off++
	var l Limits
	v, next, err := readVarUint(b, off)
	if err != nil {
		return l, next, err
	}
	l.Min = uint32(v)
	off = next
	if flag == 1 {
		v, off, err = readVarUint(b, off)
		if err != nil {
			return l, off, err
		}
		l.Max = uint32(v)
		l.HasMax = true
	}
	return l, off, nil
}

func decodeTypeSection(m *Module, b []byte) error {
	count, off, err := readVarUint(b, 0)
	if err != nil {
		return fmt.Errorf("wasm: type section: %w", err)
	}
	for i := uint64(0); i < count; i++ {
		if off >= len(b) || b[off] != 0x60 {
			return fmt.Errorf("wasm: type section: expected func type tag")
		}
		off++
		var ft FuncType
		np, next, err := readVarUint(b, off)
		if err != nil {
			return err
		}
		off = next
		for j := uint64(0); j < np; j++ {
			vt, err := decodeValType(b[off])
			if err != nil {
				return err
			}
			ft.Params = append(ft.Params, vt)
			off++
		}
		nr, next, err := readVarUint(b, off)
		if err != nil {
			return err
		}
		off = next
		for j := uint64(0); j < nr; j++ {
			vt, err := decodeValType(b[off])
			if err != nil {
				return err
			}
			ft.Results = append(ft.Results, vt)
			off++
		}
		m.Types = append(m.Types, ft)
	}
	return nil
}

func decodeImportSection(m *Module, b []byte) error {
	count, off, err := readVarUint(b, 0)
	if err != nil {
		return fmt.Errorf("wasm: import section: %w", err)
	}
	for i := uint64(0); i < count; i++ {
		mod, next, err := readName(b, off)
		if err != nil {
			return err
		}
		off = next
		field, next, err := readName(b, off)
		if err != nil {
			return err
		}
		off = next
		if off >= len(b) {
			return fmt.Errorf("wasm: truncated import descriptor")
		}
		kind := ImportKind(b[off])
		off++
		im := Import{Module: mod, Field: field, Kind: kind}
		switch kind {
		case ImportFunc:
			v, next, err := readVarUint(b, off)
			if err != nil {
				return err
			}
			im.TypeIdx = uint32(v)
			off = next
		case ImportTable:
			if off >= len(b) {
				return fmt.Errorf("wasm: truncated table import")
			}
			off++ // elem type byte, always 0x70 (funcref)
			lim, next, err := decodeLimits(b, off)
			if err != nil {
				return err
			}
			im.TableLimits = lim
			off = next
		case ImportMemory:
			lim, next, err := decodeLimits(b, off)
			if err != nil {
				return err
			}
			im.MemLimits = lim
			off = next
		case ImportGlobal:
			vt, err := decodeValType(b[off])
			if err != nil {
				return err
			}
			im.GlobalType = vt
			off++
			im.GlobalMutable = b[off] != 0
			off++
		default:
			return fmt.Errorf("wasm: unknown import kind %d", kind)
		}
		m.Imports = append(m.Imports, im)
	}
	return nil
}

func decodeFunctionSection(m *Module, b []byte) error {
	count, off, err := readVarUint(b, 0)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		v, next, err := readVarUint(b, off)
		if err != nil {
			return err
		}
		m.FuncSigs = append(m.FuncSigs, uint32(v))
		off = next
	}
	return nil
}

func decodeTableSection(m *Module, b []byte) error {
	count, off, err := readVarUint(b, 0)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		off++ // elem type byte
		lim, next, err := decodeLimits(b, off)
		if err != nil {
			return err
		}
		m.Tables = append(m.Tables, lim)
		off = next
	}
	return nil
}

func decodeMemorySection(m *Module, b []byte) error {
	count, off, err := readVarUint(b, 0)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		lim, next, err := decodeLimits(b, off)
		if err != nil {
			return err
		}
		m.Mems = append(m.Mems, lim)
		off = next
	}
	return nil
}

func decodeGlobalSection(m *Module, b []byte) error {
	count, off, err := readVarUint(b, 0)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		vt, err := decodeValType(b[off])
		if err != nil {
			return err
		}
		off++
		mutable := b[off] != 0
		off++
		exprStart := off
		end, err := skipConstExpr(b, off)
		if err != nil {
			return err
		}
		m.Globals = append(m.Globals, Global{
			Type: vt, Mutable: mutable, InitExpr: b[exprStart:end],
		})
		off = end
	}
	return nil
}

func decodeExportSection(m *Module, b []byte) error {
	count, off, err := readVarUint(b, 0)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		name, next, err := readName(b, off)
		if err != nil {
			return err
		}
		off = next
		if off >= len(b) {
			return fmt.Errorf("wasm: truncated export")
		}
		kind := ImportKind(b[off])
		off++
		v, next, err := readVarUint(b, off)
		if err != nil {
			return err
		}
		off = next
		m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Idx: uint32(v)})
	}
	return nil
}

func decodeElementSection(m *Module, b []byte) error {
	count, off, err := readVarUint(b, 0)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		v, next, err := readVarUint(b, off)
		if err != nil {
			return err
		}
		tblIdx := uint32(v)
		off = next
		exprStart := off
		end, err := skipConstExpr(b, off)
		if err != nil {
			return err
		}
		offsetExpr := b[exprStart:end]
		off = end
		n, next, err := readVarUint(b, off)
		if err != nil {
			return err
		}
		off = next
		idxs := make([]uint32, 0, n)
		for j := uint64(0); j < n; j++ {
			v, next, err := readVarUint(b, off)
			if err != nil {
				return err
			}
			idxs = append(idxs, uint32(v))
			off = next
		}
		m.Elements = append(m.Elements, Element{TableIdx: tblIdx, OffsetExpr: offsetExpr, FuncIdxs: idxs})
	}
	return nil
}

func decodeCodeSection(m *Module, b []byte) error {
	count, off, err := readVarUint(b, 0)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		size, next, err := readVarUint(b, off)
		if err != nil {
			return err
		}
		off = next
		bodyEnd := off + int(size)
		if bodyEnd > len(b) {
			return fmt.Errorf("wasm: code entry overruns section")
		}
		localOff := off
		nGroups, next2, err := readVarUint(b, localOff)
		if err != nil {
			return err
		}
		localOff = next2
		var groups []LocalGroup
		for j := uint64(0); j < nGroups; j++ {
			cnt, next3, err := readVarUint(b, localOff)
			if err != nil {
				return err
			}
			localOff = next3
			vt, err := decodeValType(b[localOff])
			if err != nil {
				return err
			}
			localOff++
			groups = append(groups, LocalGroup{Count: uint32(cnt), Type: vt})
		}
		m.Codes = append(m.Codes, Code{Locals: groups, Body: b[localOff:bodyEnd]})
		off = bodyEnd
	}
	return nil
}

func decodeDataSection(m *Module, b []byte) error {
	count, off, err := readVarUint(b, 0)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		v, next, err := readVarUint(b, off)
		if err != nil {
			return err
		}
		memIdx := uint32(v)
		off = next
		exprStart := off
		end, err := skipConstExpr(b, off)
		if err != nil {
			return err
		}
		offsetExpr := b[exprStart:end]
		off = end
		n, next, err := readVarUint(b, off)
		if err != nil {
			return err
		}
		off = next
		if off+int(n) > len(b) {
			return fmt.Errorf("wasm: data segment overruns section")
		}
		m.Data = append(m.Data, DataSegment{MemIdx: memIdx, OffsetExpr: offsetExpr, Bytes: b[off : off+int(n)]})
		off += int(n)
	}
	return nil
}

// skipConstExpr advances past a constant init expression (used by globals,
// element, and data segments), returning the offset just past its 0x0b end
// opcode. These expressions are always a single i32.const/i64.const or
// global.get followed by end in the modules this package handles.
func skipConstExpr(b []byte, off int) (int, error) {
	instrs, err := decodeSingleExprBody(b, off)
	if err != nil {
		return off, err
	}
	return instrs, nil
}

// decodeSingleExprBody scans forward instruction-by-instruction (reusing
// decodeBody's per-opcode width logic indirectly via a tiny local loop)
// until it consumes the terminating end opcode, returning the offset
// immediately after it.
func decodeSingleExprBody(b []byte, off int) (int, error) {
	for {
		if off >= len(b) {
			return off, fmt.Errorf("wasm: truncated const expression")
		}
		op := b[off]
		off++
		if op == opEnd {
			return off, nil
		}
		switch op {
		case opI32Const:
			_, next, err := readVarInt(b, off)
			if err != nil {
				return off, err
			}
			off = next
		case opI64Const:
			_, next, err := readVarInt(b, off)
			if err != nil {
				return off, err
			}
			off = next
		case opGlobalGet:
			_, next, err := readVarUint(b, off)
			if err != nil {
				return off, err
			}
			off = next
		default:
			return off, fmt.Errorf("wasm: unsupported const expression opcode 0x%x", op)
		}
	}
}
