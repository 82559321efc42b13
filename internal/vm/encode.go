package vm

import "encoding/binary"

// EncodeModule serializes m back into a WASM binary, emitting sections in
// canonical order. Custom sections are re-inserted immediately after the
// known section they originally followed, preserving their relative
// position as closely as the format allows.
func EncodeModule(m *Module) []byte {
	out := make([]byte, 0, 4096)
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], wasmMagic)
	binary.LittleEndian.PutUint32(hdr[4:8], wasmVersion)
	out = append(out, hdr[:]...)

	emitCustoms := func(afterID byte) {
		for _, c := range m.Customs {
			if c.AfterSection != afterID {
				continue
			}
			body := appendName(nil, c.Name)
			body = append(body, c.Payload...)
			out = appendSection(out, secCustom, body)
		}
	}

	emitCustoms(0)

	if len(m.Types) > 0 {
		out = appendSection(out, secType, encodeTypeSection(m))
		emitCustoms(secType)
	}
	if len(m.Imports) > 0 {
		out = appendSection(out, secImport, encodeImportSection(m))
		emitCustoms(secImport)
	}
	if len(m.FuncSigs) > 0 {
		out = appendSection(out, secFunction, encodeFunctionSection(m))
		emitCustoms(secFunction)
	}
	if len(m.Tables) > 0 {
		out = appendSection(out, secTable, encodeTableSection(m))
		emitCustoms(secTable)
	}
	if len(m.Mems) > 0 {
		out = appendSection(out, secMemory, encodeMemorySection(m))
		emitCustoms(secMemory)
	}
	if len(m.Globals) > 0 {
		out = appendSection(out, secGlobal, encodeGlobalSection(m))
		emitCustoms(secGlobal)
	}
	if len(m.Exports) > 0 {
		out = appendSection(out, secExport, encodeExportSection(m))
		emitCustoms(secExport)
	}
	if m.HasStart {
		body := putVarUint(nil, uint64(m.Start))
		out = appendSection(out, secStart, body)
		emitCustoms(secStart)
	}
	if len(m.Elements) > 0 {
		out = appendSection(out, secElement, encodeElementSection(m))
		emitCustoms(secElement)
	}
	if len(m.Codes) > 0 {
		out = appendSection(out, secCode, encodeCodeSection(m))
		emitCustoms(secCode)
	}
	if len(m.Data) > 0 {
		out = appendSection(out, secData, encodeDataSection(m))
		emitCustoms(secData)
	}
	return out
}

func appendSection(out []byte, id byte, body []byte) []byte {
	out = append(out, id)
	out = putVarUint(out, uint64(len(body)))
	out = append(out, body...)
	return out
}

func appendName(b []byte, s string) []byte {
	b = putVarUint(b, uint64(len(s)))
	return append(b, s...)
}

func encodeLimits(b []byte, l Limits) []byte {
	if l.HasMax {
		b = append(b, 1)
		b = putVarUint(b, uint64(l.Min))
		b = putVarUint(b, uint64(l.Max))
	} else {
		b = append(b, 0)
		b = putVarUint(b, uint64(l.Min))
	}
	return b
}

func encodeTypeSection(m *Module) []byte {
	var b []byte
	b = putVarUint(b, uint64(len(m.Types)))
	for _, ft := range m.Types {
		b = append(b, 0x60)
		b = putVarUint(b, uint64(len(ft.Params)))
		for _, vt := range ft.Params {
			b = append(b, byte(vt))
		}
		b = putVarUint(b, uint64(len(ft.Results)))
		for _, vt := range ft.Results {
			b = append(b, byte(vt))
		}
	}
	return b
}

func encodeImportSection(m *Module) []byte {
	var b []byte
	b = putVarUint(b, uint64(len(m.Imports)))
	for _, im := range m.Imports {
		b = appendName(b, im.Module)
		b = appendName(b, im.Field)
		b = append(b, byte(im.Kind))
		switch im.Kind {
		case ImportFunc:
			b = putVarUint(b, uint64(im.TypeIdx))
		case ImportTable:
			b = append(b, 0x70)
			b = encodeLimits(b, im.TableLimits)
		case ImportMemory:
			b = encodeLimits(b, im.MemLimits)
		case ImportGlobal:
			b = append(b, byte(im.GlobalType))
			if im.GlobalMutable {
				b = append(b, 1)
			} else {
				b = append(b, 0)
			}
		}
	}
	return b
}

func encodeFunctionSection(m *Module) []byte {
	var b []byte
	b = putVarUint(b, uint64(len(m.FuncSigs)))
	for _, t := range m.FuncSigs {
		b = putVarUint(b, uint64(t))
	}
	return b
}

func encodeTableSection(m *Module) []byte {
	var b []byte
	b = putVarUint(b, uint64(len(m.Tables)))
	for _, t := range m.Tables {
		b = append(b, 0x70)
		b = encodeLimits(b, t)
	}
	return b
}

func encodeMemorySection(m *Module) []byte {
	var b []byte
	b = putVarUint(b, uint64(len(m.Mems)))
	for _, mem := range m.Mems {
		b = encodeLimits(b, mem)
	}
	return b
}

func encodeGlobalSection(m *Module) []byte {
	var b []byte
	b = putVarUint(b, uint64(len(m.Globals)))
	for _, g := range m.Globals {
		b = append(b, byte(g.Type))
		if g.Mutable {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
		b = append(b, g.InitExpr...)
	}
	return b
}

func encodeExportSection(m *Module) []byte {
	var b []byte
	b = putVarUint(b, uint64(len(m.Exports)))
	for _, e := range m.Exports {
		b = appendName(b, e.Name)
		b = append(b, byte(e.Kind))
		b = putVarUint(b, uint64(e.Idx))
	}
	return b
}

func encodeElementSection(m *Module) []byte {
	var b []byte
	b = putVarUint(b, uint64(len(m.Elements)))
	for _, e := range m.Elements {
		b = putVarUint(b, uint64(e.TableIdx))
		b = append(b, e.OffsetExpr...)
		b = putVarUint(b, uint64(len(e.FuncIdxs)))
		for _, idx := range e.FuncIdxs {
			b = putVarUint(b, uint64(idx))
		}
	}
	return b
}

func encodeCodeSection(m *Module) []byte {
	var b []byte
	b = putVarUint(b, uint64(len(m.Codes)))
	for _, c := range m.Codes {
		var body []byte
		body = putVarUint(body, uint64(len(c.Locals)))
		for _, g := range c.Locals {
			body = putVarUint(body, uint64(g.Count))
			body = append(body, byte(g.Type))
		}
		body = append(body, c.Body...)
		b = putVarUint(b, uint64(len(body)))
		b = append(b, body...)
	}
	return b
}

func encodeDataSection(m *Module) []byte {
	var b []byte
	b = putVarUint(b, uint64(len(m.Data)))
	for _, d := range m.Data {
		b = putVarUint(b, uint64(d.MemIdx))
		b = append(b, d.OffsetExpr...)
		b = putVarUint(b, uint64(len(d.Bytes)))
		b = append(b, d.Bytes...)
	}
	return b
}
