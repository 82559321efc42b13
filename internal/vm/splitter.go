package vm

import "encoding/binary"

// SplitPayload implements the payload splitter (spec §4.1): given a call's
// code blob plus framing mode, it extracts and decodes the contract
// module, applies gas-metering instrumentation, and returns the rewritten
// module alongside the input data the contract will see via fetch_input.
func SplitPayload(p *ActionParams, sched *Schedule) (*Module, []byte, error) {
	if len(p.Code) == 0 {
		return nil, nil, ErrOtherf("invalid call: empty code")
	}

	var moduleBytes, input []byte
	switch p.ParamsType {
	case Embedded:
		end, err := peekModuleSize(p.Code)
		if err != nil {
			return nil, nil, ErrOtherf("invalid call: %s", err)
		}
		if end > len(p.Code) {
			return nil, nil, ErrOtherf("invalid call: truncated embedded module")
		}
		moduleBytes = p.Code[:end]
		input = p.Code[end:]
	case Separate:
		moduleBytes = p.Code
		input = p.Data
	default:
		return nil, nil, ErrOtherf("invalid call: unknown params type")
	}

	m, err := DecodeModule(moduleBytes)
	if err != nil {
		return nil, nil, ErrOtherf("wasm decode error: %s", err)
	}

	rules := BuildRules(sched)
	if err := InjectGasCounter(m, rules); err != nil {
		return nil, nil, ErrOtherf("wasm gas injection error: %s", err)
	}

	return m, input, nil
}

// peekModuleSize reads just enough of an Embedded-mode code blob to learn
// the wire length of the module prefix, without decoding the module
// itself: an 8-byte WASM header followed by a sequence of sized sections,
// each (id:u8, size:varuint, body). The module's total length is the
// header plus the sum of every (id+size-prefix+body) run until a section
// whose id does not follow the last one monotonically increasing in a
// fresh binary — in practice this implementation simply walks sections
// the same way DecodeModule's outer loop does, stopping at the first
// non-section byte or end of input, since embedded framing guarantees the
// module is immediately followed (if at all) by opaque input data that is
// not itself a valid further WASM section stream.
func peekModuleSize(b []byte) (int, error) {
	if len(b) < 8 {
		return 0, errTruncatedHeader
	}
	if binary.LittleEndian.Uint32(b[0:4]) != wasmMagic || binary.LittleEndian.Uint32(b[4:8]) != wasmVersion {
		return 0, errBadHeader
	}
	off := 8
	for off < len(b) {
		// A next section id greater than the data section (11) signals
		// we've walked past the module into the trailing input blob.
		id := b[off]
		if id > secData {
			break
		}
		probe := off + 1
		size, next, err := readVarUint(b, probe)
		if err != nil {
			break
		}
		end := next + int(size)
		if end > len(b) {
			break
		}
		off = end
	}
	return off, nil
}

var errTruncatedHeader = ErrOtherf("truncated wasm header")
var errBadHeader = ErrOtherf("bad wasm header")
