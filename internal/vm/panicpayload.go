package vm

import (
	"encoding/binary"
	"fmt"
)

// decodePanicPayload parses the wire format a contract emits when it calls
// panic(): has_msg:u8 | [msg_len:u32 | msg_bytes]? | has_file:u8 |
// [file_len:u32 | file_bytes]? | line:u32 | col:u32 — all little-endian.
//
// Truncated or malformed input degrades gracefully rather than erroring:
// any field that cannot be read falls back to the documented default, so a
// buggy contract still produces a readable panic message instead of a
// second, confusing trap.
func decodePanicPayload(data []byte) string {
	msg := "<msg was stripped>"
	file := "<unknown>"
	var line, col uint32

	r := data

	if b, rest, ok := readByte(r); ok {
		r = rest
		if b != 0 {
			if s, rest, ok := readLenPrefixed(r); ok {
				msg = s
				r = rest
			}
		}
	}

	if b, rest, ok := readByte(r); ok {
		r = rest
		if b != 0 {
			if s, rest, ok := readLenPrefixed(r); ok {
				file = s
				r = rest
			}
		}
	}

	if v, rest, ok := readU32(r); ok {
		line = v
		r = rest
	}
	if v, _, ok := readU32(r); ok {
		col = v
	}

	return fmt.Sprintf("%s, %s:%d:%d", msg, file, line, col)
}

func readByte(b []byte) (byte, []byte, bool) {
	if len(b) < 1 {
		return 0, b, false
	}
	return b[0], b[1:], true
}

func readU32(b []byte) (uint32, []byte, bool) {
	if len(b) < 4 {
		return 0, b, false
	}
	return binary.LittleEndian.Uint32(b), b[4:], true
}

func readLenPrefixed(b []byte) (string, []byte, bool) {
	n, rest, ok := readU32(b)
	if !ok || uint64(len(rest)) < uint64(n) {
		return "", b, false
	}
	return string(rest[:n]), rest[n:], true
}
