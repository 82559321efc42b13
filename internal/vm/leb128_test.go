package vm

import "testing"

func TestVarUintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40, ^uint64(0)}
	for _, v := range cases {
		buf := putVarUint(nil, v)
		got, n, err := readVarUint(buf, 0)
		if err != nil {
			t.Fatalf("readVarUint(%d): %v", v, err)
		}
		if n != len(buf) {
			t.Fatalf("readVarUint(%d): consumed %d, want %d", v, n, len(buf))
		}
		if got != v {
			t.Fatalf("readVarUint(%d) = %d", v, got)
		}
	}
}

func TestVarIntRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 63, -64, 64, -65, 1 << 30, -(1 << 30)}
	for _, v := range cases {
		buf := putVarInt(nil, v)
		got, n, err := readVarInt(buf, 0)
		if err != nil {
			t.Fatalf("readVarInt(%d): %v", v, err)
		}
		if n != len(buf) {
			t.Fatalf("readVarInt(%d): consumed %d, want %d", v, n, len(buf))
		}
		if got != v {
			t.Fatalf("readVarInt(%d) = %d", v, got)
		}
	}
}

func TestVarUintSizeMatchesEncoding(t *testing.T) {
	for _, v := range []uint64{0, 127, 128, 16384, 1 << 35} {
		buf := putVarUint(nil, v)
		if got := varUintSize(v); got != len(buf) {
			t.Fatalf("varUintSize(%d) = %d, want %d", v, got, len(buf))
		}
	}
}

func TestReadVarUintTruncated(t *testing.T) {
	if _, _, err := readVarUint([]byte{0x80}, 0); err == nil {
		t.Fatal("expected error on truncated varuint")
	}
}
