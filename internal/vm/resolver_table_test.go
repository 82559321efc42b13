package vm

import "testing"

// hostTable itself needs no live wasmer engine to validate: every dispatch
// index named in spec §6 must appear exactly once, and indexLabel (used by
// the metrics layer) must resolve a known index back to its name and an
// unmapped one to "unknown".
func TestHostTableIndicesAreUnique(t *testing.T) {
	seen := make(map[int32]string)
	for _, h := range hostTable {
		if other, ok := seen[h.index]; ok {
			t.Fatalf("index %d used by both %q and %q", h.index, other, h.name)
		}
		seen[h.index] = h.name
	}
}

func TestHostTableMatchesSpecIndexTable(t *testing.T) {
	want := map[string]int32{
		"storage_read": 10, "storage_write": 11, "ret": 20, "gas": 30,
		"fetch_input": 40, "input_length": 50, "panic": 100, "debug": 110,
		"ccall": 120, "dcall": 121, "scall": 122, "value": 130, "create": 140,
		"suicide": 150, "blockhash": 160, "blocknumber": 161, "coinbase": 162,
		"difficulty": 163, "gaslimit": 164, "timestamp": 165, "memcpy": 170,
		"memcmp": 171,
	}
	if len(hostTable) != len(want) {
		t.Fatalf("hostTable has %d entries, want %d", len(hostTable), len(want))
	}
	for _, h := range hostTable {
		idx, ok := want[h.name]
		if !ok {
			t.Fatalf("hostTable has unexpected function %q", h.name)
		}
		if h.index != idx {
			t.Fatalf("%s index = %d, want %d", h.name, h.index, idx)
		}
	}
}

func TestIndexLabelResolvesKnownAndUnknown(t *testing.T) {
	if got := indexLabel(30); got != "gas" {
		t.Fatalf("indexLabel(30) = %q, want gas", got)
	}
	if got := indexLabel(9999); got != "unknown" {
		t.Fatalf("indexLabel(9999) = %q, want unknown", got)
	}
}
