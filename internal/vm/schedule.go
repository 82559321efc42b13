package vm

// WasmSchedule holds the per-instruction-category gas costs used by the
// metering injector and by the few Runtime host calls that charge
// proportionally to a byte count (memcpy, memcmp) or a fixed per-page
// amount (static_region).
type WasmSchedule struct {
	// Mem is the cost of a single load or store instruction.
	Mem uint64
	// Div is the cost of an integer division instruction.
	Div uint64
	// Mul is the cost of an integer multiplication instruction.
	Mul uint64
	// StaticRegion is the per-page cost factor charged for initial linear
	// memory, before any contract code runs.
	StaticRegion uint64
	// StaticAddress is the charge for writing a 20-byte address to sandbox
	// memory by coinbase. create writes its result address without this
	// charge.
	StaticAddress uint64
	// StaticU256 is the charge for writing a 32-byte big-endian scalar to
	// sandbox memory (value, difficulty, gaslimit, ...).
	StaticU256 uint64
	// MemCopy is the per-byte cost of memcpy.
	MemCopy uint64
	// MemCmp is the per-byte cost of memcmp.
	MemCmp uint64
}

// Schedule is the external, read-only gas-cost table handed to the
// splitter, driver, and Runtime. The caller (the outer VM) owns its
// lifetime; nothing here mutates it.
type Schedule struct {
	SloadGas                uint64
	SstoreSetGas             uint64
	CallGas                  uint64
	CreateGas                uint64
	CreateDataGas            uint64
	SuicideGas               uint64
	SuicideToNewAccountCost  uint64
	BlockhashGas             uint64

	Wasm WasmSchedule
}

// DefaultSchedule returns a Schedule populated with costs representative of
// a production gas table. Callers that need different economics build
// their own Schedule value; this exists for tests and the demo CLI.
func DefaultSchedule() *Schedule {
	return &Schedule{
		SloadGas:                200,
		SstoreSetGas:             20000,
		CallGas:                  700,
		CreateGas:                32000,
		CreateDataGas:            200,
		SuicideGas:               5000,
		SuicideToNewAccountCost:  25000,
		BlockhashGas:             20,
		Wasm: WasmSchedule{
			Mem:           1,
			Div:           16,
			Mul:           4,
			StaticRegion:  8,
			StaticAddress: 40,
			StaticU256:    40,
			MemCopy:       1,
			MemCmp:        1,
		},
	}
}
