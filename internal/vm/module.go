package vm

// Module is a minimal in-memory representation of a WASM binary, carrying
// exactly the sections the metering injector and import resolver need to
// inspect or rewrite. Sections this package has no reason to touch (data,
// custom, and globals beyond their raw init expression) are kept as opaque
// byte slices and re-emitted verbatim by encode.go.

const (
	wasmMagic   = 0x6d736100 // "\0asm"
	wasmVersion = 1
)

// Section ids, per the binary format.
const (
	secCustom   = 0
	secType     = 1
	secImport   = 2
	secFunction = 3
	secTable    = 4
	secMemory   = 5
	secGlobal   = 6
	secExport   = 7
	secStart    = 8
	secElement  = 9
	secCode     = 10
	secData     = 11
)

// ValType is a WASM value type tag (i32, i64, f32, f64).
type ValType byte

const (
	ValI32 ValType = 0x7f
	ValI64 ValType = 0x7e
	ValF32 ValType = 0x7d
	ValF64 ValType = 0x7c
)

// FuncType is a type-section entry: parameter types and at most one result.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// ImportKind distinguishes the four importable entity kinds.
type ImportKind byte

const (
	ImportFunc   ImportKind = 0x00
	ImportTable  ImportKind = 0x01
	ImportMemory ImportKind = 0x02
	ImportGlobal ImportKind = 0x03
)

// Limits describes a table or memory's (min, max) page/element bounds.
type Limits struct {
	Min     uint32
	Max     uint32
	HasMax  bool
}

// Import is one import-section entry.
type Import struct {
	Module string
	Field  string
	Kind   ImportKind
	// TypeIdx is valid when Kind == ImportFunc.
	TypeIdx uint32
	// MemLimits / TableLimits are valid when Kind == ImportMemory / ImportTable.
	MemLimits   Limits
	TableLimits Limits
	// GlobalType / GlobalMutable valid when Kind == ImportGlobal.
	GlobalType    ValType
	GlobalMutable bool
}

// Export is one export-section entry.
type Export struct {
	Name string
	Kind ImportKind
	Idx  uint32
}

// LocalGroup is a run of identically-typed locals declared at the head of a
// function body.
type LocalGroup struct {
	Count uint32
	Type  ValType
}

// Code is one code-section entry: a function body, kept as raw instruction
// bytes (everything after the locals vector, including the trailing 0x0b
// end opcode) since metering.go operates on the decoded instruction stream
// produced by opcodes.go, not on Code.Body directly.
type Code struct {
	Locals []LocalGroup
	Body   []byte
}

// Element is one element-segment entry: a table offset expression (kept
// raw, it is a constant i32.const expression in every module we handle)
// plus the function indices it installs — these indices must be shifted
// the same way call-instruction operands are when a new import is added.
type Element struct {
	TableIdx uint32
	OffsetExpr []byte
	FuncIdxs   []uint32
}

// Global is kept fully opaque: type/mutability plus a raw init expression.
// No component needs to inspect global values, only preserve them.
type Global struct {
	Type    ValType
	Mutable bool
	InitExpr []byte
}

// DataSegment is kept fully opaque for the same reason as Global.
type DataSegment struct {
	MemIdx     uint32
	OffsetExpr []byte
	Bytes      []byte
}

// CustomSection preserves a named custom section's raw payload and its
// position relative to the known sections, so re-encoding is lossless for
// anything this package does not need to understand (e.g. "name").
type CustomSection struct {
	Name    string
	Payload []byte
	// AfterSection is the id of the last known section that preceded this
	// custom section in the original binary (0 if it came before everything).
	AfterSection byte
}

// Module is the decoded form of one WASM binary.
type Module struct {
	Types     []FuncType
	Imports   []Import
	// FuncSigs holds the type index for each LOCALLY DEFINED function, in
	// the function section's order. Local function index space starts
	// after all imported functions.
	FuncSigs []uint32
	Tables   []Limits
	Mems     []Limits
	Globals  []Global
	Exports  []Export
	HasStart bool
	Start    uint32
	Elements []Element
	Codes    []Code
	Data     []DataSegment
	Customs  []CustomSection
}

// ImportedFuncCount returns how many of m.Imports are function imports —
// the size of the imported function index space, which every local
// function/call-site index is offset by.
func (m *Module) ImportedFuncCount() int {
	n := 0
	for _, im := range m.Imports {
		if im.Kind == ImportFunc {
			n++
		}
	}
	return n
}

// MemoryImport returns the module's memory import, if it declares one.
func (m *Module) MemoryImport() (Import, bool) {
	for _, im := range m.Imports {
		if im.Kind == ImportMemory {
			return im, true
		}
	}
	return Import{}, false
}

// FuncImport looks up a function import by module/field name.
func (m *Module) FuncImport(module, field string) (Import, bool) {
	for _, im := range m.Imports {
		if im.Kind == ImportFunc && im.Module == module && im.Field == field {
			return im, true
		}
	}
	return Import{}, false
}
