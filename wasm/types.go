package wasm

// Module is the static representation of one decoded WebAssembly binary.
// It is populated by the loader and must be treated as read-only afterwards:
// runtime instances keep pointers into its slices.
type Module struct {
	Types     []FuncType
	Imports   []Import
	Functions []Function // Imported functions first, then declared ones
	Tables    []Table
	Memory    *Memory // MVP: at most one memory
	Globals   []Global
	Exports   []Export
	Start     *uint32
	Elements  []ElementSegment
	Data      []DataSegment

	// DataCount holds the count from the DataCount section (ID 12).
	DataCount *uint32

	CustomSections []CustomSection

	// Skipped lists sections that were recognised but not interpreted.
	Skipped []SkippedSection

	// Raw is the module binary the loader decoded. Function code slices
	// alias it.
	Raw []byte
}

// FuncType is a function signature. Parameter kinds are followed by result
// kinds in one contiguous slice; the counts delimit the two halves.
type FuncType struct {
	Kinds       []ValType
	ParamCount  uint32
	ResultCount uint32
}

// NewFuncType builds a FuncType from separate parameter and result lists.
func NewFuncType(params, results []ValType) FuncType {
	kinds := make([]ValType, 0, len(params)+len(results))
	kinds = append(kinds, params...)
	kinds = append(kinds, results...)
	return FuncType{
		Kinds:       kinds,
		ParamCount:  uint32(len(params)),
		ResultCount: uint32(len(results)),
	}
}

// Params returns the parameter kinds.
func (ft *FuncType) Params() []ValType {
	return ft.Kinds[:ft.ParamCount]
}

// Results returns the result kinds.
func (ft *FuncType) Results() []ValType {
	return ft.Kinds[ft.ParamCount : ft.ParamCount+ft.ResultCount]
}

// Equal reports whether two signatures have identical parameters and results.
func (ft *FuncType) Equal(other *FuncType) bool {
	if ft.ParamCount != other.ParamCount || ft.ResultCount != other.ResultCount {
		return false
	}
	for i := range ft.Kinds {
		if ft.Kinds[i] != other.Kinds[i] {
			return false
		}
	}
	return true
}

func (ft *FuncType) String() string {
	s := "("
	for i, p := range ft.Params() {
		if i > 0 {
			s += " "
		}
		s += p.String()
	}
	s += ") -> ("
	for i, r := range ft.Results() {
		if i > 0 {
			s += " "
		}
		s += r.String()
	}
	return s + ")"
}

// ValType represents a WebAssembly value type.
// See constants.go for ValI32, ValI64, ValF32, ValF64, etc.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether v is one of the four MVP number types.
func (v ValType) IsNumeric() bool {
	switch v {
	case ValI32, ValI64, ValF32, ValF64:
		return true
	}
	return false
}

// IsReference reports whether v is a reference type.
func (v ValType) IsReference() bool {
	return v == ValFuncRef || v == ValExtern
}

// Function is a function declaration. Code is nil for imported functions
// and until the code section has been decoded.
type Function struct {
	Code       []byte // Body bytes after the local declarations, including the final end
	Locals     []LocalEntry
	CodeOffset int // Absolute offset of Code within Module.Raw
	TypeIndex  uint32
	Index      uint32
	Imported   bool
	Exported   bool
}

// NumLocals returns the number of declared locals, excluding parameters.
func (f *Function) NumLocals() uint64 {
	var n uint64
	for _, l := range f.Locals {
		n += uint64(l.Count)
	}
	return n
}

// LocalEntry represents a group of local variables with the same type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// Limits describes size constraints for tables and memories.
type Limits struct {
	Min    uint32
	Max    uint32
	HasMax bool
}

// Table describes a table with element type and size limits.
type Table struct {
	Limits   Limits
	ElemType ValType
}

// Memory describes a linear memory; limits are in pages.
type Memory struct {
	Limits Limits
}

// GlobalType describes a global variable's type and mutability.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// Global represents a global variable with type and initialization.
// Imported globals have a zero Init and are skipped at instantiation.
type Global struct {
	Init     ConstExpr
	Type     GlobalType
	Imported bool
}

// ConstExpr is a constant initializer expression: one instruction followed
// by end. Value holds the raw bits of a numeric constant; Index holds the
// global or function index of global.get and ref.func.
type ConstExpr struct {
	Value  uint64
	Index  uint32
	Opcode byte
	Type   ValType // Heap type of ref.null
}

// Import describes an imported item. Only the descriptor matching Kind is set.
type Import struct {
	Table     *Table
	Memory    *Memory
	Global    *GlobalType
	Module    string
	Name      string
	TypeIndex uint32
	Kind      byte
}

// Export describes an exported item.
// Kind uses KindFunc, KindTable, KindMemory or KindGlobal.
type Export struct {
	Name  string
	Index uint32
	Kind  byte
}

// ElementSegment lists the function indices used to populate a table.
type ElementSegment struct {
	FuncIndices []uint32
	Offset      ConstExpr
	TableIndex  uint32
}

// DataSegment represents a data segment. Passive segments have no offset.
type DataSegment struct {
	Init        []byte
	Offset      ConstExpr
	MemoryIndex uint32
	Passive     bool
}

// CustomSection holds a named custom section's data.
type CustomSection struct {
	Name string
	Data []byte
}

// SkippedSection records a section the loader recognised but did not
// interpret, so callers can tell "unsupported" from "empty".
type SkippedSection struct {
	Offset int
	Size   uint32
	ID     byte
}

// KindName returns the text name of an import/export kind.
func KindName(kind byte) string {
	switch kind {
	case KindFunc:
		return "func"
	case KindTable:
		return "table"
	case KindMemory:
		return "memory"
	case KindGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// SectionName returns the text name of a section ID.
func SectionName(id byte) string {
	switch id {
	case SectionCustom:
		return "custom"
	case SectionType:
		return "type"
	case SectionImport:
		return "import"
	case SectionFunction:
		return "function"
	case SectionTable:
		return "table"
	case SectionMemory:
		return "memory"
	case SectionGlobal:
		return "global"
	case SectionExport:
		return "export"
	case SectionStart:
		return "start"
	case SectionElement:
		return "element"
	case SectionCode:
		return "code"
	case SectionData:
		return "data"
	case SectionDataCount:
		return "datacount"
	case SectionException:
		return "exception"
	default:
		return "unknown"
	}
}

// NumImportedFuncs returns the number of imported functions.
func (m *Module) NumImportedFuncs() int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Kind == KindFunc {
			count++
		}
	}
	return count
}

// NumImportedGlobals returns the number of imported globals.
func (m *Module) NumImportedGlobals() int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Kind == KindGlobal {
			count++
		}
	}
	return count
}

// FuncType returns the signature of the function at funcIdx, or nil when
// either index is out of range.
func (m *Module) FuncType(funcIdx uint32) *FuncType {
	if int(funcIdx) >= len(m.Functions) {
		return nil
	}
	typeIdx := m.Functions[funcIdx].TypeIndex
	if int(typeIdx) >= len(m.Types) {
		return nil
	}
	return &m.Types[typeIdx]
}

// ExportByName returns the first export with the given name.
func (m *Module) ExportByName(name string) (*Export, bool) {
	for i := range m.Exports {
		if m.Exports[i].Name == name {
			return &m.Exports[i], true
		}
	}
	return nil, false
}
