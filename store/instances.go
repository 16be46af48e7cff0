package store

import "github.com/Becavalier/TWVM/wasm"

// FunctionInstance is a function ready to be invoked. Imported functions
// have no code; they are recorded so the function index space stays dense.
type FunctionInstance struct {
	Type      *wasm.FuncType
	Module    *ModuleInstance
	Decl      *wasm.Function
	Code      []byte
	Locals    []wasm.LocalEntry
	TypeIndex uint32
	Imported  bool
}

// NumLocals returns the number of declared locals, parameters excluded.
func (f *FunctionInstance) NumLocals() uint64 {
	var n uint64
	for _, l := range f.Locals {
		n += uint64(l.Count)
	}
	return n
}

// GlobalInstance holds the current value of a global.
type GlobalInstance struct {
	Value   Value
	Type    wasm.ValType
	Mutable bool
}

// Set replaces the value of a mutable global.
func (g *GlobalInstance) Set(v Value) bool {
	if !g.Mutable || v.Type != g.Type {
		return false
	}
	g.Value = v
	return true
}

// TableInstance holds function indices addressable through call_indirect.
type TableInstance struct {
	FuncIndices []uint32
	Min         uint32
	Max         uint32
	ElemType    wasm.ValType
	HasMax      bool
}

// NewTableInstance creates an empty table that will receive entries
// initial elements. The capacity is the table's maximum, or its minimum
// when it has none, capped at entries.
func NewTableInstance(t wasm.Table, entries int) *TableInstance {
	hint := uint64(t.Limits.Min)
	if t.Limits.HasMax {
		hint = uint64(t.Limits.Max)
	}
	hint = min(hint, uint64(max(entries, 0)))
	elem := t.ElemType
	if elem == 0 {
		elem = wasm.ValFuncRef
	}
	return &TableInstance{
		FuncIndices: make([]uint32, 0, hint),
		Min:         t.Limits.Min,
		Max:         t.Limits.Max,
		HasMax:      t.Limits.HasMax,
		ElemType:    elem,
	}
}

// Len returns the number of entries in the table.
func (t *TableInstance) Len() int {
	return len(t.FuncIndices)
}

// ExportInstance is an export of a module instance.
type ExportInstance struct {
	Name  string
	Index uint32
	Kind  byte
}

// ModuleInstance maps the index spaces of one module onto store addresses.
// It does not own the instances it refers to.
//
// Imported functions have instances and addresses. Imported memories,
// tables and globals have none; they lead their index spaces and the Base
// fields count them.
type ModuleInstance struct {
	Types       []*wasm.FuncType
	FuncAddrs   []FuncAddr
	MemAddrs    []MemAddr
	GlobalAddrs []GlobalAddr
	TableAddrs  []TableAddr
	Exports     []ExportInstance
	MemBase     uint32
	TableBase   uint32
	GlobalBase  uint32
}

// Func returns the address of function idx.
func (mi *ModuleInstance) Func(idx uint32) (FuncAddr, bool) {
	if int(idx) >= len(mi.FuncAddrs) {
		return 0, false
	}
	return mi.FuncAddrs[idx], true
}

// Memory returns the address of memory idx.
func (mi *ModuleInstance) Memory(idx uint32) (MemAddr, bool) {
	i, ok := defined(idx, mi.MemBase, len(mi.MemAddrs))
	if !ok {
		return 0, false
	}
	return mi.MemAddrs[i], true
}

// Global returns the address of global idx.
func (mi *ModuleInstance) Global(idx uint32) (GlobalAddr, bool) {
	i, ok := defined(idx, mi.GlobalBase, len(mi.GlobalAddrs))
	if !ok {
		return 0, false
	}
	return mi.GlobalAddrs[i], true
}

// Table returns the address of table idx.
func (mi *ModuleInstance) Table(idx uint32) (TableAddr, bool) {
	i, ok := defined(idx, mi.TableBase, len(mi.TableAddrs))
	if !ok {
		return 0, false
	}
	return mi.TableAddrs[i], true
}

// Export returns the first export with the given name.
func (mi *ModuleInstance) Export(name string) (ExportInstance, bool) {
	for _, e := range mi.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return ExportInstance{}, false
}

// defined converts an index-space index into a position among n defined
// instances that follow base imports.
func defined(idx, base uint32, n int) (uint32, bool) {
	if idx < base {
		return 0, false
	}
	i := idx - base
	if int(i) >= n {
		return 0, false
	}
	return i, true
}
