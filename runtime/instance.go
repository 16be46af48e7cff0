package runtime

import (
	"github.com/Becavalier/TWVM/stack"
	"github.com/Becavalier/TWVM/store"
	"github.com/Becavalier/TWVM/wasm"
)

// StartPoint is where execution begins: a function and the position in its
// code of the first instruction.
type StartPoint struct {
	Func   store.FuncAddr
	Offset int
}

// WasmInstance is an instantiated module ready for execution.
type WasmInstance struct {
	Static     *wasm.Module
	Module     *store.ModuleInstance
	Store      *store.Store
	Stack      *stack.Stack
	StartPoint *StartPoint

	// StartEntry is true when the start point is the module's start
	// function and false when it is the exported main function.
	StartEntry bool
}

// HasStartPoint reports whether the instance has an entry point.
func (w *WasmInstance) HasStartPoint() bool {
	return w.StartPoint != nil
}

// EntryFunction returns the function the start point refers to.
func (w *WasmInstance) EntryFunction() (*store.FunctionInstance, bool) {
	if w.StartPoint == nil {
		return nil, false
	}
	return w.Store.Function(w.StartPoint.Func)
}

// Function returns the instance of function idx of the module.
func (w *WasmInstance) Function(idx uint32) (*store.FunctionInstance, bool) {
	addr, ok := w.Module.Func(idx)
	if !ok {
		return nil, false
	}
	return w.Store.Function(addr)
}

// Memory returns the memory the module defines, if any.
func (w *WasmInstance) Memory() (*store.MemoryInstance, bool) {
	if len(w.Module.MemAddrs) == 0 {
		return nil, false
	}
	return w.Store.Memory(w.Module.MemAddrs[0])
}

// ExportedFunction returns the function exported under name.
func (w *WasmInstance) ExportedFunction(name string) (*store.FunctionInstance, bool) {
	e, ok := w.Module.Export(name)
	if !ok || e.Kind != wasm.KindFunc {
		return nil, false
	}
	return w.Function(e.Index)
}

// ExportedGlobal returns the global exported under name.
func (w *WasmInstance) ExportedGlobal(name string) (*store.GlobalInstance, bool) {
	e, ok := w.Module.Export(name)
	if !ok || e.Kind != wasm.KindGlobal {
		return nil, false
	}
	addr, ok := w.Module.Global(e.Index)
	if !ok {
		return nil, false
	}
	return w.Store.Global(addr)
}
