package runtime

import (
	"bytes"
	"slices"

	"go.uber.org/zap"

	"github.com/Becavalier/TWVM/errors"
	"github.com/Becavalier/TWVM/stack"
	"github.com/Becavalier/TWVM/store"
	"github.com/Becavalier/TWVM/wasm"
)

// Instantiate builds a store, module instance and stack for m and resolves
// its entry point.
func Instantiate(m *wasm.Module) (*WasmInstance, error) {
	return InstantiateWithConfig(m, nil)
}

// InstantiateWithConfig builds a fresh instance of m. Every call creates a
// new store and stack; instances never share state.
func InstantiateWithConfig(m *wasm.Module, cfg *Config) (inst *WasmInstance, err error) {
	if m == nil {
		return nil, report(errors.InvalidData(errors.PhaseInstantiate, "nil module"))
	}

	b := &builder{
		m:   m,
		cfg: cfg.withDefaults(),
		inst: &WasmInstance{
			Static: m,
			Module: &store.ModuleInstance{},
			Store:  store.New(),
			Stack:  stack.New(),
		},
	}

	defer func() {
		if r := recover(); r != nil {
			inst = nil
			err = report(errors.Internal(errors.PhaseInstantiate, r))
		}
	}()

	steps := []struct {
		run  func() *errors.Error
		name string
	}{
		{b.types, "types"},
		{b.memory, "memory"},
		{b.functions, "functions"},
		{b.globals, "globals"},
		{b.tables, "tables"},
		{b.data, "data"},
		{b.exports, "exports"},
		{b.entry, "entry"},
	}
	for _, s := range steps {
		if e := s.run(); e != nil {
			return nil, report(e)
		}
		Logger().Debug("instantiation step done", zap.String("step", s.name))
	}

	Logger().Debug("module instantiated",
		zap.Int("functions", b.inst.Store.NumFunctions()),
		zap.Int("memories", b.inst.Store.NumMemories()),
		zap.Int("globals", b.inst.Store.NumGlobals()),
		zap.Int("tables", b.inst.Store.NumTables()),
		zap.Bool("start", b.inst.HasStartPoint()),
	)
	return b.inst, nil
}

type builder struct {
	m    *wasm.Module
	inst *WasmInstance
	cfg  Config
}

func (b *builder) types() *errors.Error {
	mi := b.inst.Module
	mi.Types = make([]*wasm.FuncType, 0, len(b.m.Types))
	for i := range b.m.Types {
		mi.Types = append(mi.Types, &b.m.Types[i])
	}
	return nil
}

func (b *builder) memory() *errors.Error {
	b.inst.Module.MemBase = uint32(b.importCount(wasm.KindMemory))
	if b.m.Memory == nil {
		return nil
	}
	limits := b.m.Memory.Limits
	if limits.Min > b.cfg.MemoryLimitPages {
		return errors.New(errors.PhaseInstantiate, errors.KindOutOfBounds).
			Section("memory").
			Value(limits.Min).
			Detail("initial size of %d pages exceeds the limit of %d", limits.Min, b.cfg.MemoryLimitPages).
			Build()
	}
	addr := b.inst.Store.AddMemory(store.NewMemoryInstance(limits))
	b.inst.Module.MemAddrs = append(b.inst.Module.MemAddrs, addr)
	return nil
}

// functions creates every function instance before publishing any address.
func (b *builder) functions() *errors.Error {
	mi := b.inst.Module
	addrs := make([]store.FuncAddr, 0, len(b.m.Functions))
	for i := range b.m.Functions {
		decl := &b.m.Functions[i]
		if int(decl.TypeIndex) >= len(mi.Types) {
			return errors.New(errors.PhaseInstantiate, errors.KindOutOfBounds).
				Section("function").
				Detail("function %d: signature index %d out of range (%d types)", i, decl.TypeIndex, len(mi.Types)).
				Build()
		}
		fn := &store.FunctionInstance{
			Type:      mi.Types[decl.TypeIndex],
			TypeIndex: decl.TypeIndex,
			Module:    mi,
			Decl:      decl,
			Locals:    slices.Clone(decl.Locals),
			Imported:  decl.Imported,
		}
		if !decl.Imported {
			fn.Code = bytes.Clone(decl.Code)
		}
		addrs = append(addrs, b.inst.Store.AddFunction(fn))
	}
	mi.FuncAddrs = append(mi.FuncAddrs, addrs...)
	return nil
}

// globals evaluates initializers in order. An initializer may read the
// globals created before it.
func (b *builder) globals() *errors.Error {
	mi := b.inst.Module
	mi.GlobalBase = uint32(b.m.NumImportedGlobals())

	var addrs []store.GlobalAddr
	for i := range b.m.Globals {
		g := &b.m.Globals[i]
		if g.Imported {
			continue
		}
		v, e := b.eval(wasm.SectionGlobal, g.Init, addrs)
		if e != nil {
			return e
		}
		if v.Type != g.Type.ValType {
			return errors.New(errors.PhaseInstantiate, errors.KindInvalidData).
				Section("global").
				Detail("global %d: initializer produced %s for a %s global", i, v.Type, g.Type.ValType).
				Build()
		}
		addrs = append(addrs, b.inst.Store.AddGlobal(&store.GlobalInstance{
			Type:    g.Type.ValType,
			Mutable: g.Type.Mutable,
			Value:   v,
		}))
	}
	mi.GlobalAddrs = append(mi.GlobalAddrs, addrs...)
	return nil
}

// tables fills each defined table with the function indices of the element
// segments that target it, in segment order. Segment offsets are not applied.
func (b *builder) tables() *errors.Error {
	base := uint32(b.importCount(wasm.KindTable))
	b.inst.Module.TableBase = base
	addrs := make([]store.TableAddr, 0, len(b.m.Tables))
	for i, t := range b.m.Tables {
		idx := base + uint32(i)
		entries := 0
		for _, seg := range b.m.Elements {
			if seg.TableIndex == idx {
				entries += len(seg.FuncIndices)
			}
		}
		ti := store.NewTableInstance(t, entries)
		for _, seg := range b.m.Elements {
			if seg.TableIndex == idx {
				ti.FuncIndices = append(ti.FuncIndices, seg.FuncIndices...)
			}
		}
		if ti.HasMax && uint64(ti.Len()) > uint64(ti.Max) {
			return errors.New(errors.PhaseInstantiate, errors.KindOutOfBounds).
				Section("element").
				Detail("table %d: %d elements exceed the maximum of %d", idx, ti.Len(), ti.Max).
				Build()
		}
		addrs = append(addrs, b.inst.Store.AddTable(ti))
	}
	for i, seg := range b.m.Elements {
		if seg.TableIndex < base {
			Logger().Debug("element segment targets an imported table",
				zap.Int("segment", i),
				zap.Uint32("table", seg.TableIndex),
			)
		}
	}
	b.inst.Module.TableAddrs = append(b.inst.Module.TableAddrs, addrs...)
	return nil
}

// data copies active data segments into memory.
func (b *builder) data() *errors.Error {
	if b.cfg.SkipDataInit {
		return nil
	}
	mi := b.inst.Module
	for i, seg := range b.m.Data {
		if seg.Passive {
			continue
		}
		if seg.MemoryIndex < mi.MemBase {
			return errors.New(errors.PhaseInstantiate, errors.KindUnsupported).
				Section("data").
				Detail("data segment %d: memory %d is imported", i, seg.MemoryIndex).
				Build()
		}
		addr, ok := mi.Memory(seg.MemoryIndex)
		if !ok {
			return errors.New(errors.PhaseInstantiate, errors.KindOutOfBounds).
				Section("data").
				Detail("data segment %d: memory %d is not defined", i, seg.MemoryIndex).
				Build()
		}
		mem, _ := b.inst.Store.Memory(addr)

		off, e := b.eval(wasm.SectionData, seg.Offset, mi.GlobalAddrs)
		if e != nil {
			return e
		}
		if off.Type != wasm.ValI32 {
			return errors.New(errors.PhaseInstantiate, errors.KindInvalidData).
				Section("data").
				Detail("data segment %d: offset of type %s, want i32", i, off.Type).
				Build()
		}
		if err := mem.Write(uint32(off.I32()), seg.Init); err != nil {
			return errors.New(errors.PhaseInstantiate, errors.KindOutOfBounds).
				Section("data").
				Cause(err).
				Detail("data segment %d: %d bytes at offset %d do not fit in memory", i, len(seg.Init), uint32(off.I32())).
				Build()
		}
	}
	return nil
}

func (b *builder) exports() *errors.Error {
	mi := b.inst.Module
	mi.Exports = make([]store.ExportInstance, 0, len(b.m.Exports))
	for _, e := range b.m.Exports {
		mi.Exports = append(mi.Exports, store.ExportInstance{Name: e.Name, Kind: e.Kind, Index: e.Index})
	}
	return nil
}

// entry resolves the start point. The start section takes precedence over
// an exported function named main; a module with neither has no start point.
func (b *builder) entry() *errors.Error {
	mi := b.inst.Module
	if b.m.Start != nil {
		addr, ok := mi.Func(*b.m.Start)
		if !ok {
			return errors.OutOfBounds(errors.PhaseInstantiate, "start function", int(*b.m.Start), len(mi.FuncAddrs))
		}
		b.setStart(addr, true)
		return nil
	}

	for _, e := range mi.Exports {
		if e.Name != "main" || e.Kind != wasm.KindFunc {
			continue
		}
		addr, ok := mi.Func(e.Index)
		if !ok {
			return errors.OutOfBounds(errors.PhaseInstantiate, "main function", int(e.Index), len(mi.FuncAddrs))
		}
		b.setStart(addr, false)
		return nil
	}

	Logger().Debug("module has no entry point")
	return nil
}

func (b *builder) setStart(addr store.FuncAddr, implicit bool) {
	b.inst.StartPoint = &StartPoint{Func: addr}
	b.inst.StartEntry = implicit
	b.inst.Stack.PushFrame(addr)
}

func (b *builder) importCount(kind byte) int {
	n := 0
	for _, imp := range b.m.Imports {
		if imp.Kind == kind {
			n++
		}
	}
	return n
}

// report logs a failure with its structured fields and returns it as an error.
func report(e *errors.Error) error {
	Logger().Warn("instantiation failed",
		zap.String("phase", string(e.Phase)),
		zap.String("kind", string(e.Kind)),
		zap.String("section", e.Section),
		zap.Bool("fatal", e.Fatal),
		zap.String("detail", e.Detail),
	)
	return e
}
