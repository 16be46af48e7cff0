package main

import (
	"fmt"
	"strings"

	"github.com/Becavalier/TWVM/runtime"
	"github.com/Becavalier/TWVM/store"
	"github.com/Becavalier/TWVM/wasm"
)

// section is one group of items shown in the summary and the explorer.
type section struct {
	name  string
	items []item
}

type item struct {
	label  string
	detail string
	fn     *store.FunctionInstance // set for function items
}

func buildSections(inst *runtime.WasmInstance) []section {
	return []section{
		{name: "types", items: typeItems(inst)},
		{name: "functions", items: functionItems(inst)},
		{name: "tables", items: tableItems(inst)},
		{name: "memory", items: memoryItems(inst)},
		{name: "globals", items: globalItems(inst)},
		{name: "exports", items: exportItems(inst)},
		{name: "entry", items: entryItems(inst)},
	}
}

func typeItems(inst *runtime.WasmInstance) []item {
	items := make([]item, 0, len(inst.Module.Types))
	for i, ft := range inst.Module.Types {
		items = append(items, item{label: fmt.Sprintf("type %d", i), detail: ft.String()})
	}
	return items
}

func functionItems(inst *runtime.WasmInstance) []item {
	imports := importNames(inst.Static, wasm.KindFunc)
	items := make([]item, 0, len(inst.Module.FuncAddrs))
	for i := range inst.Module.FuncAddrs {
		fn, ok := inst.Function(uint32(i))
		if !ok {
			continue
		}
		label := fmt.Sprintf("func %d", i)
		if name := exportName(inst, wasm.KindFunc, uint32(i)); name != "" {
			label += " " + name
		}
		var detail string
		if fn.Imported {
			from := "unknown import"
			if i < len(imports) {
				from = imports[i]
			}
			detail = fmt.Sprintf("%s imported from %s", fn.Type, from)
		} else {
			detail = fmt.Sprintf("%s, %d locals, %d bytes", fn.Type, fn.NumLocals(), len(fn.Code))
		}
		items = append(items, item{label: label, detail: detail, fn: fn})
	}
	return items
}

func tableItems(inst *runtime.WasmInstance) []item {
	var items []item
	for i, addr := range inst.Module.TableAddrs {
		t, ok := inst.Store.Table(addr)
		if !ok {
			continue
		}
		idx := inst.Module.TableBase + uint32(i)
		detail := fmt.Sprintf("%s %s, %d entries", t.ElemType, limits(t.Min, t.Max, t.HasMax), t.Len())
		if t.Len() > 0 {
			detail += " " + joinIndices(t.FuncIndices)
		}
		items = append(items, item{label: fmt.Sprintf("table %d", idx), detail: detail})
	}
	return items
}

func memoryItems(inst *runtime.WasmInstance) []item {
	mem, ok := inst.Memory()
	if !ok {
		return nil
	}
	return []item{{
		label:  fmt.Sprintf("memory %d", inst.Module.MemBase),
		detail: fmt.Sprintf("%d pages %s, %d bytes", mem.Pages(), limits(mem.Min, mem.Max, mem.HasMax), mem.Size()),
	}}
}

func globalItems(inst *runtime.WasmInstance) []item {
	var items []item
	for i, addr := range inst.Module.GlobalAddrs {
		g, ok := inst.Store.Global(addr)
		if !ok {
			continue
		}
		idx := inst.Module.GlobalBase + uint32(i)
		mut := "const"
		if g.Mutable {
			mut = "mut"
		}
		label := fmt.Sprintf("global %d", idx)
		if name := exportName(inst, wasm.KindGlobal, idx); name != "" {
			label += " " + name
		}
		items = append(items, item{label: label, detail: fmt.Sprintf("%s %s = %s", mut, g.Type, g.Value)})
	}
	return items
}

func exportItems(inst *runtime.WasmInstance) []item {
	items := make([]item, 0, len(inst.Module.Exports))
	for _, e := range inst.Module.Exports {
		it := item{label: e.Name, detail: fmt.Sprintf("%s %d", wasm.KindName(e.Kind), e.Index)}
		if e.Kind == wasm.KindFunc {
			it.fn, _ = inst.Function(e.Index)
		}
		items = append(items, it)
	}
	return items
}

func entryItems(inst *runtime.WasmInstance) []item {
	if !inst.HasStartPoint() {
		return []item{{label: "none", detail: "module has no start function and no main export"}}
	}
	source := "exported main"
	if inst.StartEntry {
		source = "start section"
	}
	fn, _ := inst.EntryFunction()
	idx := funcIndex(inst, inst.StartPoint.Func)
	return []item{{
		label:  fmt.Sprintf("func %d", idx),
		detail: fmt.Sprintf("%s at +%d, %d activation frames", source, inst.StartPoint.Offset, inst.Stack.Activations.Len()),
		fn:     fn,
	}}
}

// disassemble renders a function body one instruction per line.
func disassemble(fn *store.FunctionInstance) []string {
	if fn == nil {
		return nil
	}
	if fn.Imported {
		return []string{"(imported, no body)"}
	}
	instrs, err := wasm.DecodeInstructions(fn.Code)
	if err != nil {
		return []string{fmt.Sprintf("(undecodable: %v)", err)}
	}
	lines := make([]string, 0, len(instrs)+1)
	for _, l := range fn.Locals {
		lines = append(lines, fmt.Sprintf("(local %d %s)", l.Count, l.ValType))
	}
	for _, in := range instrs {
		lines = append(lines, fmt.Sprintf("%04x  %s", in.Offset, in))
	}
	return lines
}

func importNames(m *wasm.Module, kind byte) []string {
	var names []string
	for _, imp := range m.Imports {
		if imp.Kind == kind {
			names = append(names, imp.Module+"."+imp.Name)
		}
	}
	return names
}

func exportName(inst *runtime.WasmInstance, kind byte, idx uint32) string {
	for _, e := range inst.Module.Exports {
		if e.Kind == kind && e.Index == idx {
			return e.Name
		}
	}
	return ""
}

func funcIndex(inst *runtime.WasmInstance, addr store.FuncAddr) int {
	for i, a := range inst.Module.FuncAddrs {
		if a == addr {
			return i
		}
	}
	return -1
}

func limits(lo, hi uint32, hasMax bool) string {
	if hasMax {
		return fmt.Sprintf("{min %d, max %d}", lo, hi)
	}
	return fmt.Sprintf("{min %d}", lo)
}

func joinIndices(idx []uint32) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
