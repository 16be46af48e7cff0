package wasm

import (
	"math"

	"github.com/Becavalier/TWVM/internal/binary"
)

// Encode encodes the module to WebAssembly binary format. Imported
// functions and globals are emitted only through the import section.
func (m *Module) Encode() []byte {
	w := binary.NewWriter()

	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	if len(m.Types) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Types)))
		for i := range m.Types {
			sec.Byte(FuncTypeByte)
			writeValTypes(sec, m.Types[i].Params())
			writeValTypes(sec, m.Types[i].Results())
		}
		writeSection(w, SectionType, sec.Bytes())
	}

	if len(m.Imports) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec.WriteName(imp.Module)
			sec.WriteName(imp.Name)
			sec.Byte(imp.Kind)
			switch imp.Kind {
			case KindFunc:
				sec.WriteU32(imp.TypeIndex)
			case KindTable:
				if imp.Table != nil {
					writeTable(sec, *imp.Table)
				}
			case KindMemory:
				if imp.Memory != nil {
					writeLimits(sec, imp.Memory.Limits)
				}
			case KindGlobal:
				if imp.Global != nil {
					writeGlobalType(sec, *imp.Global)
				}
			}
		}
		writeSection(w, SectionImport, sec.Bytes())
	}

	declared := m.declaredFunctions()
	if len(declared) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(declared)))
		for _, f := range declared {
			sec.WriteU32(f.TypeIndex)
		}
		writeSection(w, SectionFunction, sec.Bytes())
	}

	if len(m.Tables) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Tables)))
		for _, t := range m.Tables {
			writeTable(sec, t)
		}
		writeSection(w, SectionTable, sec.Bytes())
	}

	if m.Memory != nil {
		sec := binary.NewWriter()
		sec.WriteU32(1)
		writeLimits(sec, m.Memory.Limits)
		writeSection(w, SectionMemory, sec.Bytes())
	}

	var globals []Global
	for _, g := range m.Globals {
		if !g.Imported {
			globals = append(globals, g)
		}
	}
	if len(globals) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(globals)))
		for _, g := range globals {
			writeGlobalType(sec, g.Type)
			writeConstExpr(sec, g.Init)
		}
		writeSection(w, SectionGlobal, sec.Bytes())
	}

	if len(m.Exports) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			sec.WriteName(exp.Name)
			sec.Byte(exp.Kind)
			sec.WriteU32(exp.Index)
		}
		writeSection(w, SectionExport, sec.Bytes())
	}

	if m.Start != nil {
		sec := binary.NewWriter()
		sec.WriteU32(*m.Start)
		writeSection(w, SectionStart, sec.Bytes())
	}

	if len(m.Elements) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Elements)))
		for _, elem := range m.Elements {
			if elem.TableIndex == 0 {
				sec.WriteU32(0)
				writeConstExpr(sec, elem.Offset)
			} else {
				sec.WriteU32(2)
				sec.WriteU32(elem.TableIndex)
				writeConstExpr(sec, elem.Offset)
				sec.Byte(ElemKindFuncRef)
			}
			sec.WriteU32(uint32(len(elem.FuncIndices)))
			for _, idx := range elem.FuncIndices {
				sec.WriteU32(idx)
			}
		}
		writeSection(w, SectionElement, sec.Bytes())
	}

	if m.DataCount != nil {
		sec := binary.NewWriter()
		sec.WriteU32(*m.DataCount)
		writeSection(w, SectionDataCount, sec.Bytes())
	}

	if len(declared) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(declared)))
		for _, f := range declared {
			body := binary.NewWriter()
			body.WriteU32(uint32(len(f.Locals)))
			for _, l := range f.Locals {
				body.WriteU32(l.Count)
				body.Byte(byte(l.ValType))
			}
			if f.Code != nil {
				body.WriteBytes(f.Code)
			} else {
				body.Byte(OpEnd)
			}
			sec.WriteU32(uint32(body.Len()))
			sec.WriteBytes(body.Bytes())
		}
		writeSection(w, SectionCode, sec.Bytes())
	}

	if len(m.Data) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Data)))
		for _, seg := range m.Data {
			switch {
			case seg.Passive:
				sec.WriteU32(1)
			case seg.MemoryIndex != 0:
				sec.WriteU32(2)
				sec.WriteU32(seg.MemoryIndex)
				writeConstExpr(sec, seg.Offset)
			default:
				sec.WriteU32(0)
				writeConstExpr(sec, seg.Offset)
			}
			sec.WriteU32(uint32(len(seg.Init)))
			sec.WriteBytes(seg.Init)
		}
		writeSection(w, SectionData, sec.Bytes())
	}

	for _, cs := range m.CustomSections {
		sec := binary.NewWriter()
		sec.WriteName(cs.Name)
		sec.WriteBytes(cs.Data)
		writeSection(w, SectionCustom, sec.Bytes())
	}

	return w.Bytes()
}

func (m *Module) declaredFunctions() []Function {
	var out []Function
	for _, f := range m.Functions {
		if !f.Imported {
			out = append(out, f)
		}
	}
	return out
}

func writeSection(w *binary.Writer, id byte, data []byte) {
	w.Byte(id)
	w.WriteU32(uint32(len(data)))
	w.WriteBytes(data)
}

func writeValTypes(w *binary.Writer, types []ValType) {
	w.WriteU32(uint32(len(types)))
	for _, t := range types {
		w.Byte(byte(t))
	}
}

func writeLimits(w *binary.Writer, l Limits) {
	if l.HasMax {
		w.Byte(LimitsHasMax)
		w.WriteU32(l.Min)
		w.WriteU32(l.Max)
		return
	}
	w.Byte(LimitsNoMax)
	w.WriteU32(l.Min)
}

func writeTable(w *binary.Writer, t Table) {
	elemType := t.ElemType
	if elemType == 0 {
		elemType = ValFuncRef
	}
	w.Byte(byte(elemType))
	writeLimits(w, t.Limits)
}

func writeGlobalType(w *binary.Writer, g GlobalType) {
	w.Byte(byte(g.ValType))
	if g.Mutable {
		w.Byte(1)
	} else {
		w.Byte(0)
	}
}

func writeConstExpr(w *binary.Writer, e ConstExpr) {
	if e.Opcode == 0 {
		// zero value: i32.const 0
		e.Opcode = OpI32Const
	}
	w.Byte(e.Opcode)
	switch e.Opcode {
	case OpI32Const:
		w.WriteS64(int64(int32(uint32(e.Value))))
	case OpI64Const:
		w.WriteS64(int64(e.Value))
	case OpF32Const:
		w.WriteU32LE(uint32(e.Value))
	case OpF64Const:
		w.WriteU64LE(e.Value)
	case OpGlobalGet, OpRefFunc:
		w.WriteU32(e.Index)
	case OpRefNull:
		w.Byte(byte(e.Type))
	}
	w.Byte(OpEnd)
}

// ConstI32 returns the expression i32.const v.
func ConstI32(v int32) ConstExpr {
	return ConstExpr{Opcode: OpI32Const, Value: uint64(uint32(v))}
}

// ConstI64 returns the expression i64.const v.
func ConstI64(v int64) ConstExpr {
	return ConstExpr{Opcode: OpI64Const, Value: uint64(v)}
}

// ConstF32 returns the expression f32.const v.
func ConstF32(v float32) ConstExpr {
	return ConstExpr{Opcode: OpF32Const, Value: uint64(math.Float32bits(v))}
}

// ConstF64 returns the expression f64.const v.
func ConstF64(v float64) ConstExpr {
	return ConstExpr{Opcode: OpF64Const, Value: math.Float64bits(v)}
}

// ConstGlobalGet returns the expression global.get idx.
func ConstGlobalGet(idx uint32) ConstExpr {
	return ConstExpr{Opcode: OpGlobalGet, Index: idx}
}

// ConstRefFunc returns the expression ref.func idx.
func ConstRefFunc(idx uint32) ConstExpr {
	return ConstExpr{Opcode: OpRefFunc, Index: idx}
}

// ConstRefNull returns the expression ref.null t.
func ConstRefNull(t ValType) ConstExpr {
	return ConstExpr{Opcode: OpRefNull, Type: t}
}
