package loader

import (
	"github.com/Becavalier/TWVM/errors"
	"github.com/Becavalier/TWVM/internal/binary"
	"github.com/Becavalier/TWVM/wasm"
)

// readConstExpr reads a single constant instruction followed by end.
// global.get may only refer to globals defined before the expression.
func (d *decoder) readConstExpr(id byte, r *binary.Reader) (wasm.ConstExpr, *errors.Error) {
	var e wasm.ConstExpr
	off := r.Position()
	op, err := r.ReadByte()
	if err != nil {
		return e, readError(id, r, "constant expression", err)
	}
	e.Opcode = op

	switch op {
	case wasm.OpI32Const:
		v, err := r.ReadS32()
		if err != nil {
			return e, readError(id, r, "i32.const immediate", err)
		}
		e.Value = uint64(uint32(v))
	case wasm.OpI64Const:
		v, err := r.ReadS64()
		if err != nil {
			return e, readError(id, r, "i64.const immediate", err)
		}
		e.Value = uint64(v)
	case wasm.OpF32Const:
		bits, err := r.ReadU32LE()
		if err != nil {
			return e, readError(id, r, "f32.const immediate", err)
		}
		e.Value = uint64(bits)
	case wasm.OpF64Const:
		bits, err := r.ReadU64LE()
		if err != nil {
			return e, readError(id, r, "f64.const immediate", err)
		}
		e.Value = bits
	case wasm.OpGlobalGet:
		idx, err := r.ReadU32()
		if err != nil {
			return e, readError(id, r, "global.get immediate", err)
		}
		if int(idx) >= len(d.m.Globals) {
			return e, sectionError(id, off, errors.KindOutOfBounds).
				Detail("global.get %d refers to an undefined global (%d defined)", idx, len(d.m.Globals)).
				Build()
		}
		e.Index = idx
	case wasm.OpRefNull:
		t, err := r.ReadByte()
		if err != nil {
			return e, readError(id, r, "ref.null heap type", err)
		}
		if !wasm.ValType(t).IsReference() {
			return e, sectionError(id, off, errors.KindMalformed).
				Detail("ref.null of non-reference type 0x%02x", t).
				Build()
		}
		e.Type = wasm.ValType(t)
	case wasm.OpRefFunc:
		idx, err := r.ReadU32()
		if err != nil {
			return e, readError(id, r, "ref.func immediate", err)
		}
		if int(idx) >= len(d.m.Functions) {
			return e, sectionError(id, off, errors.KindOutOfBounds).
				Detail("ref.func %d out of range (%d functions)", idx, len(d.m.Functions)).
				Build()
		}
		e.Index = idx
	default:
		return e, sectionError(id, off, errors.KindMalformed).
			Value(op).
			Detail("%s is not a constant instruction", wasm.OpcodeName(op)).
			Build()
	}

	endOff := r.Position()
	end, err := r.ReadByte()
	if err != nil {
		return e, readError(id, r, "constant expression end", err)
	}
	if end != wasm.OpEnd {
		return e, sectionError(id, endOff, errors.KindMalformed).
			Detail("constant expression must end with end, got 0x%02x", end).
			Build()
	}
	return e, nil
}

// constExprType returns the type of the value an expression produces.
func (d *decoder) constExprType(e wasm.ConstExpr) wasm.ValType {
	switch e.Opcode {
	case wasm.OpI32Const:
		return wasm.ValI32
	case wasm.OpI64Const:
		return wasm.ValI64
	case wasm.OpF32Const:
		return wasm.ValF32
	case wasm.OpF64Const:
		return wasm.ValF64
	case wasm.OpGlobalGet:
		return d.m.Globals[e.Index].Type.ValType
	case wasm.OpRefFunc:
		return wasm.ValFuncRef
	case wasm.OpRefNull:
		return e.Type
	}
	return 0
}
