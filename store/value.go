package store

import (
	"fmt"
	"math"

	"github.com/Becavalier/TWVM/wasm"
)

// NullRef is the bit pattern of a null reference.
const NullRef uint64 = math.MaxUint64

// Value is a typed runtime value. Numbers are stored by their bit pattern,
// references by function index.
type Value struct {
	Bits uint64
	Type wasm.ValType
}

func I32(v int32) Value   { return Value{Type: wasm.ValI32, Bits: uint64(uint32(v))} }
func I64(v int64) Value   { return Value{Type: wasm.ValI64, Bits: uint64(v)} }
func F32(v float32) Value { return Value{Type: wasm.ValF32, Bits: uint64(math.Float32bits(v))} }
func F64(v float64) Value { return Value{Type: wasm.ValF64, Bits: math.Float64bits(v)} }

// FuncRef returns a reference to function idx.
func FuncRef(idx uint32) Value { return Value{Type: wasm.ValFuncRef, Bits: uint64(idx)} }

// Null returns the null reference of type t.
func Null(t wasm.ValType) Value { return Value{Type: t, Bits: NullRef} }

// Zero returns the default value of type t.
func Zero(t wasm.ValType) Value {
	if t.IsReference() {
		return Null(t)
	}
	return Value{Type: t}
}

func (v Value) I32() int32   { return int32(uint32(v.Bits)) }
func (v Value) I64() int64   { return int64(v.Bits) }
func (v Value) F32() float32 { return math.Float32frombits(uint32(v.Bits)) }
func (v Value) F64() float64 { return math.Float64frombits(v.Bits) }

// IsNull reports whether v is a null reference.
func (v Value) IsNull() bool {
	return v.Type.IsReference() && v.Bits == NullRef
}

func (v Value) String() string {
	switch v.Type {
	case wasm.ValI32:
		return fmt.Sprintf("i32:%d", v.I32())
	case wasm.ValI64:
		return fmt.Sprintf("i64:%d", v.I64())
	case wasm.ValF32:
		return fmt.Sprintf("f32:%g", v.F32())
	case wasm.ValF64:
		return fmt.Sprintf("f64:%g", v.F64())
	case wasm.ValFuncRef, wasm.ValExtern:
		if v.IsNull() {
			return v.Type.String() + ":null"
		}
		return fmt.Sprintf("%s:%d", v.Type, v.Bits)
	}
	return fmt.Sprintf("%s:0x%x", v.Type, v.Bits)
}
