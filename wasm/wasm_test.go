package wasm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuncTypeHalves(t *testing.T) {
	ft := NewFuncType([]ValType{ValI32, ValI64}, []ValType{ValF64})

	assert.Equal(t, uint32(2), ft.ParamCount)
	assert.Equal(t, uint32(1), ft.ResultCount)
	assert.Equal(t, []ValType{ValI32, ValI64}, ft.Params())
	assert.Equal(t, []ValType{ValF64}, ft.Results())
	assert.Equal(t, "(i32 i64) -> (f64)", ft.String())
}

func TestFuncTypeEqual(t *testing.T) {
	a := NewFuncType([]ValType{ValI32}, []ValType{ValI32})
	b := NewFuncType([]ValType{ValI32}, []ValType{ValI32})
	c := NewFuncType([]ValType{ValI32, ValI32}, nil)
	d := NewFuncType([]ValType{ValI64}, []ValType{ValI32})

	assert.True(t, a.Equal(&b))
	assert.False(t, a.Equal(&c), "same kinds, different split")
	assert.False(t, a.Equal(&d))
}

func TestEmptyFuncType(t *testing.T) {
	ft := NewFuncType(nil, nil)
	assert.Empty(t, ft.Params())
	assert.Empty(t, ft.Results())
	assert.Equal(t, "() -> ()", ft.String())
}

func TestValTypeString(t *testing.T) {
	tests := map[ValType]string{
		ValI32:     "i32",
		ValI64:     "i64",
		ValF32:     "f32",
		ValF64:     "f64",
		ValFuncRef: "funcref",
		ValExtern:  "externref",
		0x00:       "unknown",
	}
	for v, want := range tests {
		assert.Equal(t, want, v.String())
	}
	assert.True(t, ValF32.IsNumeric())
	assert.False(t, ValFuncRef.IsNumeric())
	assert.True(t, ValFuncRef.IsReference())
}

func TestFunctionNumLocals(t *testing.T) {
	f := Function{Locals: []LocalEntry{{Count: 3, ValType: ValI32}, {Count: 2, ValType: ValF64}}}
	assert.Equal(t, uint64(5), f.NumLocals())
}

func TestModuleLookups(t *testing.T) {
	m := &Module{
		Types: []FuncType{NewFuncType(nil, nil), NewFuncType([]ValType{ValI32}, nil)},
		Imports: []Import{
			{Module: "env", Name: "log", Kind: KindFunc, TypeIndex: 1},
			{Module: "env", Name: "g", Kind: KindGlobal, Global: &GlobalType{ValType: ValI32}},
		},
		Functions: []Function{
			{Index: 0, TypeIndex: 1, Imported: true},
			{Index: 1, TypeIndex: 0},
			{Index: 2, TypeIndex: 7},
		},
		Exports: []Export{{Name: "main", Kind: KindFunc, Index: 1}},
	}

	assert.Equal(t, 1, m.NumImportedFuncs())
	assert.Equal(t, 1, m.NumImportedGlobals())
	assert.Same(t, &m.Types[1], m.FuncType(0))
	assert.Nil(t, m.FuncType(2), "type index out of range")
	assert.Nil(t, m.FuncType(9), "function index out of range")

	exp, ok := m.ExportByName("main")
	require.True(t, ok)
	assert.Equal(t, uint32(1), exp.Index)
	_, ok = m.ExportByName("missing")
	assert.False(t, ok)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "memory", KindName(KindMemory))
	assert.Equal(t, "unknown", KindName(9))
	assert.Equal(t, "datacount", SectionName(SectionDataCount))
	assert.Equal(t, "exception", SectionName(SectionException))
	assert.Equal(t, "unknown", SectionName(42))
}

func TestEncodeEmptyModule(t *testing.T) {
	m := &Module{}
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, m.Encode())
}

func TestEncodeTypeSection(t *testing.T) {
	m := &Module{Types: []FuncType{NewFuncType([]ValType{ValI32}, []ValType{ValI64})}}
	got := m.Encode()

	want := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		SectionType, 0x06, 0x01, FuncTypeByte, 0x01, 0x7f, 0x01, 0x7e,
	}
	assert.Equal(t, want, got)
}

func TestEncodeSkipsImportedDefinitions(t *testing.T) {
	m := &Module{
		Types:   []FuncType{NewFuncType(nil, nil)},
		Imports: []Import{{Module: "env", Name: "f", Kind: KindFunc}},
		Functions: []Function{
			{Index: 0, Imported: true},
			{Index: 1, Code: []byte{OpNop, OpEnd}},
		},
		Globals: []Global{{Imported: true, Type: GlobalType{ValType: ValI32}}},
	}
	bin := m.Encode()

	// function section holds one entry: the declared function
	assert.True(t, bytes.Contains(bin, []byte{SectionFunction, 0x02, 0x01, 0x00}))
	// code section holds one body: size 3, no locals, nop, end
	assert.True(t, bytes.Contains(bin, []byte{SectionCode, 0x05, 0x01, 0x03, 0x00, OpNop, OpEnd}))
	assert.False(t, bytes.Contains(bin, []byte{SectionGlobal}), "imported globals have no global section entry")
}

func TestEncodeConstExpr(t *testing.T) {
	tests := []struct {
		name string
		expr ConstExpr
		want []byte
	}{
		{"i32 negative", ConstI32(-1), []byte{OpI32Const, 0x7f, OpEnd}},
		{"i32 zero value", ConstExpr{}, []byte{OpI32Const, 0x00, OpEnd}},
		{"i64", ConstI64(128), []byte{OpI64Const, 0x80, 0x01, OpEnd}},
		{"f32", ConstF32(1), []byte{OpF32Const, 0x00, 0x00, 0x80, 0x3f, OpEnd}},
		{"f64", ConstF64(0), []byte{OpF64Const, 0, 0, 0, 0, 0, 0, 0, 0, OpEnd}},
		{"global.get", ConstGlobalGet(3), []byte{OpGlobalGet, 0x03, OpEnd}},
		{"ref.func", ConstRefFunc(2), []byte{OpRefFunc, 0x02, OpEnd}},
		{"ref.null", ConstRefNull(ValFuncRef), []byte{OpRefNull, 0x70, OpEnd}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Module{Globals: []Global{{Type: GlobalType{ValType: ValI32}, Init: tt.expr}}}
			bin := m.Encode()
			entry := append([]byte{0x01, byte(ValI32), 0x00}, tt.want...)
			assert.True(t, bytes.HasSuffix(bin, entry), "got % x", bin)
		})
	}
}

func TestDecodeInstructions(t *testing.T) {
	code := []byte{
		OpBlock, 0x40,
		OpLocalGet, 0x00,
		OpI32Const, 0x2a,
		OpI32Add,
		OpBrIf, 0x00,
		OpCall, 0x05,
		OpI32Load, 0x02, 0x10,
		OpMemoryGrow, 0x00,
		OpPrefixMisc, 0x0b, 0x00,
		OpEnd,
		OpEnd,
	}

	instrs, err := DecodeInstructions(code)
	require.NoError(t, err)
	require.Len(t, instrs, 11)

	assert.Equal(t, BlockImm{Type: BlockTypeVoid}, instrs[0].Imm)
	assert.Equal(t, LocalImm{LocalIdx: 0}, instrs[1].Imm)
	assert.Equal(t, I32Imm{Value: 42}, instrs[2].Imm)
	assert.Nil(t, instrs[3].Imm)
	assert.Equal(t, BranchImm{LabelIdx: 0}, instrs[4].Imm)

	target, ok := instrs[5].CallTarget()
	assert.True(t, ok)
	assert.Equal(t, uint32(5), target)
	_, ok = instrs[4].CallTarget()
	assert.False(t, ok)

	assert.Equal(t, MemoryImm{Align: 2, Offset: 16}, instrs[6].Imm)
	assert.Equal(t, MiscImm{SubOpcode: MiscMemoryFill, Operands: []uint32{0}}, instrs[8].Imm)

	assert.Equal(t, 0, instrs[0].Offset)
	assert.Equal(t, 2, instrs[1].Offset)
	assert.Equal(t, len(code)-1, instrs[10].Offset)
}

func TestDecodeInstructionsErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"unknown opcode", []byte{0x06}},
		{"truncated immediate", []byte{OpCall}},
		{"unknown misc", []byte{OpPrefixMisc, 0x11}},
		{"reserved byte", []byte{OpMemorySize, 0x01}},
		{"huge br_table", []byte{OpBrTable, 0xff, 0xff, 0x03}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInstructions(tt.code)
			assert.Error(t, err)
		})
	}
}

func TestInstructionString(t *testing.T) {
	instrs, err := DecodeInstructions([]byte{
		OpI32Const, 0x7f,
		OpBlock, 0x7f,
		OpI64Load, 0x03, 0x08,
		OpBrTable, 0x02, 0x00, 0x01, 0x02,
		OpPrefixMisc, 0x0a, 0x00, 0x00,
		OpEnd,
	})
	require.NoError(t, err)

	want := []string{
		"i32.const -1",
		"block (result i32)",
		"i64.load offset=8 align=8",
		"br_table 0 1 2",
		"memory.copy 0 0",
		"end",
	}
	for i, w := range want {
		assert.Equal(t, w, instrs[i].String())
	}
}

func TestOpcodeName(t *testing.T) {
	assert.Equal(t, "call_indirect", OpcodeName(OpCallIndirect))
	assert.Equal(t, "<0x06>", OpcodeName(0x06))
	assert.Equal(t, "i64.trunc_sat_f64_u", MiscOpcodeName(MiscI64TruncSatF64U))
	assert.Equal(t, "<0xfc 0x20>", MiscOpcodeName(0x20))
}
