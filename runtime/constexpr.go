package runtime

import (
	"github.com/Becavalier/TWVM/errors"
	"github.com/Becavalier/TWVM/store"
	"github.com/Becavalier/TWVM/wasm"
)

// eval computes a constant expression. globals lists the addresses of the
// defined globals readable by global.get, in index order after the imports.
func (b *builder) eval(section byte, e wasm.ConstExpr, globals []store.GlobalAddr) (store.Value, *errors.Error) {
	switch e.Opcode {
	case 0, wasm.OpI32Const:
		return store.Value{Type: wasm.ValI32, Bits: uint64(uint32(e.Value))}, nil
	case wasm.OpI64Const:
		return store.Value{Type: wasm.ValI64, Bits: e.Value}, nil
	case wasm.OpF32Const:
		return store.Value{Type: wasm.ValF32, Bits: uint64(uint32(e.Value))}, nil
	case wasm.OpF64Const:
		return store.Value{Type: wasm.ValF64, Bits: e.Value}, nil
	case wasm.OpRefNull:
		return store.Null(e.Type), nil
	case wasm.OpRefFunc:
		if int(e.Index) >= len(b.m.Functions) {
			return store.Value{}, errors.New(errors.PhaseInstantiate, errors.KindOutOfBounds).
				Section(wasm.SectionName(section)).
				Detail("ref.func %d out of range (%d functions)", e.Index, len(b.m.Functions)).
				Build()
		}
		return store.FuncRef(e.Index), nil
	case wasm.OpGlobalGet:
		base := b.inst.Module.GlobalBase
		if e.Index < base {
			return store.Value{}, errors.New(errors.PhaseInstantiate, errors.KindUnsupported).
				Section(wasm.SectionName(section)).
				Detail("global.get %d reads an imported global", e.Index).
				Build()
		}
		i := e.Index - base
		if int(i) >= len(globals) {
			return store.Value{}, errors.New(errors.PhaseInstantiate, errors.KindOutOfBounds).
				Section(wasm.SectionName(section)).
				Detail("global.get %d refers to a global that is not initialized yet", e.Index).
				Build()
		}
		g, _ := b.inst.Store.Global(globals[i])
		return g.Value, nil
	}
	return store.Value{}, errors.New(errors.PhaseInstantiate, errors.KindUnsupported).
		Section(wasm.SectionName(section)).
		Value(e.Opcode).
		Detail("%s is not a constant instruction", wasm.OpcodeName(e.Opcode)).
		Build()
}
