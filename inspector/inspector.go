package inspector

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Becavalier/TWVM/errors"
	"github.com/Becavalier/TWVM/runtime"
	"github.com/Becavalier/TWVM/wasm"
)

// Inspect checks that an instance is consistent and ready for execution.
// It must be called after instantiation and before execution starts.
func Inspect(ctx context.Context, inst *runtime.WasmInstance) error {
	return InspectWithConfig(ctx, inst, nil)
}

// InspectWithConfig runs every check and returns all problems found,
// combined with multierr. Use multierr.Errors to list them.
func InspectWithConfig(ctx context.Context, inst *runtime.WasmInstance, cfg *Config) error {
	if inst == nil || inst.Static == nil || inst.Module == nil || inst.Store == nil || inst.Stack == nil {
		return errors.InvalidData(errors.PhaseInspect, "incomplete instance")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	c := &checker{inst: inst}
	c.functions()
	c.exports()
	c.tables()
	c.memory()
	c.globals()
	c.entry()
	if cfg.CrossValidate {
		c.crossValidate(ctx)
	}

	if c.err != nil {
		Logger().Warn("inspection found problems",
			zap.Int("problems", len(multierr.Errors(c.err))),
			zap.Error(c.err),
		)
		return c.err
	}
	Logger().Debug("inspection passed",
		zap.Int("functions", inst.Store.NumFunctions()),
		zap.Bool("cross_validated", cfg.CrossValidate),
	)
	return nil
}

type checker struct {
	inst *runtime.WasmInstance
	err  error
}

func (c *checker) fail(kind errors.Kind, section, format string, args ...any) {
	c.err = multierr.Append(c.err, errors.New(errors.PhaseInspect, kind).
		Section(section).
		Detail(format, args...).
		Build())
}

func (c *checker) functions() {
	mi := c.inst.Module
	for i, addr := range mi.FuncAddrs {
		fn, ok := c.inst.Store.Function(addr)
		if !ok {
			c.fail(errors.KindOutOfBounds, "function", "function %d: address %d is not in the store", i, addr)
			continue
		}
		if fn.Type == nil || fn.Decl == nil || fn.Module == nil {
			c.fail(errors.KindInvalidData, "function", "function %d: missing signature, declaration or module reference", i)
			continue
		}
		if int(fn.TypeIndex) >= len(mi.Types) {
			c.fail(errors.KindOutOfBounds, "function", "function %d: signature index %d out of range (%d types)", i, fn.TypeIndex, len(mi.Types))
			continue
		}
		if !fn.Type.Equal(mi.Types[fn.TypeIndex]) {
			c.fail(errors.KindInvalidData, "function", "function %d: signature %s does not match type %d", i, fn.Type, fn.TypeIndex)
		}
		if fn.Imported {
			continue
		}

		if len(fn.Code) == 0 || fn.Code[len(fn.Code)-1] != wasm.OpEnd {
			c.fail(errors.KindMalformed, "code", "function %d: body does not end with end", i)
			continue
		}
		if fn.NumLocals() != fn.Decl.NumLocals() {
			c.fail(errors.KindInvalidData, "code", "function %d: %d locals, declaration has %d", i, fn.NumLocals(), fn.Decl.NumLocals())
		}

		instrs, err := wasm.DecodeInstructions(fn.Code)
		if err != nil {
			c.err = multierr.Append(c.err, errors.New(errors.PhaseInspect, errors.KindMalformed).
				Section("code").
				Cause(err).
				Detail("function %d: body does not decode", i).
				Build())
			continue
		}
		for _, in := range instrs {
			if target, ok := in.CallTarget(); ok && int(target) >= len(mi.FuncAddrs) {
				c.fail(errors.KindOutOfBounds, "code", "function %d at +%d: call to undefined function %d", i, in.Offset, target)
			}
		}
	}
}

func (c *checker) exports() {
	mi := c.inst.Module
	for _, e := range mi.Exports {
		var ok bool
		switch e.Kind {
		case wasm.KindFunc:
			_, ok = mi.Func(e.Index)
		case wasm.KindTable:
			_, ok = mi.Table(e.Index)
			ok = ok || e.Index < mi.TableBase
		case wasm.KindMemory:
			_, ok = mi.Memory(e.Index)
			ok = ok || e.Index < mi.MemBase
		case wasm.KindGlobal:
			_, ok = mi.Global(e.Index)
			ok = ok || e.Index < mi.GlobalBase
		default:
			c.fail(errors.KindMalformed, "export", "export %q: invalid kind 0x%02x", e.Name, e.Kind)
			continue
		}
		if !ok {
			c.fail(errors.KindOutOfBounds, "export", "export %q: %s index %d out of range", e.Name, wasm.KindName(e.Kind), e.Index)
		}
	}
}

func (c *checker) tables() {
	n := len(c.inst.Module.FuncAddrs)
	for i, addr := range c.inst.Module.TableAddrs {
		t, ok := c.inst.Store.Table(addr)
		if !ok {
			c.fail(errors.KindOutOfBounds, "table", "table %d: address %d is not in the store", i, addr)
			continue
		}
		for j, idx := range t.FuncIndices {
			if int(idx) >= n {
				c.fail(errors.KindOutOfBounds, "table", "table %d entry %d: function %d out of range (%d functions)", i, j, idx, n)
			}
		}
	}
}

func (c *checker) memory() {
	for i, addr := range c.inst.Module.MemAddrs {
		mem, ok := c.inst.Store.Memory(addr)
		if !ok {
			c.fail(errors.KindOutOfBounds, "memory", "memory %d: address %d is not in the store", i, addr)
			continue
		}
		pages := mem.Pages()
		switch {
		case pages < mem.Min:
			c.fail(errors.KindInvalidData, "memory", "memory %d: %d pages, below the minimum of %d", i, pages, mem.Min)
		case mem.HasMax && pages > mem.Max:
			c.fail(errors.KindInvalidData, "memory", "memory %d: %d pages, above the maximum of %d", i, pages, mem.Max)
		case pages > wasm.MemoryMaxPages:
			c.fail(errors.KindInvalidData, "memory", "memory %d: %d pages exceed the address space", i, pages)
		}
	}
}

func (c *checker) globals() {
	for i, addr := range c.inst.Module.GlobalAddrs {
		g, ok := c.inst.Store.Global(addr)
		if !ok {
			c.fail(errors.KindOutOfBounds, "global", "global %d: address %d is not in the store", i, addr)
			continue
		}
		if g.Value.Type != g.Type {
			idx := uint32(i) + c.inst.Module.GlobalBase
			c.fail(errors.KindInvalidData, "global", "global %d: holds a %s value but is declared %s", idx, g.Value.Type, g.Type)
		}
	}
}

func (c *checker) entry() {
	frames := c.inst.Stack.Activations
	if !c.inst.HasStartPoint() {
		if frames.Len() != 0 {
			c.fail(errors.KindInvalidData, "start", "no entry point but %d activation frames", frames.Len())
		}
		return
	}

	sp := c.inst.StartPoint
	fn, ok := c.inst.Store.Function(sp.Func)
	if !ok {
		c.fail(errors.KindOutOfBounds, "start", "entry point address %d is not in the store", sp.Func)
		return
	}
	if fn.Imported {
		c.fail(errors.KindUnsupported, "start", "entry point is an imported function")
	} else if sp.Offset < 0 || sp.Offset >= len(fn.Code) {
		c.fail(errors.KindOutOfBounds, "start", "entry offset %d outside a body of %d bytes", sp.Offset, len(fn.Code))
	}
	if c.inst.StartEntry && fn.Type != nil && (fn.Type.ParamCount != 0 || fn.Type.ResultCount != 0) {
		c.fail(errors.KindInvalidData, "start", "start function has type %s, want () -> ()", fn.Type)
	}

	if frames.Len() != 1 {
		c.fail(errors.KindInvalidData, "start", "%d activation frames, want 1", frames.Len())
		return
	}
	if top, _ := frames.Top(); top.Func != sp.Func {
		c.fail(errors.KindInvalidData, "start", "activation frame for function address %d, entry point is %d", top.Func, sp.Func)
	}
}

func describe(params, results int) string {
	return fmt.Sprintf("%d params, %d results", params, results)
}
