package inspector

import (
	"context"
	"maps"
	"slices"

	"github.com/tetratelabs/wazero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Becavalier/TWVM/errors"
)

// crossValidate compiles the module with wazero's interpreter and compares
// the exported function arities and memory limits it reports with the
// instance.
func (c *checker) crossValidate(ctx context.Context) {
	raw := c.inst.Static.Raw
	if len(raw) == 0 {
		raw = c.inst.Static.Encode()
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, raw)
	if err != nil {
		c.err = multierr.Append(c.err, errors.New(errors.PhaseInspect, errors.KindInvalidData).
			Cause(err).
			Detail("wazero rejected the module").
			Build())
		return
	}
	defer compiled.Close(ctx)

	funcs := compiled.ExportedFunctions()
	for _, name := range slices.Sorted(maps.Keys(funcs)) {
		def := funcs[name]
		fn, ok := c.inst.ExportedFunction(name)
		if !ok {
			c.fail(errors.KindNotFound, "export", "wazero exports function %q, the instance does not", name)
			continue
		}
		theirs := describe(len(def.ParamTypes()), len(def.ResultTypes()))
		ours := describe(int(fn.Type.ParamCount), int(fn.Type.ResultCount))
		if theirs != ours {
			c.fail(errors.KindInvalidData, "export", "function %q: wazero sees %s, instance has %s", name, theirs, ours)
		}
	}

	mems := compiled.ExportedMemories()
	own, hasOwn := c.inst.Memory()
	for _, name := range slices.Sorted(maps.Keys(mems)) {
		def := mems[name]
		if _, _, imported := def.Import(); imported {
			continue
		}
		if !hasOwn {
			c.fail(errors.KindNotFound, "export", "wazero exports memory %q, the instance has none", name)
			continue
		}
		maxPages, hasMax := def.Max()
		if def.Min() != own.Min || hasMax != own.HasMax || (hasMax && maxPages != own.Max) {
			c.fail(errors.KindInvalidData, "memory", "memory %q: wazero limits {min %d, max %d, has max %t} differ from {min %d, max %d, has max %t}",
				name, def.Min(), maxPages, hasMax, own.Min, own.Max, own.HasMax)
		}
	}

	Logger().Debug("cross-validated with wazero",
		zap.Int("functions", len(funcs)),
		zap.Int("memories", len(mems)),
	)
}
