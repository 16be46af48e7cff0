package twvm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/Becavalier/TWVM/errors"
	"github.com/Becavalier/TWVM/inspector"
	"github.com/Becavalier/TWVM/loader"
	"github.com/Becavalier/TWVM/runtime"
	"github.com/Becavalier/TWVM/wasm"
)

func sample() *wasm.Module {
	return &wasm.Module{
		Types: []wasm.FuncType{wasm.NewFuncType(nil, nil)},
		Functions: []wasm.Function{
			{Code: []byte{wasm.OpEnd}},
		},
		Memory:  &wasm.Memory{Limits: wasm.Limits{Min: 1}},
		Data:    []wasm.DataSegment{{Offset: wasm.ConstI32(4), Init: []byte{0x2a, 0, 0, 0}}},
		Exports: []wasm.Export{{Name: "main", Kind: wasm.KindFunc, Index: 0}},
	}
}

func TestPrepare(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.wasm")
	require.NoError(t, os.WriteFile(path, sample().Encode(), 0o644))

	inst, err := Prepare(context.Background(), path, &Options{
		Inspector: &inspector.Config{CrossValidate: true},
	})
	require.NoError(t, err)
	require.True(t, inst.HasStartPoint())
	assert.False(t, inst.StartEntry)

	mem, ok := inst.Memory()
	require.True(t, ok)
	var host Memory = mem
	v, err := host.ReadU32(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)
}

func TestPrepareBytesLoadErrors(t *testing.T) {
	_, err := PrepareBytes(context.Background(), []byte{0, 'a', 's', 'm', 2, 0, 0, 0}, nil)
	assert.Equal(t, errors.KindBadVersion, errors.KindOf(err))

	twoMemories := append(sample().Encode()[:8], wasm.SectionMemory, 0x05, 0x02, 0x00, 0x01, 0x00, 0x01)
	_, err = PrepareBytes(context.Background(), twoMemories, nil)
	assert.True(t, errors.IsFatal(err))
}

func TestPrepareOptions(t *testing.T) {
	m := sample()
	m.Types = append(m.Types, wasm.NewFuncType(nil, []wasm.ValType{wasm.ValI32, wasm.ValI32}))

	_, err := PrepareBytes(context.Background(), m.Encode(), nil)
	assert.Equal(t, errors.KindUnsupported, errors.KindOf(err))

	inst, err := PrepareBytes(context.Background(), m.Encode(), &Options{
		Loader:  &loader.Config{AllowMultiValue: true},
		Runtime: &runtime.Config{SkipDataInit: true},
	})
	require.NoError(t, err)
	mem, _ := inst.Memory()
	v, _ := mem.ReadU32(4)
	assert.Equal(t, uint32(0), v)
}

func TestPrepareInspectionProblems(t *testing.T) {
	m := sample()
	m.Functions[0].Code = []byte{wasm.OpCall, 7, wasm.OpEnd}

	inst, err := PrepareBytes(context.Background(), m.Encode(), nil)
	assert.Nil(t, inst)
	require.Len(t, multierr.Errors(err), 1)
	assert.Equal(t, errors.KindOutOfBounds, errors.KindOf(err))
}

func TestPrepareCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := PrepareBytes(ctx, sample().Encode(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrepareMissingFile(t *testing.T) {
	_, err := Prepare(context.Background(), filepath.Join(t.TempDir(), "nope.wasm"), nil)
	assert.Equal(t, errors.KindIO, errors.KindOf(err))
	assert.False(t, errors.IsFatal(err))
}
