package twvm

import (
	"context"

	"github.com/Becavalier/TWVM/inspector"
	"github.com/Becavalier/TWVM/loader"
	"github.com/Becavalier/TWVM/runtime"
	"github.com/Becavalier/TWVM/store"
	"github.com/Becavalier/TWVM/wasm"
)

// Memory represents WASM linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of WASM linear memory in bytes.
type MemorySizer interface {
	Size() uint64
}

var (
	_ Memory      = (*store.MemoryInstance)(nil)
	_ MemorySizer = (*store.MemoryInstance)(nil)
)

// Options configures every stage of Prepare. A nil field selects that
// stage's defaults.
type Options struct {
	Loader    *loader.Config
	Runtime   *runtime.Config
	Inspector *inspector.Config
}

// Prepare loads the module at path, instantiates it and inspects the
// result. The returned instance is ready for execution.
func Prepare(ctx context.Context, path string, opts *Options) (*runtime.WasmInstance, error) {
	if opts == nil {
		opts = &Options{}
	}
	m, err := loader.LoadWithConfig(path, opts.Loader)
	if err != nil {
		return nil, err
	}
	return prepare(ctx, m, opts)
}

// PrepareBytes is Prepare for a module held in memory.
func PrepareBytes(ctx context.Context, data []byte, opts *Options) (*runtime.WasmInstance, error) {
	if opts == nil {
		opts = &Options{}
	}
	m, err := loader.LoadBytesWithConfig(data, opts.Loader)
	if err != nil {
		return nil, err
	}
	return prepare(ctx, m, opts)
}

func prepare(ctx context.Context, m *wasm.Module, opts *Options) (*runtime.WasmInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inst, err := runtime.InstantiateWithConfig(m, opts.Runtime)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := inspector.InspectWithConfig(ctx, inst, opts.Inspector); err != nil {
		return nil, err
	}
	return inst, nil
}
