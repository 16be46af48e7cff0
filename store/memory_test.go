package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Becavalier/TWVM/wasm"
)

func TestMemoryInstanceSize(t *testing.T) {
	m := NewMemoryInstance(wasm.Limits{Min: 2, Max: 3, HasMax: true})
	assert.Equal(t, uint32(2), m.Pages())
	assert.Equal(t, uint64(2*65536), m.Size())
	assert.Len(t, m.Bytes(), 2*65536)

	empty := NewMemoryInstance(wasm.Limits{})
	assert.Equal(t, uint32(0), empty.Pages())
	_, err := empty.ReadU8(0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestMemoryInstanceGrow(t *testing.T) {
	m := NewMemoryInstance(wasm.Limits{Min: 1, Max: 3, HasMax: true})
	require.NoError(t, m.WriteU32(100, 42))

	prev, ok := m.Grow(2)
	require.True(t, ok)
	assert.Equal(t, uint32(1), prev)
	assert.Equal(t, uint32(3), m.Pages())

	v, err := m.ReadU32(100)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v, "contents survive growth")

	prev, ok = m.Grow(1)
	assert.False(t, ok)
	assert.Equal(t, uint32(3), prev)
	assert.Equal(t, uint32(3), m.Pages())

	_, ok = m.Grow(0)
	assert.True(t, ok)
}

func TestMemoryInstanceLittleEndian(t *testing.T) {
	m := NewMemoryInstance(wasm.Limits{Min: 1})

	require.NoError(t, m.WriteU64(8, 0x0102030405060708))
	b, err := m.Read(8, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, b)

	u16, err := m.ReadU16(8)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0708), u16)

	u32, err := m.ReadU32(12)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), u32)

	require.NoError(t, m.WriteU16(0, 0xbeef))
	u8, err := m.ReadU8(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xef), u8)

	require.NoError(t, m.WriteU8(1, 0x12))
	u16, err = m.ReadU16(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x12ef), u16)

	u64, err := m.ReadU64(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)
}

func TestMemoryInstanceBounds(t *testing.T) {
	m := NewMemoryInstance(wasm.Limits{Min: 1})
	last := uint32(65536 - 4)

	require.NoError(t, m.WriteU32(last, 1))
	assert.Error(t, m.WriteU64(last, 1))
	assert.Error(t, m.Write(65535, []byte{1, 2}))

	_, err := m.Read(0xffffffff, 2)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
	_, err = m.ReadU64(65530)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	require.NoError(t, m.Write(65534, []byte{1, 2}))
	b, err := m.Read(65534, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)
}
