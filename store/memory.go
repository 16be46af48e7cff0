package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Becavalier/TWVM/wasm"
)

const pageSize = uint64(wasm.MemoryPageSize)

// ErrOutOfBounds is returned for memory accesses outside the current size.
var ErrOutOfBounds = errors.New("memory access out of bounds")

// MemoryInstance is a linear memory of 64 KiB pages.
type MemoryInstance struct {
	data   []byte
	Min    uint32
	Max    uint32
	HasMax bool
}

// NewMemoryInstance allocates a zeroed memory of l.Min pages.
func NewMemoryInstance(l wasm.Limits) *MemoryInstance {
	return &MemoryInstance{
		data:   make([]byte, uint64(l.Min)*pageSize),
		Min:    l.Min,
		Max:    l.Max,
		HasMax: l.HasMax,
	}
}

// Pages returns the current size in pages.
func (m *MemoryInstance) Pages() uint32 {
	return uint32(uint64(len(m.data)) / pageSize)
}

// Size returns the current size in bytes.
func (m *MemoryInstance) Size() uint64 {
	return uint64(len(m.data))
}

// Bytes returns the backing buffer. It is replaced by Grow.
func (m *MemoryInstance) Bytes() []byte {
	return m.data
}

// Grow adds delta pages and returns the previous size in pages. It fails
// without changing the memory when the result would exceed the maximum.
func (m *MemoryInstance) Grow(delta uint32) (uint32, bool) {
	prev := m.Pages()
	limit := uint64(wasm.MemoryMaxPages)
	if m.HasMax {
		limit = uint64(m.Max)
	}
	next := uint64(prev) + uint64(delta)
	if next > limit {
		return prev, false
	}
	if delta > 0 {
		grown := make([]byte, next*pageSize)
		copy(grown, m.data)
		m.data = grown
	}
	return prev, true
}

func (m *MemoryInstance) bounds(offset uint32, length uint64) error {
	if uint64(offset)+length > uint64(len(m.data)) {
		return fmt.Errorf("%w: offset=%d, length=%d, size=%d", ErrOutOfBounds, offset, length, len(m.data))
	}
	return nil
}

// Read returns length bytes at offset. The slice aliases the memory.
func (m *MemoryInstance) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.bounds(offset, uint64(length)); err != nil {
		return nil, err
	}
	return m.data[offset : uint64(offset)+uint64(length)], nil
}

// Write copies data to offset.
func (m *MemoryInstance) Write(offset uint32, data []byte) error {
	if err := m.bounds(offset, uint64(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *MemoryInstance) ReadU8(offset uint32) (uint8, error) {
	if err := m.bounds(offset, 1); err != nil {
		return 0, err
	}
	return m.data[offset], nil
}

func (m *MemoryInstance) ReadU16(offset uint32) (uint16, error) {
	if err := m.bounds(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.data[offset:]), nil
}

func (m *MemoryInstance) ReadU32(offset uint32) (uint32, error) {
	if err := m.bounds(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *MemoryInstance) ReadU64(offset uint32) (uint64, error) {
	if err := m.bounds(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

func (m *MemoryInstance) WriteU8(offset uint32, value uint8) error {
	if err := m.bounds(offset, 1); err != nil {
		return err
	}
	m.data[offset] = value
	return nil
}

func (m *MemoryInstance) WriteU16(offset uint32, value uint16) error {
	if err := m.bounds(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.data[offset:], value)
	return nil
}

func (m *MemoryInstance) WriteU32(offset uint32, value uint32) error {
	if err := m.bounds(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	return nil
}

func (m *MemoryInstance) WriteU64(offset uint32, value uint64) error {
	if err := m.bounds(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[offset:], value)
	return nil
}
