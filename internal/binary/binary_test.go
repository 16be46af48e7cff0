package binary

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderReadByte(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	r := NewReader(data)

	for i, want := range data {
		assert.Equal(t, i, r.Position())
		b, err := r.ReadByte()
		require.NoError(t, err)
		assert.Equal(t, want, b)
	}

	assert.False(t, r.HasMore())
	_, err := r.ReadByte()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReaderReadBytesSharesBuffer(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	r := NewReader(data)

	got, err := r.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got)
	assert.Equal(t, 3, r.Position())
	assert.Equal(t, 2, r.Len())

	// capacity is clipped so appends never clobber the rest of the buffer
	assert.Equal(t, 3, cap(got))

	_, err = r.ReadBytes(10)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 3, r.Position())
}

func TestReaderSubKeepsAbsolutePosition(t *testing.T) {
	r := NewReader([]byte{0xAA, 0xBB, 0x01, 0x02, 0xCC})
	_, err := r.ReadBytes(2)
	require.NoError(t, err)

	sub, err := r.Sub(2)
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Position())
	assert.Equal(t, 2, sub.Len())

	b, err := sub.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), b)
	assert.Equal(t, 3, sub.Position())

	assert.Equal(t, 4, r.Position())
	_, err = r.Sub(5)
	assert.Error(t, err)
}

func TestReaderReadU32(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xff, 0x01}, 255},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0x80, 0x80, 0x80, 0x00}, 0},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, math.MaxUint32},
	}

	for _, tt := range tests {
		r := NewReader(tt.encoded)
		got, err := r.ReadU32()
		require.NoError(t, err, "ReadU32(%x)", tt.encoded)
		assert.Equal(t, tt.want, got, "ReadU32(%x)", tt.encoded)
		assert.False(t, r.HasMore())
	}
}

func TestReaderReadU32Overflow(t *testing.T) {
	tests := [][]byte{
		{0xff, 0xff, 0xff, 0xff, 0x1f},
		{0x80, 0x80, 0x80, 0x80, 0x80, 0x00},
		{0xff, 0xff, 0xff, 0xff, 0x7f},
	}
	for _, encoded := range tests {
		_, err := NewReader(encoded).ReadU32()
		assert.ErrorIs(t, err, ErrOverflow, "ReadU32(%x)", encoded)
	}
}

func TestReaderReadU32Truncated(t *testing.T) {
	_, err := NewReader([]byte{0x80, 0x80}).ReadU32()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReaderReadS32(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, -1},
		{[]byte{0x40}, -64},
		{[]byte{0x3f}, 63},
		{[]byte{0xc0, 0x00}, 64},
		{[]byte{0x80, 0x7f}, -128},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x07}, math.MaxInt32},
		{[]byte{0x80, 0x80, 0x80, 0x80, 0x78}, math.MinInt32},
	}

	for _, tt := range tests {
		got, err := NewReader(tt.encoded).ReadS32()
		require.NoError(t, err, "ReadS32(%x)", tt.encoded)
		assert.Equal(t, tt.want, got, "ReadS32(%x)", tt.encoded)
	}
}

func TestReaderReadS32Overflow(t *testing.T) {
	tests := [][]byte{
		{0xff, 0xff, 0xff, 0xff, 0x0f},
		{0x80, 0x80, 0x80, 0x80, 0x70},
		{0x80, 0x80, 0x80, 0x80, 0x80, 0x00},
	}
	for _, encoded := range tests {
		_, err := NewReader(encoded).ReadS32()
		assert.ErrorIs(t, err, ErrOverflow, "ReadS32(%x)", encoded)
	}
}

func TestReaderReadS64(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    int64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, -1},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}, math.MaxInt64},
		{[]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x7f}, math.MinInt64},
	}

	for _, tt := range tests {
		got, err := NewReader(tt.encoded).ReadS64()
		require.NoError(t, err, "ReadS64(%x)", tt.encoded)
		assert.Equal(t, tt.want, got, "ReadS64(%x)", tt.encoded)
	}
}

func TestReaderReadU64(t *testing.T) {
	got, err := NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}).ReadU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got)

	_, err = NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02}).ReadU64()
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestReaderFixedWidth(t *testing.T) {
	r := NewReader([]byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80,
	})
	magic, err := r.ReadU32LE()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x6d736100), magic)

	v, err := r.ReadU64LE()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x8000000000000001), v)

	_, err = r.ReadU32LE()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReaderReadName(t *testing.T) {
	r := NewReader([]byte{0x04, 'm', 'a', 'i', 'n'})
	name, err := r.ReadName()
	require.NoError(t, err)
	assert.Equal(t, "main", name)

	_, err = NewReader([]byte{0x02, 0xff, 0xfe}).ReadName()
	assert.ErrorIs(t, err, ErrInvalidUTF8)

	_, err = NewReader([]byte{0x05, 'a'}).ReadName()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteU32(624485)
	w.WriteS64(-123456789)
	w.WriteS64(int64(int32(math.MinInt32)))
	w.WriteU64(math.MaxUint64)
	w.WriteName("memory")
	w.WriteU32LE(0xdeadbeef)
	w.WriteU64LE(42)
	w.Byte(0x0b)

	r := NewReader(w.Bytes())
	u, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(624485), u)

	s, err := r.ReadS64()
	require.NoError(t, err)
	assert.Equal(t, int64(-123456789), s)

	s32, err := r.ReadS32()
	require.NoError(t, err)
	assert.Equal(t, int32(math.MinInt32), s32)

	u64, err := r.ReadU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), u64)

	name, err := r.ReadName()
	require.NoError(t, err)
	assert.Equal(t, "memory", name)

	le, err := r.ReadU32LE()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), le)

	le64, err := r.ReadU64LE()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), le64)

	end, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x0b), end)
	assert.Equal(t, w.Len(), r.Position())
}
