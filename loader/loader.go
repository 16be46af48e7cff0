package loader

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Becavalier/TWVM/errors"
	"github.com/Becavalier/TWVM/wasm"
)

// Load reads and decodes the module stored at path.
func Load(path string) (*wasm.Module, error) {
	return LoadWithConfig(path, nil)
}

// LoadWithConfig reads and decodes the module stored at path. The file is
// streamed; the header is validated before the rest of the file is read.
func LoadWithConfig(path string, cfg *Config) (*wasm.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, report(errors.IO(path, err))
	}
	defer f.Close()

	Logger().Debug("loading module", zap.String("path", path))
	return loadStream(bufio.NewReader(f), path, cfg)
}

// LoadReader decodes a module read from r until EOF.
func LoadReader(r io.Reader) (*wasm.Module, error) {
	return LoadReaderWithConfig(r, nil)
}

// LoadReaderWithConfig decodes a module read from r until EOF.
func LoadReaderWithConfig(r io.Reader, cfg *Config) (*wasm.Module, error) {
	return loadStream(bufio.NewReader(r), "<reader>", cfg)
}

// LoadBytes decodes a module from memory. The header is validated before
// data is copied; the returned module never aliases data.
func LoadBytes(data []byte) (*wasm.Module, error) {
	return LoadBytesWithConfig(data, nil)
}

// LoadBytesWithConfig decodes a module from memory.
func LoadBytesWithConfig(data []byte, cfg *Config) (*wasm.Module, error) {
	if err := checkHeader(data); err != nil {
		return nil, report(err)
	}
	return decode(bytes.Clone(data), cfg)
}

func loadStream(r *bufio.Reader, name string, cfg *Config) (*wasm.Module, error) {
	var header [wasm.HeaderSize]byte
	n, err := io.ReadFull(r, header[:])
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, report(checkHeader(header[:n]))
		}
		return nil, report(errors.IO(name, err))
	}
	if err := checkHeader(header[:]); err != nil {
		return nil, report(err)
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, report(errors.IO(name, err))
	}

	data := make([]byte, 0, len(header)+len(rest))
	data = append(data, header[:]...)
	data = append(data, rest...)
	return decode(data, cfg)
}

// checkHeader validates the magic and version words.
func checkHeader(data []byte) *errors.Error {
	if len(data) < 4 {
		return errors.New(errors.PhaseLoad, errors.KindTruncated).
			Offset(len(data)).
			Detail("module header needs %d bytes, got %d", wasm.HeaderSize, len(data)).
			Build()
	}
	if magic := binary.LittleEndian.Uint32(data); magic != wasm.Magic {
		return errors.New(errors.PhaseLoad, errors.KindBadMagic).
			Offset(0).
			Value(magic).
			Detail("got 0x%08x, want 0x%08x", magic, wasm.Magic).
			Build()
	}
	if len(data) < wasm.HeaderSize {
		return errors.New(errors.PhaseLoad, errors.KindTruncated).
			Offset(len(data)).
			Detail("module header needs %d bytes, got %d", wasm.HeaderSize, len(data)).
			Build()
	}
	if version := binary.LittleEndian.Uint32(data[4:]); version != wasm.Version {
		return errors.New(errors.PhaseLoad, errors.KindBadVersion).
			Offset(4).
			Value(version).
			Detail("got %d, want %d", version, wasm.Version).
			Build()
	}
	return nil
}

// report logs a failure with its structured fields and returns it as an error.
func report(e *errors.Error) error {
	if e == nil {
		return nil
	}
	Logger().Warn("module load failed",
		zap.String("phase", string(e.Phase)),
		zap.String("kind", string(e.Kind)),
		zap.String("section", e.Section),
		zap.Int("offset", e.Offset),
		zap.Bool("fatal", e.Fatal),
		zap.String("detail", e.Detail),
	)
	return e
}
