package loader

import (
	"io"

	"go.uber.org/zap"

	"github.com/Becavalier/TWVM/errors"
	"github.com/Becavalier/TWVM/internal/binary"
	"github.com/Becavalier/TWVM/wasm"
)

type decoder struct {
	m           *wasm.Module
	exportNames map[string]struct{}
	cfg         Config
	lastOrder   int
	codeSeen    bool
	dataSeen    bool
}

// decode parses the sections of a module whose header is already valid.
// data becomes the module's Raw buffer.
func decode(data []byte, cfg *Config) (m *wasm.Module, err error) {
	d := &decoder{
		m:           &wasm.Module{Raw: data},
		exportNames: make(map[string]struct{}),
		cfg:         cfg.withDefaults(),
	}

	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = report(errors.Internal(errors.PhaseDecode, r))
		}
	}()

	if e := d.run(); e != nil {
		return nil, report(e)
	}
	return d.m, nil
}

func (d *decoder) run() *errors.Error {
	r := binary.NewReader(d.m.Raw)
	if _, err := r.ReadBytes(wasm.HeaderSize); err != nil {
		return readError(wasm.SectionCustom, r, "header", err)
	}

	for r.HasMore() {
		start := r.Position()
		id, _ := r.ReadByte()

		if id > wasm.SectionException {
			return errors.New(errors.PhaseDecode, errors.KindMalformed).
				Offset(start).
				Value(id).
				Detail("unknown section id 0x%02x", id).
				Build()
		}

		size, err := r.ReadU32()
		if err != nil {
			return readError(id, r, "section size", err)
		}

		if id != wasm.SectionCustom {
			order := sectionOrder(id)
			switch {
			case order == d.lastOrder:
				return sectionError(id, start, errors.KindMalformed).
					Detail("duplicate %s section", wasm.SectionName(id)).
					Build()
			case order < d.lastOrder:
				return sectionError(id, start, errors.KindMalformed).
					Detail("%s section out of order", wasm.SectionName(id)).
					Build()
			}
			d.lastOrder = order
		}

		if int(size) > r.Len() {
			return sectionError(id, r.Position(), errors.KindTruncated).
				Detail("payload of %d bytes exceeds the remaining %d", size, r.Len()).
				Build()
		}
		sr, _ := r.Sub(int(size))

		if e := d.section(id, sr); e != nil {
			return e
		}
		if sr.HasMore() {
			return sectionError(id, sr.Position(), errors.KindMalformed).
				Detail("%d unread bytes at end of section", sr.Len()).
				Build()
		}

		Logger().Debug("decoded section",
			zap.String("section", wasm.SectionName(id)),
			zap.Int("offset", start),
			zap.Uint32("size", size),
		)
	}

	return d.finish()
}

func (d *decoder) section(id byte, r *binary.Reader) *errors.Error {
	switch id {
	case wasm.SectionCustom:
		return d.decodeCustomSection(r)
	case wasm.SectionType:
		return d.decodeTypeSection(r)
	case wasm.SectionImport:
		return d.decodeImportSection(r)
	case wasm.SectionFunction:
		return d.decodeFunctionSection(r)
	case wasm.SectionTable:
		return d.decodeTableSection(r)
	case wasm.SectionMemory:
		return d.decodeMemorySection(r)
	case wasm.SectionGlobal:
		return d.decodeGlobalSection(r)
	case wasm.SectionExport:
		return d.decodeExportSection(r)
	case wasm.SectionStart:
		return d.decodeStartSection(r)
	case wasm.SectionElement:
		return d.decodeElementSection(r)
	case wasm.SectionCode:
		return d.decodeCodeSection(r)
	case wasm.SectionData:
		return d.decodeDataSection(r)
	case wasm.SectionDataCount:
		return d.decodeDataCountSection(r)
	default:
		return d.skipSection(id, r)
	}
}

// finish checks the constraints that span several sections.
func (d *decoder) finish() *errors.Error {
	declared := len(d.m.Functions) - d.m.NumImportedFuncs()
	if !d.codeSeen && declared > 0 {
		return sectionError(wasm.SectionCode, len(d.m.Raw), errors.KindMalformed).
			Detail("%d functions declared but the code section is missing", declared).
			Build()
	}
	if d.m.DataCount != nil && !d.dataSeen && *d.m.DataCount != 0 {
		return sectionError(wasm.SectionData, len(d.m.Raw), errors.KindMalformed).
			Detail("data count is %d but the data section is missing", *d.m.DataCount).
			Build()
	}
	return nil
}

// sectionOrder returns the canonical position of a non-custom section.
// The exception section sits between memory and global.
func sectionOrder(id byte) int {
	switch id {
	case wasm.SectionType:
		return 1
	case wasm.SectionImport:
		return 2
	case wasm.SectionFunction:
		return 3
	case wasm.SectionTable:
		return 4
	case wasm.SectionMemory:
		return 5
	case wasm.SectionException:
		return 6
	case wasm.SectionGlobal:
		return 7
	case wasm.SectionExport:
		return 8
	case wasm.SectionStart:
		return 9
	case wasm.SectionElement:
		return 10
	case wasm.SectionDataCount:
		return 11
	case wasm.SectionCode:
		return 12
	case wasm.SectionData:
		return 13
	default:
		return 100
	}
}

func sectionError(id byte, offset int, kind errors.Kind) *errors.Builder {
	return errors.New(errors.PhaseDecode, kind).
		Section(wasm.SectionName(id)).
		Offset(offset)
}

// readError converts a Reader failure into a decode error.
func readError(id byte, r *binary.Reader, what string, err error) *errors.Error {
	kind := errors.KindMalformed
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		kind = errors.KindTruncated
	case errors.Is(err, binary.ErrOverflow):
		kind = errors.KindOverflow
	case errors.Is(err, binary.ErrInvalidUTF8):
		kind = errors.KindInvalidUTF8
	}
	return sectionError(id, r.Position(), kind).
		Cause(err).
		Detail("read %s", what).
		Build()
}
