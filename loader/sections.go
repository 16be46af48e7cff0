package loader

import (
	"go.uber.org/zap"

	"github.com/Becavalier/TWVM/errors"
	"github.com/Becavalier/TWVM/internal/binary"
	"github.com/Becavalier/TWVM/wasm"
)

// readCount reads a vector length and rejects counts that cannot fit in the
// remaining payload, assuming at least minSize bytes per entry.
func readCount(id byte, r *binary.Reader, what string, minSize int) (uint32, *errors.Error) {
	count, err := r.ReadU32()
	if err != nil {
		return 0, readError(id, r, what+" count", err)
	}
	if uint64(count)*uint64(minSize) > uint64(r.Len()) {
		return 0, sectionError(id, r.Position(), errors.KindTruncated).
			Detail("%d %s entries do not fit in the remaining %d bytes", count, what, r.Len()).
			Build()
	}
	return count, nil
}

func readValType(id byte, r *binary.Reader) (wasm.ValType, *errors.Error) {
	off := r.Position()
	b, err := r.ReadByte()
	if err != nil {
		return 0, readError(id, r, "value type", err)
	}
	vt := wasm.ValType(b)
	switch {
	case vt.IsNumeric(), vt.IsReference():
		return vt, nil
	case vt == wasm.ValV128:
		return 0, sectionError(id, off, errors.KindUnsupported).
			Detail("v128 values are not supported").
			Build()
	default:
		return 0, sectionError(id, off, errors.KindMalformed).
			Value(b).
			Detail("invalid value type 0x%02x", b).
			Build()
	}
}

func readLimits(id byte, r *binary.Reader) (wasm.Limits, *errors.Error) {
	var l wasm.Limits
	off := r.Position()
	flags, err := r.ReadByte()
	if err != nil {
		return l, readError(id, r, "limits flags", err)
	}
	switch flags {
	case wasm.LimitsNoMax, wasm.LimitsHasMax:
	default:
		return l, sectionError(id, off, errors.KindMalformed).
			Detail("invalid limits flags 0x%02x", flags).
			Build()
	}

	if l.Min, err = r.ReadU32(); err != nil {
		return l, readError(id, r, "limits minimum", err)
	}
	if flags == wasm.LimitsHasMax {
		l.HasMax = true
		if l.Max, err = r.ReadU32(); err != nil {
			return l, readError(id, r, "limits maximum", err)
		}
		if l.Min > l.Max {
			return l, sectionError(id, off, errors.KindMalformed).
				Detail("minimum %d exceeds maximum %d", l.Min, l.Max).
				Build()
		}
	}
	return l, nil
}

func readTable(id byte, r *binary.Reader) (wasm.Table, *errors.Error) {
	off := r.Position()
	b, err := r.ReadByte()
	if err != nil {
		return wasm.Table{}, readError(id, r, "table element type", err)
	}
	if wasm.ValType(b) != wasm.ValFuncRef {
		return wasm.Table{}, sectionError(id, off, errors.KindUnsupported).
			Detail("table element type 0x%02x is not funcref", b).
			Build()
	}
	limits, e := readLimits(id, r)
	if e != nil {
		return wasm.Table{}, e
	}
	return wasm.Table{ElemType: wasm.ValFuncRef, Limits: limits}, nil
}

func readMemory(id byte, r *binary.Reader) (wasm.Memory, *errors.Error) {
	off := r.Position()
	limits, e := readLimits(id, r)
	if e != nil {
		return wasm.Memory{}, e
	}
	if limits.Min > wasm.MemoryMaxPages || (limits.HasMax && limits.Max > wasm.MemoryMaxPages) {
		return wasm.Memory{}, sectionError(id, off, errors.KindMalformed).
			Detail("memory size must be at most %d pages", wasm.MemoryMaxPages).
			Build()
	}
	return wasm.Memory{Limits: limits}, nil
}

func readGlobalType(id byte, r *binary.Reader) (wasm.GlobalType, *errors.Error) {
	vt, e := readValType(id, r)
	if e != nil {
		return wasm.GlobalType{}, e
	}
	off := r.Position()
	mut, err := r.ReadByte()
	if err != nil {
		return wasm.GlobalType{}, readError(id, r, "global mutability", err)
	}
	if mut > 1 {
		return wasm.GlobalType{}, sectionError(id, off, errors.KindMalformed).
			Detail("invalid mutability flag 0x%02x", mut).
			Build()
	}
	return wasm.GlobalType{ValType: vt, Mutable: mut == 1}, nil
}

func (d *decoder) appendFunction(id byte, r *binary.Reader, f wasm.Function) *errors.Error {
	if uint32(len(d.m.Functions)) >= d.cfg.MaxFunctions {
		return sectionError(id, r.Position(), errors.KindOutOfBounds).
			Detail("function index space exceeds the limit of %d", d.cfg.MaxFunctions).
			Build()
	}
	f.Index = uint32(len(d.m.Functions))
	d.m.Functions = append(d.m.Functions, f)
	return nil
}

// indexSpace returns the number of items of kind, imported ones included.
func (d *decoder) indexSpace(kind byte) int {
	switch kind {
	case wasm.KindFunc:
		return len(d.m.Functions)
	case wasm.KindGlobal:
		return len(d.m.Globals)
	}

	n := 0
	for _, imp := range d.m.Imports {
		if imp.Kind == kind {
			n++
		}
	}
	switch kind {
	case wasm.KindTable:
		n += len(d.m.Tables)
	case wasm.KindMemory:
		if d.m.Memory != nil {
			n++
		}
	}
	return n
}

func (d *decoder) decodeCustomSection(r *binary.Reader) *errors.Error {
	name, err := r.ReadName()
	if err != nil {
		return readError(wasm.SectionCustom, r, "custom section name", err)
	}
	data, _ := r.ReadBytes(r.Len())
	d.m.CustomSections = append(d.m.CustomSections, wasm.CustomSection{Name: name, Data: data})
	return nil
}

func (d *decoder) decodeTypeSection(r *binary.Reader) *errors.Error {
	const id = wasm.SectionType
	count, e := readCount(id, r, "type", 3)
	if e != nil {
		return e
	}

	d.m.Types = make([]wasm.FuncType, 0, count)
	for i := uint32(0); i < count; i++ {
		off := r.Position()
		form, err := r.ReadByte()
		if err != nil {
			return readError(id, r, "type form", err)
		}
		if form != wasm.FuncTypeByte {
			return sectionError(id, off, errors.KindMalformed).
				Fatal().
				Value(form).
				Detail("type %d: invalid form byte 0x%02x, want 0x%02x", i, form, wasm.FuncTypeByte).
				Build()
		}

		params, e := readCount(id, r, "parameter", 1)
		if e != nil {
			return e
		}
		kinds := make([]wasm.ValType, 0, params)
		for j := uint32(0); j < params; j++ {
			vt, e := readValType(id, r)
			if e != nil {
				return e
			}
			kinds = append(kinds, vt)
		}

		resultsOff := r.Position()
		results, e := readCount(id, r, "result", 1)
		if e != nil {
			return e
		}
		if results > 1 && !d.cfg.AllowMultiValue {
			return sectionError(id, resultsOff, errors.KindUnsupported).
				Detail("type %d: %d results, multi-value is disabled", i, results).
				Build()
		}
		for j := uint32(0); j < results; j++ {
			vt, e := readValType(id, r)
			if e != nil {
				return e
			}
			kinds = append(kinds, vt)
		}

		d.m.Types = append(d.m.Types, wasm.FuncType{
			Kinds:       kinds,
			ParamCount:  params,
			ResultCount: results,
		})
	}
	return nil
}

func (d *decoder) decodeImportSection(r *binary.Reader) *errors.Error {
	const id = wasm.SectionImport
	count, e := readCount(id, r, "import", 4)
	if e != nil {
		return e
	}

	d.m.Imports = make([]wasm.Import, 0, count)
	for i := uint32(0); i < count; i++ {
		module, err := r.ReadName()
		if err != nil {
			return readError(id, r, "import module name", err)
		}
		name, err := r.ReadName()
		if err != nil {
			return readError(id, r, "import field name", err)
		}
		off := r.Position()
		kind, err := r.ReadByte()
		if err != nil {
			return readError(id, r, "import kind", err)
		}

		imp := wasm.Import{Module: module, Name: name, Kind: kind}
		switch kind {
		case wasm.KindFunc:
			typeIdx, err := r.ReadU32()
			if err != nil {
				return readError(id, r, "import signature index", err)
			}
			if int(typeIdx) >= len(d.m.Types) {
				return sectionError(id, off, errors.KindOutOfBounds).
					Detail("import %s.%s: signature index %d out of range (%d types)", module, name, typeIdx, len(d.m.Types)).
					Build()
			}
			imp.TypeIndex = typeIdx
			if e := d.appendFunction(id, r, wasm.Function{TypeIndex: typeIdx, Imported: true}); e != nil {
				return e
			}
		case wasm.KindTable:
			t, e := readTable(id, r)
			if e != nil {
				return e
			}
			imp.Table = &t
		case wasm.KindMemory:
			if d.indexSpace(wasm.KindMemory) > 0 {
				return sectionError(id, off, errors.KindUnsupported).
					Fatal().
					Detail("import %s.%s: a second memory is not allowed", module, name).
					Build()
			}
			mem, e := readMemory(id, r)
			if e != nil {
				return e
			}
			imp.Memory = &mem
		case wasm.KindGlobal:
			gt, e := readGlobalType(id, r)
			if e != nil {
				return e
			}
			imp.Global = &gt
			d.m.Globals = append(d.m.Globals, wasm.Global{Type: gt, Imported: true})
		default:
			return sectionError(id, off, errors.KindMalformed).
				Detail("import %s.%s: invalid kind 0x%02x", module, name, kind).
				Build()
		}
		d.m.Imports = append(d.m.Imports, imp)
	}
	return nil
}

func (d *decoder) decodeFunctionSection(r *binary.Reader) *errors.Error {
	const id = wasm.SectionFunction
	count, e := readCount(id, r, "function", 1)
	if e != nil {
		return e
	}

	for i := uint32(0); i < count; i++ {
		off := r.Position()
		typeIdx, err := r.ReadU32()
		if err != nil {
			return readError(id, r, "signature index", err)
		}
		if int(typeIdx) >= len(d.m.Types) {
			return sectionError(id, off, errors.KindOutOfBounds).
				Value(typeIdx).
				Detail("function %d: signature index %d out of range (%d types)", i, typeIdx, len(d.m.Types)).
				Build()
		}
		if e := d.appendFunction(id, r, wasm.Function{TypeIndex: typeIdx}); e != nil {
			return e
		}
	}
	return nil
}

func (d *decoder) decodeTableSection(r *binary.Reader) *errors.Error {
	const id = wasm.SectionTable
	count, e := readCount(id, r, "table", 3)
	if e != nil {
		return e
	}

	d.m.Tables = make([]wasm.Table, 0, count)
	for i := uint32(0); i < count; i++ {
		t, e := readTable(id, r)
		if e != nil {
			return e
		}
		d.m.Tables = append(d.m.Tables, t)
	}
	return nil
}

func (d *decoder) decodeMemorySection(r *binary.Reader) *errors.Error {
	const id = wasm.SectionMemory
	off := r.Position()
	count, err := r.ReadU32()
	if err != nil {
		return readError(id, r, "memory count", err)
	}
	if count > 1 {
		return sectionError(id, off, errors.KindUnsupported).
			Fatal().
			Value(count).
			Detail("%d memories declared, at most one is allowed", count).
			Build()
	}
	if count == 0 {
		return nil
	}
	if d.indexSpace(wasm.KindMemory) > 0 {
		return sectionError(id, off, errors.KindUnsupported).
			Fatal().
			Detail("memory declared alongside an imported memory, at most one is allowed").
			Build()
	}
	if r.Len() < 2 {
		return sectionError(id, r.Position(), errors.KindTruncated).
			Detail("1 memory entry does not fit in the remaining %d bytes", r.Len()).
			Build()
	}

	mem, e := readMemory(id, r)
	if e != nil {
		return e
	}
	d.m.Memory = &mem
	return nil
}

func (d *decoder) decodeGlobalSection(r *binary.Reader) *errors.Error {
	const id = wasm.SectionGlobal
	count, e := readCount(id, r, "global", 4)
	if e != nil {
		return e
	}

	for i := uint32(0); i < count; i++ {
		gt, e := readGlobalType(id, r)
		if e != nil {
			return e
		}
		off := r.Position()
		init, e := d.readConstExpr(id, r)
		if e != nil {
			return e
		}
		if t := d.constExprType(init); t != gt.ValType {
			return sectionError(id, off, errors.KindMalformed).
				Detail("global %d: initializer of type %s for a %s global", len(d.m.Globals), t, gt.ValType).
				Build()
		}
		d.m.Globals = append(d.m.Globals, wasm.Global{Type: gt, Init: init})
	}
	return nil
}

func (d *decoder) decodeExportSection(r *binary.Reader) *errors.Error {
	const id = wasm.SectionExport
	count, e := readCount(id, r, "export", 3)
	if e != nil {
		return e
	}

	d.m.Exports = make([]wasm.Export, 0, count)
	for i := uint32(0); i < count; i++ {
		off := r.Position()
		name, err := r.ReadName()
		if err != nil {
			return readError(id, r, "export name", err)
		}
		kind, err := r.ReadByte()
		if err != nil {
			return readError(id, r, "export kind", err)
		}
		idx, err := r.ReadU32()
		if err != nil {
			return readError(id, r, "export index", err)
		}

		if kind > wasm.KindGlobal {
			return sectionError(id, off, errors.KindMalformed).
				Detail("export %q: invalid kind 0x%02x", name, kind).
				Build()
		}
		if _, dup := d.exportNames[name]; dup {
			return sectionError(id, off, errors.KindMalformed).
				Detail("duplicate export name %q", name).
				Build()
		}
		if space := d.indexSpace(kind); int(idx) >= space {
			return sectionError(id, off, errors.KindOutOfBounds).
				Value(idx).
				Detail("export %q: %s index %d out of range (%d defined)", name, wasm.KindName(kind), idx, space).
				Build()
		}

		d.exportNames[name] = struct{}{}
		if kind == wasm.KindFunc {
			d.m.Functions[idx].Exported = true
		}
		d.m.Exports = append(d.m.Exports, wasm.Export{Name: name, Kind: kind, Index: idx})
	}
	return nil
}

func (d *decoder) decodeStartSection(r *binary.Reader) *errors.Error {
	const id = wasm.SectionStart
	off := r.Position()
	idx, err := r.ReadU32()
	if err != nil {
		return readError(id, r, "start function index", err)
	}
	if int(idx) >= len(d.m.Functions) {
		return sectionError(id, off, errors.KindOutOfBounds).
			Value(idx).
			Detail("start function %d out of range (%d functions)", idx, len(d.m.Functions)).
			Build()
	}
	d.m.Start = &idx
	return nil
}

func (d *decoder) decodeElementSection(r *binary.Reader) *errors.Error {
	const id = wasm.SectionElement
	count, e := readCount(id, r, "element segment", 4)
	if e != nil {
		return e
	}

	d.m.Elements = make([]wasm.ElementSegment, 0, count)
	for i := uint32(0); i < count; i++ {
		off := r.Position()
		flags, err := r.ReadU32()
		if err != nil {
			return readError(id, r, "element segment flags", err)
		}

		var seg wasm.ElementSegment
		switch flags {
		case 0:
		case 2:
			if seg.TableIndex, err = r.ReadU32(); err != nil {
				return readError(id, r, "element table index", err)
			}
		default:
			return sectionError(id, off, errors.KindUnsupported).
				Value(flags).
				Detail("element segment %d: flags %d are not supported", i, flags).
				Build()
		}

		if space := d.indexSpace(wasm.KindTable); int(seg.TableIndex) >= space {
			return sectionError(id, off, errors.KindOutOfBounds).
				Detail("element segment %d: table index %d out of range (%d tables)", i, seg.TableIndex, space).
				Build()
		}

		exprOff := r.Position()
		if seg.Offset, e = d.readConstExpr(id, r); e != nil {
			return e
		}
		if t := d.constExprType(seg.Offset); t != wasm.ValI32 {
			return sectionError(id, exprOff, errors.KindMalformed).
				Detail("element segment %d: offset of type %s, want i32", i, t).
				Build()
		}

		if flags == 2 {
			kindOff := r.Position()
			kind, err := r.ReadByte()
			if err != nil {
				return readError(id, r, "element kind", err)
			}
			if kind != wasm.ElemKindFuncRef {
				return sectionError(id, kindOff, errors.KindUnsupported).
					Detail("element segment %d: element kind 0x%02x", i, kind).
					Build()
			}
		}

		n, e := readCount(id, r, "element function index", 1)
		if e != nil {
			return e
		}
		seg.FuncIndices = make([]uint32, 0, n)
		for j := uint32(0); j < n; j++ {
			idxOff := r.Position()
			idx, err := r.ReadU32()
			if err != nil {
				return readError(id, r, "element function index", err)
			}
			if int(idx) >= len(d.m.Functions) {
				return sectionError(id, idxOff, errors.KindOutOfBounds).
					Detail("element segment %d: function index %d out of range (%d functions)", i, idx, len(d.m.Functions)).
					Build()
			}
			seg.FuncIndices = append(seg.FuncIndices, idx)
		}
		d.m.Elements = append(d.m.Elements, seg)
	}
	return nil
}

func (d *decoder) decodeDataCountSection(r *binary.Reader) *errors.Error {
	n, err := r.ReadU32()
	if err != nil {
		return readError(wasm.SectionDataCount, r, "data count", err)
	}
	d.m.DataCount = &n
	return nil
}

func (d *decoder) decodeCodeSection(r *binary.Reader) *errors.Error {
	const id = wasm.SectionCode
	d.codeSeen = true

	off := r.Position()
	count, e := readCount(id, r, "function body", 2)
	if e != nil {
		return e
	}
	imported := d.m.NumImportedFuncs()
	if declared := len(d.m.Functions) - imported; int(count) != declared {
		return sectionError(id, off, errors.KindMalformed).
			Detail("%d function bodies for %d declared functions", count, declared).
			Build()
	}

	for i := uint32(0); i < count; i++ {
		size, err := r.ReadU32()
		if err != nil {
			return readError(id, r, "function body size", err)
		}
		if int(size) > r.Len() {
			return sectionError(id, r.Position(), errors.KindTruncated).
				Detail("function body %d: size %d exceeds the remaining %d bytes", i, size, r.Len()).
				Build()
		}
		body, _ := r.Sub(int(size))
		fn := &d.m.Functions[imported+int(i)]

		groups, e := readCount(id, body, "local group", 2)
		if e != nil {
			return e
		}
		var total uint64
		if groups > 0 {
			fn.Locals = make([]wasm.LocalEntry, 0, groups)
		}
		for j := uint32(0); j < groups; j++ {
			groupOff := body.Position()
			n, err := body.ReadU32()
			if err != nil {
				return readError(id, body, "local count", err)
			}
			total += uint64(n)
			if total > d.cfg.MaxLocals {
				return sectionError(id, groupOff, errors.KindOutOfBounds).
					Detail("function %d declares more than %d locals", fn.Index, d.cfg.MaxLocals).
					Build()
			}
			vt, e := readValType(id, body)
			if e != nil {
				return e
			}
			fn.Locals = append(fn.Locals, wasm.LocalEntry{Count: n, ValType: vt})
		}

		fn.CodeOffset = body.Position()
		fn.Code, _ = body.ReadBytes(body.Len())
		if len(fn.Code) == 0 || fn.Code[len(fn.Code)-1] != wasm.OpEnd {
			return sectionError(id, fn.CodeOffset, errors.KindMalformed).
				Detail("function %d: body does not end with end", fn.Index).
				Build()
		}
	}
	return nil
}

func (d *decoder) decodeDataSection(r *binary.Reader) *errors.Error {
	const id = wasm.SectionData
	d.dataSeen = true

	off := r.Position()
	count, e := readCount(id, r, "data segment", 2)
	if e != nil {
		return e
	}
	if d.m.DataCount != nil && *d.m.DataCount != count {
		return sectionError(id, off, errors.KindMalformed).
			Detail("%d data segments, data count section says %d", count, *d.m.DataCount).
			Build()
	}

	d.m.Data = make([]wasm.DataSegment, 0, count)
	for i := uint32(0); i < count; i++ {
		segOff := r.Position()
		flags, err := r.ReadU32()
		if err != nil {
			return readError(id, r, "data segment flags", err)
		}

		var seg wasm.DataSegment
		switch flags {
		case 0:
		case 1:
			seg.Passive = true
		case 2:
			if seg.MemoryIndex, err = r.ReadU32(); err != nil {
				return readError(id, r, "data memory index", err)
			}
		default:
			return sectionError(id, segOff, errors.KindMalformed).
				Detail("data segment %d: invalid flags %d", i, flags).
				Build()
		}

		if !seg.Passive {
			if space := d.indexSpace(wasm.KindMemory); int(seg.MemoryIndex) >= space {
				return sectionError(id, segOff, errors.KindOutOfBounds).
					Detail("data segment %d: memory index %d out of range (%d memories)", i, seg.MemoryIndex, space).
					Build()
			}
			exprOff := r.Position()
			if seg.Offset, e = d.readConstExpr(id, r); e != nil {
				return e
			}
			if t := d.constExprType(seg.Offset); t != wasm.ValI32 {
				return sectionError(id, exprOff, errors.KindMalformed).
					Detail("data segment %d: offset of type %s, want i32", i, t).
					Build()
			}
		}

		n, err := r.ReadU32()
		if err != nil {
			return readError(id, r, "data segment size", err)
		}
		if seg.Init, err = r.ReadBytes(int(n)); err != nil {
			return readError(id, r, "data segment bytes", err)
		}
		d.m.Data = append(d.m.Data, seg)
	}
	return nil
}

// skipSection records a recognised section that is not interpreted.
func (d *decoder) skipSection(id byte, r *binary.Reader) *errors.Error {
	off := r.Position()
	size := r.Len()
	_, _ = r.ReadBytes(size)
	d.m.Skipped = append(d.m.Skipped, wasm.SkippedSection{ID: id, Offset: off, Size: uint32(size)})
	Logger().Debug("skipped unsupported section",
		zap.String("section", wasm.SectionName(id)),
		zap.Int("offset", off),
		zap.Int("size", size),
	)
	return nil
}
