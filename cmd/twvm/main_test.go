package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	ginkgo "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	twvm "github.com/Becavalier/TWVM"
	"github.com/Becavalier/TWVM/wasm"
)

func sampleModule() *wasm.Module {
	voidType := wasm.NewFuncType(nil, nil)
	return &wasm.Module{
		Types:   []wasm.FuncType{voidType, wasm.NewFuncType([]wasm.ValType{wasm.ValI32}, []wasm.ValType{wasm.ValI32})},
		Imports: []wasm.Import{{Module: "env", Name: "log", Kind: wasm.KindFunc, TypeIndex: 0}},
		Functions: []wasm.Function{
			{Imported: true},
			{TypeIndex: 1, Code: []byte{wasm.OpLocalGet, 0, wasm.OpEnd}},
			{TypeIndex: 0, Locals: []wasm.LocalEntry{{Count: 2, ValType: wasm.ValI64}}, Code: []byte{wasm.OpCall, 0, wasm.OpEnd}},
		},
		Tables:   []wasm.Table{{ElemType: wasm.ValFuncRef, Limits: wasm.Limits{Min: 2, Max: 4, HasMax: true}}},
		Memory:   &wasm.Memory{Limits: wasm.Limits{Min: 1}},
		Globals:  []wasm.Global{{Type: wasm.GlobalType{ValType: wasm.ValI32, Mutable: true}, Init: wasm.ConstI32(1024)}},
		Elements: []wasm.ElementSegment{{Offset: wasm.ConstI32(0), FuncIndices: []uint32{1, 2}}},
		Exports: []wasm.Export{
			{Name: "id", Kind: wasm.KindFunc, Index: 1},
			{Name: "main", Kind: wasm.KindFunc, Index: 2},
			{Name: "sp", Kind: wasm.KindGlobal, Index: 0},
		},
	}
}

func writeModule(data []byte) string {
	path := filepath.Join(ginkgo.GinkgoT().TempDir(), "module.wasm")
	gomega.Expect(os.WriteFile(path, data, 0o644)).To(gomega.Succeed())
	return path
}

var _ = ginkgo.Describe("run", func() {
	var stdout, stderr *bytes.Buffer

	ginkgo.BeforeEach(func() {
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
	})

	ginkgo.It("prints a summary of a valid module", func() {
		path := writeModule(sampleModule().Encode())

		code := run(context.Background(), options{wasmFile: path, validate: true}, stdout, stderr)
		gomega.Expect(code).To(gomega.Equal(exitOK))
		gomega.Expect(stderr.String()).To(gomega.BeEmpty())

		out := stdout.String()
		for _, want := range []string{"types", "functions", "tables", "memory", "globals", "exports", "entry"} {
			gomega.Expect(out).To(gomega.ContainSubstring(want))
		}
		gomega.Expect(out).To(gomega.ContainSubstring("imported from env.log"))
		gomega.Expect(out).To(gomega.ContainSubstring("exported main"))
		gomega.Expect(out).To(gomega.ContainSubstring("[1 2]"))
		gomega.Expect(out).To(gomega.ContainSubstring("i32:1024"))
		gomega.Expect(out).To(gomega.ContainSubstring("store: 3 functions, 1 memories, 1 globals, 1 tables"))
	})

	ginkgo.It("exits with 1 on a recoverable load error", func() {
		path := writeModule([]byte{0, 'a', 's', 'm', 2, 0, 0, 0})

		code := run(context.Background(), options{wasmFile: path}, stdout, stderr)
		gomega.Expect(code).To(gomega.Equal(exitError))
		gomega.Expect(stderr.String()).To(gomega.ContainSubstring("bad_version"))
	})

	ginkgo.It("exits with 2 on a fatal load error", func() {
		data := append(sampleModule().Encode()[:8], wasm.SectionMemory, 0x05, 0x02, 0x00, 0x01, 0x00, 0x01)
		path := writeModule(data)

		code := run(context.Background(), options{wasmFile: path}, stdout, stderr)
		gomega.Expect(code).To(gomega.Equal(exitFatal))
	})

	ginkgo.It("lists every inspection problem", func() {
		m := sampleModule()
		m.Functions[2].Code = []byte{wasm.OpCall, 7, wasm.OpCall, 8, wasm.OpEnd}
		path := writeModule(m.Encode())

		code := run(context.Background(), options{wasmFile: path}, stdout, stderr)
		gomega.Expect(code).To(gomega.Equal(exitError))
		gomega.Expect(stderr.String()).To(gomega.ContainSubstring("2 problems:"))
		gomega.Expect(stderr.String()).To(gomega.ContainSubstring("undefined function 7"))
		gomega.Expect(stderr.String()).To(gomega.ContainSubstring("undefined function 8"))
	})

	ginkgo.It("honours the multi-value flag", func() {
		m := sampleModule()
		m.Types = append(m.Types, wasm.NewFuncType(nil, []wasm.ValType{wasm.ValI32, wasm.ValI64}))
		path := writeModule(m.Encode())

		gomega.Expect(run(context.Background(), options{wasmFile: path}, stdout, stderr)).To(gomega.Equal(exitError))
		gomega.Expect(run(context.Background(), options{wasmFile: path, multiValue: true}, stdout, stderr)).To(gomega.Equal(exitOK))
	})

	ginkgo.It("refuses interactive mode without a terminal", func() {
		path := writeModule(sampleModule().Encode())

		code := run(context.Background(), options{wasmFile: path, interactive: true}, stdout, stderr)
		gomega.Expect(code).To(gomega.Equal(exitError))
		gomega.Expect(stderr.String()).To(gomega.ContainSubstring("needs a terminal"))
	})
})

var _ = ginkgo.Describe("disassemble", func() {
	ginkgo.It("renders locals and instructions with offsets", func() {
		inst, err := twvm.PrepareBytes(context.Background(), sampleModule().Encode(), nil)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		fn, ok := inst.Function(2)
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(disassemble(fn)).To(gomega.Equal([]string{
			"(local 2 i64)",
			"0000  call 0",
			"0002  end",
		}))

		imported, _ := inst.Function(0)
		gomega.Expect(disassemble(imported)).To(gomega.Equal([]string{"(imported, no body)"}))
	})
})
