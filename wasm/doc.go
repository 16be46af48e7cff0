// Package wasm holds the static representation of a WebAssembly module.
//
// A Module is produced by the loader package and is read-only afterwards.
// It mirrors the binary sections of the MVP format: signatures, imports,
// functions, tables, the single linear memory, globals, exports, the start
// function, element and data segments.
//
// # Module Structure
//
//	module.Types      []FuncType       // Function signatures
//	module.Imports    []Import         // Imported definitions
//	module.Functions  []Function       // Imported functions first, then declared ones
//	module.Tables     []Table          // Table definitions
//	module.Memory     *Memory          // At most one memory
//	module.Globals    []Global         // Imported globals first
//	module.Exports    []Export         // Exported definitions
//	module.Start      *uint32          // Start function index
//	module.Elements   []ElementSegment // Table initializers
//	module.Data       []DataSegment    // Memory initializers
//
// A FuncType stores parameter kinds followed by result kinds in one slice:
//
//	ft := wasm.NewFuncType([]wasm.ValType{wasm.ValI32}, nil)
//	ft.Params()  // [i32]
//	ft.Results() // []
//
// # Encoding
//
// Encode writes a module back to binary. The loader decodes the output to
// an equivalent module:
//
//	bin := module.Encode()
//
// # Instructions
//
// Function bodies are kept as raw bytes. DecodeInstructions decodes them on
// demand, for inspection and disassembly:
//
//	instrs, err := wasm.DecodeInstructions(fn.Code)
//	for _, in := range instrs {
//	    fmt.Println(in)
//	}
package wasm
