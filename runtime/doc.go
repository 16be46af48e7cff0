// Package runtime turns a decoded static module into an instance ready for
// execution.
//
// # Quick Start
//
//	m, err := loader.Load("app.wasm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := runtime.Instantiate(m)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if inst.HasStartPoint() {
//	    fn, _ := inst.EntryFunction()
//	    fmt.Println(fn.Type) // "() -> ()"
//	}
//
// # Instantiation
//
// Instantiate creates a new store and stack on every call, then fills them
// in a fixed order: signatures, memory, functions, globals, tables, data,
// exports and finally the entry point. Each kind of instance is created in
// full before its addresses are published in the module instance.
//
// Global initializers and segment offsets are constant expressions. They
// may read globals defined earlier in the same module; reading an imported
// global fails because imports are not linked.
//
// # Entry Point
//
// The start section wins over an exported function named "main". When the
// module has neither, the instance has no start point, which is not an
// error. A resolved start point has exactly one activation frame on the
// stack.
//
// # Memory
//
// Active data segments are copied into memory unless Config.SkipDataInit is
// set. Config.MemoryLimitPages rejects modules whose initial memory is
// larger than the host allows:
//
//	inst, err := runtime.InstantiateWithConfig(m, &runtime.Config{MemoryLimitPages: 256})
package runtime
