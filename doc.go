// Package twvm is a minimal WebAssembly virtual machine core.
//
// A module goes through three stages before it can run:
//
//	loader     decodes the binary into an immutable *wasm.Module
//	runtime    builds a store, a module instance and a stack from it
//	inspector  checks the instance before execution
//
// Prepare runs all three:
//
//	inst, err := twvm.Prepare(ctx, "app.wasm", nil)
//	if err != nil {
//	    if errors.IsFatal(err) {
//	        os.Exit(2)
//	    }
//	    log.Fatal(err)
//	}
//	if inst.HasStartPoint() {
//	    fn, _ := inst.EntryFunction()
//	    fmt.Println("entry:", fn.Type)
//	}
//
// # Architecture Overview
//
//	twvm/              Root package with Memory and the Prepare pipeline
//	├── wasm/          Static module types, opcodes and the binary encoder
//	├── loader/        Binary decoder producing static modules
//	├── store/         Runtime instances addressed by typed handles
//	├── stack/         Value, label and activation stacks
//	├── runtime/       Instantiation and entry point resolution
//	├── inspector/     Pre-execution checks and wazero cross-validation
//	├── errors/        Structured error types
//	└── cmd/twvm/      Command line tool
//
// # Errors
//
// Every stage returns *errors.Error values tagged with the phase and kind
// of the failure. Structural problems in the binary are marked fatal; the
// inspector combines its findings with multierr.
//
// # Thread Safety
//
// Loading is safe for concurrent use. An instance and its store are owned
// by one goroutine; instantiate once per goroutine instead of sharing.
package twvm
