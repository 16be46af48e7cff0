// Package loader decodes WebAssembly binaries into static modules.
//
// Load streams a file, LoadBytes decodes an in-memory buffer and LoadReader
// consumes any io.Reader. All three validate the 8-byte header first and
// then decode sections in canonical order into a *wasm.Module:
//
//	m, err := loader.Load("app.wasm")
//	if err != nil {
//	    if errors.IsFatal(err) {
//	        // structural problem, stop here
//	    }
//	    return err
//	}
//
// Failures are *errors.Error values carrying the section name and the byte
// offset of the problem. A panic while decoding is recovered and reported as
// a fatal internal error; no partial module is returned.
//
// Decoding limits are set through Config:
//
//	m, err := loader.LoadWithConfig(path, &loader.Config{AllowMultiValue: true})
package loader
