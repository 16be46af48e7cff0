// Package errors provides structured error types for the VM.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the section name and byte offset when decoding, a
// Fatal flag for structural problems, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindMalformed).
//		Section("type").
//		Offset(12).
//		Fatal().
//		Detail("invalid form byte 0x%02x", b).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseInstantiate, "function", 10, 5)
//	err := errors.IO(path, cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// IsFatal reports whether the host should stop after an error.
package errors
