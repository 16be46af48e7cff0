// Package inspector checks an instantiated module before it is executed.
//
// Inspect walks the module instance and the store behind it and reports
// every inconsistency it finds rather than stopping at the first one. The
// returned error combines the individual *errors.Error values with multierr:
//
//	if err := inspector.Inspect(ctx, inst); err != nil {
//	    for _, problem := range multierr.Errors(err) {
//	        fmt.Println(problem)
//	    }
//	}
//
// With Config.CrossValidate the module binary is also compiled by wazero.
// A module wazero rejects, or whose exported function arities or memory
// limits wazero sees differently, is reported as a problem.
package inspector
