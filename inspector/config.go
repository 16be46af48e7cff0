package inspector

// Config holds configuration for inspection
type Config struct {
	// CrossValidate compiles the module with wazero and compares its view
	// of the exports with the instance.
	CrossValidate bool
}
