package loader

// Default decoding limits.
const (
	DefaultMaxLocals    uint64 = 50000
	DefaultMaxFunctions uint32 = 1 << 20
)

// Config holds configuration for module decoding
type Config struct {
	// AllowMultiValue accepts signatures with more than one result.
	AllowMultiValue bool

	// MaxLocals bounds the number of locals one function body may declare.
	// Zero means DefaultMaxLocals.
	MaxLocals uint64

	// MaxFunctions bounds the size of the function index space.
	// Zero means DefaultMaxFunctions.
	MaxFunctions uint32
}

func (c *Config) withDefaults() Config {
	var out Config
	if c != nil {
		out = *c
	}
	if out.MaxLocals == 0 {
		out.MaxLocals = DefaultMaxLocals
	}
	if out.MaxFunctions == 0 {
		out.MaxFunctions = DefaultMaxFunctions
	}
	return out
}
