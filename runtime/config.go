package runtime

// DefaultMemoryLimitPages caps the initial memory size (1 GiB).
const DefaultMemoryLimitPages uint32 = 16384

// Config holds configuration for instantiation
type Config struct {
	// MemoryLimitPages rejects modules whose memory starts larger than this
	// many pages. Zero means DefaultMemoryLimitPages.
	MemoryLimitPages uint32

	// SkipDataInit leaves memory zeroed instead of copying active data
	// segments into it.
	SkipDataInit bool
}

func (c *Config) withDefaults() Config {
	var out Config
	if c != nil {
		out = *c
	}
	if out.MemoryLimitPages == 0 {
		out.MemoryLimitPages = DefaultMemoryLimitPages
	}
	return out
}
