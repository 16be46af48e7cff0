package store

// Addresses are handles into a Store. They stay valid while the store grows.
type (
	FuncAddr   uint32
	MemAddr    uint32
	GlobalAddr uint32
	TableAddr  uint32
)

// Store owns every runtime instance created for a module. Containers are
// append-only; instances are reached through their addresses.
type Store struct {
	functions []*FunctionInstance
	memories  []*MemoryInstance
	globals   []*GlobalInstance
	tables    []*TableInstance
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// AddFunction appends f and returns its address.
func (s *Store) AddFunction(f *FunctionInstance) FuncAddr {
	s.functions = append(s.functions, f)
	return FuncAddr(len(s.functions) - 1)
}

// AddMemory appends m and returns its address.
func (s *Store) AddMemory(m *MemoryInstance) MemAddr {
	s.memories = append(s.memories, m)
	return MemAddr(len(s.memories) - 1)
}

// AddGlobal appends g and returns its address.
func (s *Store) AddGlobal(g *GlobalInstance) GlobalAddr {
	s.globals = append(s.globals, g)
	return GlobalAddr(len(s.globals) - 1)
}

// AddTable appends t and returns its address.
func (s *Store) AddTable(t *TableInstance) TableAddr {
	s.tables = append(s.tables, t)
	return TableAddr(len(s.tables) - 1)
}

// Function resolves a function address.
func (s *Store) Function(a FuncAddr) (*FunctionInstance, bool) {
	if int(a) >= len(s.functions) {
		return nil, false
	}
	return s.functions[a], true
}

// Memory resolves a memory address.
func (s *Store) Memory(a MemAddr) (*MemoryInstance, bool) {
	if int(a) >= len(s.memories) {
		return nil, false
	}
	return s.memories[a], true
}

// Global resolves a global address.
func (s *Store) Global(a GlobalAddr) (*GlobalInstance, bool) {
	if int(a) >= len(s.globals) {
		return nil, false
	}
	return s.globals[a], true
}

// Table resolves a table address.
func (s *Store) Table(a TableAddr) (*TableInstance, bool) {
	if int(a) >= len(s.tables) {
		return nil, false
	}
	return s.tables[a], true
}

// NumFunctions returns the number of function instances.
func (s *Store) NumFunctions() int { return len(s.functions) }

// NumMemories returns the number of memory instances.
func (s *Store) NumMemories() int { return len(s.memories) }

// NumGlobals returns the number of global instances.
func (s *Store) NumGlobals() int { return len(s.globals) }

// NumTables returns the number of table instances.
func (s *Store) NumTables() int { return len(s.tables) }
