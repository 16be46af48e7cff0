// Package store holds the runtime instances of an instantiated module.
//
// A Store owns four append-only containers: functions, memories, globals
// and tables. Each instance is reached through a typed address (FuncAddr,
// MemAddr, GlobalAddr, TableAddr) resolved at the point of use, so an
// address taken early remains valid however many instances are added later.
//
// A ModuleInstance maps a module's index spaces onto those addresses. It
// refers to the store's instances and to the static module's signatures but
// owns neither.
//
// MemoryInstance implements the little-endian accessor set expected by hosts:
//
//	mem, _ := s.Memory(addr)
//	if err := mem.WriteU32(16, 0xdeadbeef); err != nil {
//	    return err
//	}
package store
