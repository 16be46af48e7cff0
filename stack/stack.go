// Package stack implements the value, label and activation stacks of a
// WebAssembly execution.
package stack

import "github.com/Becavalier/TWVM/store"

// Label marks a structured control block. Arity is the number of values
// the block leaves on the value stack; Continuation is the code offset
// execution resumes at when branching to it.
type Label struct {
	Arity        uint32
	Continuation int
}

// Frame is the activation record of one function call. The depths record
// the sizes of the value and label stacks when the call began.
type Frame struct {
	Func       store.FuncAddr
	ValueDepth int
	LabelDepth int
}

// LIFO is a last-in first-out sequence.
type LIFO[T any] struct {
	items []T
}

// Push adds v on top.
func (s *LIFO[T]) Push(v T) {
	s.items = append(s.items, v)
}

// Pop removes and returns the top entry.
func (s *LIFO[T]) Pop() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	v := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return v, true
}

// Top returns the top entry without removing it.
func (s *LIFO[T]) Top() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

// Len returns the number of entries.
func (s *LIFO[T]) Len() int {
	return len(s.items)
}

// Truncate drops entries above depth n.
func (s *LIFO[T]) Truncate(n int) {
	if n < len(s.items) {
		s.items = s.items[:n]
	}
}

// Items returns the entries from bottom to top.
func (s *LIFO[T]) Items() []T {
	return s.items
}

// Stack groups the three stacks of one execution.
type Stack struct {
	Values      LIFO[store.Value]
	Labels      LIFO[Label]
	Activations LIFO[Frame]
}

// New creates an empty stack.
func New() *Stack {
	return &Stack{}
}

// PushFrame starts an activation of fn at the current stack depths.
func (s *Stack) PushFrame(fn store.FuncAddr) Frame {
	f := Frame{Func: fn, ValueDepth: s.Values.Len(), LabelDepth: s.Labels.Len()}
	s.Activations.Push(f)
	return f
}

// PopFrame ends the current activation and unwinds the value and label
// stacks to the depths recorded when it began.
func (s *Stack) PopFrame() (Frame, bool) {
	f, ok := s.Activations.Pop()
	if !ok {
		return f, false
	}
	s.Values.Truncate(f.ValueDepth)
	s.Labels.Truncate(f.LabelDepth)
	return f, true
}
