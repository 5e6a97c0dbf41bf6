package codebehind

import (
	"github.com/standardbeagle/cbl/internal/types"
)

// Binding associates one file with the fully-qualified name of the codebehind
// class a provider resolved for it.
type Binding struct {
	File types.File
	Name string
}

// BindingStore is the authoritative file-to-class mapping. It is a passive
// container: the Reconciler is the only writer, and no notification logic
// lives here.
type BindingStore struct {
	bindings map[types.FileID]Binding
}

// NewBindingStore creates an empty store.
func NewBindingStore() *BindingStore {
	return &BindingStore{
		bindings: make(map[types.FileID]Binding),
	}
}

// Get returns the bound class name for f.
func (s *BindingStore) Get(f types.File) (string, bool) {
	b, ok := s.bindings[f.ID()]
	if !ok {
		return "", false
	}
	return b.Name, true
}

// Set records or replaces the binding for f.
func (s *BindingStore) Set(f types.File, name string) {
	s.bindings[f.ID()] = Binding{File: f, Name: name}
}

// Remove drops the binding for f if one exists.
func (s *BindingStore) Remove(f types.File) {
	delete(s.bindings, f.ID())
}

// RemoveAll drops every binding whose file matches pred and returns the
// number removed. Used for solution teardown.
func (s *BindingStore) RemoveAll(pred func(types.File) bool) int {
	removed := 0
	for id, b := range s.bindings {
		if pred(b.File) {
			delete(s.bindings, id)
			removed++
		}
	}
	return removed
}

// All returns the current bindings in unspecified order.
func (s *BindingStore) All() []Binding {
	out := make([]Binding, 0, len(s.bindings))
	for _, b := range s.bindings {
		out = append(out, b)
	}
	return out
}

// Len returns the number of bindings.
func (s *BindingStore) Len() int {
	return len(s.bindings)
}
