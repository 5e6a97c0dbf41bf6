package codebehind

import (
	"github.com/standardbeagle/cbl/internal/debug"
	"github.com/standardbeagle/cbl/internal/types"
)

// ClassHandle is the resolved form of a binding. Name is always the bound
// fully-qualified name; Def is nil while the parser has not indexed the
// class, in which case the handle is unresolved.
type ClassHandle struct {
	Name string
	Def  types.ClassDef
}

// Resolved reports whether the parser knows the class behind the handle.
func (h ClassHandle) Resolved() bool {
	return h.Def != nil
}

// ChildClass returns the codebehind class bound to f. The boolean is false
// when f is unbound or detached; a bound class missing from the index still
// reports true, as an unresolved handle.
func (t *Tracker) ChildClass(f types.File) (ClassHandle, bool) {
	if f == nil || f.Project() == nil {
		return ClassHandle{}, false
	}
	name, ok := t.store.Get(f)
	if !ok {
		return ClassHandle{}, false
	}
	handle := ClassHandle{Name: name}
	if t.host.Classes != nil {
		if def, found := t.host.Classes.ClassByName(f.Project(), name); found {
			handle.Def = def
		}
	}
	return handle, true
}

// HasChildren reports whether f is bound to a class with at least one part
// beyond f itself. A bound class the parser has not indexed yet counts as
// having children, so hosts keep the file expandable until the index catches
// up.
func (t *Tracker) HasChildren(f types.File) bool {
	handle, ok := t.ChildClass(f)
	if !ok {
		return false
	}
	if !handle.Resolved() {
		return true
	}
	for _, partPath := range handle.Def.PartPaths() {
		if partPath != f.Path() {
			return true
		}
	}
	return false
}

// Children returns the files declaring parts of class, skipping parent
// itself. Part paths resolve through the class's own project table first,
// falling back to parent's project; parts the model cannot map are logged at
// warning level and skipped.
func (t *Tracker) Children(parent types.File, class types.ClassDef) []types.File {
	if parent == nil || class == nil {
		return nil
	}
	var fallback types.Project
	if parent.Project() != nil {
		fallback = parent.Project()
	}

	set := newFileSet()
	owner := class.Project()
	for _, partPath := range class.PartPaths() {
		part, ok := resolvePart(partPath, owner, fallback)
		if !ok {
			debug.Warnf("BIND", "part %s of class %s has no file in the model\n", partPath, class.QualifiedName())
			continue
		}
		if part.ID() == parent.ID() {
			continue
		}
		set.add(part)
	}
	return set.ordered()
}

// ContainsCodeBehind reports whether any class declared in f is the bound
// codebehind class of some other file in the same project. Hosts use this to
// mark generated counterpart files.
func (t *Tracker) ContainsCodeBehind(f types.File) bool {
	if f == nil || f.Project() == nil || t.host.Classes == nil {
		return false
	}
	defs := t.host.Classes.ClassesInFile(f)
	if len(defs) == 0 {
		return false
	}
	declared := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		declared[def.QualifiedName()] = struct{}{}
	}

	pid := f.Project().ID()
	for _, b := range t.store.All() {
		if b.File.ID() == f.ID() {
			continue
		}
		bp := b.File.Project()
		if bp == nil || bp.ID() != pid {
			continue
		}
		if _, ok := declared[b.Name]; ok {
			return true
		}
	}
	return false
}
