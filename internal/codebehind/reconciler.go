package codebehind

import (
	"github.com/standardbeagle/cbl/internal/debug"
	"github.com/standardbeagle/cbl/internal/types"
)

// Reconciler recomputes bindings in response to external events. It is the
// only writer of the BindingStore. Notifications are handed to notify as a
// fully-built Change; a nil notify discards them.
type Reconciler struct {
	store   *BindingStore
	chain   *ProviderChain
	classes types.ClassIndex
	notify  func(Change)
}

// NewReconciler wires a reconciler over its collaborators. classes may be
// nil, in which case affected-children sets stay empty and queries resolve
// nothing.
func NewReconciler(store *BindingStore, chain *ProviderChain, classes types.ClassIndex, notify func(Change)) *Reconciler {
	return &Reconciler{
		store:   store,
		chain:   chain,
		classes: classes,
		notify:  notify,
	}
}

// ReconcileFile recomputes the binding for f. Detached files are a benign
// no-op; an unchanged resolution returns without mutating or notifying, so
// repeated reconciliation of an unchanged file is idempotent.
func (r *Reconciler) ReconcileFile(f types.File) {
	if f == nil {
		return
	}
	project := f.Project()
	if project == nil {
		debug.LogBinding("skip detached file %s\n", f.Path())
		return
	}

	oldName, hadOld := r.store.Get(f)
	newName, hasNew := r.chain.Resolve(f)

	if hadOld == hasNew && oldName == newName {
		return
	}

	if hasNew {
		r.store.Set(f, newName)
	} else {
		r.store.Remove(f)
	}
	debug.LogBinding("rebound %s: %q -> %q\n", f.Path(), oldName, newName)

	// Children come from both sides of the transition: the class the file now
	// binds to and the class it just left, each looked up under its own name.
	children := newFileSet()
	if hasNew {
		r.collectClassParts(project, newName, f, children)
	}
	if hadOld {
		r.collectClassParts(project, oldName, f, children)
	}

	r.emit(Change{
		Project:  project,
		Parents:  []types.File{f},
		Children: children.ordered(),
	})
}

// RescanProject reconciles every file currently in p. Used when a solution
// opens and after the provider set changes.
func (r *Reconciler) RescanProject(p types.Project) {
	if p == nil {
		return
	}
	files := p.Files()
	debug.LogBinding("rescanning project %s (%d files)\n", p.Name(), len(files))
	for _, f := range files {
		r.ReconcileFile(f)
	}
}

// HandleIndexChange reacts to one batched parser update. Bindings are never
// mutated here: an index change alters what a bound name resolves to, not
// which file carries the binding. All matches in the batch fold into a
// single aggregated notification.
func (r *Reconciler) HandleIndexChange(p types.Project, added, removed []types.ClassDef) {
	if p == nil {
		return
	}

	touched := make(map[string][]types.ClassDef, len(added)+len(removed))
	for _, def := range added {
		name := def.QualifiedName()
		touched[name] = append(touched[name], def)
	}
	for _, def := range removed {
		name := def.QualifiedName()
		touched[name] = append(touched[name], def)
	}
	if len(touched) == 0 {
		return
	}

	parents := newFileSet()
	children := newFileSet()
	for _, b := range r.store.All() {
		bp := b.File.Project()
		if bp == nil || bp.ID() != p.ID() {
			continue
		}
		defs, ok := touched[b.Name]
		if !ok {
			continue
		}
		parents.add(b.File)
		for _, def := range defs {
			r.collectParts(def, p, b.File, children)
		}
	}
	if parents.len() == 0 {
		return
	}

	debug.LogBinding("index change in %s touched %d bound files\n", p.Name(), parents.len())
	r.emit(Change{
		Project:  p,
		Parents:  parents.ordered(),
		Children: children.ordered(),
	})
}

// collectClassParts resolves name in the class index and collects the part
// files of the definition, excluding exclude itself.
func (r *Reconciler) collectClassParts(p types.Project, name string, exclude types.File, set *fileSet) {
	if r.classes == nil {
		return
	}
	def, ok := r.classes.ClassByName(p, name)
	if !ok {
		return
	}
	r.collectParts(def, p, exclude, set)
}

// collectParts maps the part paths of def to files, preferring the class's
// declaring project table over fallback. Parts the model cannot map are
// logged at warning level and skipped.
func (r *Reconciler) collectParts(def types.ClassDef, fallback types.Project, exclude types.File, set *fileSet) {
	owner := def.Project()
	for _, partPath := range def.PartPaths() {
		part, ok := resolvePart(partPath, owner, fallback)
		if !ok {
			debug.Warnf("BIND", "part %s of class %s has no file in the model\n", partPath, def.QualifiedName())
			continue
		}
		if exclude != nil && part.ID() == exclude.ID() {
			continue
		}
		set.add(part)
	}
}

func (r *Reconciler) emit(change Change) {
	if r.notify != nil {
		r.notify(change)
	}
}

// resolvePart looks partPath up in the owning project's file table first,
// then in the fallback project.
func resolvePart(partPath string, owner, fallback types.Project) (types.File, bool) {
	if owner != nil {
		if f, ok := owner.FileByPath(partPath); ok {
			return f, true
		}
	}
	if fallback != nil && (owner == nil || fallback.ID() != owner.ID()) {
		if f, ok := fallback.FileByPath(partPath); ok {
			return f, true
		}
	}
	return nil, false
}

// fileSet accumulates files deduplicated by identity, preserving insertion
// order so notifications are stable.
type fileSet struct {
	seen  map[types.FileID]struct{}
	files []types.File
}

func newFileSet() *fileSet {
	return &fileSet{seen: make(map[types.FileID]struct{})}
}

func (s *fileSet) add(f types.File) {
	if _, dup := s.seen[f.ID()]; dup {
		return
	}
	s.seen[f.ID()] = struct{}{}
	s.files = append(s.files, f)
}

func (s *fileSet) len() int {
	return len(s.files)
}

func (s *fileSet) ordered() []types.File {
	return s.files
}
