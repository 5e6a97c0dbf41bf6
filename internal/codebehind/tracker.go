package codebehind

import (
	"github.com/standardbeagle/cbl/internal/debug"
	"github.com/standardbeagle/cbl/internal/types"
)

// Host bundles the external collaborators a Tracker observes. Classes
// answers lookups; the event interfaces feed mutations. Any event source may
// be nil when the host does not produce that stream.
type Host struct {
	Classes   types.ClassIndex
	Files     types.FileEvents
	Solutions types.SolutionEvents
	Indexes   types.IndexEvents
}

// Tracker maintains codebehind bindings for the currently open solution by
// reacting to host file, solution, and class-index events. Construct one per
// workspace, register providers, then Start it.
//
// All callbacks run synchronously on the host's dispatch goroutine. The
// tracker takes no locks and never blocks; affected-file lists are fully
// built before subscribers are notified, so re-entrant queries observe a
// consistent store.
type Tracker struct {
	host Host

	store *BindingStore
	chain *ProviderChain
	rec   *Reconciler

	subscribers []Subscriber
	solution    types.Solution
	started     bool
}

// NewTracker wires a tracker against a host model.
func NewTracker(host Host) *Tracker {
	t := &Tracker{
		host:  host,
		store: NewBindingStore(),
		chain: NewProviderChain(),
	}
	t.rec = NewReconciler(t.store, t.chain, host.Classes, t.emit)
	return t
}

// Start attaches the tracker to every event source. Starting twice is a
// no-op.
func (t *Tracker) Start() {
	if t.started {
		return
	}
	t.started = true
	if t.host.Files != nil {
		t.host.Files.AttachFileListener(t)
	}
	if t.host.Solutions != nil {
		t.host.Solutions.AttachSolutionListener(t)
	}
	if t.host.Indexes != nil {
		t.host.Indexes.AttachIndexListener(t)
	}
}

// Stop detaches the tracker from every event source. Stopping is idempotent
// and always detaches all sources, including any that were never attached.
func (t *Tracker) Stop() {
	if !t.started {
		return
	}
	t.started = false
	if t.host.Files != nil {
		t.host.Files.DetachFileListener(t)
	}
	if t.host.Solutions != nil {
		t.host.Solutions.DetachSolutionListener(t)
	}
	if t.host.Indexes != nil {
		t.host.Indexes.DetachIndexListener(t)
	}
}

// RegisterProvider appends p to the resolution chain. Changing the chain
// invalidates every resolution, so the open solution's bindings are cleared
// without notifications and every project is rescanned against the new
// chain.
func (t *Tracker) RegisterProvider(p Provider) error {
	if err := t.chain.Register(p); err != nil {
		return err
	}
	t.rebindAll()
	return nil
}

// UnregisterProvider removes p from the chain and reports whether it was
// registered. Removal invalidates bindings the same way registration does.
func (t *Tracker) UnregisterProvider(p Provider) bool {
	if !t.chain.Unregister(p) {
		return false
	}
	t.rebindAll()
	return true
}

// rebindAll drops every binding silently and rebuilds from scratch.
func (t *Tracker) rebindAll() {
	if t.solution == nil {
		return
	}
	t.store.RemoveAll(func(types.File) bool { return true })
	for _, p := range t.solution.Projects() {
		t.rec.RescanProject(p)
	}
}

// AttachSubscriber registers s for binding-change notifications. Attaching
// the same subscriber twice has no additional effect; nil is ignored.
func (t *Tracker) AttachSubscriber(s Subscriber) {
	if s == nil {
		return
	}
	for _, existing := range t.subscribers {
		if existing == s {
			return
		}
	}
	t.subscribers = append(t.subscribers, s)
}

// DetachSubscriber removes s. Detaching an unknown subscriber is a no-op.
func (t *Tracker) DetachSubscriber(s Subscriber) {
	for i, existing := range t.subscribers {
		if existing == s {
			t.subscribers = append(t.subscribers[:i], t.subscribers[i+1:]...)
			return
		}
	}
}

// emit dispatches change to a snapshot of the subscriber list so subscribers
// may attach or detach during dispatch.
func (t *Tracker) emit(change Change) {
	if len(t.subscribers) == 0 {
		return
	}
	subs := make([]Subscriber, len(t.subscribers))
	copy(subs, t.subscribers)
	for _, s := range subs {
		s.BindingsChanged(change)
	}
}

// FileAdded implements types.FileListener.
func (t *Tracker) FileAdded(f types.File) {
	t.rec.ReconcileFile(f)
}

// FileChanged implements types.FileListener.
func (t *Tracker) FileChanged(f types.File) {
	t.rec.ReconcileFile(f)
}

// FileRemoved implements types.FileListener. A removed file no longer
// matches any provider, so reconciliation drops its binding and reports the
// departing class's parts.
func (t *Tracker) FileRemoved(f types.File) {
	t.rec.ReconcileFile(f)
}

// SolutionOpened implements types.SolutionListener.
func (t *Tracker) SolutionOpened(s types.Solution) {
	t.solution = s
	for _, p := range s.Projects() {
		t.rec.RescanProject(p)
	}
}

// SolutionClosed implements types.SolutionListener. Every binding belonging
// to the closing solution is dropped silently; subscribers get no per-file
// notifications for a teardown.
func (t *Tracker) SolutionClosed(s types.Solution) {
	ids := make(map[types.ProjectID]struct{})
	for _, p := range s.Projects() {
		ids[p.ID()] = struct{}{}
	}
	removed := t.store.RemoveAll(func(f types.File) bool {
		p := f.Project()
		if p == nil {
			// Detached files never outlive their solution.
			return true
		}
		_, ok := ids[p.ID()]
		return ok
	})
	debug.LogBinding("solution %s closed, dropped %d bindings\n", s.Name(), removed)
	if t.solution == s {
		t.solution = nil
	}
}

// IndexChanged implements types.IndexListener. Changed classes count as
// added under their current shape; updates for projects outside the open
// solution are ignored.
func (t *Tracker) IndexChanged(change types.IndexChange) {
	if !t.inOpenSolution(change.Project) {
		return
	}
	added := change.Added
	if len(change.Changed) > 0 {
		added = make([]types.ClassDef, 0, len(change.Added)+len(change.Changed))
		added = append(added, change.Added...)
		added = append(added, change.Changed...)
	}
	t.rec.HandleIndexChange(change.Project, added, change.Removed)
}

func (t *Tracker) inOpenSolution(p types.Project) bool {
	if p == nil || t.solution == nil {
		return false
	}
	for _, open := range t.solution.Projects() {
		if open.ID() == p.ID() {
			return true
		}
	}
	return false
}

// Solution returns the currently open solution, or nil.
func (t *Tracker) Solution() types.Solution {
	return t.solution
}

// Bindings returns a snapshot of the current bindings.
func (t *Tracker) Bindings() []Binding {
	return t.store.All()
}

// Stats returns tracker metrics for diagnostics.
func (t *Tracker) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"bindings":    t.store.Len(),
		"providers":   t.chain.Len(),
		"subscribers": len(t.subscribers),
		"started":     t.started,
	}
	if t.solution != nil {
		stats["solution"] = t.solution.Name()
		stats["projects"] = len(t.solution.Projects())
	}
	return stats
}
