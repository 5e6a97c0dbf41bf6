package classindex

import (
	"context"
	"os"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/cbl/internal/debug"
	"github.com/standardbeagle/cbl/internal/types"
)

// classDef is an immutable snapshot of one class: its qualified name, its
// declaring project, and the sorted paths of every file declaring a part of
// it. Updates replace the snapshot instead of mutating it, so definitions
// already handed to listeners keep their shape.
type classDef struct {
	name    string
	project types.Project
	parts   []string
}

func (d *classDef) QualifiedName() string { return d.name }
func (d *classDef) PartPaths() []string   { return d.parts }

func (d *classDef) Project() types.Project {
	return d.project
}

// projectClasses holds one project's class tables.
type projectClasses struct {
	project types.Project
	byName  map[string]*classDef
	byFile  map[string][]string
}

func newProjectClasses(p types.Project) *projectClasses {
	return &projectClasses{
		project: p,
		byName:  make(map[string]*classDef),
		byFile:  make(map[string][]string),
	}
}

// Index maintains per-project class tables over parsed C# sources. It
// consumes host file and solution events, suppresses no-op updates by
// content hash, and emits one batched IndexChanged per observable update.
//
// Lookup methods take a read lock so diagnostics may run from other
// goroutines, but listeners are always invoked outside the lock on the
// caller's goroutine.
type Index struct {
	mu        sync.RWMutex
	extractor *Extractor
	cache     *lru.Cache[uint64, []ClassDecl]
	hashes    map[string]uint64
	projects  map[types.ProjectID]*projectClasses
	listeners []types.IndexListener

	maxFileSize int64
	parses      atomic.Uint64
	cacheHits   atomic.Uint64
}

// NewIndex creates an empty index with default limits.
func NewIndex() *Index {
	cache, err := lru.New[uint64, []ClassDecl](types.DefaultParseCacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant
		panic(err)
	}
	return &Index{
		extractor:   NewExtractor(),
		cache:       cache,
		hashes:      make(map[string]uint64),
		projects:    make(map[types.ProjectID]*projectClasses),
		maxFileSize: types.DefaultMaxFileSize,
	}
}

// SetMaxFileSize overrides the parse size limit. Files above the limit are
// treated as declaring nothing.
func (ix *Index) SetMaxFileSize(limit int64) {
	if limit > 0 {
		ix.maxFileSize = limit
	}
}

// AttachIndexListener implements types.IndexEvents.
func (ix *Index) AttachIndexListener(l types.IndexListener) {
	if l == nil {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, existing := range ix.listeners {
		if existing == l {
			return
		}
	}
	ix.listeners = append(ix.listeners, l)
}

// DetachIndexListener implements types.IndexEvents.
func (ix *Index) DetachIndexListener(l types.IndexListener) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, existing := range ix.listeners {
		if existing == l {
			ix.listeners = append(ix.listeners[:i], ix.listeners[i+1:]...)
			return
		}
	}
}

// ClassByName implements types.ClassIndex.
func (ix *Index) ClassByName(p types.Project, qualifiedName string) (types.ClassDef, bool) {
	if p == nil {
		return nil, false
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	pc, ok := ix.projects[p.ID()]
	if !ok {
		return nil, false
	}
	def, ok := pc.byName[qualifiedName]
	if !ok {
		return nil, false
	}
	return def, true
}

// ClassesInFile implements types.ClassIndex.
func (ix *Index) ClassesInFile(f types.File) []types.ClassDef {
	if f == nil || f.Project() == nil {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	pc, ok := ix.projects[f.Project().ID()]
	if !ok {
		return nil
	}
	names := pc.byFile[f.Path()]
	if len(names) == 0 {
		return nil
	}
	out := make([]types.ClassDef, 0, len(names))
	for _, name := range names {
		if def, ok := pc.byName[name]; ok {
			out = append(out, def)
		}
	}
	return out
}

// FileAdded implements types.FileListener.
func (ix *Index) FileAdded(f types.File) {
	ix.updateFile(f)
}

// FileChanged implements types.FileListener.
func (ix *Index) FileChanged(f types.File) {
	ix.updateFile(f)
}

// FileRemoved implements types.FileListener.
func (ix *Index) FileRemoved(f types.File) {
	if f == nil {
		return
	}
	change := ix.dropFile(f.Project(), f.Path())
	ix.fire(change)
}

// SolutionOpened implements types.SolutionListener. The initial build is
// silent: consumers attach before the solution opens and observe the built
// index when their own SolutionOpened callback runs.
func (ix *Index) SolutionOpened(s types.Solution) {
	if s == nil {
		return
	}
	ix.BuildSolution(context.Background(), s)
}

// SolutionClosed implements types.SolutionListener. Tables are dropped; the
// parse cache is content-keyed and survives for the next open.
func (ix *Index) SolutionClosed(s types.Solution) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.projects = make(map[types.ProjectID]*projectClasses)
	ix.hashes = make(map[string]uint64)
}

// BuildSolution parses every C# file in the solution with bounded
// parallelism and assembles the tables without emitting events.
func (ix *Index) BuildSolution(ctx context.Context, s types.Solution) {
	type job struct {
		project types.Project
		file    types.File
	}
	var jobs []job
	for _, p := range s.Projects() {
		for _, f := range p.Files() {
			if ix.extractor.CanHandle(f.Path()) {
				jobs = append(jobs, job{project: p, file: f})
			}
		}
	}
	if len(jobs) == 0 {
		return
	}

	type result struct {
		hash  uint64
		decls []ClassDecl
		ok    bool
	}
	results := make([]result, len(jobs))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, j := range jobs {
		g.Go(func() error {
			content, err := os.ReadFile(j.file.Path())
			if err != nil {
				debug.LogIndexing("skipping unreadable %s: %v\n", j.file.Path(), err)
				return nil
			}
			if int64(len(content)) > ix.maxFileSize {
				debug.LogIndexing("skipping oversized %s (%d bytes)\n", j.file.Path(), len(content))
				return nil
			}
			decls, perr := ix.parse(content)
			if perr != nil {
				debug.LogIndexing("parse failed for %s: %v\n", j.file.Path(), perr)
				return nil
			}
			results[i] = result{hash: xxhash.Sum64(content), decls: decls, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, j := range jobs {
		if !results[i].ok {
			continue
		}
		ix.hashes[j.file.Path()] = results[i].hash
		ix.applyLocked(j.project, j.file.Path(), results[i].decls, false)
	}
	debug.LogIndexing("built index for %s: %d files\n", s.Name(), len(jobs))
}

// updateFile re-parses one file and applies the declaration diff, emitting
// a single batched change. Unchanged content is a no-op.
func (ix *Index) updateFile(f types.File) {
	if f == nil {
		return
	}
	p := f.Project()
	if p == nil {
		return
	}
	path := f.Path()
	if !ix.extractor.CanHandle(path) {
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		// Unreadable counts as gone
		ix.fire(ix.dropFile(p, path))
		return
	}

	var decls []ClassDecl
	hash := xxhash.Sum64(content)
	if int64(len(content)) <= ix.maxFileSize {
		parsed, perr := ix.parse(content)
		if perr != nil {
			debug.LogIndexing("parse failed for %s: %v\n", path, perr)
			return
		}
		decls = parsed
	} else {
		debug.LogIndexing("oversized %s drops out of the index\n", path)
	}

	ix.mu.Lock()
	if prev, seen := ix.hashes[path]; seen && prev == hash {
		ix.mu.Unlock()
		return
	}
	ix.hashes[path] = hash
	change := ix.applyLocked(p, path, decls, false)
	ix.mu.Unlock()

	ix.fire(change)
}

// dropFile removes every declaration attributed to path. Emitted
// definitions never list the dropped path among their parts.
func (ix *Index) dropFile(p types.Project, path string) types.IndexChange {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.hashes, path)

	if p != nil {
		return ix.applyLocked(p, path, nil, true)
	}

	// Detached removal: find the owning table by path
	for _, pc := range ix.projects {
		if _, ok := pc.byFile[path]; ok {
			return ix.applyLocked(pc.project, path, nil, true)
		}
	}
	return types.IndexChange{}
}

// applyLocked diffs the new declaration set for path against the table and
// rewrites affected definitions copy-on-write. Callers hold the write lock.
// When pathGone is set, emitted removed definitions exclude the vanishing
// path so listeners never chase a file the model already dropped.
func (ix *Index) applyLocked(p types.Project, path string, decls []ClassDecl, pathGone bool) types.IndexChange {
	pc, ok := ix.projects[p.ID()]
	if !ok {
		pc = newProjectClasses(p)
		ix.projects[p.ID()] = pc
	}

	oldNames := pc.byFile[path]
	newNames := uniqueQualifiedNames(decls)

	change := types.IndexChange{Project: p}

	oldSet := make(map[string]struct{}, len(oldNames))
	for _, name := range oldNames {
		oldSet[name] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(newNames))
	for _, name := range newNames {
		newSet[name] = struct{}{}
	}

	// Departures: path no longer declares the class
	for _, name := range oldNames {
		if _, still := newSet[name]; still {
			continue
		}
		def, exists := pc.byName[name]
		if !exists {
			continue
		}
		remaining := withoutPath(def.parts, path)
		if len(remaining) == 0 {
			delete(pc.byName, name)
			removed := def
			if pathGone {
				removed = &classDef{name: def.name, project: def.project, parts: remaining}
			}
			change.Removed = append(change.Removed, removed)
		} else {
			next := &classDef{name: def.name, project: def.project, parts: remaining}
			pc.byName[name] = next
			change.Changed = append(change.Changed, next)
		}
	}

	// Arrivals: path now declares the class
	for _, name := range newNames {
		if _, had := oldSet[name]; had {
			continue
		}
		if def, exists := pc.byName[name]; exists {
			next := &classDef{name: def.name, project: def.project, parts: withPath(def.parts, path)}
			pc.byName[name] = next
			change.Changed = append(change.Changed, next)
		} else {
			next := &classDef{name: name, project: p, parts: []string{path}}
			pc.byName[name] = next
			change.Added = append(change.Added, next)
		}
	}

	if len(newNames) == 0 {
		delete(pc.byFile, path)
	} else {
		pc.byFile[path] = newNames
	}

	return change
}

// parse runs the extractor behind the content-hash cache.
func (ix *Index) parse(content []byte) ([]ClassDecl, error) {
	key := xxhash.Sum64(content)
	if cached, ok := ix.cache.Get(key); ok {
		ix.cacheHits.Add(1)
		return cached, nil
	}
	decls, err := ix.extractor.Extract(content)
	if err != nil {
		return nil, err
	}
	ix.parses.Add(1)
	ix.cache.Add(key, decls)
	return decls, nil
}

// fire dispatches a non-empty change to a snapshot of the listener list.
func (ix *Index) fire(change types.IndexChange) {
	if len(change.Added) == 0 && len(change.Changed) == 0 && len(change.Removed) == 0 {
		return
	}
	ix.mu.RLock()
	listeners := make([]types.IndexListener, len(ix.listeners))
	copy(listeners, ix.listeners)
	ix.mu.RUnlock()

	for _, l := range listeners {
		l.IndexChanged(change)
	}
}

// Stats returns index metrics for diagnostics.
func (ix *Index) Stats() map[string]interface{} {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	classes := 0
	files := 0
	for _, pc := range ix.projects {
		classes += len(pc.byName)
		files += len(pc.byFile)
	}
	return map[string]interface{}{
		"projects":   len(ix.projects),
		"classes":    classes,
		"files":      files,
		"parses":     ix.parses.Load(),
		"cache_hits": ix.cacheHits.Load(),
	}
}

// uniqueQualifiedNames flattens declarations to deduplicated qualified
// names, preserving first-seen order. Partial declarations of the same class
// within one file collapse to a single name.
func uniqueQualifiedNames(decls []ClassDecl) []string {
	if len(decls) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(decls))
	out := make([]string, 0, len(decls))
	for _, d := range decls {
		name := d.QualifiedName()
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// withoutPath returns parts minus path, preserving order.
func withoutPath(parts []string, path string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != path {
			out = append(out, p)
		}
	}
	return out
}

// withPath returns parts plus path, sorted and deduplicated.
func withPath(parts []string, path string) []string {
	out := make([]string, 0, len(parts)+1)
	out = append(out, parts...)
	for _, p := range parts {
		if p == path {
			return out
		}
	}
	out = append(out, path)
	sort.Strings(out)
	return out
}
