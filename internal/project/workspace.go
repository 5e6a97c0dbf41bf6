package project

import (
	"path/filepath"
	"sync"

	"github.com/standardbeagle/cbl/internal/debug"
	"github.com/standardbeagle/cbl/internal/types"
)

// Workspace owns the open solution and fans file and solution events out to
// attached listeners. All mutations normally arrive from one goroutine (the
// watch flush loop or the CLI); the mutex makes concurrent reads from
// diagnostics safe, and listeners are always invoked with no lock held so
// they can re-enter the workspace.
type Workspace struct {
	mu            sync.RWMutex
	nextFileID    types.FileID
	nextProjectID types.ProjectID
	solution      *Solution
	filesByPath   map[string]*File

	fileListeners     []types.FileListener
	solutionListeners []types.SolutionListener
}

// NewWorkspace creates an empty workspace with no open solution.
func NewWorkspace() *Workspace {
	return &Workspace{}
}

// AttachFileListener implements types.FileEvents.
func (w *Workspace) AttachFileListener(l types.FileListener) {
	if l == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.fileListeners {
		if existing == l {
			return
		}
	}
	w.fileListeners = append(w.fileListeners, l)
}

// DetachFileListener implements types.FileEvents.
func (w *Workspace) DetachFileListener(l types.FileListener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, existing := range w.fileListeners {
		if existing == l {
			w.fileListeners = append(w.fileListeners[:i], w.fileListeners[i+1:]...)
			return
		}
	}
}

// AttachSolutionListener implements types.SolutionEvents.
func (w *Workspace) AttachSolutionListener(l types.SolutionListener) {
	if l == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.solutionListeners {
		if existing == l {
			return
		}
	}
	w.solutionListeners = append(w.solutionListeners, l)
}

// DetachSolutionListener implements types.SolutionEvents.
func (w *Workspace) DetachSolutionListener(l types.SolutionListener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, existing := range w.solutionListeners {
		if existing == l {
			w.solutionListeners = append(w.solutionListeners[:i], w.solutionListeners[i+1:]...)
			return
		}
	}
}

// Solution returns the open solution, nil when none is open.
func (w *Workspace) Solution() *Solution {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.solution
}

// FileByPath resolves a path against the open solution.
func (w *Workspace) FileByPath(path string) (types.File, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	f, ok := w.filesByPath[filepath.Clean(path)]
	if !ok {
		return nil, false
	}
	return f, true
}

// OpenSolution publishes s as the open solution and notifies listeners. An
// already-open solution is closed first.
func (w *Workspace) OpenSolution(s *Solution) {
	if s == nil {
		return
	}
	w.CloseSolution()

	byPath := make(map[string]*File)
	for _, p := range s.projects {
		for _, f := range p.files {
			byPath[f.path] = f
		}
	}

	w.mu.Lock()
	w.solution = s
	w.filesByPath = byPath
	w.mu.Unlock()

	debug.LogScan("opened %s: %d projects, %d files\n", s.Name(), len(s.projects), len(byPath))
	for _, l := range w.snapshotSolutionListeners() {
		l.SolutionOpened(s)
	}
}

// CloseSolution drops the open solution, notifying listeners. File handles
// from the closed solution keep their project backrefs; they simply stop
// resolving through the workspace.
func (w *Workspace) CloseSolution() {
	w.mu.Lock()
	s := w.solution
	w.solution = nil
	w.filesByPath = nil
	w.mu.Unlock()

	if s == nil {
		return
	}
	debug.LogScan("closed %s\n", s.Name())
	for _, l := range w.snapshotSolutionListeners() {
		l.SolutionClosed(s)
	}
}

// AddFile brings path into the model and announces it. The path must fall
// under some project root; files nobody claims are ignored. A path already
// in the model is treated as changed.
func (w *Workspace) AddFile(path string) (types.File, bool) {
	path = filepath.Clean(path)

	w.mu.Lock()
	if w.solution == nil {
		w.mu.Unlock()
		return nil, false
	}
	if existing, ok := w.filesByPath[path]; ok {
		w.mu.Unlock()
		w.dispatchChanged(existing)
		return existing, true
	}
	proj := w.solution.ProjectFor(path)
	if proj == nil {
		w.mu.Unlock()
		debug.LogScan("no project claims %s\n", path)
		return nil, false
	}
	w.nextFileID++
	f := &File{id: w.nextFileID, path: path}
	proj.attach(f)
	w.filesByPath[path] = f
	w.mu.Unlock()

	for _, l := range w.snapshotFileListeners() {
		l.FileAdded(f)
	}
	return f, true
}

// ChangeFile announces a content change for path. Unknown paths fall back
// to AddFile, since a watcher can report writes to files created before the
// watch started.
func (w *Workspace) ChangeFile(path string) (types.File, bool) {
	path = filepath.Clean(path)

	w.mu.RLock()
	f, ok := w.filesByPath[path]
	w.mu.RUnlock()
	if !ok {
		return w.AddFile(path)
	}
	w.dispatchChanged(f)
	return f, true
}

// RemoveFile takes path out of the model. Listeners observe the file still
// attached to its project; the backref is cleared after they return, so
// retained handles read as detached from then on.
func (w *Workspace) RemoveFile(path string) bool {
	path = filepath.Clean(path)

	w.mu.Lock()
	f, ok := w.filesByPath[path]
	if !ok {
		w.mu.Unlock()
		return false
	}
	delete(w.filesByPath, path)
	if f.proj != nil {
		f.proj.detach(f)
	}
	w.mu.Unlock()

	for _, l := range w.snapshotFileListeners() {
		l.FileRemoved(f)
	}

	w.mu.Lock()
	f.proj = nil
	w.mu.Unlock()
	return true
}

// Stats returns workspace metrics for diagnostics.
func (w *Workspace) Stats() map[string]interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := map[string]interface{}{
		"files":              len(w.filesByPath),
		"file_listeners":     len(w.fileListeners),
		"solution_listeners": len(w.solutionListeners),
	}
	if w.solution != nil {
		stats["solution"] = w.solution.Name()
		stats["projects"] = len(w.solution.projects)
	}
	return stats
}

func (w *Workspace) dispatchChanged(f *File) {
	for _, l := range w.snapshotFileListeners() {
		l.FileChanged(f)
	}
}

func (w *Workspace) snapshotFileListeners() []types.FileListener {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]types.FileListener, len(w.fileListeners))
	copy(out, w.fileListeners)
	return out
}

func (w *Workspace) snapshotSolutionListeners() []types.SolutionListener {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]types.SolutionListener, len(w.solutionListeners))
	copy(out, w.solutionListeners)
	return out
}

func (w *Workspace) allocProjectID() types.ProjectID {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextProjectID++
	return w.nextProjectID
}

func (w *Workspace) allocFileID() types.FileID {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextFileID++
	return w.nextFileID
}
