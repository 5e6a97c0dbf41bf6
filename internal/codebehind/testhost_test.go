package codebehind

import (
	"testing"

	"github.com/standardbeagle/cbl/internal/types"
)

// The fakes below stand in for the host model: files, projects, solutions,
// the class index, and the three event streams. Tests drive them directly
// and assert on what the tracker observes.

type fakeFile struct {
	id   types.FileID
	path string
	proj *fakeProject
}

func (f *fakeFile) ID() types.FileID { return f.id }
func (f *fakeFile) Path() string     { return f.path }

func (f *fakeFile) Project() types.Project {
	if f.proj == nil {
		return nil
	}
	return f.proj
}

type fakeProject struct {
	id    types.ProjectID
	name  string
	files []*fakeFile
}

func (p *fakeProject) ID() types.ProjectID { return p.id }
func (p *fakeProject) Name() string        { return p.name }

func (p *fakeProject) Files() []types.File {
	out := make([]types.File, 0, len(p.files))
	for _, f := range p.files {
		out = append(out, f)
	}
	return out
}

func (p *fakeProject) FileByPath(path string) (types.File, bool) {
	for _, f := range p.files {
		if f.path == path {
			return f, true
		}
	}
	return nil, false
}

// addFile creates a file in the project's table without firing events.
func (p *fakeProject) addFile(id types.FileID, path string) *fakeFile {
	f := &fakeFile{id: id, path: path, proj: p}
	p.files = append(p.files, f)
	return f
}

// dropFile removes the file from the table but leaves its project reference
// intact, matching a host that delivers the removal event while the handle
// is still attached.
func (p *fakeProject) dropFile(f *fakeFile) {
	for i, existing := range p.files {
		if existing == f {
			p.files = append(p.files[:i], p.files[i+1:]...)
			return
		}
	}
}

type fakeSolution struct {
	name     string
	projects []*fakeProject
}

func (s *fakeSolution) Name() string { return s.name }

func (s *fakeSolution) Projects() []types.Project {
	out := make([]types.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	return out
}

type fakeDef struct {
	name  string
	proj  *fakeProject
	parts []string
}

func (d *fakeDef) QualifiedName() string { return d.name }
func (d *fakeDef) PartPaths() []string   { return d.parts }

func (d *fakeDef) Project() types.Project {
	if d.proj == nil {
		return nil
	}
	return d.proj
}

type fakeIndex struct {
	defs []*fakeDef
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{}
}

func (ix *fakeIndex) addClass(p *fakeProject, name string, parts ...string) *fakeDef {
	def := &fakeDef{name: name, proj: p, parts: parts}
	ix.defs = append(ix.defs, def)
	return def
}

func (ix *fakeIndex) removeClass(def *fakeDef) {
	for i, existing := range ix.defs {
		if existing == def {
			ix.defs = append(ix.defs[:i], ix.defs[i+1:]...)
			return
		}
	}
}

func (ix *fakeIndex) ClassByName(p types.Project, name string) (types.ClassDef, bool) {
	for _, def := range ix.defs {
		if def.name != name {
			continue
		}
		if def.proj != nil && p != nil && def.proj.ID() != p.ID() {
			continue
		}
		return def, true
	}
	return nil, false
}

func (ix *fakeIndex) ClassesInFile(f types.File) []types.ClassDef {
	var out []types.ClassDef
	for _, def := range ix.defs {
		for _, part := range def.parts {
			if part == f.Path() {
				out = append(out, def)
				break
			}
		}
	}
	return out
}

// fakeModel implements the three event source interfaces and fans fired
// events out to attached listeners, the way a host dispatch loop would.
type fakeModel struct {
	fileListeners     []types.FileListener
	solutionListeners []types.SolutionListener
	indexListeners    []types.IndexListener
}

func (m *fakeModel) AttachFileListener(l types.FileListener) {
	m.fileListeners = append(m.fileListeners, l)
}

func (m *fakeModel) DetachFileListener(l types.FileListener) {
	for i, existing := range m.fileListeners {
		if existing == l {
			m.fileListeners = append(m.fileListeners[:i], m.fileListeners[i+1:]...)
			return
		}
	}
}

func (m *fakeModel) AttachSolutionListener(l types.SolutionListener) {
	m.solutionListeners = append(m.solutionListeners, l)
}

func (m *fakeModel) DetachSolutionListener(l types.SolutionListener) {
	for i, existing := range m.solutionListeners {
		if existing == l {
			m.solutionListeners = append(m.solutionListeners[:i], m.solutionListeners[i+1:]...)
			return
		}
	}
}

func (m *fakeModel) AttachIndexListener(l types.IndexListener) {
	m.indexListeners = append(m.indexListeners, l)
}

func (m *fakeModel) DetachIndexListener(l types.IndexListener) {
	for i, existing := range m.indexListeners {
		if existing == l {
			m.indexListeners = append(m.indexListeners[:i], m.indexListeners[i+1:]...)
			return
		}
	}
}

func (m *fakeModel) fireFileAdded(f types.File) {
	for _, l := range m.fileListeners {
		l.FileAdded(f)
	}
}

func (m *fakeModel) fireFileChanged(f types.File) {
	for _, l := range m.fileListeners {
		l.FileChanged(f)
	}
}

func (m *fakeModel) fireFileRemoved(f types.File) {
	for _, l := range m.fileListeners {
		l.FileRemoved(f)
	}
}

func (m *fakeModel) fireSolutionOpened(s types.Solution) {
	for _, l := range m.solutionListeners {
		l.SolutionOpened(s)
	}
}

func (m *fakeModel) fireSolutionClosed(s types.Solution) {
	for _, l := range m.solutionListeners {
		l.SolutionClosed(s)
	}
}

func (m *fakeModel) fireIndexChanged(change types.IndexChange) {
	for _, l := range m.indexListeners {
		l.IndexChanged(change)
	}
}

// pathProvider resolves class names from a fixed path table.
type pathProvider struct {
	byPath map[string]string
}

func newPathProvider() *pathProvider {
	return &pathProvider{byPath: make(map[string]string)}
}

func (p *pathProvider) bind(path, name string) *pathProvider {
	p.byPath[path] = name
	return p
}

func (p *pathProvider) unbind(path string) {
	delete(p.byPath, path)
}

func (p *pathProvider) Resolve(f types.File) (string, bool) {
	name, ok := p.byPath[f.Path()]
	return name, ok
}

// recordingSubscriber captures every change notification in order.
type recordingSubscriber struct {
	changes []Change
}

func (r *recordingSubscriber) BindingsChanged(c Change) {
	r.changes = append(r.changes, c)
}

func (r *recordingSubscriber) reset() {
	r.changes = nil
}

func (r *recordingSubscriber) last() Change {
	return r.changes[len(r.changes)-1]
}

// fixture assembles a tracker over the fakes with one project open.
type fixture struct {
	model    *fakeModel
	index    *fakeIndex
	tracker  *Tracker
	sub      *recordingSubscriber
	solution *fakeSolution
	project  *fakeProject
}

// newFixture builds a started tracker with a registered path provider and an
// open single-project solution. Tests populate the index and provider before
// firing events.
func newFixture(t *testing.T) (*fixture, *pathProvider) {
	t.Helper()

	index := newFakeIndex()
	model := &fakeModel{}
	tracker := NewTracker(Host{
		Classes:   index,
		Files:     model,
		Solutions: model,
		Indexes:   model,
	})

	provider := newPathProvider()
	if err := tracker.RegisterProvider(provider); err != nil {
		t.Fatalf("registering provider: %v", err)
	}

	sub := &recordingSubscriber{}
	tracker.AttachSubscriber(sub)
	tracker.Start()
	t.Cleanup(tracker.Stop)

	project := &fakeProject{id: 1, name: "App"}
	solution := &fakeSolution{name: "App.sln", projects: []*fakeProject{project}}

	return &fixture{
		model:    model,
		index:    index,
		tracker:  tracker,
		sub:      sub,
		solution: solution,
		project:  project,
	}, provider
}

// paths extracts the path list from files for compact assertions.
func paths(files []types.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path())
	}
	return out
}
