package codebehind_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/cbl/internal/classindex"
	"github.com/standardbeagle/cbl/internal/codebehind"
	"github.com/standardbeagle/cbl/internal/project"
	"github.com/standardbeagle/cbl/internal/providers"
	"github.com/standardbeagle/cbl/internal/types"
	"github.com/standardbeagle/cbl/testhelpers"
)

// fixture wires the real stack over a directory tree: workspace, scanner,
// class index and tracker, attached in the same order the CLI wires them.
type fixture struct {
	ws      *project.Workspace
	scanner *project.Scanner
	index   *classindex.Index
	tracker *codebehind.Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ws := project.NewWorkspace()
	sc := project.NewScanner(ws, project.DefaultScanOptions())

	ix := classindex.NewIndex()
	ws.AttachFileListener(ix)
	ws.AttachSolutionListener(ix)

	tracker := codebehind.NewTracker(codebehind.Host{
		Classes:   ix,
		Files:     ws,
		Solutions: ws,
		Indexes:   ix,
	})
	tracker.Start()
	t.Cleanup(tracker.Stop)

	return &fixture{ws: ws, scanner: sc, index: ix, tracker: tracker}
}

func (fx *fixture) registerDefaultProviders(t *testing.T) {
	t.Helper()
	require.NoError(t, fx.tracker.RegisterProvider(providers.NewDesignerSibling(fx.index)))
	require.NoError(t, fx.tracker.RegisterProvider(providers.NewXamlSibling(fx.index)))
	require.NoError(t, fx.tracker.RegisterProvider(providers.NewPartialClass(fx.index)))
}

func (fx *fixture) open(t *testing.T, root string) {
	t.Helper()
	sol, err := fx.scanner.Scan(root)
	require.NoError(t, err)
	fx.ws.OpenSolution(sol)
}

func (fx *fixture) file(t *testing.T, root string, rel string) types.File {
	t.Helper()
	f, ok := fx.ws.FileByPath(filepath.Join(root, filepath.FromSlash(rel)))
	require.True(t, ok, "file %s not in workspace", rel)
	return f
}

// changeLog records binding-change notifications.
type changeLog struct {
	changes []codebehind.Change
}

func (cl *changeLog) BindingsChanged(c codebehind.Change) {
	cl.changes = append(cl.changes, c)
}

func (cl *changeLog) parentPaths() []string {
	var paths []string
	for _, c := range cl.changes {
		for _, p := range c.Parents {
			paths = append(paths, p.Path())
		}
	}
	return paths
}

func (cl *changeLog) reset() {
	cl.changes = nil
}

func buildAppTree(t *testing.T) string {
	t.Helper()
	sb := testhelpers.NewSolutionBuilder(t.TempDir()).
		AddSolutionFile("App").
		AddProject("App", "App").
		AddForm("App", "App", "Form1").
		AddWindow("App/Views", "App.Views", "MainWindow")
	require.NoError(t, sb.Err())
	return sb.Root()
}

func TestEndToEnd_OpenSolutionBindings(t *testing.T) {
	root := buildAppTree(t)
	fx := newFixture(t)
	fx.registerDefaultProviders(t)
	fx.open(t, root)

	// Form1.cs binds through its designer sibling, the designer file binds
	// through the partial fallback, and the window codebehind binds through
	// its markup sibling.
	assert.Len(t, fx.tracker.Bindings(), 3)

	form := fx.file(t, root, "App/Form1.cs")
	handle, ok := fx.tracker.ChildClass(form)
	require.True(t, ok)
	assert.Equal(t, "App.Form1", handle.Name)
	require.True(t, handle.Resolved())

	children := fx.tracker.Children(form, handle.Def)
	require.Len(t, children, 1)
	assert.Equal(t, filepath.Join(root, "App", "Form1.Designer.cs"), children[0].Path())

	window := fx.file(t, root, "App/Views/MainWindow.xaml.cs")
	handle, ok = fx.tracker.ChildClass(window)
	require.True(t, ok)
	assert.Equal(t, "App.Views.MainWindow", handle.Name)
	assert.False(t, fx.tracker.HasChildren(window))

	markup := fx.file(t, root, "App/Views/MainWindow.xaml")
	_, ok = fx.tracker.ChildClass(markup)
	assert.False(t, ok)

	designer := fx.file(t, root, "App/Form1.Designer.cs")
	assert.True(t, fx.tracker.ContainsCodeBehind(designer))
}

func TestEndToEnd_DesignerRemovalThenParentTouch(t *testing.T) {
	root := buildAppTree(t)
	fx := newFixture(t)
	fx.registerDefaultProviders(t)
	fx.open(t, root)

	form := fx.file(t, root, "App/Form1.cs")
	log := &changeLog{}
	fx.tracker.AttachSubscriber(log)

	designerPath := filepath.Join(root, "App", "Form1.Designer.cs")
	require.True(t, fx.ws.RemoveFile(designerPath))

	// The designer's own binding dissolves with its removal event. The form
	// keeps its binding, now pointing at a class that lost a part, and the
	// index-change batch reports it as affected.
	handle, ok := fx.tracker.ChildClass(form)
	require.True(t, ok)
	assert.Equal(t, "App.Form1", handle.Name)
	assert.False(t, fx.tracker.HasChildren(form))
	assert.Contains(t, log.parentPaths(), form.Path())
	assert.Contains(t, log.parentPaths(), designerPath)

	// The next event on the form itself re-resolves it: no sibling, no
	// second part, no provider match.
	_, changed := fx.ws.ChangeFile(form.Path())
	require.True(t, changed)
	_, ok = fx.tracker.ChildClass(form)
	assert.False(t, ok)
}

func TestEndToEnd_AddedPairBindsIncrementally(t *testing.T) {
	root := buildAppTree(t)
	fx := newFixture(t)
	fx.registerDefaultProviders(t)
	fx.open(t, root)

	sb := testhelpers.NewSolutionBuilder(root).AddForm("App", "App", "Form2")
	require.NoError(t, sb.Err())

	formPath := filepath.Join(root, "App", "Form2.cs")
	designerPath := filepath.Join(root, "App", "Form2.Designer.cs")

	// The designer half alone declares a single-part class, so no provider
	// matches it yet.
	_, added := fx.ws.AddFile(designerPath)
	require.True(t, added)
	designer := fx.file(t, root, "App/Form2.Designer.cs")
	_, ok := fx.tracker.ChildClass(designer)
	assert.False(t, ok)

	// The user half binds as soon as it arrives: the class index already
	// holds both parts by the time the binding reconciles.
	_, added = fx.ws.AddFile(formPath)
	require.True(t, added)
	form := fx.file(t, root, "App/Form2.cs")

	handle, ok := fx.tracker.ChildClass(form)
	require.True(t, ok)
	assert.Equal(t, "App.Form2", handle.Name)
	require.True(t, handle.Resolved())
	children := fx.tracker.Children(form, handle.Def)
	require.Len(t, children, 1)
	assert.Equal(t, designerPath, children[0].Path())

	// The designer becomes a parent in its own right on its next event.
	_, changed := fx.ws.ChangeFile(designerPath)
	require.True(t, changed)
	handle, ok = fx.tracker.ChildClass(designer)
	require.True(t, ok)
	assert.Equal(t, "App.Form2", handle.Name)
}

func TestEndToEnd_CloseSolutionClearsBindings(t *testing.T) {
	root := buildAppTree(t)
	fx := newFixture(t)
	fx.registerDefaultProviders(t)
	fx.open(t, root)

	form := fx.file(t, root, "App/Form1.cs")
	require.NotEmpty(t, fx.tracker.Bindings())

	fx.ws.CloseSolution()

	assert.Empty(t, fx.tracker.Bindings())
	_, ok := fx.tracker.ChildClass(form)
	assert.False(t, ok)
}

func TestEndToEnd_ProviderChangeRebuildsBindings(t *testing.T) {
	root := buildAppTree(t)
	fx := newFixture(t)
	fx.open(t, root)

	assert.Empty(t, fx.tracker.Bindings(), "no providers, no bindings")

	log := &changeLog{}
	fx.tracker.AttachSubscriber(log)

	// Registration rescans the open solution; the bindings it creates
	// notify like any other reconciliation.
	designer := providers.NewDesignerSibling(fx.index)
	require.NoError(t, fx.tracker.RegisterProvider(designer))

	form := fx.file(t, root, "App/Form1.cs")
	handle, ok := fx.tracker.ChildClass(form)
	require.True(t, ok)
	assert.Equal(t, "App.Form1", handle.Name)
	assert.Contains(t, log.parentPaths(), form.Path())

	// Unregistering tears the bindings down without notifications: nothing
	// is left for the rescan to recreate, and the clear itself is silent.
	log.reset()
	require.True(t, fx.tracker.UnregisterProvider(designer))
	assert.Empty(t, fx.tracker.Bindings())
	assert.Empty(t, log.changes)
}
