package project

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/cbl/internal/types"
)

type fileEvent struct {
	kind     string
	path     string
	attached bool
}

type recordingFileListener struct {
	events []fileEvent
}

func (r *recordingFileListener) record(kind string, f types.File) {
	r.events = append(r.events, fileEvent{kind: kind, path: f.Path(), attached: f.Project() != nil})
}

func (r *recordingFileListener) FileAdded(f types.File)   { r.record("added", f) }
func (r *recordingFileListener) FileChanged(f types.File) { r.record("changed", f) }
func (r *recordingFileListener) FileRemoved(f types.File) { r.record("removed", f) }

func (r *recordingFileListener) reset() { r.events = nil }

type recordingSolutionListener struct {
	opened []string
	closed []string
}

func (r *recordingSolutionListener) SolutionOpened(s types.Solution) {
	r.opened = append(r.opened, s.Name())
}

func (r *recordingSolutionListener) SolutionClosed(s types.Solution) {
	r.closed = append(r.closed, s.Name())
}

// scanFixture scans a small project tree and returns the pieces.
func scanFixture(t *testing.T) (*Workspace, *Scanner, *Solution, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "App.sln", "")
	writeFile(t, root, "App/App.csproj", "<Project/>")
	writeFile(t, root, "App/Form1.cs", "class Form1 {}")

	ws := NewWorkspace()
	sc := NewScanner(ws, DefaultScanOptions())
	sol, err := sc.Scan(root)
	require.NoError(t, err)
	return ws, sc, sol, root
}

func TestWorkspace_OpenSolutionNotifies(t *testing.T) {
	ws, _, sol, _ := scanFixture(t)
	listener := &recordingSolutionListener{}
	ws.AttachSolutionListener(listener)

	ws.OpenSolution(sol)

	assert.Equal(t, []string{"App"}, listener.opened)
	assert.Empty(t, listener.closed)
	assert.Equal(t, sol, ws.Solution())
}

// TestWorkspace_OpenReplacesOpen tests that opening while a solution is
// already open closes the first before announcing the second.
func TestWorkspace_OpenReplacesOpen(t *testing.T) {
	ws, _, first, _ := scanFixture(t)
	listener := &recordingSolutionListener{}
	ws.AttachSolutionListener(listener)
	ws.OpenSolution(first)

	other := t.TempDir()
	writeFile(t, other, "Second.sln", "")
	writeFile(t, other, "Lib/Lib.csproj", "<Project/>")
	sc := NewScanner(ws, DefaultScanOptions())
	second, err := sc.Scan(other)
	require.NoError(t, err)

	ws.OpenSolution(second)

	assert.Equal(t, []string{"App", "Second"}, listener.opened)
	assert.Equal(t, []string{"App"}, listener.closed)
	assert.Equal(t, second, ws.Solution())
}

func TestWorkspace_CloseSolution(t *testing.T) {
	ws, _, sol, root := scanFixture(t)
	listener := &recordingSolutionListener{}
	ws.AttachSolutionListener(listener)
	ws.OpenSolution(sol)

	ws.CloseSolution()

	assert.Equal(t, []string{"App"}, listener.closed)
	assert.Nil(t, ws.Solution())

	_, ok := ws.FileByPath(filepath.Join(root, "App", "Form1.cs"))
	assert.False(t, ok)

	// Closing again is a no-op
	ws.CloseSolution()
	assert.Equal(t, []string{"App"}, listener.closed)
}

// TestWorkspace_AddChangeRemoveFile tests the full file lifecycle as the
// listener sees it, including the detach-after-dispatch removal contract.
func TestWorkspace_AddChangeRemoveFile(t *testing.T) {
	ws, _, sol, root := scanFixture(t)
	listener := &recordingFileListener{}
	ws.AttachFileListener(listener)
	ws.OpenSolution(sol)

	path := writeFile(t, root, "App/Form2.cs", "class Form2 {}")
	f, ok := ws.AddFile(path)
	require.True(t, ok)
	assert.Equal(t, path, f.Path())
	assert.NotNil(t, f.Project())

	got, ok := ws.FileByPath(path)
	require.True(t, ok)
	assert.Equal(t, f, got)

	ws.ChangeFile(path)
	ws.RemoveFile(path)

	require.Len(t, listener.events, 3)
	assert.Equal(t, fileEvent{kind: "added", path: path, attached: true}, listener.events[0])
	assert.Equal(t, fileEvent{kind: "changed", path: path, attached: true}, listener.events[1])

	// Removal listeners still see the project; the retained handle detaches
	// once dispatch finishes
	assert.Equal(t, fileEvent{kind: "removed", path: path, attached: true}, listener.events[2])
	assert.Nil(t, f.Project())

	_, ok = ws.FileByPath(path)
	assert.False(t, ok)
}

func TestWorkspace_AddExistingFiresChanged(t *testing.T) {
	ws, _, sol, root := scanFixture(t)
	listener := &recordingFileListener{}
	ws.AttachFileListener(listener)
	ws.OpenSolution(sol)

	path := filepath.Join(root, "App", "Form1.cs")
	f, ok := ws.AddFile(path)
	require.True(t, ok)

	require.Len(t, listener.events, 1)
	assert.Equal(t, "changed", listener.events[0].kind)

	existing, _ := ws.FileByPath(path)
	assert.Equal(t, existing, f)
}

func TestWorkspace_ChangeUnknownFallsBackToAdd(t *testing.T) {
	ws, _, sol, root := scanFixture(t)
	listener := &recordingFileListener{}
	ws.AttachFileListener(listener)
	ws.OpenSolution(sol)

	path := writeFile(t, root, "App/Late.cs", "class Late {}")
	_, ok := ws.ChangeFile(path)
	require.True(t, ok)

	require.Len(t, listener.events, 1)
	assert.Equal(t, "added", listener.events[0].kind)
}

func TestWorkspace_UnclaimedPathIgnored(t *testing.T) {
	ws, _, sol, _ := scanFixture(t)
	listener := &recordingFileListener{}
	ws.AttachFileListener(listener)
	ws.OpenSolution(sol)

	outside := writeFile(t, t.TempDir(), "Stray.cs", "class Stray {}")
	_, ok := ws.AddFile(outside)
	assert.False(t, ok)
	assert.Empty(t, listener.events)
}

func TestWorkspace_NoSolutionNoEvents(t *testing.T) {
	ws := NewWorkspace()
	listener := &recordingFileListener{}
	ws.AttachFileListener(listener)

	_, ok := ws.AddFile(filepath.Join(t.TempDir(), "Form1.cs"))
	assert.False(t, ok)
	assert.False(t, ws.RemoveFile("nope"))
	assert.Empty(t, listener.events)
}

func TestWorkspace_DetachListeners(t *testing.T) {
	ws, _, sol, root := scanFixture(t)
	fileL := &recordingFileListener{}
	solL := &recordingSolutionListener{}
	ws.AttachFileListener(fileL)
	ws.AttachFileListener(fileL) // duplicate attach is a no-op
	ws.AttachSolutionListener(solL)
	ws.DetachFileListener(fileL)
	ws.DetachSolutionListener(solL)

	ws.OpenSolution(sol)
	path := writeFile(t, root, "App/Form2.cs", "class Form2 {}")
	ws.AddFile(path)

	assert.Empty(t, fileL.events)
	assert.Empty(t, solL.opened)
}

func TestWorkspace_Stats(t *testing.T) {
	ws, _, sol, _ := scanFixture(t)
	ws.AttachFileListener(&recordingFileListener{})
	ws.OpenSolution(sol)

	stats := ws.Stats()
	assert.Equal(t, 1, stats["files"])
	assert.Equal(t, 1, stats["projects"])
	assert.Equal(t, "App", stats["solution"])
	assert.Equal(t, 1, stats["file_listeners"])
}
