package types

// File is a host-owned handle for one physical source file. The engine never
// creates or destroys files; it only observes them through this interface.
type File interface {
	ID() FileID
	Path() string
	// Project returns the owning project, or nil once the file has been
	// detached from the model.
	Project() Project
}

// Project is one buildable unit inside a solution.
type Project interface {
	ID() ProjectID
	Name() string
	Files() []File
	FileByPath(path string) (File, bool)
}

// Solution is the set of projects that are open together.
type Solution interface {
	Name() string
	Projects() []Project
}

// ClassDef is one indexed class together with every physical file that
// declares a part of it. Partial classes have multiple part paths.
type ClassDef interface {
	QualifiedName() string
	// Project returns the project the class is declared in, or nil when the
	// index could not attribute it.
	Project() Project
	PartPaths() []string
}

// ClassIndex answers class lookups against the parser's current state.
// Lookups are scoped to a project; there are no cross-project results.
type ClassIndex interface {
	ClassByName(p Project, qualifiedName string) (ClassDef, bool)
	ClassesInFile(f File) []ClassDef
}

// IndexChange is one batched parser update for a single project. A class
// whose part set changed appears in Changed with its current shape.
type IndexChange struct {
	Project Project
	Added   []ClassDef
	Changed []ClassDef
	Removed []ClassDef
}

// FileListener receives per-file mutations from the host model.
type FileListener interface {
	FileAdded(f File)
	FileChanged(f File)
	FileRemoved(f File)
}

// SolutionListener receives solution lifecycle events.
type SolutionListener interface {
	SolutionOpened(s Solution)
	SolutionClosed(s Solution)
}

// IndexListener receives batched class-index updates.
type IndexListener interface {
	IndexChanged(change IndexChange)
}

// FileEvents is implemented by sources of file mutation events.
// Listeners attached twice are notified once; detaching is idempotent.
type FileEvents interface {
	AttachFileListener(l FileListener)
	DetachFileListener(l FileListener)
}

// SolutionEvents is implemented by sources of solution lifecycle events.
type SolutionEvents interface {
	AttachSolutionListener(l SolutionListener)
	DetachSolutionListener(l SolutionListener)
}

// IndexEvents is implemented by sources of class-index updates.
type IndexEvents interface {
	AttachIndexListener(l IndexListener)
	DetachIndexListener(l IndexListener)
}
