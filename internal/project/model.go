package project

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/standardbeagle/cbl/internal/types"
)

// File is a source file tracked inside a project. The project backref is
// cleared once the file leaves the model, so stale handles read as detached.
type File struct {
	id   types.FileID
	path string
	proj *Project
}

func (f *File) ID() types.FileID { return f.id }
func (f *File) Path() string     { return f.path }

func (f *File) Project() types.Project {
	if f.proj == nil {
		return nil
	}
	return f.proj
}

// Project is one buildable unit, rooted at the directory of its .csproj
// (or at the scan root when no project file exists).
type Project struct {
	id     types.ProjectID
	name   string
	path   string // .csproj path, empty for the fallback project
	root   string
	files  []*File
	byPath map[string]*File
}

func (p *Project) ID() types.ProjectID { return p.id }
func (p *Project) Name() string        { return p.name }

// ProjectFile returns the path of the .csproj this project was discovered
// from, or empty for the fallback root project.
func (p *Project) ProjectFile() string { return p.path }

// Root returns the directory owning this project's files.
func (p *Project) Root() string { return p.root }

func (p *Project) Files() []types.File {
	out := make([]types.File, 0, len(p.files))
	for _, f := range p.files {
		out = append(out, f)
	}
	return out
}

func (p *Project) FileByPath(path string) (types.File, bool) {
	f, ok := p.byPath[filepath.Clean(path)]
	if !ok {
		return nil, false
	}
	return f, true
}

func (p *Project) attach(f *File) {
	f.proj = p
	p.files = append(p.files, f)
	p.byPath[f.path] = f
}

// detach removes f from the tables but leaves the backref alone, so the
// handle stays attached while removal listeners run.
func (p *Project) detach(f *File) {
	delete(p.byPath, f.path)
	for i, existing := range p.files {
		if existing == f {
			p.files = append(p.files[:i], p.files[i+1:]...)
			break
		}
	}
}

// Solution is the set of projects discovered under one root.
type Solution struct {
	name     string
	path     string // .sln path when one exists, else the root
	root     string
	projects []*Project
}

func (s *Solution) Name() string { return s.name }

// Path returns the .sln file the solution was named from, or the scan root.
func (s *Solution) Path() string { return s.path }

// Root returns the scanned directory.
func (s *Solution) Root() string { return s.root }

func (s *Solution) Projects() []types.Project {
	out := make([]types.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	return out
}

// ProjectFor returns the deepest project whose root contains path, or nil
// when no project claims it.
func (s *Solution) ProjectFor(path string) *Project {
	path = filepath.Clean(path)
	var best *Project
	for _, p := range s.projects {
		if !underDir(p.root, path) {
			continue
		}
		if best == nil || len(p.root) > len(best.root) {
			best = p
		}
	}
	return best
}

// sortProjects fixes a deterministic order: by root, then name.
func (s *Solution) sortProjects() {
	sort.Slice(s.projects, func(i, j int) bool {
		if s.projects[i].root != s.projects[j].root {
			return s.projects[i].root < s.projects[j].root
		}
		return s.projects[i].name < s.projects[j].name
	})
}

// underDir reports whether path sits at or below dir.
func underDir(dir, path string) bool {
	if dir == path {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}
