package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/standardbeagle/cbl/internal/debug"
	cblerrors "github.com/standardbeagle/cbl/internal/errors"
	"github.com/standardbeagle/cbl/internal/types"
)

// DefaultExtensions lists the file types that enter the model. Markup and
// resource files are included so sibling providers can see them.
var DefaultExtensions = []string{".cs", ".csx", ".xaml", ".axaml", ".resx"}

// skipDirs are never descended into. Output and package directories churn
// constantly and hold no bindable sources.
var skipDirs = map[string]struct{}{
	"bin":          {},
	"obj":          {},
	"node_modules": {},
	"packages":     {},
	"TestResults":  {},
}

// ScanOptions controls which paths a Scanner admits into the model.
type ScanOptions struct {
	Extensions  []string
	Include     []string // doublestar globs over root-relative slash paths
	Exclude     []string
	MaxFileSize int64
	Gitignore   bool
}

// DefaultScanOptions returns the options used when a field is unset.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Extensions:  DefaultExtensions,
		MaxFileSize: types.DefaultMaxFileSize,
		Gitignore:   true,
	}
}

// Scanner discovers a solution under a root directory: every .csproj
// defines a project rooted at its directory, files are claimed by the
// deepest project containing them, and a root with no project files becomes
// a single-project solution. The same filter answers admission questions
// for the watcher, so scan-time and watch-time membership agree.
type Scanner struct {
	ws   *Workspace
	opts ScanOptions
	exts map[string]struct{}

	root string
	gi   *ignore.GitIgnore
}

// NewScanner creates a scanner that allocates model IDs from ws.
func NewScanner(ws *Workspace, opts ScanOptions) *Scanner {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = types.DefaultMaxFileSize
	}
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &Scanner{ws: ws, opts: opts, exts: exts}
}

// Scan walks root and assembles a Solution ready for Workspace.OpenSolution.
func (sc *Scanner) Scan(root string) (*Solution, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, cblerrors.NewFileError("scan", root, err)
	}
	if info, statErr := os.Stat(absRoot); statErr != nil {
		return nil, cblerrors.NewFileError("scan", absRoot, statErr)
	} else if !info.IsDir() {
		return nil, cblerrors.NewFileError("scan", absRoot, fs.ErrInvalid)
	}

	sc.root = absRoot
	sc.gi = nil
	if sc.opts.Gitignore {
		if gi, giErr := ignore.CompileIgnoreFile(filepath.Join(absRoot, ".gitignore")); giErr == nil {
			sc.gi = gi
		}
	}

	var slnPaths, csprojPaths, filePaths []string

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if sc.skipDir(name, path) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		switch strings.ToLower(filepath.Ext(name)) {
		case ".sln":
			slnPaths = append(slnPaths, path)
			return nil
		case ".csproj":
			csprojPaths = append(csprojPaths, path)
			return nil
		}

		if !sc.AllowPath(path) {
			return nil
		}
		if info, infoErr := d.Info(); infoErr != nil || info.Size() > sc.opts.MaxFileSize {
			if infoErr == nil {
				debug.LogScan("skipping oversized %s (%d bytes)\n", path, info.Size())
			}
			return nil
		}
		filePaths = append(filePaths, path)
		return nil
	})
	if walkErr != nil {
		return nil, cblerrors.NewFileError("scan", absRoot, walkErr)
	}

	sort.Strings(slnPaths)
	sort.Strings(csprojPaths)
	sort.Strings(filePaths)

	sol := sc.buildSolution(absRoot, slnPaths, csprojPaths)
	claimed := 0
	for _, path := range filePaths {
		proj := sol.ProjectFor(path)
		if proj == nil {
			debug.LogScan("no project claims %s\n", path)
			continue
		}
		proj.attach(&File{id: sc.ws.allocFileID(), path: path})
		claimed++
	}

	debug.LogScan("scanned %s: %d projects, %d files\n", absRoot, len(sol.projects), claimed)
	return sol, nil
}

// buildSolution creates the project set. Projects come from .csproj files;
// a root without any becomes one project spanning the whole tree.
func (sc *Scanner) buildSolution(absRoot string, slnPaths, csprojPaths []string) *Solution {
	name := filepath.Base(absRoot)
	slnPath := absRoot
	if len(slnPaths) > 0 {
		slnPath = slnPaths[0]
		name = strings.TrimSuffix(filepath.Base(slnPath), filepath.Ext(slnPath))
	}

	sol := &Solution{name: name, path: slnPath, root: absRoot}
	for _, csproj := range csprojPaths {
		sol.projects = append(sol.projects, &Project{
			id:     sc.ws.allocProjectID(),
			name:   strings.TrimSuffix(filepath.Base(csproj), filepath.Ext(csproj)),
			path:   csproj,
			root:   filepath.Dir(csproj),
			byPath: make(map[string]*File),
		})
	}
	if len(sol.projects) == 0 {
		sol.projects = append(sol.projects, &Project{
			id:     sc.ws.allocProjectID(),
			name:   name,
			root:   absRoot,
			byPath: make(map[string]*File),
		})
	}
	sol.sortProjects()
	return sol
}

// AllowPath reports whether a file path passes the extension, glob, and
// gitignore filters. The watcher consults this for paths appearing after
// the initial scan.
func (sc *Scanner) AllowPath(path string) bool {
	if _, ok := sc.exts[strings.ToLower(filepath.Ext(path))]; !ok {
		return false
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}

	rel := sc.relSlash(path)
	for _, pattern := range sc.opts.Exclude {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return false
		}
	}
	if len(sc.opts.Include) > 0 {
		included := false
		for _, pattern := range sc.opts.Include {
			if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}
	if sc.gi != nil && sc.gi.MatchesPath(rel) {
		return false
	}
	return true
}

// SkipDir reports whether a directory would be pruned from a scan. The
// watcher uses this to decide which directories deserve watches.
func (sc *Scanner) SkipDir(path string) bool {
	return sc.skipDir(filepath.Base(path), path)
}

// MaxFileSize returns the admission size cap.
func (sc *Scanner) MaxFileSize() int64 { return sc.opts.MaxFileSize }

// skipDir reports whether a directory is pruned from the walk.
func (sc *Scanner) skipDir(name, path string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if _, ok := skipDirs[name]; ok {
		return true
	}
	rel := sc.relSlash(path)
	for _, pattern := range sc.opts.Exclude {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, rel+"/"); err == nil && matched {
			return true
		}
	}
	if sc.gi != nil && sc.gi.MatchesPath(rel+"/") {
		return true
	}
	return false
}

// relSlash converts path to a root-relative slash form for glob matching.
func (sc *Scanner) relSlash(path string) string {
	if sc.root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(sc.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
