package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/cbl/internal/version"
	"github.com/standardbeagle/cbl/pkg/pathutil"
)

// bindingReport is one parent binding in scan output.
type bindingReport struct {
	Project  string   `json:"project"`
	File     string   `json:"file"`
	Class    string   `json:"class"`
	Resolved bool     `json:"resolved"`
	Children []string `json:"children,omitempty"`
}

func collectReports(eng *engine) []bindingReport {
	root := eng.cfg.Project.Root
	bindings := eng.tracker.Bindings()
	reports := make([]bindingReport, 0, len(bindings))
	for _, b := range bindings {
		r := bindingReport{
			File:  pathutil.ToRelative(b.File.Path(), root),
			Class: b.Name,
		}
		if p := b.File.Project(); p != nil {
			r.Project = p.Name()
		}
		if handle, ok := eng.tracker.ChildClass(b.File); ok && handle.Resolved() {
			r.Resolved = true
			for _, child := range eng.tracker.Children(b.File, handle.Def) {
				r.Children = append(r.Children, pathutil.ToRelative(child.Path(), root))
			}
		}
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Project != reports[j].Project {
			return reports[i].Project < reports[j].Project
		}
		return reports[i].File < reports[j].File
	})
	return reports
}

func printBindings(w io.Writer, eng *engine) {
	sol := eng.ws.Solution()
	reports := collectReports(eng)
	fmt.Fprintf(w, "%s: %d projects, %d bindings\n", sol.Name(), len(sol.Projects()), len(reports))

	current := ""
	for _, r := range reports {
		if r.Project != current {
			current = r.Project
			fmt.Fprintf(w, "\n[%s]\n", current)
		}
		mark := ""
		if !r.Resolved {
			mark = "  (unresolved)"
		}
		fmt.Fprintf(w, "  %s -> %s%s\n", r.File, r.Class, mark)
		for _, child := range r.Children {
			fmt.Fprintf(w, "    %s\n", child)
		}
	}
}

func printBindingsJSON(w io.Writer, eng *engine) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(collectReports(eng))
}

// fileReport is the answer to a query for one file.
type fileReport struct {
	File            string   `json:"file"`
	Known           bool     `json:"known"`
	Class           string   `json:"class,omitempty"`
	Resolved        bool     `json:"resolved,omitempty"`
	Children        []string `json:"children,omitempty"`
	HoldsCodeBehind bool     `json:"holds_codebehind,omitempty"`
	Suggestions     []string `json:"suggestions,omitempty"`
}

func queryCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("usage: cbl query <file> [<file>...]")
	}

	eng, err := openEngine(c)
	if err != nil {
		return err
	}

	reports := make([]fileReport, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		reports = append(reports, inspectFile(eng, arg))
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	for i, r := range reports {
		if i > 0 {
			fmt.Println()
		}
		printFileReport(os.Stdout, r)
	}
	return nil
}

func inspectFile(eng *engine, arg string) fileReport {
	root := eng.cfg.Project.Root
	path := arg
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	report := fileReport{File: pathutil.ToRelative(path, root)}

	f, ok := eng.ws.FileByPath(path)
	if !ok {
		return report
	}
	report.Known = true

	if handle, bound := eng.tracker.ChildClass(f); bound {
		report.Class = handle.Name
		report.Resolved = handle.Resolved()
		if handle.Resolved() {
			for _, child := range eng.tracker.Children(f, handle.Def) {
				report.Children = append(report.Children, pathutil.ToRelative(child.Path(), root))
			}
		} else {
			for _, s := range eng.index.NearestNames(f.Project(), handle.Name, 3) {
				report.Suggestions = append(report.Suggestions, s.Name)
			}
		}
	}
	report.HoldsCodeBehind = eng.tracker.ContainsCodeBehind(f)
	return report
}

func printFileReport(w io.Writer, r fileReport) {
	fmt.Fprintf(w, "%s\n", r.File)
	if !r.Known {
		fmt.Fprintf(w, "  not part of the open solution\n")
		return
	}
	switch {
	case r.Class == "":
		fmt.Fprintf(w, "  no codebehind binding\n")
	case r.Resolved:
		fmt.Fprintf(w, "  class %s\n", r.Class)
		for _, child := range r.Children {
			fmt.Fprintf(w, "    part %s\n", child)
		}
	default:
		fmt.Fprintf(w, "  class %s (not in the class index)\n", r.Class)
		for _, s := range r.Suggestions {
			fmt.Fprintf(w, "    did you mean %s?\n", s)
		}
	}
	if r.HoldsCodeBehind {
		fmt.Fprintf(w, "  holds the codebehind class of another file\n")
	}
}

func statsCommand(c *cli.Context) error {
	eng, err := openEngine(c)
	if err != nil {
		return err
	}
	stats := map[string]interface{}{
		"version":   version.FullInfo(),
		"workspace": eng.ws.Stats(),
		"classes":   eng.index.Stats(),
		"bindings":  eng.tracker.Stats(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func configCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
