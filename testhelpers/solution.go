// Package testhelpers builds throwaway solution trees on disk. The scanner,
// the watcher and the end-to-end binding tests all read real files, so tests
// assemble their fixtures here instead of hand-writing the same .csproj and
// partial-class boilerplate everywhere.
package testhelpers

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SolutionBuilder writes a solution tree under a root directory, usually a
// t.TempDir(). Methods chain; the first filesystem error sticks and is
// returned by Err.
type SolutionBuilder struct {
	root string
	err  error
}

// NewSolutionBuilder creates a builder rooted at root.
func NewSolutionBuilder(root string) *SolutionBuilder {
	return &SolutionBuilder{root: root}
}

// Root returns the directory the builder writes into.
func (sb *SolutionBuilder) Root() string { return sb.root }

// Err returns the first error hit while writing fixture files.
func (sb *SolutionBuilder) Err() error { return sb.err }

// AddSolutionFile writes name.sln at the root. The scanner only uses the
// file for naming, so a format header is all the content needed.
func (sb *SolutionBuilder) AddSolutionFile(name string) *SolutionBuilder {
	return sb.AddFile(name+".sln", "Microsoft Visual Studio Solution File, Format Version 12.00\n")
}

// AddProject writes dir/name.csproj, making dir a project root that claims
// every fixture file beneath it.
func (sb *SolutionBuilder) AddProject(dir, name string) *SolutionBuilder {
	return sb.AddFile(path.Join(dir, name+".csproj"),
		"<Project Sdk=\"Microsoft.NET.Sdk\">\n  <PropertyGroup>\n    <TargetFramework>net8.0</TargetFramework>\n  </PropertyGroup>\n</Project>\n")
}

// AddFile writes an arbitrary file at a slash-separated path under the root,
// creating parent directories as needed.
func (sb *SolutionBuilder) AddFile(relPath, content string) *SolutionBuilder {
	if sb.err != nil {
		return sb
	}
	full := filepath.Join(sb.root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		sb.err = err
		return sb
	}
	sb.err = os.WriteFile(full, []byte(content), 0o644)
	return sb
}

// AddCSharpFile assembles a .cs file from elements, one per line group.
func (sb *SolutionBuilder) AddCSharpFile(relPath string, elements ...CSharpElement) *SolutionBuilder {
	var b strings.Builder
	for _, el := range elements {
		b.WriteString(el.Generate())
		b.WriteString("\n")
	}
	return sb.AddFile(relPath, b.String())
}

// AddForm writes both halves of a WinForms form under dir: name.cs with the
// user partial and name.Designer.cs with the generated partial.
func (sb *SolutionBuilder) AddForm(dir, ns, name string) *SolutionBuilder {
	return sb.
		AddFile(path.Join(dir, name+".cs"), FormSource(ns, name)).
		AddFile(path.Join(dir, name+".Designer.cs"), DesignerSource(ns, name))
}

// AddWindow writes a WPF window under dir: name.xaml markup and name.xaml.cs
// codebehind.
func (sb *SolutionBuilder) AddWindow(dir, ns, name string) *SolutionBuilder {
	return sb.
		AddFile(path.Join(dir, name+".xaml"), WindowMarkup(ns, name)).
		AddFile(path.Join(dir, name+".xaml.cs"), WindowCodeBehind(ns, name))
}

// CSharpElement is one generated fragment of a fixture source file.
type CSharpElement interface {
	Generate() string
}

// UsingDecl generates using directives.
type UsingDecl struct {
	Namespaces []string
}

func (u UsingDecl) Generate() string {
	var b strings.Builder
	for _, ns := range u.Namespaces {
		fmt.Fprintf(&b, "using %s;\n", ns)
	}
	return b.String()
}

// ClassDecl generates a class wrapped in its namespace.
type ClassDecl struct {
	Namespace string
	Name      string
	Partial   bool
	Base      string
	Body      string
}

func (c ClassDecl) Generate() string {
	var b strings.Builder
	indent := ""
	if c.Namespace != "" {
		fmt.Fprintf(&b, "namespace %s\n{\n", c.Namespace)
		indent = "    "
	}
	b.WriteString(indent + "public ")
	if c.Partial {
		b.WriteString("partial ")
	}
	b.WriteString("class " + c.Name)
	if c.Base != "" {
		b.WriteString(" : " + c.Base)
	}
	b.WriteString("\n" + indent + "{\n")
	if c.Body != "" {
		for _, line := range strings.Split(strings.TrimRight(c.Body, "\n"), "\n") {
			b.WriteString(indent + "    " + line + "\n")
		}
	}
	b.WriteString(indent + "}\n")
	if c.Namespace != "" {
		b.WriteString("}\n")
	}
	return b.String()
}

// RawElement passes text through unchanged.
type RawElement string

func (r RawElement) Generate() string { return string(r) }

// FormSource returns the user half of a WinForms form class.
func FormSource(ns, name string) string {
	return UsingDecl{Namespaces: []string{"System", "System.Windows.Forms"}}.Generate() +
		"\n" +
		ClassDecl{
			Namespace: ns,
			Name:      name,
			Partial:   true,
			Base:      "Form",
			Body: "public " + name + "()\n{\n    InitializeComponent();\n}",
		}.Generate()
}

// DesignerSource returns the generated half of a WinForms form class.
func DesignerSource(ns, name string) string {
	return ClassDecl{
		Namespace: ns,
		Name:      name,
		Partial:   true,
		Body: "private System.ComponentModel.IContainer components = null;\n\nprivate void InitializeComponent()\n{\n    this.components = new System.ComponentModel.Container();\n}",
	}.Generate()
}

// WindowMarkup returns minimal XAML naming its codebehind class.
func WindowMarkup(ns, name string) string {
	return fmt.Sprintf("<Window x:Class=\"%s.%s\"\n"+
		"        xmlns=\"http://schemas.microsoft.com/winfx/2006/xaml/presentation\"\n"+
		"        xmlns:x=\"http://schemas.microsoft.com/winfx/2006/xaml\"\n"+
		"        Title=\"%s\">\n"+
		"    <Grid />\n"+
		"</Window>\n", ns, name, name)
}

// WindowCodeBehind returns the codebehind partial for a XAML window.
func WindowCodeBehind(ns, name string) string {
	return UsingDecl{Namespaces: []string{"System.Windows"}}.Generate() +
		"\n" +
		ClassDecl{
			Namespace: ns,
			Name:      name,
			Partial:   true,
			Base:      "Window",
			Body: "public " + name + "()\n{\n    InitializeComponent();\n}",
		}.Generate()
}
