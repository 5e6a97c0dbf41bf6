// Package pathutil converts between absolute and relative paths.
//
// The binding model tracks files by absolute path to avoid ambiguity, but
// user-facing output should show paths relative to the solution root for
// readability. This package is the conversion layer at that boundary.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/app/Form1.cs", "/home/user/app") → "Form1.cs"
//   - ToRelative("/other/location/file.cs", "/home/user/app") → "/other/location/file.cs" (outside root)
//   - ToRelative("Views/Main.xaml", "/home/user/app") → "Views/Main.xaml" (already relative)
func ToRelative(absPath, rootDir string) string {
	// Handle empty inputs
	if absPath == "" || rootDir == "" {
		return absPath
	}

	// If path is already relative, return as-is
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	// Clean both paths to normalize separators and remove redundant elements
	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	// Try to make relative
	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		// Conversion failed (e.g., different drives on Windows) - return absolute
		return absPath
	}

	// If the relative path starts with ".." it means the file is outside the root
	// In this case, return the absolute path as it's clearer
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}

	return relPath
}

// ToRelativeAll converts a slice of paths without modifying the input.
// Used at output boundaries where file lists are shown to users, such as
// printing the parts of a class or the files affected by a change.
func ToRelativeAll(paths []string, rootDir string) []string {
	if len(paths) == 0 {
		return paths
	}

	converted := make([]string, len(paths))
	for i, p := range paths {
		converted[i] = ToRelative(p, rootDir)
	}

	return converted
}
