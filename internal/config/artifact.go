// Build artifact detection from project build files
// Parses csproj, Directory.Build.props, Cargo.toml and pyproject.toml to find
// output directories that should never be scanned
package config

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// BuildArtifactDetector finds per-language build output directories
type BuildArtifactDetector struct {
	projectRoot string
}

// NewBuildArtifactDetector creates a new build artifact detector
func NewBuildArtifactDetector(projectRoot string) *BuildArtifactDetector {
	return &BuildArtifactDetector{projectRoot: projectRoot}
}

// DetectOutputDirectories scans for build configuration files and extracts
// output directories. Returns glob patterns to exclude (e.g. "**/out/**").
func (bad *BuildArtifactDetector) DetectOutputDirectories() []string {
	var patterns []string

	// .NET: csproj and Directory.Build.props output redirects
	patterns = append(patterns, bad.detectDotnetOutputs()...)

	// Rust: Cargo.toml
	patterns = append(patterns, bad.detectRustOutputs()...)

	// Python: pyproject.toml
	patterns = append(patterns, bad.detectPythonOutputs()...)

	return patterns
}

// msbuildProject picks up the output redirect properties from any
// PropertyGroup. Unrelated elements are ignored by the XML decoder.
type msbuildProject struct {
	PropertyGroups []struct {
		OutputPath     string `xml:"OutputPath"`
		BaseOutputPath string `xml:"BaseOutputPath"`
		ArtifactsPath  string `xml:"ArtifactsPath"`
	} `xml:"PropertyGroup"`
}

// detectDotnetOutputs finds custom MSBuild output directories. The standard
// bin/ and obj/ locations are already in the default exclusions; this catches
// projects that redirect output somewhere else.
func (bad *BuildArtifactDetector) detectDotnetOutputs() []string {
	var patterns []string

	buildFiles := []string{filepath.Join(bad.projectRoot, "Directory.Build.props")}
	for _, glob := range []string{"*.csproj", "*/*.csproj"} {
		if matches, err := filepath.Glob(filepath.Join(bad.projectRoot, glob)); err == nil {
			buildFiles = append(buildFiles, matches...)
		}
	}

	for _, path := range buildFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var proj msbuildProject
		if xml.Unmarshal(data, &proj) != nil {
			continue
		}
		for _, pg := range proj.PropertyGroups {
			for _, out := range []string{pg.OutputPath, pg.BaseOutputPath, pg.ArtifactsPath} {
				if dir := firstPathSegment(out); dir != "" {
					patterns = append(patterns, "**/"+dir+"/**")
				}
			}
		}
	}

	return patterns
}

// firstPathSegment reduces an MSBuild output path like "out\x64\Release" to
// its leading directory. Paths starting with an MSBuild property reference
// cannot be resolved statically and are skipped.
func firstPathSegment(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	p = strings.TrimPrefix(p, "./")
	if p == "" {
		return ""
	}
	seg := p
	if idx := strings.Index(p, "/"); idx != -1 {
		seg = p[:idx]
	}
	if seg == "" || seg == "." || seg == ".." || strings.Contains(seg, "$(") {
		return ""
	}
	return seg
}

// detectRustOutputs finds Rust build outputs (Cargo.toml)
func (bad *BuildArtifactDetector) detectRustOutputs() []string {
	var patterns []string

	cargoTOML := filepath.Join(bad.projectRoot, "Cargo.toml")
	if data, err := os.ReadFile(cargoTOML); err == nil {
		var cargo map[string]interface{}
		if toml.Unmarshal(data, &cargo) == nil {
			// Check for a custom target directory; the default target/ is
			// covered by skipping non-source extensions anyway
			if profile, ok := cargo["profile"].(map[string]interface{}); ok {
				if release, ok := profile["release"].(map[string]interface{}); ok {
					if targetDir, ok := release["target-dir"].(string); ok {
						patterns = append(patterns, "**/"+targetDir+"/**")
					}
				}
			}
		}
	}

	return patterns
}

// detectPythonOutputs finds Python build outputs (pyproject.toml)
func (bad *BuildArtifactDetector) detectPythonOutputs() []string {
	var patterns []string

	pyprojectTOML := filepath.Join(bad.projectRoot, "pyproject.toml")
	if data, err := os.ReadFile(pyprojectTOML); err == nil {
		var pyproject map[string]interface{}
		if toml.Unmarshal(data, &pyproject) == nil {
			if tool, ok := pyproject["tool"].(map[string]interface{}); ok {
				if poetry, ok := tool["poetry"].(map[string]interface{}); ok {
					if build, ok := poetry["build"].(map[string]interface{}); ok {
						if targetDir, ok := build["target-dir"].(string); ok {
							patterns = append(patterns, "**/"+targetDir+"/**")
						}
					}
				}
			}
		}
	}

	return patterns
}

// DeduplicatePatterns removes duplicate exclusion patterns
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		if !seen[pattern] {
			seen[pattern] = true
			result = append(result, pattern)
		}
	}

	return result
}
