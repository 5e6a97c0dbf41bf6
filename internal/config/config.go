// Package config loads .cbl.kdl configuration files and merges the
// global config from the user's home directory with per-project settings.
package config

import (
	"os"
	"path/filepath"

	"github.com/standardbeagle/cbl/internal/types"
)

type Config struct {
	Version   int       `json:"version"`
	Project   Project   `json:"project"`
	Scan      Scan      `json:"scan"`
	Watch     Watch     `json:"watch"`
	Providers Providers `json:"providers"`
	Include   []string  `json:"include"`
	Exclude   []string  `json:"exclude"`
}

type Project struct {
	Root string `json:"root"`
	Name string `json:"name"`
}

type Scan struct {
	Extensions       []string `json:"extensions"` // empty means the scanner's built-in defaults
	MaxFileSize      int64    `json:"max_file_size"`
	RespectGitignore bool     `json:"respect_gitignore"` // Process .gitignore files for additional exclusions
	DetectArtifacts  bool     `json:"detect_artifacts"`  // Probe build config files for extra output directories
}

type Watch struct {
	Enabled    bool `json:"enabled"`
	DebounceMs int  `json:"debounce_ms"` // 0 = use the built-in default
}

// Providers toggles the individual class-name resolution strategies.
type Providers struct {
	Designer bool `json:"designer"` // match Form1.cs through its Form1.Designer.cs sibling
	Xaml     bool `json:"xaml"`     // match MainWindow.xaml.cs through its markup sibling
	Partial  bool `json:"partial"`  // match any file that holds part of a multi-file class
}

func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

func LoadWithRoot(path string, rootDir string) (*Config, error) {
	// Determine search directory for config files
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	// Step 1: Load global base config from ~/.cbl.kdl (if exists)
	homeDir, err := os.UserHomeDir()
	var baseConfig *Config
	if err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	// Step 2: Load project-specific config from project directory
	var projectConfig *Config
	if kdlCfg, err := LoadKDL(searchDir); err == nil && kdlCfg != nil {
		projectConfig = kdlCfg
	} else if err != nil {
		return nil, err
	}

	// Step 3: Merge configs (project overrides base, but preserve base exclusions)
	var cfg *Config
	switch {
	case baseConfig != nil && projectConfig != nil:
		cfg = mergeConfigs(baseConfig, projectConfig)
	case projectConfig != nil:
		cfg = projectConfig
	case baseConfig != nil:
		// Use base config but point it at the requested directory
		baseConfig.Project.Root = searchDir
		cfg = baseConfig
	default:
		cfg = defaultConfig()
		cfg.Project.Root = searchDir
	}

	if abs, err := filepath.Abs(cfg.Project.Root); err == nil {
		cfg.Project.Root = abs
	}
	cfg.EnrichExclusionsWithBuildArtifacts()

	return cfg, nil
}

// defaultConfig is the configuration used when no .cbl.kdl exists anywhere.
// parseKDL starts from the same values so a partial file only overrides what
// it names.
func defaultConfig() *Config {
	return &Config{
		Version: 1,
		Scan: Scan{
			MaxFileSize:      types.DefaultMaxFileSize,
			RespectGitignore: true,
			DetectArtifacts:  true,
		},
		Watch: Watch{
			Enabled:    true,
			DebounceMs: types.DefaultWatchDebounceMs,
		},
		Providers: Providers{
			Designer: true,
			Xaml:     true,
			Partial:  true,
		},
		Include: []string{},
		Exclude: getDefaultExclusions(),
	}
}

// getDefaultExclusions lists directory noise no solution scan should descend
// into. Source files are already gated by extension, so file-level patterns
// are not needed here.
func getDefaultExclusions() []string {
	return []string{
		"**/.git/**",
		"**/.*/**", // all hidden directories
		"**/node_modules/**",
		"**/packages/**", // NuGet package restore
		"**/bin/**",
		"**/obj/**",
		"**/artifacts/**", // .NET SDK ArtifactsPath layout
		"**/TestResults/**",
		"**/dist/**",
		"**/build/**",
	}
}

// mergeConfigs merges a base config with a project config
// Project config takes precedence, but base exclusions are preserved
func mergeConfigs(base, project *Config) *Config {
	// Start with a copy of the project config
	merged := *project

	// Merge exclusions: combine base and project exclusions
	if len(base.Exclude) > 0 {
		// Use a map to deduplicate
		excludeMap := make(map[string]bool)

		// Add base exclusions first
		for _, pattern := range base.Exclude {
			excludeMap[pattern] = true
		}

		// Add project exclusions
		for _, pattern := range project.Exclude {
			excludeMap[pattern] = true
		}

		// Convert back to slice
		merged.Exclude = make([]string, 0, len(excludeMap))
		for pattern := range excludeMap {
			merged.Exclude = append(merged.Exclude, pattern)
		}
	}

	// Merge inclusions: project overrides base completely if specified
	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	// Use project settings for everything else (already copied above)

	return &merged
}

// EnrichExclusionsWithBuildArtifacts detects build output directories from
// project build files and adds them to the exclusion list
func (c *Config) EnrichExclusionsWithBuildArtifacts() {
	if !c.Scan.DetectArtifacts || c.Project.Root == "" {
		return
	}

	detector := NewBuildArtifactDetector(c.Project.Root)
	detectedPatterns := detector.DetectOutputDirectories()

	if len(detectedPatterns) > 0 {
		c.Exclude = append(c.Exclude, detectedPatterns...)
		c.Exclude = DeduplicatePatterns(c.Exclude)
	}
}
