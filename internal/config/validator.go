package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	cblerrors "github.com/standardbeagle/cbl/internal/errors"
	"github.com/standardbeagle/cbl/internal/types"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults
// Returns an error if validation fails
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return cblerrors.NewConfigError("project", cfg.Project.Root, err)
	}

	if err := v.validateScanConfig(&cfg.Scan); err != nil {
		return cblerrors.NewConfigError("scan", "", err)
	}

	if err := v.validateWatchConfig(&cfg.Watch); err != nil {
		return cblerrors.NewConfigError("watch", "", err)
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}

	return nil
}

func (v *Validator) validateScanConfig(scan *Scan) error {
	if scan.MaxFileSize <= 0 {
		return fmt.Errorf("MaxFileSize must be positive, got %d", scan.MaxFileSize)
	}

	if scan.MaxFileSize > 100*1024*1024 {
		return fmt.Errorf("MaxFileSize should not exceed 100MB, got %d", scan.MaxFileSize)
	}

	for _, ext := range scan.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}

	return nil
}

func (v *Validator) validateWatchConfig(watch *Watch) error {
	// DebounceMs: 0 means use the built-in default
	if watch.DebounceMs < 0 {
		return fmt.Errorf("DebounceMs cannot be negative, got %d", watch.DebounceMs)
	}

	if watch.DebounceMs > 60_000 {
		return fmt.Errorf("DebounceMs should not exceed one minute, got %d", watch.DebounceMs)
	}

	return nil
}

// setSmartDefaults fills in values that can be derived from the rest of the
// configuration
func (v *Validator) setSmartDefaults(cfg *Config) {
	// A project with no explicit name is named after its root directory
	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(cfg.Project.Root)
	}

	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = types.DefaultWatchDebounceMs
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	validator := NewValidator()
	return validator.ValidateAndSetDefaults(cfg)
}
