package config

import (
	"testing"
)

func TestValidateAndSetDefaults(t *testing.T) {
	cfg := &Config{
		Project: Project{
			Root: "/test/root",
		},
		Scan: Scan{
			MaxFileSize: 1024 * 1024,
			Extensions:  []string{".cs", ".xaml"},
		},
		Watch: Watch{
			DebounceMs: 0, // Should be set to the default
		},
	}

	validator := NewValidator()
	err := validator.ValidateAndSetDefaults(cfg)
	if err != nil {
		t.Fatalf("ValidateAndSetDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Project.Name != "root" {
		t.Errorf("Project.Name should default to the root directory name, got %q", cfg.Project.Name)
	}

	if cfg.Watch.DebounceMs == 0 {
		t.Errorf("DebounceMs should have been set to the default")
	}
}

func TestValidateAndSetDefaults_KeepsExplicitName(t *testing.T) {
	cfg := &Config{
		Project: Project{
			Root: "/test/root",
			Name: "MyApp",
		},
		Scan: Scan{
			MaxFileSize: 1024 * 1024,
		},
	}

	err := ValidateConfig(cfg)
	if err != nil {
		t.Fatalf("ValidateConfig failed: %v", err)
	}

	if cfg.Project.Name != "MyApp" {
		t.Errorf("Explicit project name should be preserved, got %q", cfg.Project.Name)
	}
}

func TestValidateProjectConfig(t *testing.T) {
	validator := NewValidator()

	// Valid config
	err := validator.validateProjectConfig(&Project{
		Root: "/test/root",
	})
	if err != nil {
		t.Errorf("Expected no error for valid config, got %v", err)
	}

	// Empty root
	err = validator.validateProjectConfig(&Project{
		Root: "",
	})
	if err == nil {
		t.Errorf("Expected error for empty root")
	}
}

func TestValidateScanConfig(t *testing.T) {
	validator := NewValidator()

	// Valid config
	err := validator.validateScanConfig(&Scan{
		MaxFileSize: 1024 * 1024,
		Extensions:  []string{".cs"},
	})
	if err != nil {
		t.Errorf("Expected no error for valid config, got %v", err)
	}

	// Invalid MaxFileSize
	err = validator.validateScanConfig(&Scan{
		MaxFileSize: 0,
	})
	if err == nil {
		t.Errorf("Expected error for zero MaxFileSize")
	}

	// MaxFileSize too large
	err = validator.validateScanConfig(&Scan{
		MaxFileSize: 200 * 1024 * 1024, // 200MB
	})
	if err == nil {
		t.Errorf("Expected error for MaxFileSize > 100MB")
	}

	// Extension without a leading dot
	err = validator.validateScanConfig(&Scan{
		MaxFileSize: 1024 * 1024,
		Extensions:  []string{"cs"},
	})
	if err == nil {
		t.Errorf("Expected error for extension without a leading dot")
	}
}

func TestValidateWatchConfig(t *testing.T) {
	validator := NewValidator()

	// Valid config
	err := validator.validateWatchConfig(&Watch{
		DebounceMs: 300,
	})
	if err != nil {
		t.Errorf("Expected no error for valid config, got %v", err)
	}

	// DebounceMs = 0 is valid (means use the default)
	err = validator.validateWatchConfig(&Watch{
		DebounceMs: 0,
	})
	if err != nil {
		t.Errorf("Expected no error for DebounceMs = 0, got %v", err)
	}

	// Negative DebounceMs
	err = validator.validateWatchConfig(&Watch{
		DebounceMs: -1,
	})
	if err == nil {
		t.Errorf("Expected error for negative DebounceMs")
	}

	// Absurd DebounceMs
	err = validator.validateWatchConfig(&Watch{
		DebounceMs: 120_000,
	})
	if err == nil {
		t.Errorf("Expected error for DebounceMs over one minute")
	}
}

func TestValidateConfig(t *testing.T) {
	// Test convenience function
	cfg := &Config{
		Project: Project{
			Root: "/test/root",
			Name: "test-project",
		},
		Scan: Scan{
			MaxFileSize: 1024 * 1024,
		},
	}

	err := ValidateConfig(cfg)
	if err != nil {
		t.Fatalf("ValidateConfig failed: %v", err)
	}

	// Test with invalid config
	invalidCfg := &Config{
		Project: Project{
			Root: "", // Invalid
		},
	}

	err = ValidateConfig(invalidCfg)
	if err == nil {
		t.Errorf("Expected error for invalid config")
	}
}
