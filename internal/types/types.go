package types

// Common system-wide constants
const (
	// File size limits
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB per file - standard limit for parsing
	// Rationale: Prevents memory exhaustion from large
	// generated files while covering 99.9% of source files.
	// Larger files are almost always build output.

	// Watch debouncing
	DefaultWatchDebounceMs = 300 // Editors fire bursts of writes per save

	// Parse cache
	DefaultParseCacheSize = 512 // Parsed-file results kept per index
)

type FileID uint32
type ProjectID uint32

// NoFileID marks an unassigned file identity.
const NoFileID FileID = 0

// NoProjectID marks an unassigned project identity.
const NoProjectID ProjectID = 0
