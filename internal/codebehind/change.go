package codebehind

import (
	"github.com/standardbeagle/cbl/internal/types"
)

// Change describes one reconciliation pass or one batched index update:
// the files whose bindings were touched and the files affected through the
// touched classes. Both lists are fully built before any subscriber sees
// the change.
type Change struct {
	Project  types.Project
	Parents  []types.File
	Children []types.File
}

// Subscriber receives binding-change notifications from a Tracker.
type Subscriber interface {
	BindingsChanged(change Change)
}
