package providers

import (
	"github.com/standardbeagle/cbl/internal/types"
)

// PartialClass binds any file declaring a class whose other parts live in
// different files. It is the catch-all behind the sibling providers, so
// hand-split partial classes track their counterparts too.
type PartialClass struct {
	classes types.ClassIndex
}

// NewPartialClass creates the provider over the given index.
func NewPartialClass(classes types.ClassIndex) *PartialClass {
	return &PartialClass{classes: classes}
}

func (p *PartialClass) Resolve(f types.File) (string, bool) {
	path := f.Path()
	for _, def := range p.classes.ClassesInFile(f) {
		for _, part := range def.PartPaths() {
			if part != path {
				return def.QualifiedName(), true
			}
		}
	}
	return "", false
}
