// Package providers ships the built-in class name resolvers: designer
// siblings, XAML siblings, and the generic partial-class rule. All of them
// answer through the class index, so a file that drops out of the index
// stops matching without any provider-side state.
package providers

import (
	"strings"

	"github.com/standardbeagle/cbl/internal/types"
)

const designerSuffix = ".Designer.cs"

// DesignerSibling binds X.cs when X.Designer.cs exists beside it in the
// same project, the WinForms layout.
type DesignerSibling struct {
	classes types.ClassIndex
}

// NewDesignerSibling creates the provider over the given index.
func NewDesignerSibling(classes types.ClassIndex) *DesignerSibling {
	return &DesignerSibling{classes: classes}
}

func (p *DesignerSibling) Resolve(f types.File) (string, bool) {
	path := f.Path()
	lower := strings.ToLower(path)
	if !strings.HasSuffix(lower, ".cs") || strings.HasSuffix(lower, strings.ToLower(designerSuffix)) {
		return "", false
	}

	proj := f.Project()
	if proj == nil {
		return "", false
	}
	designerPath := path[:len(path)-len(".cs")] + designerSuffix
	if _, ok := proj.FileByPath(designerPath); !ok {
		return "", false
	}

	decls := p.classes.ClassesInFile(f)
	if len(decls) == 0 {
		return "", false
	}
	// Prefer the class the designer file actually extends
	for _, def := range decls {
		for _, part := range def.PartPaths() {
			if part == designerPath {
				return def.QualifiedName(), true
			}
		}
	}
	return decls[0].QualifiedName(), true
}
