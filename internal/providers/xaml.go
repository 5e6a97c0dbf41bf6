package providers

import (
	"strings"

	"github.com/standardbeagle/cbl/internal/types"
)

// XamlSibling binds X.xaml.cs when X.xaml exists beside it in the same
// project, the WPF and Avalonia layout.
type XamlSibling struct {
	classes types.ClassIndex
}

// NewXamlSibling creates the provider over the given index.
func NewXamlSibling(classes types.ClassIndex) *XamlSibling {
	return &XamlSibling{classes: classes}
}

func (p *XamlSibling) Resolve(f types.File) (string, bool) {
	path := f.Path()
	lower := strings.ToLower(path)

	var markupPath string
	switch {
	case strings.HasSuffix(lower, ".xaml.cs"):
		markupPath = path[:len(path)-len(".cs")]
	case strings.HasSuffix(lower, ".axaml.cs"):
		markupPath = path[:len(path)-len(".cs")]
	default:
		return "", false
	}

	proj := f.Project()
	if proj == nil {
		return "", false
	}
	if _, ok := proj.FileByPath(markupPath); !ok {
		return "", false
	}

	decls := p.classes.ClassesInFile(f)
	if len(decls) == 0 {
		return "", false
	}
	return decls[0].QualifiedName(), true
}
