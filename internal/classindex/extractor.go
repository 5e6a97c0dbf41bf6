package classindex

import (
	"errors"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
)

// ClassDecl is one class declaration found in a single file. Partial marks
// declarations carrying the partial modifier, which may have sibling parts
// in other files.
type ClassDecl struct {
	Namespace string
	Name      string
	Partial   bool
}

// QualifiedName joins namespace and name with a dot. Classes outside any
// namespace use the bare name.
func (d ClassDecl) QualifiedName() string {
	if d.Namespace == "" {
		return d.Name
	}
	return d.Namespace + "." + d.Name
}

// Extractor parses C# sources and lists the classes each file declares.
// It is stateless; a fresh tree-sitter parser is created per parse, so the
// extractor is safe to share across goroutines.
type Extractor struct{}

// NewExtractor creates a C# class extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions the extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".cs", ".csx"}
}

// CanHandle reports whether path has a C# extension.
func (e *Extractor) CanHandle(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range e.Extensions() {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Extract parses content and returns every class declaration with its
// namespace-qualified position. Nested classes are reported dotted under
// their outer class. A syntactically broken file still yields whatever
// declarations tree-sitter recovers.
func (e *Extractor) Extract(content []byte) ([]ClassDecl, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(sitter.NewLanguage(tree_sitter_csharp.Language())); err != nil {
		return nil, err
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New("failed to parse content")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, errors.New("root node is nil")
	}

	var decls []ClassDecl
	e.walk(root, content, "", &decls)
	return decls, nil
}

// walk descends the AST tracking the enclosing namespace (and outer classes,
// which nest the same way).
func (e *Extractor) walk(node *sitter.Node, content []byte, namespace string, decls *[]ClassDecl) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "namespace_declaration", "file_scoped_namespace_declaration":
		name := namespaceName(node, content)
		inner := joinNamespace(namespace, name)
		for i := uint(0); i < node.ChildCount(); i++ {
			e.walk(node.Child(i), content, inner, decls)
		}
		return

	case "class_declaration":
		nameNode := findChildByType(node, "identifier")
		if nameNode == nil {
			return
		}
		className := nodeText(nameNode, content)
		*decls = append(*decls, ClassDecl{
			Namespace: namespace,
			Name:      className,
			Partial:   hasModifier(node, content, "partial"),
		})

		// Nested classes report dotted under the outer class
		body := findChildByType(node, "declaration_list")
		if body != nil {
			inner := joinNamespace(namespace, className)
			for i := uint(0); i < body.ChildCount(); i++ {
				e.walk(body.Child(i), content, inner, decls)
			}
		}
		return
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), content, namespace, decls)
	}
}

// namespaceName reads the qualified or simple name of a namespace node.
func namespaceName(node *sitter.Node, content []byte) string {
	nameNode := findChildByType(node, "qualified_name")
	if nameNode == nil {
		nameNode = findChildByType(node, "identifier")
	}
	return nodeText(nameNode, content)
}

func joinNamespace(outer, inner string) string {
	if outer == "" {
		return inner
	}
	if inner == "" {
		return outer
	}
	return outer + "." + inner
}

// hasModifier checks the declaration node for a direct or wrapped modifier
// keyword.
func hasModifier(node *sitter.Node, content []byte, modifier string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		kind := child.Kind()
		if kind == modifier {
			return true
		}
		if kind == "modifier" {
			for j := uint(0); j < child.ChildCount(); j++ {
				if mod := child.Child(j); mod != nil && nodeText(mod, content) == modifier {
					return true
				}
			}
		}
	}
	return false
}

// nodeText extracts text content from an AST node
func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}

	start := node.StartByte()
	end := node.EndByte()

	if start > uint(len(content)) || end > uint(len(content)) || start > end {
		return ""
	}

	return string(content[start:end])
}

// findChildByType finds the first child node of the given type
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == nodeType {
			return child
		}
	}

	return nil
}
