package pysource

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// FunctionNames lists every function name defined in src, nested ones
// included. Unparseable source yields nil.
func FunctionNames(ctx context.Context, src string) []string {
	return definitionNames(ctx, src, "function_definition")
}

// ClassNames lists every class name defined in src.
func ClassNames(ctx context.Context, src string) []string {
	return definitionNames(ctx, src, "class_definition")
}

func definitionNames(ctx context.Context, src, nodeType string) []string {
	f, err := Parse(ctx, src)
	if err != nil {
		return nil
	}
	defer f.Close()
	if f.SyntaxError() != nil {
		return nil
	}
	var names []string
	seen := make(map[string]bool)
	f.Walk(func(n *sitter.Node) bool {
		if n.Type() == nodeType {
			name := f.Text(n.ChildByFieldName("name"))
			if name != "" && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		return true
	})
	return names
}

// Imports lists imported module names ("os", "collections.abc", ...).
func Imports(ctx context.Context, src string) []string {
	f, err := Parse(ctx, src)
	if err != nil {
		return nil
	}
	defer f.Close()
	if f.SyntaxError() != nil {
		return nil
	}
	var mods []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			mods = append(mods, name)
		}
	}
	f.Walk(func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				c := n.NamedChild(i)
				switch c.Type() {
				case "dotted_name":
					add(f.Text(c))
				case "aliased_import":
					add(f.Text(c.ChildByFieldName("name")))
				}
			}
			return false
		case "import_from_statement":
			add(f.Text(n.ChildByFieldName("module_name")))
			return false
		}
		return true
	})
	return mods
}
