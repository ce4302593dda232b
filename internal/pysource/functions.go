package pysource

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/devbuddy-ai/devbuddy/models"
)

// ExtractFunctions returns a descriptor for every function definition in
// src, nested ones included, in document order. Source that fails to
// parse yields an empty result, the same as source with no functions.
func ExtractFunctions(ctx context.Context, src string) []models.FunctionDescriptor {
	f, err := Parse(ctx, src)
	if err != nil {
		return nil
	}
	defer f.Close()
	if f.SyntaxError() != nil {
		return nil
	}

	var out []models.FunctionDescriptor
	f.Walk(func(n *sitter.Node) bool {
		if n.Type() == "function_definition" {
			out = append(out, f.describe(n))
		}
		return true
	})
	return out
}

func (f *File) describe(fn *sitter.Node) models.FunctionDescriptor {
	start, end := Line(fn), EndLine(fn)
	d := models.FunctionDescriptor{
		Name:      f.Text(fn.ChildByFieldName("name")),
		Params:    f.params(fn.ChildByFieldName("parameters")),
		Docstring: f.docstring(fn),
		Source:    f.Slice(start, end),
		StartLine: start,
		EndLine:   end,
	}
	if rt := fn.ChildByFieldName("return_type"); rt != nil {
		d.ReturnType = f.Text(rt)
	}
	return d
}

// params renders each named parameter as "name" or "name: type". Star
// parameters and separators are omitted.
func (f *File) params(list *sitter.Node) []string {
	if list == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		switch p.Type() {
		case "identifier":
			out = append(out, f.Text(p))
		case "default_parameter":
			out = append(out, f.Text(p.ChildByFieldName("name")))
		case "typed_parameter":
			name := p.NamedChild(0)
			if name == nil || name.Type() != "identifier" {
				continue
			}
			out = append(out, f.Text(name)+": "+f.Text(p.ChildByFieldName("type")))
		case "typed_default_parameter":
			out = append(out, f.Text(p.ChildByFieldName("name"))+": "+f.Text(p.ChildByFieldName("type")))
		}
	}
	return out
}

// docstring returns the cleaned docstring of a function or class node.
func (f *File) docstring(def *sitter.Node) string {
	body := def.ChildByFieldName("body")
	if body == nil {
		return ""
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() == "comment" {
			continue
		}
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
			return ""
		}
		str := stmt.NamedChild(0)
		if str.Type() != "string" {
			return ""
		}
		return cleanDocstring(f.Text(str))
	}
	return ""
}

// cleanDocstring strips the quotes from a string literal and removes the
// common indentation of its continuation lines.
func cleanDocstring(lit string) string {
	lit = strings.TrimLeft(lit, "rRuUbBfF")
	switch {
	case len(lit) >= 6 && (strings.HasPrefix(lit, `"""`) || strings.HasPrefix(lit, `'''`)):
		lit = lit[3 : len(lit)-3]
	case len(lit) >= 2:
		lit = lit[1 : len(lit)-1]
	}

	lines := strings.Split(strings.ReplaceAll(lit, "\t", "        "), "\n")
	indent := -1
	for _, l := range lines[1:] {
		trimmed := strings.TrimLeft(l, " ")
		if trimmed == "" {
			continue
		}
		if n := len(l) - len(trimmed); indent < 0 || n < indent {
			indent = n
		}
	}
	lines[0] = strings.TrimSpace(lines[0])
	for i := 1; i < len(lines); i++ {
		if indent > 0 && len(lines[i]) >= indent {
			lines[i] = lines[i][indent:]
		}
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
