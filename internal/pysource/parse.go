// Package pysource parses Python source with tree-sitter and answers the
// structural questions the analyzers and the test generator ask.
package pysource

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// File is a parsed Python module. Call Close when done.
type File struct {
	src   []byte
	lines []string
	tree  *sitter.Tree
}

// Parse builds a syntax tree for src. tree-sitter recovers from syntax
// errors, so a non-nil error means the parser itself failed.
func Parse(ctx context.Context, src string) (*File, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	content := []byte(src)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing python source: %w", err)
	}
	return &File{
		src:   content,
		lines: strings.Split(src, "\n"),
		tree:  tree,
	}, nil
}

// Close releases the syntax tree.
func (f *File) Close() {
	if f.tree != nil {
		f.tree.Close()
	}
}

// Root returns the module node.
func (f *File) Root() *sitter.Node {
	return f.tree.RootNode()
}

// Text returns the source text spanned by n.
func (f *File) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.src)
}

// Line returns the 1-based line n starts on.
func Line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// EndLine returns the 1-based line n ends on.
func EndLine(n *sitter.Node) int {
	return int(n.EndPoint().Row) + 1
}

// Slice returns source lines start..end (1-based, inclusive).
func (f *File) Slice(start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(f.lines) {
		end = len(f.lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(f.lines[start-1:end], "\n")
}

// ParseError describes the first syntax error in a file.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Line %d: %s", e.Line, e.Msg)
}

// SyntaxError returns the first ERROR or MISSING node in document order,
// or a construct the grammar still accepts from Python 2 but CPython
// rejects. It returns nil when the module parsed cleanly.
func (f *File) SyntaxError() *ParseError {
	var found *ParseError
	f.Walk(func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		switch {
		case n.IsMissing():
			found = &ParseError{Line: Line(n), Msg: fmt.Sprintf("missing '%s'", n.Type())}
		case n.IsError():
			found = &ParseError{Line: Line(n), Msg: "invalid syntax"}
		default:
			if msg := legacySyntax(f, n); msg != "" {
				found = &ParseError{Line: Line(n), Msg: msg}
			}
		}
		return found == nil
	})
	if found == nil && f.Root().HasError() {
		found = &ParseError{Line: 1, Msg: "invalid syntax"}
	}
	return found
}

func legacySyntax(f *File, n *sitter.Node) string {
	switch n.Type() {
	case "print_statement":
		return "Missing parentheses in call to 'print'. Did you mean print(...)?"
	case "exec_statement":
		return "Missing parentheses in call to 'exec'"
	case "<>":
		if !n.IsNamed() {
			return "invalid syntax"
		}
	case "integer":
		return legacyInteger(f.Text(n))
	}
	return ""
}

// legacyInteger rejects 0777-style octals and the L suffix.
func legacyInteger(lit string) string {
	if lit == "" || strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") ||
		strings.HasPrefix(lit, "0o") || strings.HasPrefix(lit, "0O") ||
		strings.HasPrefix(lit, "0b") || strings.HasPrefix(lit, "0B") {
		return ""
	}
	switch lit[len(lit)-1] {
	case 'l', 'L':
		return "invalid decimal literal"
	case 'j', 'J':
		return ""
	}
	if lit[0] == '0' && strings.Trim(lit, "0_") != "" {
		return "leading zeros in decimal integer literals are not permitted; use an 0o prefix for octal integers"
	}
	return ""
}

// Walk visits every node depth-first in document order. Returning false
// from fn skips the node's children.
func (f *File) Walk(fn func(n *sitter.Node) bool) {
	walk(f.Root(), fn)
}

func walk(n *sitter.Node, fn func(n *sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), fn)
	}
}
