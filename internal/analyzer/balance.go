package analyzer

import (
	"fmt"
	"strings"
)

// SyntaxError reports an unbalanced bracket found by the balance checker
// or a parse error reported by a language parser.
type SyntaxError struct {
	Msg  string
	Line int
}

func (e *SyntaxError) Error() string { return e.Msg }

// lexicon describes the lexical features the balance checker honours for
// one language.
type lexicon struct {
	// lineComment starts a comment running to end of line ("#" or "//").
	lineComment string
	// blockComments enables /* ... */.
	blockComments bool
	// quotes open a string or char literal. One literal is open at a time
	// and only the opening quote closes it.
	quotes string
	// rawQuote opens a raw string with no escapes (Go backtick).
	rawQuote byte
	// rustRaw enables r"..." and r#"..."# literals.
	rustRaw bool
	// lifetimes makes 'ident a lifetime rather than a char literal.
	lifetimes bool
}

var (
	pythonLexicon = lexicon{lineComment: "#", quotes: `"'`}
	jsLexicon     = lexicon{lineComment: "//", blockComments: true, quotes: "\"'`"}
	goLexicon     = lexicon{lineComment: "//", blockComments: true, quotes: `"'`, rawQuote: '`'}
	rustLexicon   = lexicon{lineComment: "//", blockComments: true, quotes: `"'`, rustRaw: true, lifetimes: true}
)

var closerFor = map[byte]byte{'(': ')', '[': ']', '{': '}'}

type opener struct {
	ch   byte
	line int
}

// check scans code once, left to right, and returns the first bracket
// imbalance, or nil when every bracket outside strings and comments is
// matched.
func (lx lexicon) check(code string) error {
	var (
		stack        []opener
		quote        byte // opening quote of the current literal
		inRaw        bool
		rawHashes    = -1 // >= 0 while inside a Rust raw string
		lineComment  bool
		blockComment bool
		escape       bool
		line         = 1
	)

	n := len(code)
	for i := 0; i < n; i++ {
		c := code[i]
		if c == '\n' {
			line++
		}

		switch {
		case escape:
			escape = false
			continue
		case blockComment:
			if c == '*' && i+1 < n && code[i+1] == '/' {
				blockComment = false
				i++
			}
			continue
		case lineComment:
			if c == '\n' {
				lineComment = false
			}
			continue
		case inRaw:
			if c == lx.rawQuote {
				inRaw = false
			}
			continue
		case rawHashes >= 0:
			if c == '"' && hashesAt(code, i+1, rawHashes) {
				i += rawHashes
				rawHashes = -1
			}
			continue
		case quote != 0:
			if c == '\\' {
				escape = true
			} else if c == quote {
				quote = 0
			}
			continue
		}

		if lx.lineComment != "" && strings.HasPrefix(code[i:], lx.lineComment) {
			lineComment = true
			i += len(lx.lineComment) - 1
			continue
		}
		if lx.blockComments && c == '/' && i+1 < n && code[i+1] == '*' {
			blockComment = true
			i++
			continue
		}
		if lx.rawQuote != 0 && c == lx.rawQuote {
			inRaw = true
			continue
		}
		if lx.rustRaw && c == 'r' && rawPrefixStart(code, i) {
			if hashes, ok := rustRawOpen(code, i+1); ok {
				rawHashes = hashes
				i += hashes + 1
				continue
			}
		}
		if lx.lifetimes && c == '\'' && i+1 < n && isAlpha(code[i+1]) {
			j := i + 1
			for j < n && isIdentByte(code[j]) {
				j++
			}
			if j == i+2 && j < n && code[j] == '\'' {
				// 'a' is a char literal, not a lifetime.
				i = j
				continue
			}
			i = j - 1
			continue
		}
		if strings.IndexByte(lx.quotes, c) >= 0 {
			quote = c
			continue
		}

		switch c {
		case '(', '[', '{':
			stack = append(stack, opener{ch: c, line: line})
		case ')', ']', '}':
			if len(stack) == 0 {
				return &SyntaxError{Msg: fmt.Sprintf("Unexpected closing bracket '%c'", c), Line: line}
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if closerFor[top.ch] != c {
				return &SyntaxError{Msg: fmt.Sprintf("Mismatched brackets: '%c' and '%c'", top.ch, c), Line: line}
			}
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return &SyntaxError{Msg: fmt.Sprintf("Unclosed bracket '%c'", top.ch), Line: top.line}
	}
	return nil
}

// rustRawOpen reports whether code[i:] continues a raw string opener
// (#*") and returns the number of hashes.
func rustRawOpen(code string, i int) (int, bool) {
	hashes := 0
	for i+hashes < len(code) && code[i+hashes] == '#' {
		hashes++
	}
	if i+hashes < len(code) && code[i+hashes] == '"' {
		return hashes, true
	}
	return 0, false
}

func hashesAt(code string, i, count int) bool {
	if i+count > len(code) {
		return false
	}
	for k := 0; k < count; k++ {
		if code[i+k] != '#' {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isAlpha(c) || c == '_' || (c >= '0' && c <= '9')
}

// rawPrefixStart reports whether the r at i begins a raw literal prefix,
// either r or br.
func rawPrefixStart(code string, i int) bool {
	if i == 0 || !isIdentByte(code[i-1]) {
		return true
	}
	return code[i-1] == 'b' && (i == 1 || !isIdentByte(code[i-2]))
}
