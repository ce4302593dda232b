package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/devbuddy-ai/devbuddy/internal/pysource"
	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/internal/scanner"
	"github.com/devbuddy-ai/devbuddy/models"
)

// PythonConfig controls the Python analyzer.
type PythonConfig struct {
	UseFlake8     bool          `mapstructure:"use_flake8"      yaml:"use_flake8"`
	UseMypy       bool          `mapstructure:"use_mypy"        yaml:"use_mypy"`
	MaxLineLength int           `mapstructure:"max_line_length" yaml:"max_line_length"`
	IgnoreCodes   []string      `mapstructure:"ignore_codes"    yaml:"ignore_codes"`
	Timeout       time.Duration `mapstructure:"timeout"         yaml:"timeout"`
}

// DefaultPythonConfig enables flake8 only.
func DefaultPythonConfig() PythonConfig {
	return PythonConfig{
		UseFlake8:     true,
		MaxLineLength: 120,
		Timeout:       30 * time.Second,
	}
}

// PythonAnalyzer applies syntax-tree rules to Python source.
type PythonAnalyzer struct {
	cfg   PythonConfig
	tools *scanner.Runner
}

// NewPython builds a Python analyzer. exec may be nil.
func NewPython(cfg PythonConfig, exec runner.Executor) *PythonAnalyzer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	var tools []scanner.Scanner
	if cfg.UseFlake8 {
		tools = append(tools, &scanner.Flake8{
			Options:       scanner.Options{Timeout: cfg.Timeout, Exec: exec},
			MaxLineLength: cfg.MaxLineLength,
			IgnoreCodes:   cfg.IgnoreCodes,
		})
	}
	if cfg.UseMypy {
		// mypy gets twice the flake8 budget.
		tools = append(tools, &scanner.Mypy{
			Options: scanner.Options{Timeout: 2 * cfg.Timeout, Exec: exec},
		})
	}
	return &PythonAnalyzer{cfg: cfg, tools: scanner.NewRunner(tools...)}
}

func (p *PythonAnalyzer) Language() Language { return Python }

func (p *PythonAnalyzer) Analyze(ctx context.Context, code, filePath string) []models.Issue {
	issues := p.analyzeTree(ctx, code)
	if fileExists(filePath) {
		issues = append(issues, p.tools.Run(ctx, filePath)...)
	}
	return issues
}

// nodeRule is one entry of the syntax-tree rule table. It returns the
// issues node n produces, if any.
type nodeRule func(f *pysource.File, n *sitter.Node) []models.Issue

var pythonRules = []nodeRule{
	bareExceptRule,
	mutableDefaultRule,
	assertRule,
	globalRule,
	dynamicEvalRule,
}

func (p *PythonAnalyzer) analyzeTree(ctx context.Context, code string) []models.Issue {
	f, err := pysource.Parse(ctx, code)
	if err != nil {
		slog.Debug("Python parser failed", "error", err)
		return nil
	}
	defer f.Close()

	if perr := f.SyntaxError(); perr != nil {
		return []models.Issue{{
			Level:   models.LevelBug,
			Line:    perr.Line,
			Message: "Syntax error: " + perr.Msg,
		}}
	}

	var issues []models.Issue
	f.Walk(func(n *sitter.Node) bool {
		for _, rule := range pythonRules {
			issues = append(issues, rule(f, n)...)
		}
		return true
	})
	return issues
}

func bareExceptRule(_ *pysource.File, n *sitter.Node) []models.Issue {
	if n.Type() != "except_clause" {
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		switch n.NamedChild(i).Type() {
		case "block", "comment":
		default:
			return nil
		}
	}
	return []models.Issue{{
		Level:      models.LevelWarning,
		Line:       pysource.Line(n),
		Message:    "Bare except clause detected",
		Suggestion: "Specify exception type (e.g., except Exception:)",
	}}
}

func mutableDefaultRule(f *pysource.File, n *sitter.Node) []models.Issue {
	if n.Type() != "function_definition" || n.Child(0).Type() == "async" {
		return nil
	}
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	name := f.Text(n.ChildByFieldName("name"))
	var issues []models.Issue
	for i := 0; i < int(params.ChildCount()); i++ {
		p := params.Child(i)
		if startsKeywordOnly(p) {
			break
		}
		if p.Type() != "default_parameter" && p.Type() != "typed_default_parameter" {
			continue
		}
		value := p.ChildByFieldName("value")
		if value == nil {
			continue
		}
		switch value.Type() {
		case "list", "dictionary", "set":
			issues = append(issues, models.Issue{
				Level:      models.LevelWarning,
				Line:       pysource.Line(n),
				Message:    fmt.Sprintf("Mutable default argument in function '%s'", name),
				Suggestion: "Use None as default and initialize inside function",
			})
		}
	}
	return issues
}

// startsKeywordOnly reports whether p is *, *args or **kwargs; only
// positional defaults precede it.
func startsKeywordOnly(p *sitter.Node) bool {
	switch p.Type() {
	case "*", "keyword_separator", "list_splat_pattern", "dictionary_splat_pattern":
		return true
	case "typed_parameter":
		for i := 0; i < int(p.NamedChildCount()); i++ {
			switch p.NamedChild(i).Type() {
			case "list_splat_pattern", "dictionary_splat_pattern":
				return true
			}
		}
	}
	return false
}

func assertRule(_ *pysource.File, n *sitter.Node) []models.Issue {
	if n.Type() != "assert_statement" {
		return nil
	}
	return []models.Issue{{
		Level:      models.LevelInfo,
		Line:       pysource.Line(n),
		Message:    "Assert statement found",
		Suggestion: "Consider using proper error handling in production code",
	}}
}

func globalRule(_ *pysource.File, n *sitter.Node) []models.Issue {
	if n.Type() != "global_statement" {
		return nil
	}
	return []models.Issue{{
		Level:      models.LevelStyle,
		Line:       pysource.Line(n),
		Message:    "Global statement used",
		Suggestion: "Consider using class attributes or function parameters instead",
	}}
}

func dynamicEvalRule(f *pysource.File, n *sitter.Node) []models.Issue {
	if n.Type() != "call" {
		return nil
	}
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" {
		return nil
	}
	name := f.Text(fn)
	if name != "exec" && name != "eval" {
		return nil
	}
	return []models.Issue{{
		Level:      models.LevelBug,
		Line:       pysource.Line(n),
		Message:    fmt.Sprintf("Potentially dangerous %s() usage", name),
		Suggestion: "Avoid exec/eval with untrusted input",
	}}
}

// CheckSyntax runs the balance checker, then the parser.
func (p *PythonAnalyzer) CheckSyntax(code string) error {
	if err := pythonLexicon.check(code); err != nil {
		return err
	}
	f, err := pysource.Parse(context.Background(), code)
	if err != nil {
		return &SyntaxError{Msg: err.Error(), Line: 1}
	}
	defer f.Close()
	if perr := f.SyntaxError(); perr != nil {
		return &SyntaxError{Msg: perr.Error(), Line: perr.Line}
	}
	return nil
}

// Functions returns function names; unparseable source yields nil.
func (p *PythonAnalyzer) Functions(code string) []string {
	return pysource.FunctionNames(context.Background(), code)
}

// Classes returns class names; unparseable source yields nil.
func (p *PythonAnalyzer) Classes(code string) []string {
	return pysource.ClassNames(context.Background(), code)
}

// Imports returns imported module names; unparseable source yields nil.
func (p *PythonAnalyzer) Imports(code string) []string {
	return pysource.Imports(context.Background(), code)
}
