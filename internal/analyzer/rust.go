package analyzer

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/internal/scanner"
	"github.com/devbuddy-ai/devbuddy/models"
)

// RustConfig controls the Rust analyzer.
type RustConfig struct {
	UseClippy     bool          `mapstructure:"use_clippy"      yaml:"use_clippy"`
	UseCargoCheck bool          `mapstructure:"use_cargo_check" yaml:"use_cargo_check"`
	DenyWarnings  bool          `mapstructure:"deny_warnings"   yaml:"deny_warnings"`
	WarnAsError   bool          `mapstructure:"warn_as_error"   yaml:"warn_as_error"`
	Edition       string        `mapstructure:"edition"         yaml:"edition"`
	Timeout       time.Duration `mapstructure:"timeout"         yaml:"timeout"`
}

// DefaultRustConfig enables clippy only.
func DefaultRustConfig() RustConfig {
	return RustConfig{UseClippy: true, Edition: "2021", Timeout: 120 * time.Second}
}

// RustAnalyzer scans Rust source line by line.
type RustAnalyzer struct {
	cfg   RustConfig
	tools *scanner.Runner
}

// NewRust builds a Rust analyzer. exec may be nil.
func NewRust(cfg RustConfig, exec runner.Executor) *RustAnalyzer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Edition == "" {
		cfg.Edition = "2021"
	}
	opts := scanner.Options{Timeout: cfg.Timeout, Exec: exec}
	var tools []scanner.Scanner
	if cfg.UseClippy {
		tools = append(tools, &scanner.Cargo{Options: opts, Subcommand: "clippy", DenyWarnings: cfg.DenyWarnings})
	}
	if cfg.UseCargoCheck {
		tools = append(tools, &scanner.Cargo{Options: opts, Subcommand: "check"})
	}
	return &RustAnalyzer{cfg: cfg, tools: scanner.NewRunner(tools...)}
}

func (a *RustAnalyzer) Language() Language { return Rust }

var rustRules = []lineRule{
	{
		pattern:    regexp.MustCompile(`\.unwrap\(\)`),
		level:      models.LevelWarning,
		message:    "unwrap() usage detected",
		suggestion: "Consider using pattern matching, ? operator, or expect() with a message",
	},
	{
		pattern:    regexp.MustCompile(`\.expect\(\s*""\s*\)`),
		level:      models.LevelStyle,
		message:    "expect() with empty message",
		suggestion: "Provide a descriptive message to expect()",
	},
	{
		pattern:    regexp.MustCompile(`\bpanic!\s*\(`),
		level:      models.LevelWarning,
		message:    "panic! macro usage",
		suggestion: "Consider returning Result instead of panicking",
	},
	{
		pattern:    regexp.MustCompile(`\b(println|dbg)!\s*\(`),
		level:      models.LevelInfo,
		message:    "Debug output detected",
		suggestion: "Remove debug output or use a logging crate",
	},
	{
		pattern:    regexp.MustCompile(`\bunsafe\b`),
		level:      models.LevelWarning,
		message:    "unsafe code block detected",
		suggestion: "Ensure unsafe code is necessary and documented with a SAFETY comment",
	},
	todoRule,
	{
		match:      func(line string) bool { return strings.Count(line, ".clone()") >= 2 },
		level:      models.LevelStyle,
		message:    "Multiple clone() calls on same line",
		suggestion: "Consider borrowing instead of cloning",
	},
	{
		pattern:    regexp.MustCompile(`\b(mem::)?transmute\b`),
		level:      models.LevelBug,
		message:    "transmute usage detected",
		suggestion: "transmute is extremely unsafe. Consider safer alternatives",
	},
	{
		pattern:    regexp.MustCompile(`\bas\s+(u|i)(8|16|32|64|128|size)\b`),
		unless:     regexp.MustCompile(`\d+\s+as\s+`),
		level:      models.LevelInfo,
		message:    "Numeric cast with 'as' detected",
		suggestion: "Consider using try_from() or into() for checked conversions",
	},
	{
		pattern:    regexp.MustCompile(`impl\s+\w+.*\{\s*\}`),
		level:      models.LevelStyle,
		message:    "Empty impl block detected",
		suggestion: "Remove empty impl block or add implementation",
	},
	{
		pattern:    regexp.MustCompile(`#\[allow\(`),
		level:      models.LevelInfo,
		message:    "Lint suppression with #[allow(...)]",
		suggestion: "Ensure the lint suppression is necessary",
	},
	{
		pattern:    regexp.MustCompile(`#\[allow\(dead_code\)\]`),
		level:      models.LevelStyle,
		message:    "dead_code suppression detected",
		suggestion: "Remove unused code instead of suppressing the warning",
	},
}

func (a *RustAnalyzer) Analyze(ctx context.Context, code, filePath string) []models.Issue {
	issues := scanLines(code, rustRules)
	if fileExists(filePath) {
		found := a.tools.Run(ctx, filePath)
		if a.cfg.WarnAsError {
			for i := range found {
				if found[i].Level == models.LevelWarning {
					found[i].Level = models.LevelBug
				}
			}
		}
		issues = append(issues, found...)
	}
	return issues
}

func (a *RustAnalyzer) CheckSyntax(code string) error {
	return rustLexicon.check(code)
}

var (
	rustFn        = regexp.MustCompile(`\bfn\s+(\w+)\s*(?:<[^>]*>)?\s*\(`)
	rustStruct    = regexp.MustCompile(`\bstruct\s+(\w+)`)
	rustEnum      = regexp.MustCompile(`\benum\s+(\w+)`)
	rustTrait     = regexp.MustCompile(`\btrait\s+(\w+)`)
	rustMod       = regexp.MustCompile(`\bmod\s+(\w+)`)
	rustUse       = regexp.MustCompile(`\buse\s+([\w:]+(?:::\{[^}]*\})?)\s*;`)
	rustImplFor   = regexp.MustCompile(`\bimpl(?:\s*<[^>]*>)?\s+(\w+)(?:<[^>]*>)?\s+for\s+(\w+)`)
	rustImplPlain = regexp.MustCompile(`\bimpl(?:\s*<[^>]*>)?\s+(\w+)(?:<[^>]*>)?\s*(for\s+\w+)?`)
)

func (a *RustAnalyzer) Functions(code string) []string { return uniqueMatches(rustFn, code) }

// Structs returns struct names.
func (a *RustAnalyzer) Structs(code string) []string { return uniqueMatches(rustStruct, code) }

// Enums returns enum names.
func (a *RustAnalyzer) Enums(code string) []string { return uniqueMatches(rustEnum, code) }

// Traits returns trait names.
func (a *RustAnalyzer) Traits(code string) []string { return uniqueMatches(rustTrait, code) }

// Mods returns module names.
func (a *RustAnalyzer) Mods(code string) []string { return uniqueMatches(rustMod, code) }

// Uses returns the paths of use declarations.
func (a *RustAnalyzer) Uses(code string) []string { return uniqueMatches(rustUse, code) }

// Impl is one impl block. Trait is empty for inherent impls.
type Impl struct {
	Trait string `json:"trait,omitempty"`
	Type  string `json:"type"`
}

// Impls returns trait implementations followed by inherent impls.
func (a *RustAnalyzer) Impls(code string) []Impl {
	var out []Impl
	for _, m := range rustImplFor.FindAllStringSubmatch(code, -1) {
		out = append(out, Impl{Trait: m[1], Type: m[2]})
	}
	for _, m := range rustImplPlain.FindAllStringSubmatch(code, -1) {
		if m[2] != "" {
			continue
		}
		out = append(out, Impl{Type: m[1]})
	}
	return out
}
