// Package analyzer implements the per-language static pattern analyzers.
// Each analyzer combines a bracket balance checker, a fixed rule table and
// optional external-tool adapters from internal/scanner.
package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/models"
)

// Language identifies a supported source language family.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	Go         Language = "go"
	Rust       Language = "rust"
)

// Languages lists every supported language.
var Languages = []Language{Python, JavaScript, Go, Rust}

var extensions = map[string]Language{
	".py":  Python,
	".pyw": Python,
	".js":  JavaScript,
	".jsx": JavaScript,
	".mjs": JavaScript,
	".cjs": JavaScript,
	".ts":  JavaScript,
	".tsx": JavaScript,
	".go":  Go,
	".rs":  Rust,
}

// DetectLanguage maps a file extension to a Language.
func DetectLanguage(path string) (Language, bool) {
	lang, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Analyzer is the capability every language variant provides.
type Analyzer interface {
	Language() Language

	// Analyze runs the pattern scan over code and, when filePath names an
	// existing file, the enabled external tools. It never fails; a Python
	// parse failure is reported as a single bug-level issue.
	Analyze(ctx context.Context, code, filePath string) []models.Issue

	// CheckSyntax returns nil when code is balanced (and, for Python,
	// parses), otherwise a *SyntaxError.
	CheckSyntax(code string) error

	// Functions returns the de-duplicated function names in code.
	Functions(code string) []string
}

// Configs bundles the per-language settings. Zero values are replaced by
// the defaults.
type Configs struct {
	Python     PythonConfig     `mapstructure:"python"     yaml:"python"`
	JavaScript JavaScriptConfig `mapstructure:"javascript" yaml:"javascript"`
	Go         GoConfig         `mapstructure:"go"         yaml:"go"`
	Rust       RustConfig       `mapstructure:"rust"       yaml:"rust"`
}

// DefaultConfigs returns the out-of-the-box analyzer settings.
func DefaultConfigs() Configs {
	return Configs{
		Python:     DefaultPythonConfig(),
		JavaScript: DefaultJavaScriptConfig(),
		Go:         DefaultGoConfig(),
		Rust:       DefaultRustConfig(),
	}
}

// Set holds one analyzer per language.
type Set struct {
	byLang map[Language]Analyzer
}

// NewSet builds analyzers for every language. exec may be nil.
func NewSet(cfg Configs, exec runner.Executor) *Set {
	return &Set{byLang: map[Language]Analyzer{
		Python:     NewPython(cfg.Python, exec),
		JavaScript: NewJavaScript(cfg.JavaScript, exec),
		Go:         NewGo(cfg.Go, exec),
		Rust:       NewRust(cfg.Rust, exec),
	}}
}

// Get returns the analyzer for lang.
func (s *Set) Get(lang Language) (Analyzer, bool) {
	a, ok := s.byLang[lang]
	return a, ok
}

// ForPath selects the analyzer by file extension.
func (s *Set) ForPath(path string) (Analyzer, bool) {
	lang, ok := DetectLanguage(path)
	if !ok {
		return nil, false
	}
	return s.Get(lang)
}

// fileExists reports whether path names an existing regular file.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
