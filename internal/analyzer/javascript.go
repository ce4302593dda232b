package analyzer

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/internal/scanner"
	"github.com/devbuddy-ai/devbuddy/models"
)

// JavaScriptConfig controls the JavaScript/TypeScript analyzer.
type JavaScriptConfig struct {
	UseESLint    bool          `mapstructure:"use_eslint"    yaml:"use_eslint"`
	UseTSC       bool          `mapstructure:"use_tsc"       yaml:"use_tsc"`
	StrictMode   bool          `mapstructure:"strict_mode"   yaml:"strict_mode"`
	ESLintConfig string        `mapstructure:"eslint_config" yaml:"eslint_config"`
	Timeout      time.Duration `mapstructure:"timeout"       yaml:"timeout"`
}

// DefaultJavaScriptConfig enables eslint only.
func DefaultJavaScriptConfig() JavaScriptConfig {
	return JavaScriptConfig{UseESLint: true, Timeout: 60 * time.Second}
}

// JavaScriptAnalyzer scans JavaScript and TypeScript line by line.
type JavaScriptAnalyzer struct {
	cfg    JavaScriptConfig
	eslint *scanner.Runner
	tsc    *scanner.Runner
}

// NewJavaScript builds a JavaScript/TypeScript analyzer. exec may be nil.
func NewJavaScript(cfg JavaScriptConfig, exec runner.Executor) *JavaScriptAnalyzer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	opts := scanner.Options{Timeout: cfg.Timeout, Exec: exec}
	a := &JavaScriptAnalyzer{cfg: cfg, eslint: scanner.NewRunner(), tsc: scanner.NewRunner()}
	if cfg.UseESLint {
		a.eslint = scanner.NewRunner(&scanner.ESLint{Options: opts, ConfigPath: cfg.ESLintConfig})
	}
	if cfg.UseTSC {
		a.tsc = scanner.NewRunner(&scanner.TSC{Options: opts, Strict: cfg.StrictMode})
	}
	return a
}

func (a *JavaScriptAnalyzer) Language() Language { return JavaScript }

var (
	jsLooseEquality = regexp.MustCompile(`[^!=]==[^=]`)
	jsNullCompare   = regexp.MustCompile(`==\s*(null|undefined)`)
)

var javascriptRules = []lineRule{
	{
		pattern:    regexp.MustCompile(`\bconsole\.(log|debug|info)\s*\(`),
		level:      models.LevelInfo,
		message:    "console.log found",
		suggestion: "Remove console.log before production",
	},
	{
		pattern:    regexp.MustCompile(`^\s*debugger\s*;?\s*$`),
		level:      models.LevelWarning,
		message:    "debugger statement found",
		suggestion: "Remove debugger before production",
	},
	{
		pattern:    regexp.MustCompile(`\beval\s*\(`),
		level:      models.LevelBug,
		message:    "Potentially dangerous eval() usage",
		suggestion: "Avoid eval() with untrusted input",
	},
	{
		pattern:    jsLooseEquality,
		unless:     jsNullCompare,
		level:      models.LevelStyle,
		message:    "Non-strict equality (==) used",
		suggestion: "Use strict equality (===) instead",
	},
	{
		pattern:    regexp.MustCompile(`^\s*var\s+`),
		level:      models.LevelStyle,
		message:    "var keyword used",
		suggestion: "Use let or const instead of var",
	},
	{
		pattern:    regexp.MustCompile(`catch\s*\([^)]*\)\s*\{\s*\}`),
		level:      models.LevelWarning,
		message:    "Empty catch block detected",
		suggestion: "Handle or log the error in catch block",
	},
	todoRule,
	{
		pattern:    regexp.MustCompile(`\.innerHTML\s*=`),
		level:      models.LevelWarning,
		message:    "innerHTML assignment detected",
		suggestion: "Consider using textContent or sanitize input to prevent XSS",
	},
	{
		pattern:    regexp.MustCompile("(query|execute)\\s*\\(\\s*[`'\"].*\\$\\{"),
		level:      models.LevelBug,
		message:    "Potential SQL injection vulnerability",
		suggestion: "Use parameterized queries",
	},
	{
		pattern:    regexp.MustCompile(`:\s*any\b`),
		level:      models.LevelStyle,
		message:    "TypeScript 'any' type used",
		suggestion: "Consider using a more specific type",
	},
}

func (a *JavaScriptAnalyzer) Analyze(ctx context.Context, code, filePath string) []models.Issue {
	issues := scanLines(code, javascriptRules)
	if fileExists(filePath) {
		issues = append(issues, a.eslint.Run(ctx, filePath)...)
		if isTypeScript(filePath) {
			issues = append(issues, a.tsc.Run(ctx, filePath)...)
		}
	}
	return issues
}

func isTypeScript(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".ts" || ext == ".tsx"
}

func (a *JavaScriptAnalyzer) CheckSyntax(code string) error {
	return jsLexicon.check(code)
}

var (
	jsFunctionDecl = regexp.MustCompile(`function\s+(\w+)\s*\(`)
	jsArrowFunc    = regexp.MustCompile(`(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?(?:\([^)]*\)|\w+)\s*=>`)
	jsObjectMethod = regexp.MustCompile(`(\w+)\s*:\s*(?:async\s+)?function\s*\(`)
	jsClassMethod  = regexp.MustCompile(`(?m)^\s*(?:async\s+)?(\w+)\s*\([^)]*\)\s*\{`)
	jsClass        = regexp.MustCompile(`\bclass\s+(\w+)`)
	jsExportNamed  = regexp.MustCompile(`export\s+(?:default\s+)?(?:async\s+)?(?:const|let|var|function|class)\s+(\w+)`)
	jsExportList   = regexp.MustCompile(`export\s*\{([^}]+)\}`)
	jsImportNamed  = regexp.MustCompile(`import\s*\{([^}]+)\}\s*from\s*['"]([^'"]+)['"]`)
	jsImportDef    = regexp.MustCompile(`import\s+(\w+)\s+from\s*['"]([^'"]+)['"]`)
	jsImportStar   = regexp.MustCompile(`import\s*\*\s*as\s+(\w+)\s+from\s*['"]([^'"]+)['"]`)
)

var jsReserved = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true, "function": true,
}

func (a *JavaScriptAnalyzer) Functions(code string) []string {
	var names []string
	names = append(names, uniqueMatches(jsFunctionDecl, code)...)
	names = append(names, uniqueMatches(jsArrowFunc, code)...)
	names = append(names, uniqueMatches(jsObjectMethod, code)...)
	for _, n := range uniqueMatches(jsClassMethod, code) {
		if !jsReserved[n] {
			names = append(names, n)
		}
	}
	return dedupe(names)
}

// Classes returns declared class names.
func (a *JavaScriptAnalyzer) Classes(code string) []string {
	return uniqueMatches(jsClass, code)
}

// Exports returns exported binding names. "name as alias" lists name.
func (a *JavaScriptAnalyzer) Exports(code string) []string {
	names := uniqueMatches(jsExportNamed, code)
	for _, m := range jsExportList.FindAllStringSubmatch(code, -1) {
		for _, part := range strings.Split(m[1], ",") {
			if fields := strings.Fields(part); len(fields) > 0 {
				names = append(names, fields[0])
			}
		}
	}
	return dedupe(names)
}

// Import is one imported binding.
type Import struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// Imports returns every ES module import binding.
func (a *JavaScriptAnalyzer) Imports(code string) []Import {
	var out []Import
	for _, m := range jsImportNamed.FindAllStringSubmatch(code, -1) {
		for _, part := range strings.Split(m[1], ",") {
			if fields := strings.Fields(part); len(fields) > 0 {
				out = append(out, Import{Name: fields[0], Source: m[2]})
			}
		}
	}
	for _, re := range []*regexp.Regexp{jsImportDef, jsImportStar} {
		for _, m := range re.FindAllStringSubmatch(code, -1) {
			out = append(out, Import{Name: m[1], Source: m[2]})
		}
	}
	return out
}
