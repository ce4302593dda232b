package analyzer

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/internal/scanner"
	"github.com/devbuddy-ai/devbuddy/models"
)

// GoConfig controls the Go analyzer.
type GoConfig struct {
	UseGoVet        bool          `mapstructure:"use_go_vet"        yaml:"use_go_vet"`
	UseStaticcheck  bool          `mapstructure:"use_staticcheck"   yaml:"use_staticcheck"`
	UseGolangciLint bool          `mapstructure:"use_golangci_lint" yaml:"use_golangci_lint"`
	Timeout         time.Duration `mapstructure:"timeout"           yaml:"timeout"`
}

// DefaultGoConfig enables go vet only.
func DefaultGoConfig() GoConfig {
	return GoConfig{UseGoVet: true, Timeout: 120 * time.Second}
}

// GoAnalyzer scans Go source line by line.
type GoAnalyzer struct {
	cfg   GoConfig
	tools *scanner.Runner
}

// NewGo builds a Go analyzer. exec may be nil.
func NewGo(cfg GoConfig, exec runner.Executor) *GoAnalyzer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	opts := scanner.Options{Timeout: cfg.Timeout, Exec: exec}
	var tools []scanner.Scanner
	if cfg.UseGoVet {
		tools = append(tools, &scanner.GoVet{Options: opts})
	}
	if cfg.UseStaticcheck {
		tools = append(tools, &scanner.Staticcheck{Options: opts})
	}
	if cfg.UseGolangciLint {
		tools = append(tools, &scanner.GolangciLint{Options: opts})
	}
	return &GoAnalyzer{cfg: cfg, tools: scanner.NewRunner(tools...)}
}

func (a *GoAnalyzer) Language() Language { return Go }

var (
	goIgnoredValue = regexp.MustCompile(`_\s*=\s*\w+\.?\w*\s*$`)
	goEmptyBlock   = regexp.MustCompile(`\b(if|else|for)\s*\{[^}]*\}\s*$`)
	goComparedNum  = regexp.MustCompile(`[<>=!]=?\s*(\d{2,})`)
	goFirstNumber  = regexp.MustCompile(`\d+`)
)

var goRules = []lineRule{
	{
		pattern:    regexp.MustCompile(`\bpanic\s*\(`),
		level:      models.LevelWarning,
		message:    "panic() usage detected",
		suggestion: "Consider returning an error instead of panicking in production code",
	},
	{
		pattern:    regexp.MustCompile(`\brecover\s*\(\s*\)`),
		level:      models.LevelInfo,
		message:    "recover() usage detected",
		suggestion: "Ensure recover() is only used for graceful shutdown, not to hide bugs",
	},
	{
		pattern:    regexp.MustCompile(`\bfmt\.(Print|Printf|Println)\s*\(`),
		level:      models.LevelInfo,
		message:    "fmt.Print* usage detected",
		suggestion: "Consider using a structured logger (log/slog) instead of fmt.Print*",
	},
	{
		match: func(line string) bool {
			return goIgnoredValue.MatchString(line) && strings.Contains(strings.ToLower(line), "err")
		},
		level:      models.LevelWarning,
		message:    "Error being ignored",
		suggestion: "Handle errors explicitly instead of discarding them",
	},
	{
		pattern:    regexp.MustCompile(`\bdefer\s+\w+\.(Close|Flush|Sync)\s*\(\s*\)`),
		level:      models.LevelInfo,
		message:    "Deferred function call ignores error",
		suggestion: "Consider using a deferred function to capture and log the error",
	},
	todoRule,
	{
		pattern:    regexp.MustCompile(`\btime\.Sleep\s*\(`),
		level:      models.LevelInfo,
		message:    "time.Sleep usage detected",
		suggestion: "Consider using context with timeout or channels instead of time.Sleep",
	},
	{
		pattern:    regexp.MustCompile(`^var\s+\w+\s*=`),
		level:      models.LevelInfo,
		message:    "Global variable detected",
		suggestion: "Consider using dependency injection instead of global variables",
	},
	{
		pattern:    regexp.MustCompile(`"unsafe"|\bunsafe\.`),
		level:      models.LevelWarning,
		message:    "unsafe package usage detected",
		suggestion: "Ensure unsafe usage is necessary and properly documented",
	},
	{
		pattern:    regexp.MustCompile(`\breflect\.(TypeOf|ValueOf|DeepEqual)\b`),
		level:      models.LevelInfo,
		message:    "Reflection usage detected",
		suggestion: "Reflection can impact performance. Consider type assertions or generics if possible",
	},
	{
		match: func(line string) bool {
			return goEmptyBlock.MatchString(line) &&
				(strings.Contains(line, "{}") || strings.Contains(line, "{ }"))
		},
		level:      models.LevelStyle,
		message:    "Empty control block detected",
		suggestion: "Remove empty blocks or add implementation/comment",
	},
	{
		pattern:    regexp.MustCompile(`\bgoto\s+\w+`),
		level:      models.LevelStyle,
		message:    "goto statement detected",
		suggestion: "Consider restructuring code to avoid goto statements",
	},
	{
		pattern:    regexp.MustCompile(`err\d+\s*:?=`),
		level:      models.LevelStyle,
		message:    "Non-standard error variable name (err1, err2, etc.)",
		suggestion: "Use descriptive error variable names like 'parseErr', 'connectErr'",
	},
	{
		pattern:    regexp.MustCompile(`\binterface\s*\{\s*\}`),
		level:      models.LevelStyle,
		message:    "interface{} detected",
		suggestion: "Consider using 'any' (Go 1.18+) or generics instead of interface{}",
	},
	{
		match:      isMagicNumberLine,
		level:      models.LevelStyle,
		message:    "Magic number detected",
		suggestion: "Consider extracting the number into a named constant",
	},
}

// isMagicNumberLine flags a comparison or assignment against an integer
// literal of two or more digits that is not the integer part of a float,
// provided the first number on the line is greater than 1.
func isMagicNumberLine(line string) bool {
	found := false
	for _, m := range goComparedNum.FindAllStringSubmatchIndex(line, -1) {
		end := m[3]
		if end < len(line) && line[end] == '.' {
			continue
		}
		found = true
		break
	}
	if !found {
		return false
	}
	first := goFirstNumber.FindString(line)
	n, err := strconv.ParseUint(first, 10, 64)
	return err != nil || n > 1
}

func (a *GoAnalyzer) Analyze(ctx context.Context, code, filePath string) []models.Issue {
	issues := scanLines(code, goRules)
	if fileExists(filePath) {
		issues = append(issues, a.tools.Run(ctx, filePath)...)
	}
	return issues
}

func (a *GoAnalyzer) CheckSyntax(code string) error {
	return goLexicon.check(code)
}

var (
	goFunc       = regexp.MustCompile(`\bfunc\s+(?:\([^)]+\)\s*)?(\w+)\s*[\[(]`)
	goStruct     = regexp.MustCompile(`\btype\s+(\w+)\s+struct\b`)
	goInterface  = regexp.MustCompile(`\btype\s+(\w+)\s+interface\b`)
	goType       = regexp.MustCompile(`\btype\s+(\w+)\s+(?:struct|interface)\b`)
	goImportOne  = regexp.MustCompile(`\bimport\s+(?:\w+\s+)?"([^"]+)"`)
	goImportList = regexp.MustCompile(`(?s)\bimport\s*\((.*?)\)`)
	goQuoted     = regexp.MustCompile(`"([^"]+)"`)
	goPackage    = regexp.MustCompile(`\bpackage\s+(\w+)`)
	goConstOne   = regexp.MustCompile(`\bconst\s+(\w+)\s*(?:\w+\s*)?=`)
	goConstList  = regexp.MustCompile(`(?s)\bconst\s*\((.*?)\)`)
	goConstName  = regexp.MustCompile(`(?m)^\s*(\w+)\b`)
	goMethod     = regexp.MustCompile(`\bfunc\s+\(\s*\w+\s+\*?(\w+)(?:\[[^\]]*\])?\s*\)\s+(\w+)\s*\(`)
)

func (a *GoAnalyzer) Functions(code string) []string {
	return uniqueMatches(goFunc, code)
}

// Types returns struct and interface type names.
func (a *GoAnalyzer) Types(code string) []string { return uniqueMatches(goType, code) }

// Structs returns struct type names.
func (a *GoAnalyzer) Structs(code string) []string { return uniqueMatches(goStruct, code) }

// Interfaces returns interface type names.
func (a *GoAnalyzer) Interfaces(code string) []string { return uniqueMatches(goInterface, code) }

// Packages returns package clause names.
func (a *GoAnalyzer) Packages(code string) []string { return uniqueMatches(goPackage, code) }

// Imports returns imported package paths.
func (a *GoAnalyzer) Imports(code string) []string {
	paths := uniqueMatches(goImportOne, code)
	for _, block := range goImportList.FindAllStringSubmatch(code, -1) {
		paths = append(paths, uniqueMatches(goQuoted, block[1])...)
	}
	return dedupe(paths)
}

// Consts returns constant names from single and grouped declarations.
func (a *GoAnalyzer) Consts(code string) []string {
	names := uniqueMatches(goConstOne, code)
	for _, block := range goConstList.FindAllStringSubmatch(code, -1) {
		names = append(names, uniqueMatches(goConstName, block[1])...)
	}
	return dedupe(names)
}

// Method is a function with a receiver.
type Method struct {
	Receiver string `json:"receiver"`
	Name     string `json:"method"`
}

// Methods returns every method declaration.
func (a *GoAnalyzer) Methods(code string) []Method {
	var out []Method
	for _, m := range goMethod.FindAllStringSubmatch(code, -1) {
		out = append(out, Method{Receiver: m[1], Name: m[2]})
	}
	return out
}
