package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devbuddy-ai/devbuddy/internal/runner"
	"github.com/devbuddy-ai/devbuddy/models"
)

// fakeExec returns a canned result for every command and records calls.
type fakeExec struct {
	res   *runner.Result
	err   error
	calls []runner.Command
}

func (f *fakeExec) Run(_ context.Context, c runner.Command) (*runner.Result, error) {
	f.calls = append(f.calls, c)
	return f.res, f.err
}

func TestFlake8ParseAndIgnore(t *testing.T) {
	out := "1:1:F401:'os' imported but unused\n" +
		"3:80:E501:line too long (130 > 120 characters)\n" +
		"4:1:W291:trailing whitespace\n" +
		"5:1:C901:'f' is too complex (12)\n" +
		"6:1:E999:SyntaxError: invalid syntax\n" +
		"garbage line\n"
	issues := parseFlake8(out, []string{"W291"})
	require.Len(t, issues, 4)
	assert.Equal(t, models.LevelBug, issues[0].Level)
	assert.Equal(t, "[F401] 'os' imported but unused", issues[0].Message)
	assert.Equal(t, models.LevelStyle, issues[1].Level)
	assert.Equal(t, models.LevelInfo, issues[2].Level)
	assert.Equal(t, models.LevelBug, issues[3].Level)
	assert.Equal(t, 6, issues[3].Line)
}

func TestMypyFiltersOtherFiles(t *testing.T) {
	out := "app.py:4:5: error: Incompatible types in assignment\n" +
		"other.py:9:1: error: Name 'x' is not defined\n" +
		"app.py:7:1: note: See docs\n"
	issues := parseMypy(out, "/src/app.py")
	require.Len(t, issues, 1)
	assert.Equal(t, 4, issues[0].Line)
	assert.Equal(t, models.LevelWarning, issues[0].Level)
	assert.Equal(t, "[mypy] Incompatible types in assignment", issues[0].Message)
}

func TestESLintParse(t *testing.T) {
	data := `[{"filePath":"/p/app.js","messages":[
		{"ruleId":"no-unused-vars","severity":2,"message":"'x' is unused","line":3},
		{"ruleId":null,"severity":1,"message":"Parsing warning","line":0},
		{"ruleId":"semi","severity":0,"message":"off","line":9}
	]}]`
	issues := parseESLint([]byte(data), "/p/app.js")
	require.Len(t, issues, 3)
	assert.Equal(t, models.LevelBug, issues[0].Level)
	assert.Equal(t, "[no-unused-vars] 'x' is unused", issues[0].Message)
	assert.Equal(t, "[unknown] Parsing warning", issues[1].Message)
	assert.Equal(t, 1, issues[1].Line)
	assert.Equal(t, models.LevelInfo, issues[2].Level)

	assert.Empty(t, parseESLint([]byte("not json"), "/p/app.js"))
}

func TestTSCParse(t *testing.T) {
	out := "src/app.ts(12,5): error TS2322: Type 'string' is not assignable to type 'number'.\n" +
		"src/lib.ts(1,1): error TS1005: ';' expected.\n" +
		"src/app.ts(20,1): warning TS6133: 'y' is declared but never used.\n"
	issues := parseTSC(out, "src/app.ts")
	require.Len(t, issues, 2)
	assert.Equal(t, models.LevelBug, issues[0].Level)
	assert.Equal(t, 12, issues[0].Line)
	assert.Equal(t, "[TS2322] Type 'string' is not assignable to type 'number'.", issues[0].Message)
	assert.Equal(t, models.LevelWarning, issues[1].Level)
}

func TestGoVetParse(t *testing.T) {
	out := "# example\n./main.go:10:2: unreachable code\n./other.go:3: printf call has arguments\n"
	issues := parseGoVet(out, "/work/main.go")
	require.Len(t, issues, 1)
	assert.Equal(t, 10, issues[0].Line)
	assert.Equal(t, "[go vet] unreachable code", issues[0].Message)
}

func TestStaticcheckParse(t *testing.T) {
	out := `{"code":"SA4006","severity":"error","location":{"file":"/w/main.go","line":5,"column":2},"message":"value never used"}
{"code":"ST1000","severity":"info","location":{"file":"/w/main.go","line":1,"column":1},"message":"package comment"}
{"code":"S1000","severity":"warning","location":{"file":"/w/x.go","line":1,"column":1},"message":"other"}
{"code":"U1000","severity":"ignored","location":{"file":"/w/main.go","line":9,"column":1},"message":"unused"}`
	issues := parseStaticcheck(out, "main.go")
	require.Len(t, issues, 3)
	assert.Equal(t, models.LevelBug, issues[0].Level)
	assert.Equal(t, "[SA4006] value never used", issues[0].Message)
	assert.Equal(t, models.LevelInfo, issues[1].Level)
	assert.Equal(t, models.LevelWarning, issues[2].Level)
}

func TestGolangciParse(t *testing.T) {
	data := `{"Issues":[
		{"FromLinter":"errcheck","Text":"Error return value is not checked","Severity":"","Pos":{"Filename":"main.go","Line":7}},
		{"FromLinter":"typecheck","Text":"undefined: x","Severity":"error","Pos":{"Filename":"main.go","Line":2}},
		{"FromLinter":"gofmt","Text":"not formatted","Pos":{"Filename":"util.go","Line":1}}
	]}`
	issues := parseGolangci([]byte(data), "/repo/main.go")
	require.Len(t, issues, 2)
	assert.Equal(t, models.LevelWarning, issues[0].Level)
	assert.Equal(t, "[errcheck] Error return value is not checked", issues[0].Message)
	assert.Equal(t, models.LevelBug, issues[1].Level)
}

func TestCargoParse(t *testing.T) {
	out := `{"reason":"compiler-artifact","target":{}}
{"reason":"compiler-message","message":{"level":"warning","message":"unused variable: x","code":{"code":"unused_variables"},"spans":[{"file_name":"src/main.rs","line_start":4,"is_primary":true}]}}
{"reason":"compiler-message","message":{"level":"error","message":"mismatched types","code":null,"spans":[{"file_name":"src/main.rs","line_start":9,"is_primary":false},{"file_name":"src/main.rs","line_start":10,"is_primary":true}]}}
{"reason":"compiler-message","message":{"level":"help","message":"consider borrowing","code":null,"spans":[{"file_name":"src/lib.rs","line_start":1,"is_primary":true}]}}
{"reason":"compiler-message","message":{"level":"note","message":"a note","spans":[{"file_name":"src/main.rs","line_start":2,"is_primary":true}]}}`
	issues := parseCargo(out, "/crate/src/main.rs")
	require.Len(t, issues, 3)
	assert.Equal(t, models.LevelWarning, issues[0].Level)
	assert.Equal(t, "[unused_variables] unused variable: x", issues[0].Message)
	assert.Equal(t, models.LevelBug, issues[1].Level)
	assert.Equal(t, 10, issues[1].Line)
	assert.Equal(t, models.LevelInfo, issues[2].Level)
}

func TestFindCargoRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("[package]\n"), 0o644))
	src := filepath.Join(root, "src", "bin")
	require.NoError(t, os.MkdirAll(src, 0o755))

	got, ok := FindCargoRoot(filepath.Join(src, "main.rs"))
	require.True(t, ok)
	assert.Equal(t, root, got)
}

func TestScanSwallowsMissingTool(t *testing.T) {
	exec := &fakeExec{err: runner.ErrNotFound}
	f := &Flake8{Options: Options{Exec: exec}}
	assert.Empty(t, f.Scan(context.Background(), "/tmp/x.py"))
	require.Len(t, exec.calls, 1)
	assert.Equal(t, "flake8", exec.calls[0].Name)
	assert.Contains(t, exec.calls[0].Args, "--max-line-length=120")

	exec = &fakeExec{err: runner.ErrTimeout}
	v := &GoVet{Options: Options{Exec: exec}}
	assert.Empty(t, v.Scan(context.Background(), "/tmp/x.go"))
}

func TestRunnerConcatenates(t *testing.T) {
	exec := &fakeExec{res: &runner.Result{Stdout: "2:1:W605:invalid escape\n", ExitCode: 1}}
	r := NewRunner(
		&Flake8{Options: Options{Exec: exec}},
		&Flake8{Options: Options{Exec: exec}, IgnoreCodes: []string{"W605"}},
	)
	issues := r.Run(context.Background(), "/tmp/x.py")
	require.Len(t, issues, 1)
	assert.Equal(t, []string{"flake8", "flake8"}, r.Names())
}

func TestSeverityClosureAcrossAdapters(t *testing.T) {
	valid := map[models.Level]bool{
		models.LevelBug: true, models.LevelWarning: true, models.LevelStyle: true, models.LevelInfo: true,
	}
	for _, code := range []string{"E1", "E9", "F8", "W1", "C9", "N8", "X", ""} {
		assert.True(t, valid[flake8Level(code)], code)
	}
	for _, sev := range []int{-1, 0, 1, 2, 3} {
		assert.True(t, valid[eslintLevel(sev)])
	}
	for _, sev := range []string{"error", "warning", "info", "ignored", ""} {
		assert.True(t, valid[staticcheckLevel(sev)], sev)
	}
}
