package pysource

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devbuddy-ai/devbuddy/models"
)

const sample = `import os
from collections import abc as c


def add(a: int, b: int = 2) -> int:
    """Add two numbers.

    Returns the sum.
    """
    return a + b


class Greeter:
    def greet(self, name, *args, **kwargs):
        def inner():
            return name
        return inner()
`

func TestExtractFunctions(t *testing.T) {
	fns := ExtractFunctions(context.Background(), sample)
	require.Len(t, fns, 3)

	want := models.FunctionDescriptor{
		Name:       "add",
		Params:     []string{"a: int", "b: int"},
		ReturnType: "int",
		Docstring:  "Add two numbers.\n\nReturns the sum.",
		Source: "def add(a: int, b: int = 2) -> int:\n" +
			"    \"\"\"Add two numbers.\n\n    Returns the sum.\n    \"\"\"\n" +
			"    return a + b",
		StartLine: 5,
		EndLine:   10,
	}
	if diff := cmp.Diff(want, fns[0]); diff != "" {
		t.Errorf("add descriptor mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "greet", fns[1].Name)
	assert.Equal(t, []string{"self", "name"}, fns[1].Params)
	assert.Empty(t, fns[1].ReturnType)
	assert.Equal(t, "inner", fns[2].Name)
	assert.Equal(t, 15, fns[2].StartLine)
}

func TestExtractFunctionsSyntaxErrorIsEmpty(t *testing.T) {
	assert.Empty(t, ExtractFunctions(context.Background(), "def broken(:\n    pass\n"))
	assert.Empty(t, ExtractFunctions(context.Background(), ""))
}

func TestSymbolQueries(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, []string{"add", "greet", "inner"}, FunctionNames(ctx, sample))
	assert.Equal(t, []string{"Greeter"}, ClassNames(ctx, sample))
	assert.Equal(t, []string{"os", "collections"}, Imports(ctx, sample))
	assert.Empty(t, ClassNames(ctx, "class (:"))
}

func TestSyntaxError(t *testing.T) {
	f, err := Parse(context.Background(), "x = 1\ndef f(:\n    pass\n")
	require.NoError(t, err)
	defer f.Close()
	perr := f.SyntaxError()
	require.NotNil(t, perr)
	assert.Equal(t, 2, perr.Line)

	ok, err := Parse(context.Background(), "x = 1\n")
	require.NoError(t, err)
	defer ok.Close()
	assert.Nil(t, ok.SyntaxError())
}

func TestSyntaxErrorLegacyForms(t *testing.T) {
	tests := []struct {
		code string
		line int
	}{
		{"x = 1\nprint x\n", 2},
		{"exec code\n", 1},
		{"y = 2\n\nmode = 0755\n", 3},
		{"if a <> b:\n    pass\n", 1},
	}
	for _, tt := range tests {
		f, err := Parse(context.Background(), tt.code)
		require.NoError(t, err)
		perr := f.SyntaxError()
		f.Close()
		require.NotNil(t, perr, tt.code)
		assert.Equal(t, tt.line, perr.Line, tt.code)
	}
}

func TestCleanDocstring(t *testing.T) {
	assert.Equal(t, "one line", cleanDocstring(`"""one line"""`))
	assert.Equal(t, "single", cleanDocstring(`'single'`))
	assert.Equal(t, "raw", cleanDocstring(`r"""raw"""`))
	assert.Equal(t, "a\nb\n  c", cleanDocstring("\"\"\"a\n    b\n      c\n    \"\"\""))
}
