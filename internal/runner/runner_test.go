package runner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func requireSh(t *testing.T) {
	t.Helper()
	if !Available("sh") {
		t.Skip("sh not available")
	}
}

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	requireSh(t)
	res, err := Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err 1>&2; exit 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Success())
	assert.Equal(t, "out\nerr\n", res.Combined())
}

func TestRunTimeout(t *testing.T) {
	if !Available("sleep") {
		t.Skip("sleep not available")
	}
	_, err := Run(context.Background(), Command{
		Name:    "sleep",
		Args:    []string{"5"},
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestRunMissingBinary(t *testing.T) {
	_, err := Run(context.Background(), Command{Name: "definitely-not-a-real-tool-xyz"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRunWorkingDirectory(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	res, err := Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "pwd"}, Dir: dir})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, filepath.Base(dir))
}
