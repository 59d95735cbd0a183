package gpg

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_EchoesLargeInput(t *testing.T) {
	requireShell(t)

	// Larger than any pipe buffer in both directions.
	input := bytes.Repeat([]byte("0123456789abcdef"), 1<<16)

	out, err := NewExecRunner("sh").Run(context.Background(), []string{"-c", "cat"}, input)
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)

	_, err := NewExecRunner("sh").Run(context.Background(),
		[]string{"-c", "echo 'gpg: no secret key' >&2; exit 2"}, []byte("ciphertext"))

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
	assert.Equal(t, "gpg: no secret key\n", string(exitErr.Stderr))
	assert.Equal(t, "sh", exitErr.Binary)
	assert.EqualError(t, err, "sh exited with status 2")
}

func TestExecRunner_ExitBeforeReadingInput(t *testing.T) {
	requireShell(t)

	input := bytes.Repeat([]byte{'x'}, 1<<20)
	_, err := NewExecRunner("sh").Run(context.Background(), []string{"-c", "exit 5"}, input)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 5, exitErr.Code)
}

func TestExecRunner_StartFailure(t *testing.T) {
	_, err := NewExecRunner("/nonexistent/passd-gpg").Run(context.Background(), nil, nil)
	require.Error(t, err)

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}

func TestNewExecRunner_DefaultBinary(t *testing.T) {
	assert.Equal(t, DefaultBinary, NewExecRunner("").Binary())
	assert.Equal(t, "gpg2", NewExecRunner("gpg2").Binary())
}

func TestExitError_Message(t *testing.T) {
	assert.EqualError(t, &ExitError{Binary: "gpg2", Code: 2}, "gpg2 exited with status 2")
	assert.EqualError(t, &ExitError{Code: 2}, "gpg exited with status 2")
}
