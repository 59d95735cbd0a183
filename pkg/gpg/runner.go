//go:generate mockgen -destination=./mocks/runner.go . Runner
package gpg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// DefaultBinary is the encryption tool invoked when none is configured.
const DefaultBinary = "gpg"

// Runner runs the encryption tool with args, feeding input on stdin and
// returning everything written to stdout.
type Runner interface {
	Run(ctx context.Context, args []string, input []byte) ([]byte, error)
}

// ExitError is returned by ExecRunner when the tool exits unsuccessfully.
type ExitError struct {
	// Binary is the program that exited. Empty means DefaultBinary.
	Binary string
	Code   int
	Stderr []byte
}

func (e *ExitError) Error() string {
	binary := e.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	return fmt.Sprintf("%s exited with status %d", binary, e.Code)
}

// ExecRunner runs the tool as a subprocess.
type ExecRunner struct {
	binary string
}

// NewExecRunner creates a runner for binary. An empty binary selects DefaultBinary.
func NewExecRunner(binary string) *ExecRunner {
	if binary == "" {
		binary = DefaultBinary
	}
	return &ExecRunner{binary: binary}
}

// Binary returns the program the runner starts.
func (r *ExecRunner) Binary() string {
	return r.binary
}

// Run starts the tool and writes input on a separate goroutine while the
// process output is drained. Both sides are joined before the exit status is
// inspected, so inputs and outputs of any size are safe.
func (r *ExecRunner) Run(ctx context.Context, args []string, input []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	writeErr := make(chan error, 1)
	go func() {
		_, err := stdin.Write(input)
		if closeErr := stdin.Close(); err == nil {
			err = closeErr
		}
		writeErr <- err
	}()

	waitErr := cmd.Wait()
	if err := <-writeErr; err != nil && !isClosedPipe(err) {
		return nil, err
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return nil, &ExitError{Binary: r.binary, Code: exitErr.ExitCode(), Stderr: stderr.Bytes()}
		}
		return nil, waitErr
	}
	return stdout.Bytes(), nil
}

// isClosedPipe reports write failures caused by the tool exiting before it
// consumed all of its input. The exit status carries the real outcome.
func isClosedPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
