package npm

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner abstracts command execution so tests never spawn processes.
type Runner interface {
	// Run executes name in dir and returns stdout. A non-zero exit is
	// returned as an error together with whatever was written to stdout.
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil && stderr.Len() > 0 {
		return stdout.Bytes(), &exitError{err: err, stderr: string(bytes.TrimSpace(stderr.Bytes()))}
	}
	return stdout.Bytes(), err
}

type exitError struct {
	err    error
	stderr string
}

func (e *exitError) Error() string { return e.err.Error() + ": " + e.stderr }
func (e *exitError) Unwrap() error { return e.err }
