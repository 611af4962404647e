package docker

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"

	"github.com/pkg/errors"
)

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes one CLI invocation. The error is non-nil when the command
// could not run or exited non-zero; Result is populated either way.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	// #nosec G204 -- arguments are built from the stack config.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var ee *exec.ExitError
		if stderrors.As(err, &ee) {
			res.ExitCode = ee.ExitCode()
		} else {
			res.ExitCode = -1
		}
		return res, errors.Wrapf(err, "%s %v", name, args)
	}
	return res, nil
}
