package cmds

import (
	"github.com/go-go-golems/stackctl/pkg/config"
	"github.com/go-go-golems/stackctl/pkg/graph"
	"github.com/go-go-golems/stackctl/pkg/supervise"
	"github.com/pkg/errors"
)

const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitConfig    = 2
	ExitExhausted = 3
)

// ExitCode maps a command error onto the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exhausted *supervise.ExhaustedError
	if errors.As(err, &exhausted) {
		return ExitExhausted
	}
	var verr *config.ValidationError
	var unknown *graph.UnknownServiceError
	var cycle *graph.CyclicDependencyError
	if errors.As(err, &verr) || errors.As(err, &unknown) || errors.As(err, &cycle) {
		return ExitConfig
	}
	return ExitFailure
}
