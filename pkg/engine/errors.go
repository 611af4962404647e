package engine

import (
	"fmt"

	"github.com/go-go-golems/stackctl/pkg/health"
	"github.com/pkg/errors"
)

// Stage names where an orchestration step failed.
type Stage string

const (
	StageResolve  Stage = "dependency resolution"
	StageStartup  Stage = "startup"
	StageHealth   Stage = "health check"
	StageRollback Stage = "rollback"
	StageRecovery Stage = "recovery"
)

var (
	ErrTimedOut  = errors.New("health check timed out")
	ErrUnhealthy = errors.New("service reported unhealthy")
)

// StartupError names the service and stage that stopped an orchestration call.
type StartupError struct {
	Service    string
	Stage      Stage
	LastStatus health.Status
	Err        error
}

func (e *StartupError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
	if e.LastStatus != "" {
		return fmt.Sprintf("%s failed for %q (last status %s): %v", e.Stage, e.Service, e.LastStatus, e.Err)
	}
	return fmt.Sprintf("%s failed for %q: %v", e.Stage, e.Service, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }
