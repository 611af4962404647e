// Package runtime defines the container runtime contract the orchestration
// core drives, plus the typed state it reports back.
package runtime

import (
	"context"
	"time"
)

// Health is the runtime's own verdict on a unit, when it has one.
type Health string

const (
	HealthNone      Health = ""
	HealthStarting  Health = "starting"
	HealthHealthy   Health = "healthy"
	HealthUnhealthy Health = "unhealthy"
)

type Status string

const (
	StatusCreated    Status = "created"
	StatusRunning    Status = "running"
	StatusRestarting Status = "restarting"
	StatusPaused     Status = "paused"
	StatusExited     Status = "exited"
	StatusDead       Status = "dead"
)

// State is a typed snapshot of a unit. Found=false means the runtime has no
// unit by that name at all, which is different from an exited one.
type State struct {
	Found     bool      `json:"found"`
	Status    Status    `json:"status,omitempty"`
	Running   bool      `json:"running"`
	ExitCode  *int      `json:"exit_code,omitempty"`
	Health    Health    `json:"health,omitempty"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

func (s State) Exited() bool {
	return s.Found && !s.Running && (s.Status == StatusExited || s.Status == StatusDead)
}

// Runtime is implemented by every backend (docker compose, local processes,
// the in-memory fake). Mutating calls for one unit are never overlapped by callers.
type Runtime interface {
	Start(ctx context.Context, service string) error
	Stop(ctx context.Context, service string) error
	IsRunning(ctx context.Context, service string) bool
	Inspect(ctx context.Context, service string) (State, error)
	RecentLogs(ctx context.Context, service string, lines int) ([]string, error)
}

// Remover is implemented by runtimes that can delete a unit so the next Start recreates it.
type Remover interface {
	Remove(ctx context.Context, service string) error
}

// Execer runs a command inside a unit and reports its exit code and combined output.
type Execer interface {
	Exec(ctx context.Context, service string, cmd []string) (int, string, error)
}

func IntPtr(i int) *int { return &i }
