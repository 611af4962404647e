package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/stackctl/pkg/diagnostics"
	"github.com/go-go-golems/stackctl/pkg/engine"
	"github.com/rs/zerolog/log"
)

type ActionKind string

const (
	ActionStartAll ActionKind = "start-all"
	ActionStopAll  ActionKind = "stop-all"
	ActionRestart  ActionKind = "restart"
)

type ActionRequest struct {
	Kind    ActionKind `json:"kind"`
	Service string     `json:"service,omitempty"`
}

// Controller is what the dashboard drives; *engine.Engine satisfies it.
type Controller interface {
	StartAll(ctx context.Context) (engine.Result, error)
	StopAll(ctx context.Context) error
	Restart(ctx context.Context, name string) error
}

type Snapshotter interface {
	Snapshot(ctx context.Context) (diagnostics.Snapshot, error)
}

// RunAction executes req off the UI goroutine.
func RunAction(ctx context.Context, c Controller, req ActionRequest) tea.Cmd {
	return func() tea.Msg {
		log.Info().Str("action", string(req.Kind)).Str("service", req.Service).Msg("dashboard action")
		var err error
		switch req.Kind {
		case ActionStartAll:
			_, err = c.StartAll(ctx)
		case ActionStopAll:
			err = c.StopAll(ctx)
		case ActionRestart:
			err = c.Restart(ctx, req.Service)
		}
		return ActionDoneMsg{Request: req, Err: err}
	}
}

func FetchSnapshot(ctx context.Context, s Snapshotter, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		snap, err := s.Snapshot(sctx)
		return SnapshotMsg{Snapshot: snap, Err: err}
	}
}

func Tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return RefreshTickMsg{} })
}
