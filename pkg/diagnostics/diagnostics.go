// Package diagnostics builds a read-only snapshot of every service for
// operators. Nothing here mutates the runtime.
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/go-go-golems/stackctl/pkg/health"
	"github.com/go-go-golems/stackctl/pkg/proc"
	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/go-go-golems/stackctl/pkg/tui/widgets"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var errorLine = regexp.MustCompile(`(?i)\b(error|fatal|panic|exception)\b`)

type Checker interface {
	Check(ctx context.Context, service string) health.Report
}

type Options struct {
	LogLines    int
	Concurrency int
}

type ServiceReport struct {
	Name       string        `json:"name"`
	Health     health.Status `json:"health"`
	Layer      health.Layer  `json:"layer,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Runtime    runtime.State `json:"runtime"`
	ErrorLines int           `json:"error_lines"`
	LogError   string        `json:"log_error,omitempty"`
	Stats      *proc.Stats   `json:"stats,omitempty"`
}

type Snapshot struct {
	At        time.Time       `json:"at"`
	Services  []ServiceReport `json:"services"`
	Healthy   int             `json:"healthy"`
	Unhealthy int             `json:"unhealthy"`
}

func (s Snapshot) AllHealthy() bool { return s.Unhealthy == 0 }

type Reporter struct {
	rt      runtime.Runtime
	hc      Checker
	names   []string
	opts    Options
	sampler *proc.Sampler
}

func New(rt runtime.Runtime, hc Checker, names []string, opts Options) *Reporter {
	if opts.LogLines <= 0 {
		opts.LogLines = 200
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Reporter{rt: rt, hc: hc, names: append([]string(nil), names...), opts: opts, sampler: proc.NewSampler()}
}

// Snapshot reports on every known service. A failure to read one service's
// logs or stats is recorded on that service, never returned.
func (r *Reporter) Snapshot(ctx context.Context) (Snapshot, error) {
	reports := make([]ServiceReport, len(r.names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, name := range r.names {
		g.Go(func() error {
			reports[i] = r.service(gctx, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{At: time.Now(), Services: reports}
	var pids []int
	for _, s := range reports {
		if s.Health == health.StatusHealthy {
			snap.Healthy++
		} else {
			snap.Unhealthy++
		}
		if s.Runtime.PID > 0 {
			pids = append(pids, s.Runtime.PID)
		}
	}
	r.sampler.Forget(pids)
	return snap, nil
}

func (r *Reporter) service(ctx context.Context, name string) ServiceReport {
	rep := r.hc.Check(ctx, name)
	out := ServiceReport{
		Name:    name,
		Health:  rep.Status,
		Layer:   rep.Layer,
		Reason:  rep.Reason,
		Runtime: rep.Runtime,
	}
	if rep.Runtime.Found {
		lines, err := r.rt.RecentLogs(ctx, name, r.opts.LogLines)
		if err != nil {
			out.LogError = err.Error()
		}
		out.ErrorLines = CountErrorLines(lines)
	}
	if rep.Runtime.PID > 0 {
		if st, err := r.sampler.Sample(rep.Runtime.PID); err == nil {
			out.Stats = st
		}
	}
	return out
}

func CountErrorLines(lines []string) int {
	n := 0
	for _, l := range lines {
		if errorLine.MatchString(l) {
			n++
		}
	}
	return n
}

func WriteJSON(w io.Writer, snap Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// Table lays a snapshot out in the shared widget table.
func Table(snap Snapshot) widgets.Table {
	cols := []widgets.Column{
		{Header: "SERVICE", Width: 14},
		{Header: "HEALTH", Width: 11},
		{Header: "STATE", Width: 12},
		{Header: "PID", Width: 8},
		{Header: "ERRORS", Width: 8},
		{Header: "CPU%", Width: 7},
		{Header: "MEM MB", Width: 8},
		{Header: "REASON", Width: 40},
	}
	rows := make([]widgets.Row, 0, len(snap.Services))
	for _, s := range snap.Services {
		pid, cpu, mem := "-", "-", "-"
		if s.Runtime.PID > 0 {
			pid = fmt.Sprint(s.Runtime.PID)
		}
		if s.Stats != nil {
			cpu = fmt.Sprintf("%.1f", s.Stats.CPUPercent)
			mem = fmt.Sprint(s.Stats.MemoryMB)
		}
		rows = append(rows, widgets.Row{
			Status: string(s.Health),
			Cells:  []string{s.Name, string(s.Health), stateLabel(s.Runtime), pid, fmt.Sprint(s.ErrorLines), cpu, mem, s.Reason},
		})
	}
	return widgets.NewTable(cols).WithRows(rows)
}

func WriteTable(w io.Writer, snap Snapshot) error {
	_, err := fmt.Fprintf(w, "%s\n\n%d healthy, %d unhealthy\n", Table(snap).Render(), snap.Healthy, snap.Unhealthy)
	return err
}

func stateLabel(st runtime.State) string {
	switch {
	case !st.Found:
		return "missing"
	case st.ExitCode != nil && !st.Running:
		return fmt.Sprintf("%s(%d)", st.Status, *st.ExitCode)
	case st.Status != "":
		return string(st.Status)
	default:
		return "unknown"
	}
}
