// Package health decides whether a service is ready, layering the runtime's
// liveness signal, the runtime's own health verdict and a per-service probe.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/go-go-golems/stackctl/pkg/wait"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusStarting  Status = "starting"
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusStopped   Status = "stopped"
)

// Outcome is the verdict of a bounded CheckHealth call.
type Outcome string

const (
	OutcomeHealthy   Outcome = "healthy"
	OutcomeUnhealthy Outcome = "unhealthy"
	OutcomeTimedOut  Outcome = "timed_out"
)

type Layer string

const (
	LayerLiveness Layer = "liveness"
	LayerRuntime  Layer = "runtime"
	LayerProbe    Layer = "probe"
)

// Report is the result of one pass over the layers.
type Report struct {
	Service string        `json:"service"`
	Status  Status        `json:"status"`
	Layer   Layer         `json:"layer,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	Runtime runtime.State `json:"runtime"`
}

// Definitive reports whether polling can stop on this report.
func (r Report) Definitive() bool {
	return r.Status == StatusHealthy || r.Status == StatusUnhealthy || r.Status == StatusStopped
}

type Result struct {
	Service string        `json:"service"`
	Outcome Outcome       `json:"outcome"`
	Last    Report        `json:"last"`
	Elapsed time.Duration `json:"elapsed"`
}

type Options struct {
	// ProbeTimeout bounds a single probe attempt.
	ProbeTimeout time.Duration
}

type Checker struct {
	rt     runtime.Runtime
	opts   Options
	mu     sync.RWMutex
	probes map[string]Probe
}

func NewChecker(rt runtime.Runtime, opts Options) *Checker {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 3 * time.Second
	}
	return &Checker{rt: rt, opts: opts, probes: map[string]Probe{}}
}

// Register sets the probe for a service, replacing any previous one.
func (c *Checker) Register(service string, p Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[service] = p
}

func (c *Checker) probe(service string) Probe {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.probes[service]; ok {
		return p
	}
	return ProcessRunning()
}

// Check runs every layer once.
func (c *Checker) Check(ctx context.Context, service string) Report {
	rep := Report{Service: service, Status: StatusUnknown}
	if err := ctx.Err(); err != nil {
		rep.Reason = err.Error()
		return rep
	}

	st, err := c.rt.Inspect(ctx, service)
	if err != nil {
		rep.Layer = LayerLiveness
		rep.Reason = err.Error()
		return rep
	}
	rep.Runtime = st

	if !st.Found {
		rep.Status, rep.Layer, rep.Reason = StatusStopped, LayerLiveness, "no unit found"
		return rep
	}
	if !st.Running {
		switch st.Status {
		case runtime.StatusCreated, runtime.StatusRestarting:
			rep.Status, rep.Layer, rep.Reason = StatusStarting, LayerLiveness, string(st.Status)
		default:
			rep.Status, rep.Layer, rep.Reason = StatusStopped, LayerLiveness, "not running"
		}
		return rep
	}

	switch st.Health {
	case runtime.HealthUnhealthy:
		rep.Status, rep.Layer, rep.Reason = StatusUnhealthy, LayerRuntime, "runtime reports unhealthy"
		return rep
	case runtime.HealthHealthy:
		rep.Status, rep.Layer = StatusHealthy, LayerRuntime
		return rep
	}

	pctx, cancel := context.WithTimeout(ctx, c.opts.ProbeTimeout)
	defer cancel()
	rep.Layer = LayerProbe
	if err := runProbe(pctx, c.probe(service), Target{Service: service, Runtime: c.rt, State: st}); err != nil {
		rep.Status, rep.Reason = StatusStarting, err.Error()
		return rep
	}
	rep.Status = StatusHealthy
	return rep
}

// runProbe turns a probe panic into an inconclusive error.
func runProbe(ctx context.Context, p Probe, t Target) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("probe panicked: %v", r)
		}
	}()
	return p.Probe(ctx, t)
}

// CheckHealth polls Check every interval until a definitive verdict or timeout.
// A probe that never succeeds yields OutcomeTimedOut, never OutcomeUnhealthy.
func (c *Checker) CheckHealth(ctx context.Context, service string, timeout, interval time.Duration) Result {
	start := time.Now()
	var last Report
	seen := false
	err := wait.Poll(ctx, timeout, interval, func(ctx context.Context) (bool, error) {
		rep := c.Check(ctx, service)
		if seen && ctx.Err() != nil {
			// Cut short by the deadline; the previous report is the last real one.
			return false, nil
		}
		last, seen = rep, true
		log.Debug().Str("service", service).Str("status", string(last.Status)).Str("reason", last.Reason).Msg("health check")
		return last.Definitive(), nil
	})

	res := Result{Service: service, Last: last, Elapsed: time.Since(start)}
	switch {
	case err == nil && last.Status == StatusHealthy:
		res.Outcome = OutcomeHealthy
	case err == nil:
		res.Outcome = OutcomeUnhealthy
	case errors.Is(err, wait.ErrTimeout), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		res.Outcome = OutcomeTimedOut
	default:
		res.Outcome = OutcomeUnhealthy
	}
	return res
}

// Healthy is a single-pass convenience used by status views.
func (c *Checker) Healthy(ctx context.Context, service string) bool {
	return c.Check(ctx, service).Status == StatusHealthy
}
