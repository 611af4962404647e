// Package engine brings services up in dependency order behind a health gate
// and undoes exactly what it started when a step fails.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/stackctl/pkg/events"
	"github.com/go-go-golems/stackctl/pkg/graph"
	"github.com/go-go-golems/stackctl/pkg/health"
	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

// HealthChecker is the part of health.Checker the engine needs.
type HealthChecker interface {
	Check(ctx context.Context, service string) health.Report
	CheckHealth(ctx context.Context, service string, timeout, interval time.Duration) health.Result
}

type Options struct {
	PollInterval   time.Duration
	DefaultTimeout time.Duration
	// StopTimeout bounds each stop issued during rollback and teardown.
	StopTimeout time.Duration
	// Terminal overrides the service StartAll targets.
	Terminal  string
	Publisher events.Publisher
}

type Engine struct {
	g    *graph.Graph
	rt   runtime.Runtime
	hc   HealthChecker
	opts Options

	locks keyedMutex

	mu     sync.Mutex
	status map[string]health.Status
}

// Result describes one successful StartWithDependencies call.
type Result struct {
	Session string   `json:"session"`
	Target  string   `json:"target"`
	Order   []string `json:"order"`
	Started []string `json:"started"`
	Skipped []string `json:"skipped"`
}

func New(g *graph.Graph, rt runtime.Runtime, hc HealthChecker, opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 60 * time.Second
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 30 * time.Second
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	return &Engine{g: g, rt: rt, hc: hc, opts: opts, status: map[string]health.Status{}}
}

func (e *Engine) Graph() *graph.Graph { return e.g }

// Status is the engine's bookkeeping for a service, StatusUnknown if never touched.
func (e *Engine) Status(name string) health.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.status[name]; ok {
		return s
	}
	return health.StatusUnknown
}

func (e *Engine) setStatus(name string, s health.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status[name] = s
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	ev.At = time.Now()
	if err := e.opts.Publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Debug().Err(err).Str("event", string(ev.Type)).Msg("publish event")
	}
}

func (e *Engine) timeout(name string) time.Duration {
	if s, ok := e.g.Service(name); ok && s.StartupTimeout > 0 {
		return s.StartupTimeout
	}
	return e.opts.DefaultTimeout
}

// StartWithDependencies starts target and its dependency closure in order.
// Already-healthy services are skipped. On any failure the services this call
// started are stopped in reverse order and a *StartupError is returned.
func (e *Engine) StartWithDependencies(ctx context.Context, target string) (Result, error) {
	order, err := e.g.Resolve(target)
	if err != nil {
		return Result{}, &StartupError{Service: target, Stage: StageResolve, Err: err}
	}

	sess := &session{id: uuid.NewString()}
	res := Result{Session: sess.id, Target: target, Order: order, Started: []string{}, Skipped: []string{}}
	log.Info().Str("session", sess.id).Str("target", target).Strs("order", order).Msg("starting services")

	for _, name := range order {
		step, err := e.startStep(ctx, sess, name)
		if err != nil {
			e.rollback(ctx, sess)
			return res, err
		}
		if step == stepSkipped {
			res.Skipped = append(res.Skipped, name)
			continue
		}
		sess.record(name)
		res.Started = append(res.Started, name)
	}

	log.Info().Str("session", sess.id).Str("target", target).Strs("started", res.Started).Msg("services healthy")
	return res, nil
}

type stepResult int

const (
	stepStarted stepResult = iota
	stepSkipped
)

func (e *Engine) startStep(ctx context.Context, sess *session, name string) (stepResult, error) {
	if err := ctx.Err(); err != nil {
		return stepStarted, &StartupError{Service: name, Stage: StageStartup, LastStatus: e.Status(name), Err: err}
	}

	unlock := e.locks.Lock(name)
	defer unlock()

	pre := e.hc.Check(ctx, name)
	if pre.Status == health.StatusHealthy {
		e.setStatus(name, health.StatusHealthy)
		e.publish(ctx, events.Event{Type: events.ServiceSkipped, Session: sess.id, Service: name, Status: string(pre.Status)})
		log.Debug().Str("service", name).Msg("already healthy, skipping")
		return stepSkipped, nil
	}

	// A unit that was already running belongs to whoever started it: gate on
	// its health but never issue Start, and never roll it back.
	adopted := pre.Runtime.Running
	e.setStatus(name, health.StatusStarting)
	if adopted {
		log.Debug().Str("service", name).Str("reason", pre.Reason).Msg("already running, waiting for health")
	} else {
		e.publish(ctx, events.Event{Type: events.ServiceStarting, Session: sess.id, Service: name})
		if err := e.rt.Start(ctx, name); err != nil {
			e.setStatus(name, health.StatusUnhealthy)
			e.publish(ctx, events.Event{Type: events.ServiceFailed, Session: sess.id, Service: name, Status: string(pre.Status), Message: err.Error()})
			log.Error().Err(err).Str("service", name).Msg("start failed")
			return stepStarted, &StartupError{Service: name, Stage: StageStartup, LastStatus: pre.Status, Err: err}
		}
	}

	hr := e.hc.CheckHealth(ctx, name, e.timeout(name), e.opts.PollInterval)
	if hr.Outcome != health.OutcomeHealthy {
		cause := ErrUnhealthy
		if hr.Outcome == health.OutcomeTimedOut {
			cause = ErrTimedOut
		}
		if hr.Last.Reason != "" {
			cause = errors.Wrap(cause, hr.Last.Reason)
		}
		e.setStatus(name, hr.Last.Status)
		e.publish(ctx, events.Event{Type: events.ServiceFailed, Session: sess.id, Service: name, Status: string(hr.Outcome), Message: hr.Last.Reason})
		log.Error().Str("service", name).Str("outcome", string(hr.Outcome)).Str("reason", hr.Last.Reason).Dur("elapsed", hr.Elapsed).Msg("health check failed")
		return stepStarted, &StartupError{Service: name, Stage: StageHealth, LastStatus: hr.Last.Status, Err: cause}
	}

	e.setStatus(name, health.StatusHealthy)
	if adopted {
		e.publish(ctx, events.Event{Type: events.ServiceSkipped, Session: sess.id, Service: name, Status: string(health.StatusHealthy)})
		log.Info().Str("service", name).Dur("elapsed", hr.Elapsed).Msg("running service became healthy, skipping")
		return stepSkipped, nil
	}
	e.publish(ctx, events.Event{Type: events.ServiceHealthy, Session: sess.id, Service: name, Status: string(health.StatusHealthy)})
	log.Info().Str("service", name).Dur("elapsed", hr.Elapsed).Msg("service healthy")
	return stepStarted, nil
}

// rollback stops what sess started, newest first. Stop failures are logged only.
func (e *Engine) rollback(ctx context.Context, sess *session) {
	started := sess.reversed()
	e.publish(ctx, events.Event{Type: events.RollbackStarted, Session: sess.id, Message: joinNames(started)})
	log.Warn().Str("session", sess.id).Strs("services", started).Msg("rolling back")

	// Cleanup runs even when the caller's context is already done.
	base := context.WithoutCancel(ctx)
	for _, name := range started {
		sctx, cancel := context.WithTimeout(base, e.opts.StopTimeout)
		unlock := e.locks.Lock(name)
		err := e.rt.Stop(sctx, name)
		unlock()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("service", name).Msg("rollback stop failed")
			e.publish(ctx, events.Event{Type: events.RollbackStopped, Session: sess.id, Service: name, Message: err.Error()})
			continue
		}
		e.setStatus(name, health.StatusStopped)
		e.publish(ctx, events.Event{Type: events.RollbackStopped, Session: sess.id, Service: name, Status: string(health.StatusStopped)})
	}
	e.publish(ctx, events.Event{Type: events.RollbackFinished, Session: sess.id})
}

// Terminal is the service StartAll brings up.
func (e *Engine) Terminal() (string, error) {
	if e.opts.Terminal != "" {
		return e.opts.Terminal, nil
	}
	return e.g.Terminal()
}

// StartAll brings up the whole stack through its terminal service.
func (e *Engine) StartAll(ctx context.Context) (Result, error) {
	if err := e.g.Validate(); err != nil {
		return Result{}, &StartupError{Stage: StageResolve, Err: err}
	}
	term, err := e.Terminal()
	if err != nil {
		return Result{}, &StartupError{Stage: StageResolve, Err: err}
	}
	return e.StartWithDependencies(ctx, term)
}

// StopAll stops every service in reverse global dependency order, whatever the
// engine believes about them. Every stop is attempted; errors are combined.
func (e *Engine) StopAll(ctx context.Context) error {
	order, err := e.g.Order()
	if err != nil {
		return &StartupError{Stage: StageResolve, Err: err}
	}
	var errs error
	for i := len(order) - 1; i >= 0; i-- {
		if err := e.StopService(ctx, order[i]); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// StartService starts one service behind the health gate, dependencies untouched.
func (e *Engine) StartService(ctx context.Context, name string) error {
	if !e.g.Has(name) {
		return &StartupError{Service: name, Stage: StageResolve, Err: &graph.UnknownServiceError{Name: name}}
	}
	sess := &session{id: uuid.NewString()}
	_, err := e.startStep(ctx, sess, name)
	return err
}

func (e *Engine) StopService(ctx context.Context, name string) error {
	if !e.g.Has(name) {
		return &StartupError{Service: name, Stage: StageResolve, Err: &graph.UnknownServiceError{Name: name}}
	}
	sctx, cancel := context.WithTimeout(ctx, e.opts.StopTimeout)
	defer cancel()

	unlock := e.locks.Lock(name)
	defer unlock()
	if err := e.rt.Stop(sctx, name); err != nil {
		log.Warn().Err(err).Str("service", name).Msg("stop failed")
		return err
	}
	e.setStatus(name, health.StatusStopped)
	e.publish(ctx, events.Event{Type: events.ServiceStopped, Service: name, Status: string(health.StatusStopped)})
	log.Info().Str("service", name).Msg("service stopped")
	return nil
}

// Restart stops and starts a single service.
func (e *Engine) Restart(ctx context.Context, name string) error {
	if err := e.StopService(ctx, name); err != nil {
		return err
	}
	return e.StartService(ctx, name)
}

// Rebuild stops and removes a service, then brings it back with its prerequisites.
func (e *Engine) Rebuild(ctx context.Context, name string) error {
	if err := e.StopService(ctx, name); err != nil {
		return err
	}
	if rm, ok := e.rt.(runtime.Remover); ok {
		unlock := e.locks.Lock(name)
		err := rm.Remove(ctx, name)
		unlock()
		if err != nil {
			return err
		}
	}
	_, err := e.StartWithDependencies(ctx, name)
	return err
}
