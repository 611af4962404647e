// Package supervise keeps a watch-list of services healthy with a bounded,
// strategy-based repair loop.
package supervise

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/stackctl/pkg/engine"
	"github.com/go-go-golems/stackctl/pkg/events"
	"github.com/go-go-golems/stackctl/pkg/health"
	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/go-go-golems/stackctl/pkg/wait"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Remediator is the set of engine primitives recovery strategies use.
type Remediator interface {
	StartWithDependencies(ctx context.Context, target string) (engine.Result, error)
	Restart(ctx context.Context, name string) error
	Rebuild(ctx context.Context, name string) error
}

type HealthChecker interface {
	CheckHealth(ctx context.Context, service string, timeout, interval time.Duration) health.Result
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	// OutcomeSkipped means another sweep was already repairing the service.
	OutcomeSkipped Outcome = "skipped"
)

type Attempt struct {
	Service       string    `json:"service"`
	Strategy      Strategy  `json:"strategy"`
	AttemptNumber int       `json:"attempt"`
	Outcome       Outcome   `json:"outcome"`
	Transient     bool      `json:"transient,omitempty"`
	Error         string    `json:"error,omitempty"`
	Findings      []Finding `json:"findings,omitempty"`
	Err           error     `json:"-"`
}

// Report summarizes one bounded sweep.
type Report struct {
	Healthy   bool      `json:"healthy"`
	Cycles    int       `json:"cycles"`
	Attempts  []Attempt `json:"attempts"`
	Unhealthy []string  `json:"unhealthy,omitempty"`
}

// ExhaustedError is returned when the attempt bound is used up.
type ExhaustedError struct {
	Unhealthy []string
	Attempts  int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("recovery exhausted after %d attempts; still unhealthy: %s", e.Attempts, strings.Join(e.Unhealthy, ", "))
}

type Options struct {
	Watch       []string
	MaxAttempts int
	Backoff     time.Duration
	// EvalTimeout bounds each health evaluation of a watched service.
	EvalTimeout  time.Duration
	PollInterval time.Duration
	LogLines     int
	Publisher    events.Publisher
}

type Monitor struct {
	rt   runtime.Runtime
	hc   HealthChecker
	rem  Remediator
	opts Options

	mu       sync.Mutex
	inflight map[string]bool
}

func New(rt runtime.Runtime, hc HealthChecker, rem Remediator, opts Options) *Monitor {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	if opts.EvalTimeout <= 0 {
		opts.EvalTimeout = 5 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.LogLines <= 0 {
		opts.LogLines = 50
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	opts.Watch = append([]string(nil), opts.Watch...)
	return &Monitor{rt: rt, hc: hc, rem: rem, opts: opts, inflight: map[string]bool{}}
}

func (m *Monitor) Watch() []string { return append([]string(nil), m.opts.Watch...) }

func (m *Monitor) publish(ctx context.Context, ev events.Event) {
	ev.At = time.Now()
	if err := m.opts.Publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Debug().Err(err).Str("event", string(ev.Type)).Msg("publish event")
	}
}

// Sweep evaluates the watch-list and repairs what is unhealthy, for at most
// MaxAttempts remediation cycles. Attempt numbering starts fresh on each call.
func (m *Monitor) Sweep(ctx context.Context) (Report, error) {
	rep := Report{Attempts: []Attempt{}}
	for attempt := 0; ; {
		unhealthy, err := m.evaluate(ctx)
		if err != nil {
			return rep, err
		}
		rep.Unhealthy = unhealthy
		if len(unhealthy) == 0 {
			rep.Healthy = true
			m.publish(ctx, events.Event{Type: events.RecoveryFinished, Status: "healthy", Attempt: attempt})
			log.Info().Int("cycles", rep.Cycles).Msg("watch-list healthy")
			return rep, nil
		}
		if attempt >= m.opts.MaxAttempts {
			m.publish(ctx, events.Event{Type: events.RecoveryFinished, Status: "exhausted", Attempt: attempt, Message: strings.Join(unhealthy, ",")})
			log.Error().Strs("unhealthy", unhealthy).Int("attempts", attempt).Msg("recovery exhausted")
			return rep, &ExhaustedError{Unhealthy: unhealthy, Attempts: attempt}
		}

		attempt++
		rep.Cycles = attempt
		failed := false
		for _, name := range unhealthy {
			a := m.remediate(ctx, name, attempt)
			rep.Attempts = append(rep.Attempts, a)
			if a.Outcome == OutcomeFailure {
				failed = true
			}
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if failed {
			log.Info().Dur("backoff", m.opts.Backoff).Int("attempt", attempt).Msg("remediation failed, backing off")
			if err := wait.Sleep(ctx, m.opts.Backoff); err != nil {
				return rep, err
			}
		}
	}
}

// evaluate returns the unhealthy watched services, in watch-list order.
func (m *Monitor) evaluate(ctx context.Context) ([]string, error) {
	results := make([]health.Result, len(m.opts.Watch))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range m.opts.Watch {
		g.Go(func() error {
			results[i] = m.hc.CheckHealth(gctx, name, m.opts.EvalTimeout, m.opts.PollInterval)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []string
	for i, r := range results {
		if r.Outcome != health.OutcomeHealthy {
			out = append(out, m.opts.Watch[i])
		}
	}
	return out, nil
}

func (m *Monitor) acquire(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight[name] {
		return false
	}
	m.inflight[name] = true
	return true
}

func (m *Monitor) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, name)
}

func (m *Monitor) remediate(ctx context.Context, name string, attempt int) Attempt {
	st, ierr := m.rt.Inspect(ctx, name)
	a := Attempt{Service: name, Strategy: Classify(st, ierr), AttemptNumber: attempt}

	if !m.acquire(name) {
		a.Outcome = OutcomeSkipped
		log.Info().Str("service", name).Msg("recovery already in flight")
		return a
	}
	defer m.release(name)

	log.Info().Str("service", name).Str("strategy", string(a.Strategy)).Int("attempt", attempt).Msg("recovering service")
	err := m.execute(ctx, name, &a)
	if err != nil {
		a.Outcome = OutcomeFailure
		a.Err = err
		a.Error = err.Error()
		log.Warn().Err(err).Str("service", name).Str("strategy", string(a.Strategy)).Msg("recovery step failed")
	} else {
		a.Outcome = OutcomeSuccess
	}
	m.publish(ctx, events.Event{
		Type:     events.RecoveryAttempt,
		Service:  name,
		Strategy: string(a.Strategy),
		Attempt:  attempt,
		Status:   string(a.Outcome),
		Message:  a.Error,
	})
	return a
}

func (m *Monitor) execute(ctx context.Context, name string, a *Attempt) error {
	switch a.Strategy {
	case StrategyRecreate:
		_, err := m.rem.StartWithDependencies(ctx, name)
		return err
	case StrategyRestart:
		return m.rem.Restart(ctx, name)
	case StrategyDiagnoseAndRestart:
		lines, err := m.rt.RecentLogs(ctx, name, m.opts.LogLines)
		if err != nil {
			log.Debug().Err(err).Str("service", name).Msg("could not read logs")
		}
		a.Findings = Diagnose(lines)
		for _, f := range a.Findings {
			log.Warn().Str("service", name).Str("kind", f.Kind).Str("line", f.Line).Msg("failure signature")
		}
		return m.rem.Restart(ctx, name)
	case StrategyHealthValidate:
		res := m.hc.CheckHealth(ctx, name, m.opts.EvalTimeout, m.opts.PollInterval)
		if res.Outcome == health.OutcomeHealthy {
			a.Transient = true
			return nil
		}
		return m.rem.Restart(ctx, name)
	default:
		return m.rem.Rebuild(ctx, name)
	}
}

// Run sweeps every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, onReport func(Report, error)) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		rep, err := m.Sweep(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if onReport != nil {
			onReport(rep, err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
