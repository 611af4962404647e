// Package events carries orchestration and recovery lifecycle events to
// whoever listens: the metrics collector, the dashboard, structured logs.
package events

import (
	"context"
	"sync"
	"time"
)

const TopicStackEvents = "stackctl.events"

type Type string

const (
	ServiceStarting  Type = "service.starting"
	ServiceHealthy   Type = "service.healthy"
	ServiceSkipped   Type = "service.skipped"
	ServiceFailed    Type = "service.failed"
	ServiceStopped   Type = "service.stopped"
	RollbackStarted  Type = "rollback.started"
	RollbackStopped  Type = "rollback.stopped"
	RollbackFinished Type = "rollback.finished"
	RecoveryAttempt  Type = "recovery.attempt"
	RecoveryFinished Type = "recovery.finished"
)

type Event struct {
	Type     Type      `json:"type"`
	Session  string    `json:"session,omitempty"`
	Service  string    `json:"service,omitempty"`
	Status   string    `json:"status,omitempty"`
	Strategy string    `json:"strategy,omitempty"`
	Attempt  int       `json:"attempt,omitempty"`
	Message  string    `json:"message,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher must not block the orchestration path for long; failures are
// reported but never change an orchestration outcome.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Fanout publishes to every publisher and returns the first error.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var first error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, ev)
	return nil
}

func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, 0, len(r.Events))
	for _, ev := range r.Events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *Recorder) OfType(t Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.Events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
