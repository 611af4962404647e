// Package metrics turns stack events into Prometheus series.
package metrics

import (
	"context"
	"net/http"

	"github.com/go-go-golems/stackctl/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests and multiple stacks never collide.
type Collector struct {
	reg *prometheus.Registry

	starts           *prometheus.CounterVec
	rollbacks        prometheus.Counter
	rollbackStops    *prometheus.CounterVec
	recoveryAttempts *prometheus.CounterVec
	sweeps           *prometheus.CounterVec
	healthy          *prometheus.GaugeVec
}

var _ events.Publisher = (*Collector)(nil)

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collector{
		reg: reg,
		starts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stackctl_service_starts_total",
			Help: "Service start attempts by outcome",
		}, []string{"service", "outcome"}),
		rollbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "stackctl_rollbacks_total",
			Help: "Startup sessions rolled back",
		}),
		rollbackStops: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stackctl_rollback_stops_total",
			Help: "Services stopped during rollback by outcome",
		}, []string{"service", "outcome"}),
		recoveryAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stackctl_recovery_attempts_total",
			Help: "Recovery attempts by strategy and outcome",
		}, []string{"service", "strategy", "outcome"}),
		sweeps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stackctl_recovery_sweeps_total",
			Help: "Completed recovery sweeps by result",
		}, []string{"result"}),
		healthy: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stackctl_service_healthy",
			Help: "1 when the service last passed its health gate, 0 when it failed or stopped",
		}, []string{"service"}),
	}
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

func (c *Collector) Publish(_ context.Context, ev events.Event) error {
	c.Observe(ev)
	return nil
}

func (c *Collector) Observe(ev events.Event) {
	switch ev.Type {
	case events.ServiceHealthy, events.ServiceSkipped:
		outcome := "started"
		if ev.Type == events.ServiceSkipped {
			outcome = "skipped"
		}
		c.starts.WithLabelValues(ev.Service, outcome).Inc()
		c.healthy.WithLabelValues(ev.Service).Set(1)
	case events.ServiceFailed:
		c.starts.WithLabelValues(ev.Service, "failed").Inc()
		c.healthy.WithLabelValues(ev.Service).Set(0)
	case events.ServiceStopped:
		c.healthy.WithLabelValues(ev.Service).Set(0)
	case events.RollbackStarted:
		c.rollbacks.Inc()
	case events.RollbackStopped:
		outcome := "stopped"
		if ev.Status == "" {
			outcome = "failed"
		} else {
			c.healthy.WithLabelValues(ev.Service).Set(0)
		}
		c.rollbackStops.WithLabelValues(ev.Service, outcome).Inc()
	case events.RecoveryAttempt:
		c.recoveryAttempts.WithLabelValues(ev.Service, ev.Strategy, ev.Status).Inc()
	case events.RecoveryFinished:
		c.sweeps.WithLabelValues(ev.Status).Inc()
	}
}
