package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-go-golems/stackctl/pkg/config"
	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/go-go-golems/stackctl/pkg/runtime/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func failing() Probe {
	return ProbeFunc(func(context.Context, Target) error { return errors.New("not yet") })
}

func TestCheck_Layers(t *testing.T) {
	rt := memory.New()
	c := NewChecker(rt, Options{})
	ctx := context.Background()

	rep := c.Check(ctx, "db")
	require.Equal(t, StatusStopped, rep.Status)
	require.Equal(t, LayerLiveness, rep.Layer)

	rt.SetExited("db", 1)
	require.Equal(t, StatusStopped, c.Check(ctx, "db").Status)

	rt.SetRunning("db", runtime.HealthUnhealthy)
	c.Register("db", ProcessRunning())
	rep = c.Check(ctx, "db")
	require.Equal(t, StatusUnhealthy, rep.Status)
	require.Equal(t, LayerRuntime, rep.Layer)

	// A positive runtime verdict is enough even if the probe would fail.
	rt.SetRunning("db", runtime.HealthHealthy)
	c.Register("db", failing())
	require.Equal(t, StatusHealthy, c.Check(ctx, "db").Status)

	rt.SetRunning("db", runtime.HealthNone)
	rep = c.Check(ctx, "db")
	require.Equal(t, StatusStarting, rep.Status)
	require.Equal(t, LayerProbe, rep.Layer)

	rt.FailInspect("db", errors.New("daemon down"))
	require.Equal(t, StatusUnknown, c.Check(ctx, "db").Status)
}

func TestCheckHealth_TimeoutIsDistinctFromUnhealthy(t *testing.T) {
	rt := memory.New()
	c := NewChecker(rt, Options{})
	ctx := context.Background()

	rt.SetRunning("api", runtime.HealthNone)
	c.Register("api", failing())
	res := c.CheckHealth(ctx, "api", 100*time.Millisecond, 10*time.Millisecond)
	require.Equal(t, OutcomeTimedOut, res.Outcome)
	require.Equal(t, StatusStarting, res.Last.Status)

	rt.SetRunning("api", runtime.HealthUnhealthy)
	res = c.CheckHealth(ctx, "api", time.Second, 10*time.Millisecond)
	require.Equal(t, OutcomeUnhealthy, res.Outcome)
	require.Less(t, res.Elapsed, 500*time.Millisecond)
}

func TestCheckHealth_BecomesHealthy(t *testing.T) {
	rt := memory.New()
	c := NewChecker(rt, Options{})
	rt.SetRunning("api", runtime.HealthNone)

	calls := 0
	c.Register("api", ProbeFunc(func(context.Context, Target) error {
		calls++
		if calls < 3 {
			return errors.New("warming up")
		}
		return nil
	}))
	res := c.CheckHealth(context.Background(), "api", 2*time.Second, 10*time.Millisecond)
	require.Equal(t, OutcomeHealthy, res.Outcome)
	require.Equal(t, 3, calls)
}

func TestCheckHealth_CancelledIsTimedOut(t *testing.T) {
	rt := memory.New()
	c := NewChecker(rt, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := c.CheckHealth(ctx, "api", time.Second, 10*time.Millisecond)
	require.Equal(t, OutcomeTimedOut, res.Outcome)
}

func TestPortOpen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	p := PortOpen("127.0.0.1", port)
	require.NoError(t, p.Probe(context.Background(), Target{}))

	_ = ln.Close()
	require.Error(t, p.Probe(context.Background(), Target{}))
}

func TestHTTPEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	require.NoError(t, HTTPEndpoint(srv.URL+"/health").Probe(context.Background(), Target{}))
	require.Error(t, HTTPEndpoint(srv.URL+"/other").Probe(context.Background(), Target{}))
}

func TestCommandProbeUsesExecer(t *testing.T) {
	rt := memory.New()
	rt.SetRunning("db", runtime.HealthNone)
	p := Command([]string{"pg_isready"})
	target := Target{Service: "db", Runtime: rt}
	require.NoError(t, p.Probe(context.Background(), target))

	rt.SetExecCode("db", 2)
	require.Error(t, p.Probe(context.Background(), target))
	require.Equal(t, []string{"db", "db"}, rt.CallsFor("exec"))
}

func TestFromSpec(t *testing.T) {
	_, err := FromSpec(config.Probe{Kind: "bogus"})
	require.Error(t, err)

	for _, p := range []config.Probe{
		{Kind: config.ProbeProcess},
		{Kind: config.ProbePort, Port: 80},
		{Kind: config.ProbeHTTP, Port: 8000, Path: "health"},
		{Kind: config.ProbeCommand, Command: []string{"true"}},
	} {
		got, err := FromSpec(p)
		require.NoError(t, err)
		require.NotNil(t, got)
	}
}

func TestCheck_ProbePanicIsInconclusive(t *testing.T) {
	rt := memory.New()
	rt.SetRunning("api", runtime.HealthNone)
	c := NewChecker(rt, Options{})
	c.Register("api", ProbeFunc(func(context.Context, Target) error { panic("boom") }))

	rep := c.Check(context.Background(), "api")
	require.Equal(t, StatusStarting, rep.Status)
	require.Contains(t, rep.Reason, "boom")
}

func TestCheckHealth_DeadlineKeepsLastRealReport(t *testing.T) {
	rt := memory.New()
	rt.SetRunning("api", runtime.HealthNone)
	c := NewChecker(rt, Options{})
	c.Register("api", failing())

	for i := 0; i < 300; i++ {
		res := c.CheckHealth(context.Background(), "api", 3*time.Millisecond, time.Millisecond)
		require.Equal(t, OutcomeTimedOut, res.Outcome)
		require.Equal(t, StatusStarting, res.Last.Status, "run %d: %+v", i, res.Last)
		require.True(t, res.Last.Runtime.Found, "run %d", i)
	}
}
