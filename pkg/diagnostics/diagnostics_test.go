package diagnostics

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/go-go-golems/stackctl/pkg/health"
	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/go-go-golems/stackctl/pkg/runtime/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	rt := memory.New()
	rt.Set("db", runtime.State{Found: true, Running: true, Status: runtime.StatusRunning, Health: runtime.HealthHealthy, PID: os.Getpid()})
	rt.SetExited("api", 1)
	rt.SetLogs("api", []string{"starting", "ERROR: bad config", "panic: nil map", "errorless"})
	rt.FailInspect("proxy", errors.New("daemon down"))

	r := New(rt, health.NewChecker(rt, health.Options{}), []string{"db", "api", "proxy"}, Options{})
	snap, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Services, 3)
	require.Equal(t, 1, snap.Healthy)
	require.Equal(t, 2, snap.Unhealthy)
	require.False(t, snap.AllHealthy())

	db, api, proxy := snap.Services[0], snap.Services[1], snap.Services[2]
	require.Equal(t, health.StatusHealthy, db.Health)
	if _, err := os.Stat("/proc/self/stat"); err == nil {
		require.NotNil(t, db.Stats)
	}
	require.Equal(t, health.StatusStopped, api.Health)
	require.Equal(t, 2, api.ErrorLines)
	require.Equal(t, health.StatusUnknown, proxy.Health)
	require.Contains(t, proxy.Reason, "daemon down")
}

func TestWriters(t *testing.T) {
	rt := memory.New()
	rt.SetRunning("db", runtime.HealthHealthy)
	r := New(rt, health.NewChecker(rt, health.Options{}), []string{"db", "api"}, Options{})
	snap, err := r.Snapshot(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, snap))
	var decoded Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, 1, decoded.Healthy)

	buf.Reset()
	require.NoError(t, WriteTable(&buf, snap))
	require.Contains(t, buf.String(), "SERVICE")
	require.Contains(t, buf.String(), "missing")
	require.Contains(t, buf.String(), "1 healthy, 1 unhealthy")
}
