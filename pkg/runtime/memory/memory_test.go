package memory

import (
	"context"
	"testing"

	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestLifecycleAndCallLog(t *testing.T) {
	r := New()
	ctx := context.Background()

	st, err := r.Inspect(ctx, "db")
	require.NoError(t, err)
	require.False(t, st.Found)

	r.StartHealth("db", runtime.HealthHealthy)
	require.NoError(t, r.Start(ctx, "db"))
	require.True(t, r.IsRunning(ctx, "db"))
	st, _ = r.Inspect(ctx, "db")
	require.Equal(t, runtime.HealthHealthy, st.Health)

	require.NoError(t, r.Stop(ctx, "db"))
	st, _ = r.Inspect(ctx, "db")
	require.True(t, st.Exited())
	require.Equal(t, 0, *st.ExitCode)

	require.NoError(t, r.Remove(ctx, "db"))
	st, _ = r.Inspect(ctx, "db")
	require.False(t, st.Found)

	require.Equal(t, []string{"db"}, r.CallsFor("start"))
	require.Equal(t, []string{"db"}, r.CallsFor("stop"))
	require.Len(t, r.Calls(), 3)
}

func TestScriptedFailures(t *testing.T) {
	r := New()
	r.FailStart("api", errors.New("port in use"))
	err := r.Start(context.Background(), "api")
	var rerr *runtime.Error
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, "start", rerr.Op)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, r.Start(ctx, "db"))
	require.Equal(t, []string{"api"}, r.CallsFor("start"))
}

func TestRecentLogsTail(t *testing.T) {
	r := New()
	r.SetLogs("db", []string{"a", "b", "c"})
	lines, err := r.RecentLogs(context.Background(), "db", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, lines)
}
