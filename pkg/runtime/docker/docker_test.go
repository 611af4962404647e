package docker

import (
	"context"
	"strings"
	"testing"

	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls [][]string
	reply func(args []string) (Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.reply == nil {
		return Result{}, nil
	}
	return f.reply(args)
}

func TestStart_UsesComposeWithoutDeps(t *testing.T) {
	fr := &fakeRunner{}
	r := New(Options{Project: "demo", ComposeFile: "compose.yml", Runner: fr})
	require.NoError(t, r.Start(context.Background(), "api"))
	require.Equal(t, []string{"docker", "compose", "-p", "demo", "-f", "compose.yml", "up", "-d", "--no-deps", "api"}, fr.calls[0])

	require.NoError(t, r.Stop(context.Background(), "api"))
	require.Equal(t, "stop", fr.calls[1][6])
}

func TestInspect_ParsesState(t *testing.T) {
	fr := &fakeRunner{reply: func(args []string) (Result, error) {
		return Result{Stdout: `{"Status":"running","Running":true,"Pid":42,"ExitCode":0,"StartedAt":"2026-01-02T03:04:05.123Z","Health":{"Status":"unhealthy"}}` + "\n"}, nil
	}}
	r := New(Options{Project: "demo", Runner: fr})
	st, err := r.Inspect(context.Background(), "db")
	require.NoError(t, err)
	require.True(t, st.Found)
	require.True(t, st.Running)
	require.Equal(t, 42, st.PID)
	require.Nil(t, st.ExitCode)
	require.Equal(t, runtime.HealthUnhealthy, st.Health)
	require.Equal(t, "demo-db-1", fr.calls[0][len(fr.calls[0])-1])
}

func TestInspect_ExitedCarriesCode(t *testing.T) {
	fr := &fakeRunner{reply: func(args []string) (Result, error) {
		return Result{Stdout: `{"Status":"exited","Running":false,"ExitCode":137}`}, nil
	}}
	r := New(Options{Project: "demo", Containers: map[string]string{"db": "postgres"}, Runner: fr})
	st, err := r.Inspect(context.Background(), "db")
	require.NoError(t, err)
	require.True(t, st.Exited())
	require.Equal(t, 137, *st.ExitCode)
	require.Equal(t, "postgres", fr.calls[0][len(fr.calls[0])-1])
}

func TestInspect_NotFound(t *testing.T) {
	fr := &fakeRunner{reply: func(args []string) (Result, error) {
		return Result{Stderr: "Error: No such object: demo-db-1", ExitCode: 1}, errors.New("exit status 1")
	}}
	st, err := New(Options{Project: "demo", Runner: fr}).Inspect(context.Background(), "db")
	require.NoError(t, err)
	require.False(t, st.Found)
}

func TestInspect_OtherErrorIsRuntimeError(t *testing.T) {
	fr := &fakeRunner{reply: func(args []string) (Result, error) {
		return Result{Stderr: "Cannot connect to the Docker daemon", ExitCode: 1}, errors.New("exit status 1")
	}}
	_, err := New(Options{Project: "demo", Runner: fr}).Inspect(context.Background(), "db")
	var rerr *runtime.Error
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, "db", rerr.Service)
	require.Equal(t, "inspect", rerr.Op)
	require.Contains(t, err.Error(), "Cannot connect")
}

func TestRecentLogsAndExec(t *testing.T) {
	fr := &fakeRunner{reply: func(args []string) (Result, error) {
		switch args[0] {
		case "logs":
			return Result{Stdout: "a\nb\n", Stderr: "c\n"}, nil
		case "exec":
			return Result{Stdout: "no response\n", ExitCode: 2}, errors.New("exit status 2")
		}
		return Result{}, nil
	}}
	r := New(Options{Project: "demo", Runner: fr})
	lines, err := r.RecentLogs(context.Background(), "db", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, lines)

	code, out, err := r.Exec(context.Background(), "db", []string{"pg_isready"})
	require.NoError(t, err)
	require.Equal(t, 2, code)
	require.True(t, strings.Contains(out, "no response"))
}

func TestCancelledContextMakesNoCall(t *testing.T) {
	fr := &fakeRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, New(Options{Runner: fr}).Start(ctx, "db"))
	require.Empty(t, fr.calls)
}
