package models

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/stackctl/pkg/diagnostics"
	"github.com/go-go-golems/stackctl/pkg/engine"
	"github.com/go-go-golems/stackctl/pkg/events"
	"github.com/go-go-golems/stackctl/pkg/health"
	"github.com/go-go-golems/stackctl/pkg/tui"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	restarted []string
	startAll  int
}

func (f *fakeController) StartAll(context.Context) (engine.Result, error) {
	f.startAll++
	return engine.Result{}, nil
}
func (f *fakeController) StopAll(context.Context) error { return nil }
func (f *fakeController) Restart(_ context.Context, name string) error {
	f.restarted = append(f.restarted, name)
	return nil
}

type fakeSnapshotter struct{ snap diagnostics.Snapshot }

func (f fakeSnapshotter) Snapshot(context.Context) (diagnostics.Snapshot, error) { return f.snap, nil }

func testSnapshot() diagnostics.Snapshot {
	return diagnostics.Snapshot{
		At: time.Now(),
		Services: []diagnostics.ServiceReport{
			{Name: "db", Health: health.StatusHealthy},
			{Name: "api", Health: health.StatusStopped, Reason: "not running"},
		},
		Healthy:   1,
		Unhealthy: 1,
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m RootModel, msg tea.Msg) (RootModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	rm, ok := next.(RootModel)
	require.True(t, ok)
	return rm, cmd
}

func TestRootModel_SnapshotAndRestartSelected(t *testing.T) {
	ctl := &fakeController{}
	m := NewRootModel(context.Background(), RootOptions{Snapshotter: fakeSnapshotter{snap: testSnapshot()}, Controller: ctl})

	m, _ = update(t, m, tui.SnapshotMsg{Snapshot: testSnapshot()})
	require.Contains(t, m.View(), "System: Degraded")
	require.Contains(t, m.View(), "api")

	m, _ = update(t, m, key("j"))
	require.Equal(t, "api", m.dashboard.Selected())

	m, cmd := update(t, m, key("R"))
	require.NotNil(t, cmd)
	require.True(t, m.busy)

	// A second action while busy is refused.
	m, again := update(t, m, key("s"))
	require.Nil(t, again)
	require.Equal(t, "another action is running", m.Status())

	done, ok := cmd().(tui.ActionDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.Err)
	require.Equal(t, []string{"api"}, ctl.restarted)

	m, refetch := update(t, m, done)
	require.False(t, m.busy)
	require.Equal(t, "restart done", m.Status())
	snap, ok := refetch().(tui.SnapshotMsg)
	require.True(t, ok)
	require.Len(t, snap.Snapshot.Services, 2)
}

func TestRootModel_EventsView(t *testing.T) {
	m := NewRootModel(context.Background(), RootOptions{Snapshotter: fakeSnapshotter{}})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, tui.StackEventMsg{Event: events.Event{Type: events.RecoveryAttempt, Service: "api", Strategy: "restart", Attempt: 1, Status: "success"}})
	require.Equal(t, 1, m.events.Len())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, ViewEvents, m.active)
	require.Contains(t, m.View(), "Events (1)")
	require.Contains(t, m.View(), "recovery.attempt api strategy=restart attempt=1 status=success")

	// While filtering, q is text, not quit.
	m, _ = update(t, m, key("/"))
	require.True(t, m.events.Searching())
	m, _ = update(t, m, key("q"))
	require.True(t, m.events.Searching())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, m.events.Searching())
}

func TestRootModel_NoController(t *testing.T) {
	m := NewRootModel(context.Background(), RootOptions{Snapshotter: fakeSnapshotter{}})
	m, cmd := update(t, m, key("s"))
	require.Nil(t, cmd)
	require.Equal(t, "actions unavailable", m.Status())
}
