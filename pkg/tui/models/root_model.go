package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/stackctl/pkg/tui"
	"github.com/go-go-golems/stackctl/pkg/tui/styles"
)

type ViewID string

const (
	ViewDashboard ViewID = "dashboard"
	ViewEvents    ViewID = "events"
)

type RootOptions struct {
	Snapshotter tui.Snapshotter
	Controller  tui.Controller
	Refresh     time.Duration
	// SnapshotTimeout bounds one refresh.
	SnapshotTimeout time.Duration
}

type RootModel struct {
	ctx  context.Context
	opts RootOptions

	width  int
	height int
	active ViewID

	// busy is set while an action runs; further actions are refused.
	busy   bool
	status string

	dashboard DashboardModel
	events    EventLogModel
}

func NewRootModel(ctx context.Context, opts RootOptions) RootModel {
	if opts.Refresh <= 0 {
		opts.Refresh = 2 * time.Second
	}
	if opts.SnapshotTimeout <= 0 {
		opts.SnapshotTimeout = 10 * time.Second
	}
	return RootModel{
		ctx:       ctx,
		opts:      opts,
		active:    ViewDashboard,
		dashboard: NewDashboardModel(),
		events:    NewEventLogModel(),
	}
}

func (m RootModel) Init() tea.Cmd {
	return tea.Batch(m.fetch(), tui.Tick(m.opts.Refresh))
}

func (m RootModel) fetch() tea.Cmd {
	return tui.FetchSnapshot(m.ctx, m.opts.Snapshotter, m.opts.SnapshotTimeout)
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		m.events = m.events.WithSize(v.Width, v.Height)
		return m, nil
	case tea.KeyMsg:
		if m.active == ViewEvents && m.events.Searching() {
			var cmd tea.Cmd
			m.events, cmd = m.events.Update(v)
			return m, cmd
		}
		switch v.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if m.active == ViewDashboard {
				m.active = ViewEvents
			} else {
				m.active = ViewDashboard
			}
			return m, nil
		case "r":
			return m, m.fetch()
		}
		if m.active == ViewEvents {
			var cmd tea.Cmd
			m.events, cmd = m.events.Update(v)
			return m, cmd
		}
		switch v.String() {
		case "up", "k":
			m.dashboard = m.dashboard.MoveCursor(-1)
		case "down", "j":
			m.dashboard = m.dashboard.MoveCursor(1)
		case "s":
			return m.request(tui.ActionRequest{Kind: tui.ActionStartAll})
		case "x":
			return m.request(tui.ActionRequest{Kind: tui.ActionStopAll})
		case "R":
			if name := m.dashboard.Selected(); name != "" {
				return m.request(tui.ActionRequest{Kind: tui.ActionRestart, Service: name})
			}
		}
		return m, nil
	case tui.ActionRequestMsg:
		return m.request(v.Request)
	case tui.ActionDoneMsg:
		m.busy = false
		if v.Err != nil {
			m.status = fmt.Sprintf("%s failed: %v", v.Request.Kind, v.Err)
		} else {
			m.status = fmt.Sprintf("%s done", v.Request.Kind)
		}
		return m, m.fetch()
	case tui.RefreshTickMsg:
		return m, tea.Batch(m.fetch(), tui.Tick(m.opts.Refresh))
	case tui.SnapshotMsg:
		if v.Err != nil {
			m.dashboard = m.dashboard.WithError(v.Err)
		} else {
			m.dashboard = m.dashboard.WithSnapshot(v.Snapshot)
		}
		return m, nil
	case tui.StackEventMsg:
		m.events = m.events.Append(v.Event)
		return m, nil
	}
	return m, nil
}

func (m RootModel) request(req tui.ActionRequest) (tea.Model, tea.Cmd) {
	if m.opts.Controller == nil {
		m.status = "actions unavailable"
		return m, nil
	}
	if m.busy {
		m.status = "another action is running"
		return m, nil
	}
	m.busy = true
	m.status = fmt.Sprintf("%s %s…", req.Kind, req.Service)
	return m, tui.RunAction(m.ctx, m.opts.Controller, req)
}

func (m RootModel) Status() string { return m.status }

func (m RootModel) View() string {
	theme := styles.DefaultTheme()
	var b strings.Builder
	b.WriteString(theme.Title.Render("stackctl") + "  " + theme.TitleMuted.Render(string(m.active)))
	b.WriteString("\n\n")
	switch m.active {
	case ViewEvents:
		b.WriteString(m.events.View())
	default:
		b.WriteString(m.dashboard.View())
	}
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(theme.TitleMuted.Render(m.status) + "\n")
	}

	keys := [][2]string{{"tab", "switch"}, {"r", "refresh"}, {"s", "start all"}, {"x", "stop all"}, {"R", "restart"}, {"q", "quit"}}
	if m.active == ViewEvents {
		keys = [][2]string{{"tab", "switch"}, {"/", "filter"}, {"c", "clear"}, {"q", "quit"}}
	}
	hints := make([]string, 0, len(keys))
	for _, k := range keys {
		hints = append(hints, theme.KeybindKey.Render("["+k[0]+"]")+" "+theme.Keybind.Render(k[1]))
	}
	b.WriteString(strings.Join(hints, "  "))
	return b.String()
}
