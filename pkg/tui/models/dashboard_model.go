package models

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/stackctl/pkg/diagnostics"
	"github.com/go-go-golems/stackctl/pkg/tui/styles"
)

type DashboardModel struct {
	last   *diagnostics.Snapshot
	err    string
	cursor int
}

func NewDashboardModel() DashboardModel { return DashboardModel{} }

func (m DashboardModel) WithSnapshot(s diagnostics.Snapshot) DashboardModel {
	m.last = &s
	m.err = ""
	if m.cursor >= len(s.Services) {
		m.cursor = max(0, len(s.Services)-1)
	}
	return m
}

// WithError keeps the previous snapshot on screen.
func (m DashboardModel) WithError(err error) DashboardModel {
	m.err = err.Error()
	return m
}

func (m DashboardModel) MoveCursor(delta int) DashboardModel {
	if m.last == nil || len(m.last.Services) == 0 {
		return m
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.last.Services)-1)
	return m
}

// Selected is the service under the cursor, "" before the first snapshot.
func (m DashboardModel) Selected() string {
	if m.last == nil || m.cursor >= len(m.last.Services) {
		return ""
	}
	return m.last.Services[m.cursor].Name
}

func (m DashboardModel) View() string {
	theme := styles.DefaultTheme()
	if m.last == nil {
		if m.err != "" {
			return theme.StatusFailed.Render("snapshot failed: "+m.err) + "\n"
		}
		return "Loading state...\n"
	}

	var b strings.Builder
	summary := fmt.Sprintf("%d healthy, %d unhealthy", m.last.Healthy, m.last.Unhealthy)
	if m.last.AllHealthy() {
		b.WriteString(theme.StatusHealthy.Render("System: Healthy") + "  " + theme.TitleMuted.Render(summary))
	} else {
		b.WriteString(theme.StatusFailed.Render("System: Degraded") + "  " + theme.TitleMuted.Render(summary))
	}
	b.WriteString("\n")
	b.WriteString(theme.TitleMuted.Render("Updated " + m.last.At.Format("15:04:05")))
	b.WriteString("\n\n")
	b.WriteString(diagnostics.Table(*m.last).WithCursor(m.cursor).Render())
	b.WriteString("\n")
	if m.err != "" {
		b.WriteString("\n" + theme.StatusFailed.Render("last refresh failed: "+m.err) + "\n")
	}
	return b.String()
}
