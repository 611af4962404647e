package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/stackctl/pkg/events"
	"github.com/go-go-golems/stackctl/pkg/tui/styles"
)

type EventLogModel struct {
	max     int
	entries []events.Event

	width  int
	height int

	searching bool
	search    textinput.Model
	filter    string

	vp viewport.Model
}

func NewEventLogModel() EventLogModel {
	search := textinput.New()
	search.Placeholder = "filter…"
	search.Prompt = "/ "
	search.CharLimit = 200

	return EventLogModel{max: 500, search: search, vp: viewport.New(0, 0)}
}

func (m EventLogModel) Searching() bool { return m.searching }

func (m EventLogModel) Len() int { return len(m.entries) }

func (m EventLogModel) WithSize(width, height int) EventLogModel {
	m.width, m.height = width, height
	usable := max(height-6, 3)
	m.vp.Width = max(0, width)
	m.vp.Height = usable
	return m.refresh(false)
}

func (m EventLogModel) Update(msg tea.Msg) (EventLogModel, tea.Cmd) {
	v, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.searching {
		switch v.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			return m, nil
		case "enter":
			m.filter = strings.TrimSpace(m.search.Value())
			m.searching = false
			m.search.Blur()
			return m.refresh(true), nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(v)
		return m, cmd
	}

	switch v.String() {
	case "/":
		m.searching = true
		m.search.SetValue(m.filter)
		m.search.CursorEnd()
		m.search.Focus()
		return m, nil
	case "ctrl+l":
		m.filter = ""
		m.search.SetValue("")
		return m.refresh(true), nil
	case "c":
		m.entries = nil
		return m.refresh(true), nil
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(v)
	return m, cmd
}

func (m EventLogModel) Append(ev events.Event) EventLogModel {
	m.entries = append(m.entries, ev)
	if m.max > 0 && len(m.entries) > m.max {
		m.entries = append([]events.Event{}, m.entries[len(m.entries)-m.max:]...)
	}
	return m.refresh(true)
}

func (m EventLogModel) View() string {
	theme := styles.DefaultTheme()
	title := fmt.Sprintf("Events (%d)", len(m.entries))
	if m.filter != "" {
		title = fmt.Sprintf("%s  filter=%q", title, m.filter)
	}

	sections := []string{theme.Title.Render(title)}
	if m.searching {
		sections = append(sections, m.search.View())
	}
	if len(m.entries) == 0 {
		sections = append(sections, theme.TitleMuted.Render("(no events yet)"))
	} else {
		sections = append(sections, m.vp.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m EventLogModel) refresh(gotoBottom bool) EventLogModel {
	theme := styles.DefaultTheme()
	lines := make([]string, 0, len(m.entries))
	for _, ev := range m.entries {
		text := formatEvent(ev)
		if m.filter != "" && !strings.Contains(text, m.filter) {
			continue
		}
		at := ev.At
		if at.IsZero() {
			at = time.Now()
		}
		style := theme.TitleMuted
		switch ev.Type {
		case events.ServiceFailed, events.RollbackStarted:
			style = theme.StatusFailed
		case events.ServiceHealthy:
			style = theme.StatusHealthy
		case events.RecoveryAttempt, events.ServiceStarting:
			style = theme.StatusStarting
		}
		lines = append(lines, theme.TitleMuted.Render(at.Format("15:04:05"))+"  "+style.Render(text))
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if gotoBottom {
		m.vp.GotoBottom()
	}
	return m
}

func formatEvent(ev events.Event) string {
	parts := []string{string(ev.Type)}
	if ev.Service != "" {
		parts = append(parts, ev.Service)
	}
	if ev.Strategy != "" {
		parts = append(parts, "strategy="+ev.Strategy)
	}
	if ev.Attempt > 0 {
		parts = append(parts, fmt.Sprintf("attempt=%d", ev.Attempt))
	}
	if ev.Status != "" {
		parts = append(parts, "status="+ev.Status)
	}
	if ev.Message != "" {
		parts = append(parts, ev.Message)
	}
	return strings.Join(parts, " ")
}
