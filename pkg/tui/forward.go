package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/stackctl/pkg/events"
)

// RegisterUIForwarder sends every stack event to the program. Must be called
// before the bus runs.
func RegisterUIForwarder(bus *events.Bus, p *tea.Program) {
	bus.AddHandler("stackctl-ui-forward", func(ev events.Event) error {
		p.Send(StackEventMsg{Event: ev})
		return nil
	})
}
