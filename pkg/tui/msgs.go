package tui

import (
	"github.com/go-go-golems/stackctl/pkg/diagnostics"
	"github.com/go-go-golems/stackctl/pkg/events"
)

type SnapshotMsg struct {
	Snapshot diagnostics.Snapshot
	Err      error
}

type StackEventMsg struct {
	Event events.Event
}

type ActionRequestMsg struct {
	Request ActionRequest
}

type ActionDoneMsg struct {
	Request ActionRequest
	Err     error
}

type RefreshTickMsg struct{}
