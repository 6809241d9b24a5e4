package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/nowplaying/internal/playback"
	"github.com/desertthunder/nowplaying/internal/presence"
)

// tickMsg asks the model to refresh its copy of the status.
type tickMsg time.Time

// statusMsg carries a fresh copy of the coordinator and poller state.
type statusMsg struct {
	snapshot presence.Snapshot
	status   playback.Status
	event    playback.Event
}

var (
	_ tea.Msg = tickMsg{}
	_ tea.Msg = statusMsg{}
)
