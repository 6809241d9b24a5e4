package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/nowplaying/internal/formatter"
	"github.com/desertthunder/nowplaying/internal/playback"
	"github.com/desertthunder/nowplaying/internal/presence"
	"github.com/dustin/go-humanize"
)

// StatusSource exposes the running state to the view.
type StatusSource interface {
	Snapshot() presence.Snapshot
	Status() playback.Status
	Poll(ctx context.Context) playback.Event
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	source   StatusSource
	interval time.Duration
	now      func() time.Time

	snapshot presence.Snapshot
	status   playback.Status
	width    int

	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a status model refreshing every interval.
func NewModel(ctx context.Context, source StatusSource, interval time.Duration) *Model {
	if interval <= 0 {
		interval = time.Second
	}

	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = styles.ok

	return &Model{
		ctx:      ctx,
		source:   source,
		interval: interval,
		now:      time.Now,
		snapshot: source.Snapshot(),
		status:   source.Status(),
		spinner:  s,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts the spinner and the refresh loop.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) refresh() tea.Msg {
	return statusMsg{snapshot: m.source.Snapshot(), status: m.source.Status()}
}

func (m *Model) pollNow() tea.Msg {
	event := m.source.Poll(m.ctx)
	return statusMsg{snapshot: m.source.Snapshot(), status: m.source.Status(), event: event}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.refresh):
			return m, m.pollNow
		}
		return m, nil

	case tickMsg:
		if m.ctx.Err() != nil {
			return m, tea.Quit
		}
		return m, tea.Batch(m.refresh, m.tick())

	case statusMsg:
		m.snapshot = msg.snapshot
		m.status = msg.status
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the status screen.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("nowplaying"))
	b.WriteString("\n")

	state := styles.warn.Render("idle")
	if m.snapshot.Monitoring {
		state = m.spinner.View() + " " + styles.ok.Render("monitoring")
	}
	b.WriteString(m.row("State", state))

	track := "Nothing playing"
	if m.status.Track != nil {
		track = m.status.Track.String()
		if d := m.status.Track.DurationMS; d > 0 {
			track += " " + styles.help.Render("("+formatter.Duration(d)+")")
		}
	}
	b.WriteString(m.row("Track", track))

	lastPoll := "never"
	if !m.status.LastPoll.IsZero() {
		lastPoll = humanize.RelTime(m.status.LastPoll, m.now(), "ago", "from now")
	}
	if m.status.Err != nil {
		lastPoll += " " + styles.err.Render(m.status.Err.Error())
	}
	b.WriteString(m.row("Last poll", lastPoll))
	b.WriteString("\n")

	fields := fieldRow("Bio", fmt.Sprintf("%q", m.snapshot.Bio.Default), fmt.Sprintf("%q", m.snapshot.Bio.Overlay), m.snapshot.Bio.Active, m.snapshot.Bio.Pending) +
		"\n" +
		fieldRow("Emoji", emoji(m.snapshot.Emoji.Default), emoji(m.snapshot.Emoji.Overlay), m.snapshot.Emoji.Active, m.snapshot.Emoji.Pending)
	b.WriteString(styles.box.Render(fields))
	b.WriteString("\n\n")

	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) row(label, value string) string {
	return styles.label.Render(label) + value + "\n"
}

func fieldRow(name, def, overlay string, active, pending bool) string {
	line := styles.label.Render(name) + "default " + def
	if active {
		line += "  " + styles.ok.Render("showing") + " " + overlay
	}
	if pending {
		line += "  " + styles.warn.Render("write pending")
	}
	return line
}

func emoji(id int64) string {
	if id == 0 {
		return "none"
	}
	return humanize.Comma(id)
}
