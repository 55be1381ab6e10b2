// Package tui is the terminal status observer: a bubbletea program that
// redraws a snapshot of the shared state on a fixed cadence.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"afkbot/internal/eventbus"
	"afkbot/internal/observer"
	"afkbot/internal/state"
)

const (
	defaultRefresh = 150 * time.Millisecond
	barWidth       = 24
	recentMax      = 6
)

type tickMsg time.Time

type eventMsg eventbus.Event

type eventsClosedMsg struct{}

// Options tune the model.
type Options struct {
	Title   string
	Refresh time.Duration
	// Now is the clock used for progress and cooldown; defaults to time.Now.
	Now func() time.Time
	// Dropped reports events the activity pane missed, if set.
	Dropped func() uint64
}

// Model implements tea.Model.
type Model struct {
	src    observer.Source
	events <-chan eventbus.Event

	keys   *KeyMap
	styles *Styles
	help   help.Model
	bar    progress.Model

	title   string
	refresh time.Duration
	now     func() time.Time
	dropped func() uint64

	snap     state.Snapshot
	recent   []string
	width    int
	stopped  bool
	quitting bool
}

var _ tea.Model = (*Model)(nil)

// New builds the model. events may be nil.
func New(src observer.Source, events <-chan eventbus.Event, opts Options) *Model {
	if opts.Refresh <= 0 {
		opts.Refresh = defaultRefresh
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Title == "" {
		opts.Title = "afkbot"
	}
	return &Model{
		src:     src,
		events:  events,
		keys:    DefaultKeyMap(),
		styles:  DefaultStyles(),
		help:    help.New(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth), progress.WithoutPercentage()),
		title:   opts.Title,
		refresh: opts.Refresh,
		now:     opts.Now,
		dropped: opts.Dropped,
		snap:    src.Snapshot(opts.Now()),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.waitEvent())
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) waitEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.snap = m.src.Snapshot(m.now())
		if !m.snap.Running {
			m.quitting = true
			return m, tea.Quit
		}
		return m, m.tick()

	case eventMsg:
		if line := describe(eventbus.Event(msg)); line != "" {
			m.recent = append(m.recent, line)
			if len(m.recent) > recentMax {
				m.recent = m.recent[len(m.recent)-recentMax:]
			}
		}
		return m, m.waitEvent()

	case eventsClosedMsg:
		m.events = nil
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Stop):
			m.src.RequestStop()
			m.stopped = true
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.recent = nil
		}
	}
	return m, nil
}

// describe renders an event for the recent-activity pane.
func describe(ev eventbus.Event) string {
	at := ev.Time.Format("15:04:05")
	switch d := ev.Data.(type) {
	case eventbus.FireData:
		return fmt.Sprintf("%s  %s pressed", at, d.Key)
	case eventbus.LinkData:
		if ev.Type == eventbus.LinkConnected {
			return fmt.Sprintf("%s  connected to %s", at, d.Link)
		}
		return fmt.Sprintf("%s  link lost: %s", at, d.Err)
	case eventbus.StopData:
		return fmt.Sprintf("%s  %s: %s", at, ev.Type, d.Reason)
	default:
		return ""
	}
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	s := m.styles
	var b strings.Builder

	b.WriteString(s.Title.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	b.WriteString(s.Header.Render(fmt.Sprintf("%-4s %-8s %-9s %-*s %s", "KEY", "INTERVAL", "LAST", barWidth, "PROGRESS", "CD")))
	b.WriteString("\n")
	for _, r := range m.snap.Rows {
		b.WriteString(m.row(r))
		b.WriteString("\n")
	}

	if len(m.recent) > 0 {
		b.WriteString("\n")
		b.WriteString(s.Panel.Render(strings.Join(m.recent, "\n")))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) statusLine() string {
	s := m.styles
	dot := s.Offline.Render("● offline")
	if m.snap.Connected {
		dot = s.Connected.Render("● connected")
	}
	line := fmt.Sprintf("%s  %s  %s", dot, m.snap.Status, s.Muted.Render("last: "+m.snap.LastAction.String()))
	if m.dropped != nil {
		if n := m.dropped(); n > 0 {
			line += "  " + s.Muted.Render(fmt.Sprintf("%d events dropped", n))
		}
	}
	return line
}

func (m *Model) row(r state.Row) string {
	s := m.styles
	text := fmt.Sprintf("%-8s %-9s", r.Interval, r.LastPressedText())
	if !r.Enabled {
		return s.Key.Render(r.Key.String()) + " " + s.Disabled.Render(fmt.Sprintf("%s %-*s %s", text, barWidth, "", r.Cooldown()))
	}
	return fmt.Sprintf("%s %s %s %s", s.Key.Render(r.Key.String()), text, m.bar.ViewAs(r.Progress/100), r.Cooldown())
}

// Stopped reports whether the user asked to stop.
func (m *Model) Stopped() bool { return m.stopped }

// Run runs the program until the state stops running, the user stops it, or
// ctx is done.
func Run(ctx context.Context, src observer.Source, events <-chan eventbus.Event, opts Options, progOpts ...tea.ProgramOption) error {
	base := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	p := tea.NewProgram(New(src, events, opts), append(base, progOpts...)...)
	_, err := p.Run()
	if err == nil || errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("tui: %w", err)
}
