// Package tui is the operator's terminal front end for a scanning station.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"checkin/internal/scan"
	"checkin/internal/session"
)

const commandTimeout = 5 * time.Second

// Controller is the session surface the UI drives.
type Controller interface {
	Start(ctx context.Context, method scan.Source) error
	Stop(ctx context.Context) error
	Dismiss(ctx context.Context) error
	Print(ctx context.Context) error
}

// KeyFeeder receives barcode-gun keystrokes. Enter reports whether a burst was emitted.
type KeyFeeder interface {
	Key(r rune)
	Enter() bool
}

// SnapshotMsg carries a session state change into the program.
type SnapshotMsg session.Snapshot

type errMsg struct{ err error }

// Model renders the session and maps operator keys to session commands.
type Model struct {
	ctrl    Controller
	gun     KeyFeeder
	keys    KeyMap
	station string

	snap  session.Snapshot
	err   error
	width int
}

func New(ctrl Controller, gun KeyFeeder, station string, initial session.Snapshot) Model {
	return Model{
		ctrl:    ctrl,
		gun:     gun,
		keys:    DefaultKeyMap(),
		station: station,
		snap:    initial,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case SnapshotMsg:
		m.snap = session.Snapshot(msg)
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.snap.Phase {
	case session.PhaseIdle:
		m.err = nil
		switch {
		case key.Matches(msg, m.keys.Gun):
			return m, m.run(func(ctx context.Context) error { return m.ctrl.Start(ctx, scan.SourceGun) })
		case key.Matches(msg, m.keys.Camera):
			return m, m.run(func(ctx context.Context) error { return m.ctrl.Start(ctx, scan.SourceCamera) })
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}

	case session.PhaseResult:
		switch {
		case key.Matches(msg, m.keys.Stop):
			return m, m.run(m.ctrl.Stop)
		case key.Matches(msg, m.keys.Print) && m.snap.Outcome != nil && m.snap.Outcome.Printable():
			return m, m.run(m.ctrl.Print)
		case key.Matches(msg, m.keys.Dismiss):
			// A gun burst ending here is a scan, which the session drops outside
			// scanning; only a bare Enter dismisses.
			if m.snap.Method == scan.SourceGun && m.gun.Enter() {
				return m, nil
			}
			return m, m.run(m.ctrl.Dismiss)
		default:
			if m.snap.Method == scan.SourceGun {
				m.feed(msg)
			}
		}

	default:
		if key.Matches(msg, m.keys.Stop) {
			return m, m.run(m.ctrl.Stop)
		}
		if m.snap.Method == scan.SourceGun {
			m.feed(msg)
		}
	}
	return m, nil
}

// feed forwards barcode-gun input; the scanner types the code and presses Enter.
func (m Model) feed(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEnter:
		m.gun.Enter()
	case tea.KeySpace:
		m.gun.Key(' ')
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.gun.Key(r)
		}
	}
}

// run executes a session command off the UI goroutine; the session reports the new
// state back through SnapshotMsg.
func (m Model) run(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}
