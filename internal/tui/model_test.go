package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin/internal/ledger"
	"checkin/internal/resolver"
	"checkin/internal/scan"
	"checkin/internal/session"
)

type fakeController struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeController) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeController) Start(_ context.Context, method scan.Source) error {
	return f.record("start:" + string(method))
}
func (f *fakeController) Stop(context.Context) error { return f.record("stop") }
func (f *fakeController) Dismiss(context.Context) error { return f.record("dismiss") }
func (f *fakeController) Print(context.Context) error { return f.record("print") }

type fakeFeeder struct {
	keys    []rune
	pending int
	entered int
}

func (f *fakeFeeder) Key(r rune) {
	f.keys = append(f.keys, r)
	f.pending++
}

func (f *fakeFeeder) Enter() bool {
	f.entered++
	emitted := f.pending > 0
	f.pending = 0
	return emitted
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	var out tea.Msg
	if cmd != nil {
		out = cmd()
	}
	return next.(Model), out
}

func idle() session.Snapshot {
	return session.Snapshot{
		Phase:    session.PhaseIdle,
		Methods:  []scan.Source{scan.SourceGun, scan.SourceCamera},
		Category: "day1",
	}
}

func TestIdleKeysStartMethods(t *testing.T) {
	ctrl := &fakeController{}
	m := New(ctrl, &fakeFeeder{}, "gate-a", idle())

	m, _ = press(t, m, runes("g"))
	m, _ = press(t, m, runes("c"))
	assert.Equal(t, []string{"start:gun", "start:camera"}, ctrl.calls)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "Select a scan method")
}

func TestGunKeysFeedReader(t *testing.T) {
	ctrl := &fakeController{}
	gun := &fakeFeeder{}
	m := New(ctrl, gun, "gate-a", idle())
	m, _ = press(t, m, SnapshotMsg(session.Snapshot{Phase: session.PhaseScanning, Method: scan.SourceGun, Category: "day1"}))

	m, _ = press(t, m, runes("qA1"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []rune{'q', 'A', '1', ' '}, gun.keys)
	assert.Equal(t, 1, gun.entered)
	assert.Empty(t, ctrl.calls, "q is scanner input while scanning")
	assert.Contains(t, m.View(), "Waiting for barcode scan...")

	_, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, []string{"stop"}, ctrl.calls)
}

func TestCameraScanningIgnoresKeys(t *testing.T) {
	gun := &fakeFeeder{}
	m := New(&fakeController{}, gun, "gate-a", idle())
	m, _ = press(t, m, SnapshotMsg(session.Snapshot{Phase: session.PhaseScanning, Method: scan.SourceCamera}))

	_, _ = press(t, m, runes("A1"))
	assert.Empty(t, gun.keys)
}

func TestResultKeys(t *testing.T) {
	ctrl := &fakeController{}
	m := New(ctrl, &fakeFeeder{}, "gate-a", idle())

	marked := &resolver.Outcome{
		Kind:     resolver.KindMarked,
		Payload:  "A1",
		User:     &ledger.User{Name: "Ada Lovelace", Organization: "ACME"},
		MarkedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	m, _ = press(t, m, SnapshotMsg(session.Snapshot{Phase: session.PhaseResult, Method: scan.SourceGun, Outcome: marked}))
	view := m.View()
	assert.Contains(t, view, "Attended Successfully")
	assert.Contains(t, view, "Ada Lovelace")
	assert.Contains(t, view, "print badge")

	m, _ = press(t, m, runes("p"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"print", "dismiss"}, ctrl.calls)

	notFound := &resolver.Outcome{Kind: resolver.KindNotFound, Payload: "ZZZ"}
	m, _ = press(t, m, SnapshotMsg(session.Snapshot{Phase: session.PhaseResult, Outcome: notFound}))
	assert.Contains(t, m.View(), "Invalid QR Code")
	assert.NotContains(t, m.View(), "print badge")
	_, _ = press(t, m, runes("p"))
	assert.Equal(t, []string{"print", "dismiss"}, ctrl.calls, "nothing to print")
}

func TestGunBurstDuringResultIsNotADismiss(t *testing.T) {
	ctrl := &fakeController{}
	gun := &fakeFeeder{}
	m := New(ctrl, gun, "gate-a", idle())
	notFound := &resolver.Outcome{Kind: resolver.KindNotFound, Payload: "ZZZ"}
	m, _ = press(t, m, SnapshotMsg(session.Snapshot{Phase: session.PhaseResult, Method: scan.SourceGun, Outcome: notFound}))

	m, _ = press(t, m, runes("A2"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []rune{'A', '2'}, gun.keys)
	assert.Equal(t, 1, gun.entered)
	assert.Empty(t, ctrl.calls, "the burst goes to the reader, not to dismiss")

	_, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"dismiss"}, ctrl.calls)
}

func TestCommandErrorsAreShown(t *testing.T) {
	ctrl := &fakeController{err: errors.New("camera input unavailable: permission denied")}
	m := New(ctrl, &fakeFeeder{}, "gate-a", idle())

	m, out := press(t, m, runes("c"))
	require.NotNil(t, out)
	m, _ = press(t, m, out)
	assert.Contains(t, m.View(), "permission denied")
}
