package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"checkin/internal/resolver"
	"checkin/internal/session"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Check-in"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  station %s · %s", m.station, m.snap.Category)))
	b.WriteString("\n\n")

	switch m.snap.Phase {
	case session.PhaseResult:
		b.WriteString(m.resultView())
	case session.PhaseScanning:
		status := m.snap.StatusText()
		if m.snap.SourceErr != nil {
			status = errorStyle.Render(status)
		}
		b.WriteString(status)
	default:
		b.WriteString(m.snap.StatusText())
	}
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n\n")
	}
	b.WriteString(m.helpView())
	return b.String()
}

func (m Model) resultView() string {
	out := m.snap.Outcome
	if out == nil {
		return ""
	}
	style := okStyle
	switch out.Kind {
	case resolver.KindAlreadyMarked:
		style = warnStyle
	case resolver.KindNotFound, resolver.KindTransportError:
		style = errorStyle
	}

	lines := []string{style.Render(out.Message())}
	if u := out.User; u != nil {
		lines = append(lines, "", u.Name)
		if u.Organization != "" {
			lines = append(lines, mutedStyle.Render(u.Organization))
		}
		if !out.MarkedAt.IsZero() {
			lines = append(lines, mutedStyle.Render("marked "+out.MarkedAt.Local().Format("15:04:05")))
		}
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) helpView() string {
	var bindings []string
	add := func(b key.Binding) {
		h := b.Help()
		bindings = append(bindings, helpKeyStyle.Render(h.Key)+" "+mutedStyle.Render(h.Desc))
	}
	switch m.snap.Phase {
	case session.PhaseIdle:
		add(m.keys.Gun)
		add(m.keys.Camera)
		add(m.keys.Quit)
	case session.PhaseResult:
		if m.snap.Outcome != nil && m.snap.Outcome.Printable() {
			add(m.keys.Print)
		}
		add(m.keys.Dismiss)
		add(m.keys.Stop)
	default:
		add(m.keys.Stop)
	}
	return strings.Join(bindings, "  ")
}
