// Package tui is the terminal front end of a participant. It only reads snapshots
// and turns key presses into lobby intents.
package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DoyleJ11/entry-lobby/internal/engine"
	"github.com/DoyleJ11/entry-lobby/internal/lobby"
	"github.com/DoyleJ11/entry-lobby/internal/present"
)

const intentTimeout = 5 * time.Second

// SnapshotMsg carries the latest session view from the lobby.
type SnapshotMsg engine.Snapshot

// ClosedMsg means the lobby stopped publishing.
type ClosedMsg struct{}

// IntentResultMsg reports whether an intent went out on the channel.
type IntentResultMsg struct {
	Kind engine.Kind
	Sent bool
}

type Model struct {
	keys    KeyMap
	printer *present.Printer
	snaps   <-chan engine.Snapshot
	inbox   chan<- lobby.Msg

	snap   engine.Snapshot
	notice string
	width  int
	closed bool
}

func New(printer *present.Printer, snaps <-chan engine.Snapshot, inbox chan<- lobby.Msg) Model {
	return Model{
		keys:    DefaultKeyMap(),
		printer: printer,
		snaps:   snaps,
		inbox:   inbox,
	}
}

func (m Model) Init() tea.Cmd {
	return WaitForSnapshot(m.snaps)
}

// WaitForSnapshot reads the next snapshot off the lobby subscription.
func WaitForSnapshot(ch <-chan engine.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return ClosedMsg{}
		}
		return SnapshotMsg(s)
	}
}

func sendIntent(inbox chan<- lobby.Msg, kind engine.Kind) tea.Cmd {
	return func() tea.Msg {
		reply := make(chan bool, 1)
		select {
		case inbox <- lobby.Intent{Kind: kind, Reply: reply}:
		case <-time.After(intentTimeout):
			return IntentResultMsg{Kind: kind}
		}
		select {
		case sent := <-reply:
			return IntentResultMsg{Kind: kind, Sent: sent}
		case <-time.After(intentTimeout):
			return IntentResultMsg{Kind: kind}
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		if msg.Phase != m.snap.Phase {
			m.notice = ""
		}
		m.snap = engine.Snapshot(msg)
		return m, WaitForSnapshot(m.snaps)

	case IntentResultMsg:
		if !msg.Sent {
			m.notice = "could not send " + string(msg.Kind)
		}
		return m, nil

	case ClosedMsg:
		m.closed = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Enroll):
		if !m.snap.CanEnroll {
			return m, nil
		}
		// Hide the button until the lobby answers.
		m.snap.CanEnroll = false
		return m, sendIntent(m.inbox, engine.KindEntry)

	case key.Matches(msg, m.keys.Close):
		if !m.snap.CanClose {
			return m, nil
		}
		m.snap.CanClose = false
		return m, sendIntent(m.inbox, engine.KindEntryClosed)
	}
	return m, nil
}

func (m Model) View() string {
	header := styleHeader.Render("entry lobby") + styleDimmed.Render("  "+m.snap.Phase.String())
	if m.snap.IsLocalHost {
		header += "  " + styleHost.Render("HOST")
	}

	info := styleInfo
	if m.width > 4 {
		info = info.Width(m.width - 4)
	}
	sections := []string{header, info.Render(m.printer.Info(m.snap))}

	if cd := m.printer.Countdown(m.snap); cd != "" {
		sections = append(sections, styleCountdown.Render(cd))
	}
	if m.notice != "" {
		sections = append(sections, styleNotice.Render(m.notice))
	}
	sections = append(sections, m.helpLine())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) helpLine() string {
	var parts []string
	if m.snap.CanEnroll {
		parts = append(parts, styleButton.Render("["+m.keys.Enroll.Help().Key+"] "+m.printer.EnrollLabel()))
	}
	if m.snap.CanClose {
		parts = append(parts, styleButton.Render("["+m.keys.Close.Help().Key+"] "+m.printer.CloseLabel()))
	}
	parts = append(parts, styleDimmed.Render("["+m.keys.Quit.Help().Key+"] "+m.printer.QuitLabel()))
	return strings.Join(parts, "  ")
}
