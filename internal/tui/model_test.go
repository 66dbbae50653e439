package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/entry-lobby/internal/engine"
	"github.com/DoyleJ11/entry-lobby/internal/lobby"
	"github.com/DoyleJ11/entry-lobby/internal/present"
)

func newTestModel(snap engine.Snapshot) (Model, chan engine.Snapshot, chan lobby.Msg) {
	snaps := make(chan engine.Snapshot, 4)
	inbox := make(chan lobby.Msg, 4)
	m := New(present.New("en", engine.DefaultConfig()), snaps, inbox)
	next, _ := m.Update(SnapshotMsg(snap))
	return next.(Model), snaps, inbox
}

func press(m Model, r rune) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return next.(Model), cmd
}

// answer replies to the intent the command sends and returns the command's result.
func answer(t *testing.T, cmd tea.Cmd, inbox chan lobby.Msg, sent bool) (lobby.Intent, tea.Msg) {
	t.Helper()
	result := make(chan tea.Msg, 1)
	go func() { result <- cmd() }()

	var intent lobby.Intent
	select {
	case m := <-inbox:
		var ok bool
		intent, ok = m.(lobby.Intent)
		require.True(t, ok, "unexpected message %T", m)
	case <-time.After(time.Second):
		t.Fatalf("no intent sent")
	}
	intent.Reply <- sent
	return intent, <-result
}

func TestKeys_EnrollOnlyWhenOffered(t *testing.T) {
	m, _, _ := newTestModel(engine.Snapshot{Phase: engine.PhaseEnrolling, CanEnroll: false})
	_, cmd := press(m, 'e')
	assert.Nil(t, cmd)

	m, _, inbox := newTestModel(engine.Snapshot{Phase: engine.PhaseEnrolling, CanEnroll: true})
	m, cmd = press(m, 'e')
	require.NotNil(t, cmd)
	assert.False(t, m.snap.CanEnroll, "button hidden while the intent is in flight")

	intent, msg := answer(t, cmd, inbox, true)
	assert.Equal(t, engine.KindEntry, intent.Kind)
	assert.Equal(t, IntentResultMsg{Kind: engine.KindEntry, Sent: true}, msg)
}

func TestKeys_CloseOnlyForHost(t *testing.T) {
	m, _, _ := newTestModel(engine.Snapshot{Phase: engine.PhaseEnrolling, CanEnroll: true})
	_, cmd := press(m, 'c')
	assert.Nil(t, cmd)

	m, _, inbox := newTestModel(engine.Snapshot{Phase: engine.PhaseEnrolling, IsLocalHost: true, CanClose: true})
	_, cmd = press(m, 'c')
	require.NotNil(t, cmd)
	intent, _ := answer(t, cmd, inbox, true)
	assert.Equal(t, engine.KindEntryClosed, intent.Kind)
}

func TestKeys_Quit(t *testing.T) {
	m, _, _ := newTestModel(engine.Snapshot{})
	_, cmd := press(m, 'q')
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestUpdate_FailedIntentShowsNotice(t *testing.T) {
	m, _, _ := newTestModel(engine.Snapshot{Phase: engine.PhaseEnrolling})

	next, _ := m.Update(IntentResultMsg{Kind: engine.KindEntry, Sent: false})
	m = next.(Model)
	assert.Contains(t, m.View(), "could not send Entry")

	next, _ = m.Update(SnapshotMsg(engine.Snapshot{Phase: engine.PhaseEnrolling, CanEnroll: true}))
	assert.Contains(t, next.(Model).View(), "could not send Entry", "notice kept within the phase")

	next, _ = next.(Model).Update(SnapshotMsg(engine.Snapshot{Phase: engine.PhaseRoundStarting}))
	assert.NotContains(t, next.(Model).View(), "could not send Entry")
}

func TestUpdate_SnapshotsKeepReading(t *testing.T) {
	m, snaps, _ := newTestModel(engine.Snapshot{})

	_, cmd := m.Update(SnapshotMsg(engine.Snapshot{Phase: engine.PhaseEnrolling}))
	require.NotNil(t, cmd)
	snaps <- engine.Snapshot{Phase: engine.PhaseRoundRunning, TicksRemaining: 10}
	assert.Equal(t, SnapshotMsg(engine.Snapshot{Phase: engine.PhaseRoundRunning, TicksRemaining: 10}), cmd())

	close(snaps)
	assert.Equal(t, ClosedMsg{}, WaitForSnapshot(snaps)())

	next, cmd := m.Update(ClosedMsg{})
	assert.True(t, next.(Model).closed)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestView(t *testing.T) {
	m, _, _ := newTestModel(engine.Snapshot{Phase: engine.PhaseEnrolling, IsLocalHost: true, CanClose: true})
	v := m.View()
	assert.Contains(t, v, "You are the host.")
	assert.Contains(t, v, "HOST")
	assert.Contains(t, v, "[c] Close entries")
	assert.NotContains(t, v, "[e] Enter")

	m, _, _ = newTestModel(engine.Snapshot{Phase: engine.PhaseRoundRunning, Roster: []string{"B"}, TicksRemaining: 90})
	v = m.View()
	assert.Contains(t, v, "90 ticks left")
	assert.Contains(t, v, "ID: B")
	assert.True(t, strings.Contains(v, "[q] Quit"))
}
