package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/circuitsim/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

func TestModelTracksJobs(t *testing.T) {
	m := newModel(3, 10*time.Second, nil)

	m, _ = update(t, m, jobStartedMsg{index: 0, name: "2x4_0_Shading.cir"})
	m, _ = update(t, m, jobStartedMsg{index: 1, name: "2x4_1_Shading.cir"})
	assert.Len(t, m.running, 2)
	assert.Contains(t, m.View(), "2x4_1_Shading.cir")

	job := runner.NewJob("/out/2x4_0_Shading.cir")
	m, _ = update(t, m, jobFinishedMsg{index: 0, outcome: runner.Outcome{Job: job, Status: runner.Completed}})
	m, _ = update(t, m, jobFinishedMsg{index: 1, outcome: runner.Outcome{Job: runner.NewJob("/out/x.cir"), Status: runner.TimedOut}})

	assert.Empty(t, m.running)
	assert.Equal(t, 2, m.finished)
	assert.Equal(t, 1, m.counts[runner.Completed])
	assert.Equal(t, 1, m.counts[runner.TimedOut])

	view := m.View()
	assert.Contains(t, view, "2/3")
	assert.Contains(t, view, "completed 1")
	assert.Contains(t, view, "timed out 1")
	assert.Contains(t, view, "q to cancel")
}

func TestModelKeepsRecentOutcomes(t *testing.T) {
	m := newModel(20, 0, nil)
	for i := 0; i < 10; i++ {
		m, _ = update(t, m, jobFinishedMsg{index: i, outcome: runner.Outcome{Status: runner.Completed}})
	}
	assert.Len(t, m.recent, recentJobs)
}

func TestModelQuitCancels(t *testing.T) {
	canceled := false
	m := newModel(1, 0, func() { canceled = true })

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, canceled)
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelDone(t *testing.T) {
	m, cmd := update(t, newModel(0, 0, nil), doneMsg{})
	assert.True(t, m.done)
	require.NotNil(t, cmd)
	assert.NotContains(t, m.View(), "q to cancel")
}
