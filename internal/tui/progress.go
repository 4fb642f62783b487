// Package tui shows live simulator pool progress with bubbletea.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/circuitsim/internal/runner"
	"github.com/san-kum/circuitsim/internal/viz"
)

const (
	barWidth   = 40
	recentJobs = 6
)

type tickMsg time.Time

type jobStartedMsg struct {
	index int
	name  string
}

type jobFinishedMsg struct {
	index   int
	outcome runner.Outcome
}

type doneMsg struct{}

type model struct {
	total    int
	estimate time.Duration
	start    time.Time
	frame    int

	running  map[int]string
	recent   []runner.Outcome
	counts   map[runner.Status]int
	finished int

	done     bool
	quitting bool
	cancel   context.CancelFunc
}

func newModel(total int, estimate time.Duration, cancel context.CancelFunc) model {
	return model{
		total:    total,
		estimate: estimate,
		start:    time.Now(),
		running:  make(map[int]string),
		counts:   make(map[runner.Status]int),
		cancel:   cancel,
	}
}

func (m model) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case jobStartedMsg:
		m.running[msg.index] = msg.name
	case jobFinishedMsg:
		delete(m.running, msg.index)
		m.finished++
		m.counts[msg.outcome.Status]++
		m.recent = append(m.recent, msg.outcome)
		if len(m.recent) > recentJobs {
			m.recent = m.recent[len(m.recent)-recentJobs:]
		}
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tickMsg:
		m.frame++
		return m, tick()
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(viz.HeaderStyle.Render("circuitsim · LTspice runs"))
	b.WriteString("\n\n")

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.finished) / float64(m.total)
	}
	fmt.Fprintf(&b, "%s %s %d/%d\n", viz.Spinner(m.frame), viz.ProgressBar(pct, barWidth), m.finished, m.total)

	elapsed := time.Since(m.start).Truncate(time.Second)
	fmt.Fprintf(&b, "%s %s  %s %s\n\n",
		viz.MetricLabel.Render("elapsed"), viz.MetricValue.Render(elapsed.String()),
		viz.MetricLabel.Render("estimate"), viz.MetricValue.Render(m.estimate.Truncate(time.Second).String()))

	statuses := []runner.Status{runner.Completed, runner.TimedOut, runner.Failed, runner.Canceled}
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, viz.StatusStyle(s).Render(fmt.Sprintf("%s %d", s, m.counts[s])))
	}
	b.WriteString(strings.Join(parts, "  "))
	b.WriteString("\n\n")

	if len(m.running) > 0 {
		idx := make([]int, 0, len(m.running))
		for i := range m.running {
			idx = append(idx, i)
		}
		sort.Ints(idx)
		b.WriteString(viz.MetricLabel.Render("running"))
		b.WriteString("\n")
		for _, i := range idx {
			fmt.Fprintf(&b, "  %s\n", m.running[i])
		}
	}

	for _, o := range m.recent {
		fmt.Fprintf(&b, "  %s %s %s\n",
			viz.StatusStyle(o.Status).Render(fmt.Sprintf("%-9s", o.Status)),
			filepath.Base(o.Job.Netlist),
			viz.Subtle.Render(o.Duration.Truncate(time.Millisecond).String()))
	}

	if !m.done && !m.quitting {
		b.WriteString("\n")
		b.WriteString(viz.KeyHint.Render("q to cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

// Observer forwards pool events to a running program.
type Observer struct {
	p *tea.Program
}

func (o Observer) JobStarted(job runner.Job, index, _ int) {
	o.p.Send(jobStartedMsg{index: index, name: filepath.Base(job.Netlist)})
}

func (o Observer) JobFinished(out runner.Outcome, index, _ int) {
	o.p.Send(jobFinishedMsg{index: index, outcome: out})
}

// Run executes jobs on pool while drawing progress on stderr. Quitting the
// view cancels the remaining jobs. extra, if non-nil, also receives events.
func Run(ctx context.Context, pool *runner.Pool, jobs []runner.Job, extra runner.Observer) (runner.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(len(jobs), pool.Estimate(len(jobs)), cancel), tea.WithOutput(os.Stderr))

	obs := runner.Observers{Observer{p: p}}
	if extra != nil {
		obs = append(obs, extra)
	}

	reports := make(chan runner.Report, 1)
	go func() {
		r := pool.Run(ctx, jobs, obs)
		p.Send(doneMsg{})
		reports <- r
	}()

	_, err := p.Run()
	if err != nil {
		cancel()
	}
	return <-reports, err
}
