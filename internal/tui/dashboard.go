// internal/tui/dashboard.go
// Package tui renders the live sweep dashboard.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/mwiater/klimax/internal/loadgen"
	"github.com/mwiater/klimax/internal/stats"
)

// phase represents the dashboard's place in the sweep lifecycle.
type phase int

const (
	// phaseStarting covers the preflight probe before any level runs.
	phaseStarting phase = iota
	// phaseRunning covers warm-up and measured batches at a level.
	phaseRunning
	// phaseBreak covers the pause between concurrency levels.
	phaseBreak
	// phaseStopping covers the window between an interrupt and shutdown.
	phaseStopping
	// phaseDone is the final frame before the program exits.
	phaseDone
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	phaseStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	failureStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	levelLineStyle = lipgloss.NewStyle().Faint(true)
	helpStyle      = lipgloss.NewStyle().Faint(true)
)

// sweepEventMsg wraps a progress event from the running sweep.
type sweepEventMsg struct{ event loadgen.Event }

// sweepDoneMsg is sent when the sweep goroutine returns.
type sweepDoneMsg struct {
	result *loadgen.SweepResult
	err    error
}

// model is the dashboard's Bubble Tea model.
type model struct {
	cfg    *appconfig.Config
	cancel context.CancelFunc

	spinner  spinner.Model
	progress progress.Model

	phase       phase
	level       int
	repetition  int
	repetitions int
	warming     bool

	planned   int
	completed int
	successes int
	failures  int
	latency   stats.Running

	levelLines []string

	result *loadgen.SweepResult
	err    error
}

// newModel creates and initializes the dashboard model.
func newModel(cfg *appconfig.Config, cancel context.CancelFunc) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	repetitions := cfg.Repetitions
	if repetitions < 1 {
		repetitions = 1
	}

	return &model{
		cfg:         cfg,
		cancel:      cancel,
		spinner:     s,
		progress:    p,
		repetitions: repetitions,
	}
}

// Init starts the spinner animation.
func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update folds sweep progress and terminal events into the dashboard state.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.phase != phaseStopping && m.phase != phaseDone {
				m.phase = phaseStopping
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		width := msg.Width - 6
		if width > 60 {
			width = 60
		}
		if width > 0 {
			m.progress.Width = width
		}
		return m, nil

	case sweepEventMsg:
		m.applyEvent(msg.event)
		return m, nil

	case sweepDoneMsg:
		m.phase = phaseDone
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// applyEvent folds one sweep progress event into the counters. Warm-up
// requests advance the progress bar but stay out of the outcome tallies.
func (m *model) applyEvent(ev loadgen.Event) {
	switch ev.Kind {
	case loadgen.EventSweepStarted:
		m.planned = ev.Planned

	case loadgen.EventLevelStarted:
		m.level = ev.Concurrency
		m.repetition = 0
		if m.phase != phaseStopping {
			m.phase = phaseRunning
		}

	case loadgen.EventRepetitionStart:
		m.repetition = ev.Repetition
		m.warming = m.cfg.WarmupRequests > 0

	case loadgen.EventRequestDone:
		m.completed++
		if ev.Warmup || ev.Outcome == nil {
			return
		}
		m.warming = false
		if ev.Outcome.Success {
			m.successes++
			m.latency.Observe(ev.Outcome.Duration.Seconds())
		} else {
			m.failures++
		}

	case loadgen.EventLevelDone:
		if ev.Summary != nil {
			m.levelLines = append(m.levelLines, levelLine(*ev.Summary))
		}

	case loadgen.EventLevelFailed:
		m.levelLines = append(m.levelLines, fmt.Sprintf("c=%-4d level failed: %v", ev.Concurrency, ev.Err))

	case loadgen.EventBreak:
		if m.phase != phaseStopping {
			m.phase = phaseBreak
		}
	}
}

// View renders the dashboard frame.
func (m *model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("klimax sweep") + "  " + m.cfg.Endpoint + "\n\n")
	b.WriteString(m.spinner.View() + " " + phaseStyle.Render(m.phaseLine()) + "\n\n")

	ratio := 0.0
	if m.planned > 0 {
		ratio = float64(m.completed) / float64(m.planned)
		if ratio > 1 {
			ratio = 1
		}
	}
	b.WriteString(m.progress.ViewAs(ratio) + "\n")
	b.WriteString(fmt.Sprintf("%d/%d requests\n\n", m.completed, m.planned))

	b.WriteString(successStyle.Render(fmt.Sprintf("ok %d", m.successes)) + "  " +
		failureStyle.Render(fmt.Sprintf("failed %d", m.failures)))
	if m.latency.Count > 0 {
		b.WriteString(fmt.Sprintf("   latency %.2fs ± %.2f (min %.2f, max %.2f)",
			m.latency.Mean, m.latency.StdDev(), m.latency.Min, m.latency.Max))
	}
	b.WriteString("\n")

	if len(m.levelLines) > 0 {
		b.WriteString("\n")
		for _, line := range m.levelLines {
			b.WriteString(levelLineStyle.Render(line) + "\n")
		}
	}

	b.WriteString("\n" + helpStyle.Render("ctrl+c to stop") + "\n")
	return b.String()
}

// phaseLine names what the sweep is doing right now.
func (m *model) phaseLine() string {
	switch m.phase {
	case phaseStarting:
		return "probing endpoint"
	case phaseBreak:
		return fmt.Sprintf("cooling down after level %d", m.level)
	case phaseStopping:
		return "stopping: waiting for in-flight requests"
	case phaseDone:
		return "sweep complete"
	}
	if m.repetition > 0 && m.warming {
		return fmt.Sprintf("level %d: repetition %d/%d (warming up)", m.level, m.repetition, m.repetitions)
	}
	if m.repetition > 0 {
		return fmt.Sprintf("level %d: repetition %d/%d", m.level, m.repetition, m.repetitions)
	}
	return fmt.Sprintf("level %d: starting", m.level)
}

// levelLine formats the one-line recap appended when a level finishes.
func levelLine(s loadgen.LevelSummary) string {
	return fmt.Sprintf("c=%-4d %6.2fs ± %.2f   %6.2f req/s   success %5.1f%%",
		s.Concurrency, s.ResponseTime.Mean, s.ResponseTime.StdDev,
		s.Throughput.Mean, s.SuccessRate.Mean*100)
}

// Run executes a sweep under the live dashboard and returns its result. The
// dashboard owns the sweep context: an operator interrupt cancels it, the
// sweep winds down at the next boundary, and the truncated result is still
// returned. Any OnEvent already set on opts is replaced by the dashboard.
func Run(ctx context.Context, opts loadgen.SweeperOptions) (*loadgen.SweepResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(opts.Config, cancel)
	p := tea.NewProgram(m)

	opts.OnEvent = func(ev loadgen.Event) {
		p.Send(sweepEventMsg{event: ev})
	}

	go func() {
		result, err := loadgen.NewSweeper(opts).Run(runCtx)
		p.Send(sweepDoneMsg{result: result, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("error running dashboard: %w", err)
	}

	dashboard := final.(*model)
	return dashboard.result, dashboard.err
}
