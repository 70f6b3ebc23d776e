// internal/tui/dashboard_test.go
package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/mwiater/klimax/internal/loadgen"
)

func testConfig() *appconfig.Config {
	cfg := appconfig.Defaults()
	cfg.Endpoint = "http://bench.local/v1/chat/completions"
	cfg.ConcurrencyLevels = []int{2}
	cfg.Repetitions = 2
	cfg.WarmupRequests = 1
	return &cfg
}

func applyEvents(t *testing.T, m *model, events []loadgen.Event) *model {
	t.Helper()
	for _, ev := range events {
		next, _ := m.Update(sweepEventMsg{event: ev})
		m = next.(*model)
	}
	return m
}

// TestDashboard_ProgressAndView walks the dashboard through a short sweep and
// verifies the counters and the rendered frame.
func TestDashboard_ProgressAndView(t *testing.T) {
	m := newModel(testConfig(), func() {})

	success := &loadgen.Outcome{Success: true, Duration: time.Second}
	failure := &loadgen.Outcome{ErrKind: "timeout"}

	m = applyEvents(t, m, []loadgen.Event{
		{Kind: loadgen.EventSweepStarted, Planned: 6},
		{Kind: loadgen.EventLevelStarted, Concurrency: 2},
		{Kind: loadgen.EventRepetitionStart, Concurrency: 2, Repetition: 1},
		{Kind: loadgen.EventRequestDone, Warmup: true, Outcome: success},
		{Kind: loadgen.EventRequestDone, Outcome: success},
		{Kind: loadgen.EventRequestDone, Outcome: failure},
	})

	if m.planned != 6 || m.completed != 3 {
		t.Fatalf("expected 3/6 requests, got %d/%d", m.completed, m.planned)
	}
	if m.successes != 1 || m.failures != 1 {
		t.Fatalf("warm-up leaked into tallies: ok=%d failed=%d", m.successes, m.failures)
	}
	if m.latency.Count != 1 || m.latency.Mean != 1.0 {
		t.Fatalf("expected one latency observation of 1s, got count=%d mean=%v", m.latency.Count, m.latency.Mean)
	}

	out := m.View()
	if !strings.Contains(out, "klimax sweep") {
		t.Fatalf("expected title in view output; got: %s", out)
	}
	if !strings.Contains(out, "3/6 requests") {
		t.Fatalf("expected progress counter in view output; got: %s", out)
	}
	if !strings.Contains(out, "ok 1") || !strings.Contains(out, "failed 1") {
		t.Fatalf("expected outcome tallies in view output; got: %s", out)
	}
	if !strings.Contains(out, "repetition 1/2") {
		t.Fatalf("expected repetition phase in view output; got: %s", out)
	}
}

// TestDashboard_LevelRecapAndBreak checks the finished-level line and the
// break phase.
func TestDashboard_LevelRecapAndBreak(t *testing.T) {
	m := newModel(testConfig(), func() {})

	summary := loadgen.LevelSummary{
		Concurrency:  2,
		ResponseTime: loadgen.MetricSummary{Mean: 1.5, StdDev: 0.2},
		Throughput:   loadgen.MetricSummary{Mean: 1.2, StdDev: 0.1},
		SuccessRate:  loadgen.MetricSummary{Mean: 1},
	}
	m = applyEvents(t, m, []loadgen.Event{
		{Kind: loadgen.EventLevelStarted, Concurrency: 2},
		{Kind: loadgen.EventLevelDone, Concurrency: 2, Summary: &summary},
		{Kind: loadgen.EventBreak, Concurrency: 2},
	})

	if len(m.levelLines) != 1 {
		t.Fatalf("expected one level recap line, got %d", len(m.levelLines))
	}
	if m.phase != phaseBreak {
		t.Fatalf("expected break phase, got %v", m.phase)
	}

	out := m.View()
	if !strings.Contains(out, "1.50s ± 0.20") {
		t.Fatalf("expected level recap in view output; got: %s", out)
	}
	if !strings.Contains(out, "cooling down after level 2") {
		t.Fatalf("expected break phase line in view output; got: %s", out)
	}
}

// TestDashboard_InterruptCancelsSweep verifies ctrl+c cancels the sweep
// context instead of quitting outright.
func TestDashboard_InterruptCancelsSweep(t *testing.T) {
	canceled := false
	m := newModel(testConfig(), func() { canceled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(*model)

	if !canceled {
		t.Fatal("expected interrupt to cancel the sweep context")
	}
	if cmd != nil {
		t.Fatal("interrupt should wait for the sweep to wind down, not quit")
	}
	if m.phase != phaseStopping {
		t.Fatalf("expected stopping phase, got %v", m.phase)
	}
	if !strings.Contains(m.View(), "stopping") {
		t.Fatalf("expected stopping notice in view output; got: %s", m.View())
	}

	// A second interrupt must not cancel again.
	canceled = false
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(*model)
	if canceled {
		t.Fatal("expected repeated interrupts to be ignored")
	}
}

// TestDashboard_SweepDoneQuits verifies the final message stores the result
// and quits the program.
func TestDashboard_SweepDoneQuits(t *testing.T) {
	m := newModel(testConfig(), func() {})

	result := &loadgen.SweepResult{EndpointType: "openai"}
	next, cmd := m.Update(sweepDoneMsg{result: result})
	m = next.(*model)

	if m.phase != phaseDone {
		t.Fatalf("expected done phase, got %v", m.phase)
	}
	if m.result != result {
		t.Fatal("expected the sweep result to be stored")
	}
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected the command to be tea.Quit")
	}
	if !strings.Contains(m.View(), "sweep complete") {
		t.Fatalf("expected completion notice in view output; got: %s", m.View())
	}
}
