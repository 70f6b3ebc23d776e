// internal/loadgen/progress.go
package loadgen

// EventKind names a progress notification emitted while a sweep runs.
type EventKind string

const (
	EventSweepStarted    EventKind = "sweep_started"
	EventLevelStarted    EventKind = "level_started"
	EventRepetitionStart EventKind = "repetition_started"
	EventRequestDone     EventKind = "request_done"
	EventRepetitionDone  EventKind = "repetition_done"
	EventLevelDone       EventKind = "level_done"
	EventLevelFailed     EventKind = "level_failed"
	EventBreak           EventKind = "break"
	EventSweepDone       EventKind = "sweep_done"
)

// Event is a progress notification. Only the fields relevant to the kind are
// populated; callbacks run on the sweep goroutine and must not block.
type Event struct {
	Kind        EventKind
	Concurrency int
	Repetition  int
	Warmup      bool
	Planned     int
	Outcome     *Outcome
	Metrics     *RunMetrics
	Summary     *LevelSummary
	Result      *SweepResult
	Err         error
}

func emit(fn func(Event), ev Event) {
	if fn != nil {
		fn(ev)
	}
}
