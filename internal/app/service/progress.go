package service

import "sync"

// Check run statuses reported to pollers.
const (
	CheckStatusIdle    = "idle"
	CheckStatusRunning = "running"
	CheckStatusDone    = "done"
	CheckStatusError   = "error"
)

// CheckProgress is a point-in-time snapshot of a health check run.
type CheckProgress struct {
	Running bool   `json:"running"`
	Checked int    `json:"checked"`
	Total   int    `json:"total"`
	Status  string `json:"status"`
}

// ProgressTracker holds the mutable run state polled by the admin surface.
// One instance is shared between the checker and the status endpoint.
type ProgressTracker struct {
	mu    sync.Mutex
	state CheckProgress
}

// NewProgressTracker starts in the idle state.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{state: CheckProgress{Status: CheckStatusIdle}}
}

// Begin resets the tracker for a new run over total deals.
func (t *ProgressTracker) Begin(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = CheckProgress{Running: true, Checked: 0, Total: total, Status: CheckStatusRunning}
}

// Advance records cumulative progress after a batch commit.
func (t *ProgressTracker) Advance(checked int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Checked = checked
}

// Finish marks the run complete.
func (t *ProgressTracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Running = false
	t.state.Checked = t.state.Total
	t.state.Status = CheckStatusDone
}

// Idle returns the tracker to the idle state (no deals were due).
func (t *ProgressTracker) Idle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = CheckProgress{Status: CheckStatusIdle}
}

// Fail marks the run as aborted by a run-level error.
func (t *ProgressTracker) Fail() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = CheckProgress{Status: CheckStatusError}
}

// Snapshot returns a copy of the current state.
func (t *ProgressTracker) Snapshot() CheckProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
