package turn

import "time"

// Manager tracks wall-clock duration for a turn (or a specialized
// sub-turn with its own shorter cap) and exposes a soft deadline check
// (spec.md §2 "Turn Manager", §5 "Timeouts"). Grounded on the teacher's
// ctx.Done() polling idiom in core.Loop.Run, lifted into a standalone
// clock so the Turn Controller can poll it once per loop iteration
// without threading a context deadline through every suspension point.
type Manager struct {
	start time.Time
	cap   time.Duration // 0 means uncapped
}

// NewManager starts a clock with the given cap (0 for uncapped).
func NewManager(cap time.Duration) *Manager {
	return &Manager{start: time.Now(), cap: cap}
}

// Elapsed returns time since the clock started.
func (m *Manager) Elapsed() time.Duration { return time.Since(m.start) }

// Exceeded reports whether the cap (if any) has been passed.
func (m *Manager) Exceeded() bool {
	return m.cap > 0 && m.Elapsed() > m.cap
}

// Reset restarts the clock, keeping the same cap. Called at the start
// of each new turn.
func (m *Manager) Reset() { m.start = time.Now() }
