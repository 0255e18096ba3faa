package task

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Manager tracks every background task (bash or agent) currently
// running or recently finished, keyed by a short generated id returned
// to the LLM so a later "task-output"/"task-stop" call can address it.
type Manager struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{tasks: make(map[string]Task)}
}

// NewID generates a short random task id, assigned before the
// underlying process/turn is started so callers can register it
// atomically with Add.
func NewID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Add registers t under its own ID.
func (m *Manager) Add(t Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID()] = t
}

// Get retrieves a task by id.
func (m *Manager) Get(id string) (Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	return t, ok
}

// List returns every tracked task.
func (m *Manager) List() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	return out
}

// Stop stops a running task by id (spec.md §C.2 "task_stop").
func (m *Manager) Stop(id string) error {
	t, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("task not found: %s", id)
	}
	if !t.IsRunning() {
		return fmt.Errorf("task already finished: %s", id)
	}
	if err := t.Stop(); err != nil {
		return err
	}

	deadline := time.Now().Add(2 * time.Second)
	for t.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if t.IsRunning() {
		return t.Kill()
	}
	return nil
}

// Cleanup removes finished tasks older than maxAge, bounding unbounded
// growth of the manager's map across a long session.
func (m *Manager) Cleanup(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, t := range m.tasks {
		if t.IsRunning() {
			continue
		}
		info := t.Status()
		if !info.EndTime.IsZero() && now.Sub(info.EndTime) > maxAge {
			delete(m.tasks, id)
		}
	}
}
