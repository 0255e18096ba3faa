package task

import (
	"bytes"
	"sync"
	"time"
)

// Canceller is satisfied by *interrupt.Token without importing
// internal/interrupt, keeping this package collaborator-free.
type Canceller interface {
	Set()
	IsSet() bool
}

// AgentTask tracks a subagent turn dispatched in the background
// (SPEC_FULL.md §C.1 "task tool ... running_in_background"). Stop and
// Kill both set the child turn's own InterruptionToken, as there is no
// child OS process to escalate against; Kill also marks a running task
// killed at once, while after Stop the status changes only when the run
// completes.
type AgentTask struct {
	id          string
	agentName   string
	description string
	tok         Canceller

	mu     sync.RWMutex
	status Status
	start  time.Time
	end    time.Time
	turns  int
	errMsg string
	output bytes.Buffer
}

var _ Task = (*AgentTask)(nil)

// NewAgentTask creates a tracked background subagent run. tok is the
// child turn's own InterruptionToken; Stop/Kill set it.
func NewAgentTask(id, agentName, description string, tok Canceller) *AgentTask {
	return &AgentTask{
		id:          id,
		agentName:   agentName,
		description: description,
		tok:         tok,
		status:      StatusRunning,
		start:       time.Now(),
	}
}

func (t *AgentTask) ID() string          { return t.id }
func (t *AgentTask) Kind() Kind          { return KindAgent }
func (t *AgentTask) Description() string { return t.description }

func (t *AgentTask) AppendOutput(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.output.WriteString(s)
}

func (t *AgentTask) Output() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.output.String()
}

func (t *AgentTask) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status == StatusRunning
}

// RecordTurn increments the turn counter reported as Info.Turns. The
// subagent Runner does not call it, so a background run it starts
// reports zero turns.
func (t *AgentTask) RecordTurn() {
	t.mu.Lock()
	t.turns++
	t.mu.Unlock()
}

// Complete records the terminal outcome of the subagent run.
func (t *AgentTask) Complete(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return
	}
	t.end = time.Now()
	if err != nil {
		t.status = StatusFailed
		t.errMsg = err.Error()
	} else {
		t.status = StatusCompleted
	}
}

func (t *AgentTask) Stop() error {
	if t.tok != nil {
		t.tok.Set()
	}
	return nil
}

func (t *AgentTask) Kill() error {
	t.mu.Lock()
	if t.status == StatusRunning {
		t.status = StatusKilled
		t.end = time.Now()
	}
	t.mu.Unlock()
	return t.Stop()
}

func (t *AgentTask) Status() Info {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Info{
		ID:          t.id,
		Kind:        KindAgent,
		Description: t.description,
		Status:      t.status,
		StartTime:   t.start,
		EndTime:     t.end,
		Output:      t.output.String(),
		Error:       t.errMsg,
		AgentName:   t.agentName,
		Turns:       t.turns,
	}
}
