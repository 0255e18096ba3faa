// Package task implements the background task manager backing
// long-running shell commands and subagent turns that outlive a single
// Tool Orchestrator dispatch (SPEC_FULL.md §C.2). Grounded on the
// teacher's internal/task package (Manager/Task/BashTask/AgentTask,
// process-group signal handling via syscall), generalized into a
// single Task interface so the orchestrator's "task-output"
// and "task-stop" tools need not know whether a given id names a shell
// command or a nested Turn Controller run.
package task

import "time"

// Kind distinguishes what a background task is running.
type Kind string

const (
	KindBash  Kind = "bash"
	KindAgent Kind = "agent"
)

// Status is a background task's coarse lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusKilled    Status = "killed"
)

// Info is a point-in-time snapshot of a background task, safe to copy
// and hand to a tool's Result.Output.
type Info struct {
	ID          string
	Kind        Kind
	Description string
	Status      Status
	StartTime   time.Time
	EndTime     time.Time
	Output      string
	Error       string

	// Bash-specific.
	Command  string
	PID      int
	ExitCode int

	// Agent-specific.
	AgentName string
	Turns     int
}

// Task is anything the Manager can track, stop, and report on — a
// running shell command (BashTask) or a running child turn (AgentTask).
type Task interface {
	ID() string
	Kind() Kind
	Description() string
	Status() Info
	IsRunning() bool
	// Stop requests graceful termination (SIGTERM for bash, interrupt
	// token for an agent turn).
	Stop() error
	// Kill forces termination (SIGKILL for bash; for an agent turn, it
	// sets the same token as Stop, since there is no child process to
	// escalate against, and also marks the task killed).
	Kill() error
	AppendOutput(s string)
	Output() string
}
