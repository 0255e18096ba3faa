// Package hooks implements a PreToolUse-equivalent pre-dispatch stage:
// shell commands configured per tool name, run synchronously before a
// call reaches the Permission Gate, able to rewrite its arguments or
// block it outright. Grounded on the teacher's internal/hooks package
// (Engine.Execute/executeCommand, the HookInput/HookOutput stdin/stdout
// JSON protocol, matcher-by-tool-name), trimmed to the single event
// this engine's spec wires: a tool call about to be dispatched
// (spec.md §4.5 "Pre-dispatch hook").
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a hook command that never exits.
const DefaultTimeout = 60 * time.Second

// Command is one configured hook: a shell command run for tool calls
// whose name matches Matcher (a regex, anchored both ends; "" or "*"
// matches any tool).
type Command struct {
	Matcher string
	Command string
	Timeout time.Duration
}

// Input is the JSON payload written to a hook command's stdin.
type Input struct {
	Cwd       string         `json:"cwd"`
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
}

// Output is the JSON payload a hook command may write to stdout to
// influence dispatch.
type Output struct {
	Continue      *bool          `json:"continue,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	UpdatedInput  map[string]any `json:"updatedInput,omitempty"`
	SystemMessage string         `json:"systemMessage,omitempty"`
}

// Outcome is the processed result of running every matching hook for
// one call.
type Outcome struct {
	Blocked      bool
	BlockReason  string
	UpdatedInput map[string]any
}

// Engine runs the configured PreToolUse-equivalent hooks for a call.
type Engine struct {
	Commands []Command
	Cwd      string
}

// NewEngine creates an Engine over the given configured commands.
func NewEngine(cwd string, commands []Command) *Engine {
	return &Engine{Commands: commands, Cwd: cwd}
}

// Run executes every hook whose Matcher matches toolName, in order,
// synchronously. A hook exiting 2, or setting continue:false, blocks
// the call and ends the run: later hooks do not run. UpdatedInput from
// every hook that ran, the blocking one included, is applied in order.
func (e *Engine) Run(ctx context.Context, toolName string, args map[string]any) Outcome {
	out := Outcome{UpdatedInput: args}
	for _, cmd := range e.Commands {
		if !matches(cmd.Matcher, toolName) {
			continue
		}
		result := e.runOne(ctx, cmd, toolName, out.UpdatedInput)
		if result.UpdatedInput != nil {
			out.UpdatedInput = result.UpdatedInput
		}
		if result.Blocked {
			out.Blocked = true
			out.BlockReason = result.BlockReason
			return out
		}
	}
	return out
}

// PreDispatch adapts Run to the Tool Orchestrator's PreDispatchHook
// signature (orchestrator.PreDispatchHook), so an *Engine can be
// plugged in directly as Dispatcher.PreDispatch.
func (e *Engine) PreDispatch(ctx context.Context, name string, args map[string]any) (map[string]any, bool, string) {
	out := e.Run(ctx, name, args)
	return out.UpdatedInput, out.Blocked, out.BlockReason
}

func (e *Engine) runOne(ctx context.Context, cmd Command, toolName string, args map[string]any) Outcome {
	if cmd.Command == "" {
		return Outcome{}
	}

	timeout := DefaultTimeout
	if cmd.Timeout > 0 {
		timeout = cmd.Timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(Input{Cwd: e.Cwd, ToolName: toolName, ToolInput: args})
	if err != nil {
		return Outcome{}
	}

	run := exec.CommandContext(runCtx, "sh", "-c", cmd.Command)
	run.Dir = e.Cwd
	run.Stdin = bytes.NewReader(payload)
	run.Env = append(os.Environ(), "LOOM_TOOL_NAME="+toolName)

	var stdout, stderr bytes.Buffer
	run.Stdout = &stdout
	run.Stderr = &stderr

	runErr := run.Run()
	exitCode := exitCodeOf(runErr)

	if exitCode == 2 {
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = "blocked by pre-dispatch hook"
		}
		return Outcome{Blocked: true, BlockReason: reason}
	}
	if exitCode != 0 {
		return Outcome{}
	}

	return parseOutput(strings.TrimSpace(stdout.String()))
}

func parseOutput(raw string) Outcome {
	if raw == "" {
		return Outcome{}
	}
	var out Output
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Outcome{}
	}
	outcome := Outcome{UpdatedInput: out.UpdatedInput}
	if out.Continue != nil && !*out.Continue {
		outcome.Blocked = true
		outcome.BlockReason = out.Reason
	}
	return outcome
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
