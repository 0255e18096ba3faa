package builtin

import (
	"context"
	"fmt"

	"github.com/loomcode/loom/internal/subagent"
	"github.com/loomcode/loom/internal/task"
	"github.com/loomcode/loom/internal/tool"
)

// TaskTool launches a subagent to handle a self-contained piece of work
// (spec.md §6 representative tool "task", SPEC_FULL.md §C.1). Grounded
// on the teacher's internal/tool/task.go TaskTool, generalized onto
// *subagent.Runner rather than a bespoke AgentExecutor interface. A
// prompt-issued call always requires confirmation, matching the
// teacher's "Task always requires permission" rule, since it spawns an
// independent turn with its own tool access.
type TaskTool struct {
	Runner *subagent.Runner
	Tasks  *task.Manager

	// AgentPrompts optionally maps a subagent_type to the system prompt
	// its child turn should run under. A missing entry runs with no
	// system prompt override.
	AgentPrompts map[string]string
}

func NewTaskTool(r *subagent.Runner, tasks *task.Manager) *TaskTool {
	return &TaskTool{Runner: r, Tasks: tasks}
}

func (t *TaskTool) Name() string { return "task" }

func (t *TaskTool) Description() string {
	return "Launch a subagent to handle a self-contained piece of work"
}

func (t *TaskTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subagent_type":     map[string]any{"type": "string"},
			"prompt":            map[string]any{"type": "string"},
			"description":       map[string]any{"type": "string"},
			"run_in_background": map[string]any{"type": "boolean"},
		},
		"required":             []any{"subagent_type", "prompt"},
		"additionalProperties": false,
	}
}

func (t *TaskTool) RequiresConfirmation() bool   { return true }
func (t *TaskTool) Sensitivity() tool.Sensitivity { return tool.LocalEffect }
func (t *TaskTool) IsTransparentWrapper() bool    { return false }
func (t *TaskTool) VisibleInChat() bool           { return true }

func (t *TaskTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	agentType, _ := args["subagent_type"].(string)
	if agentType == "" {
		return tool.Result{Error: "subagent_type is required", ErrorKind: "invalid_argument"}
	}
	prompt, _ := args["prompt"].(string)
	if prompt == "" {
		return tool.Result{Error: "prompt is required", ErrorKind: "invalid_argument"}
	}
	description, _ := args["description"].(string)
	if description == "" {
		description = fmt.Sprintf("Run %s subagent", agentType)
	}
	runBackground, _ := args["run_in_background"].(bool)

	if t.Runner == nil {
		return tool.Result{Error: "no subagent runner configured", ErrorKind: "system_error"}
	}

	req := subagent.Request{
		AgentType:    agentType,
		Prompt:       prompt,
		Description:  description,
		SystemPrompt: t.AgentPrompts[agentType],
	}

	// A fresh scope id nests the child turn's own activity independently
	// of this call's id, which the Tool Orchestrator does not pass down
	// to ExecContext.
	scopeID := task.NewID()

	if runBackground {
		if t.Tasks == nil {
			return tool.Result{Error: "background tasks are not supported here", ErrorKind: "system_error"}
		}
		at := t.Runner.RunBackground(scopeID, req)
		t.Tasks.Add(at)
		return tool.Result{
			Success: true,
			Output:  fmt.Sprintf("Started background task %s (%s)", at.ID(), agentType),
		}
	}

	res, err := t.Runner.Run(ctx, scopeID, ec.Interrupted, req)
	if err != nil {
		return tool.Result{Error: err.Error(), ErrorKind: "invalid_argument"}
	}
	if res.Error != "" {
		return tool.Result{Error: res.Error, ErrorKind: "interrupted"}
	}
	return tool.Result{Success: true, Output: res.Content}
}

func (t *TaskTool) Subtext(args map[string]any) string {
	agentType, _ := args["subagent_type"].(string)
	if agentType == "" {
		return "Running subagent"
	}
	return fmt.Sprintf("Running %s subagent", agentType)
}

func (t *TaskTool) Preview(args map[string]any, r tool.Result) string {
	if !r.Success {
		return r.Error
	}
	return r.Output
}
