package builtin

import (
	"context"
	"fmt"

	"github.com/loomcode/loom/internal/task"
	"github.com/loomcode/loom/internal/tool"
)

// TaskOutputTool polls a background task's accumulated output and
// status by id (spec.md §6 representative tool "task-output",
// SPEC_FULL.md §C.2). Grounded on the teacher's internal/task.Manager
// query surface.
type TaskOutputTool struct {
	Tasks *task.Manager
}

func NewTaskOutputTool(tasks *task.Manager) *TaskOutputTool {
	return &TaskOutputTool{Tasks: tasks}
}

func (t *TaskOutputTool) Name() string { return "task-output" }

func (t *TaskOutputTool) Description() string {
	return "Check a background task's current status and accumulated output"
}

func (t *TaskOutputTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_id": map[string]any{"type": "string"},
		},
		"required":             []any{"task_id"},
		"additionalProperties": false,
	}
}

func (t *TaskOutputTool) RequiresConfirmation() bool   { return false }
func (t *TaskOutputTool) Sensitivity() tool.Sensitivity { return tool.ReadOnly }
func (t *TaskOutputTool) IsTransparentWrapper() bool    { return false }
func (t *TaskOutputTool) VisibleInChat() bool           { return true }

func (t *TaskOutputTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	taskID, _ := args["task_id"].(string)
	if taskID == "" {
		return tool.Result{Error: "task_id is required", ErrorKind: "invalid_argument"}
	}
	if t.Tasks == nil {
		return tool.Result{Error: "no task manager configured", ErrorKind: "system_error"}
	}

	bt, ok := t.Tasks.Get(taskID)
	if !ok {
		return tool.Result{Error: fmt.Sprintf("task not found: %s", taskID), ErrorKind: "invalid_argument"}
	}

	info := bt.Status()
	out := fmt.Sprintf("status: %s\n\n%s", info.Status, info.Output)
	if info.Error != "" {
		out += fmt.Sprintf("\n\nerror: %s", info.Error)
	}
	return tool.Result{Success: true, Output: out}
}

func (t *TaskOutputTool) Subtext(args map[string]any) string { return "Checking task output" }

func (t *TaskOutputTool) Preview(args map[string]any, r tool.Result) string {
	if !r.Success {
		return r.Error
	}
	return r.Output
}
