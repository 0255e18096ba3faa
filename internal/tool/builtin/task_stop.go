package builtin

import (
	"context"
	"fmt"

	"github.com/loomcode/loom/internal/task"
	"github.com/loomcode/loom/internal/tool"
)

// TaskStopTool cancels a running background task by id (spec.md §6
// representative tool "task-stop", SPEC_FULL.md §C.2). Grounded on the
// teacher's internal/task.Manager.Stop's graceful-then-forceful
// termination.
type TaskStopTool struct {
	Tasks *task.Manager
}

func NewTaskStopTool(tasks *task.Manager) *TaskStopTool {
	return &TaskStopTool{Tasks: tasks}
}

func (t *TaskStopTool) Name() string { return "task-stop" }

func (t *TaskStopTool) Description() string {
	return "Stop a running background task"
}

func (t *TaskStopTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_id": map[string]any{"type": "string"},
		},
		"required":             []any{"task_id"},
		"additionalProperties": false,
	}
}

func (t *TaskStopTool) RequiresConfirmation() bool   { return false }
func (t *TaskStopTool) Sensitivity() tool.Sensitivity { return tool.LocalEffect }
func (t *TaskStopTool) IsTransparentWrapper() bool    { return false }
func (t *TaskStopTool) VisibleInChat() bool           { return true }

func (t *TaskStopTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	taskID, _ := args["task_id"].(string)
	if taskID == "" {
		return tool.Result{Error: "task_id is required", ErrorKind: "invalid_argument"}
	}
	if t.Tasks == nil {
		return tool.Result{Error: "no task manager configured", ErrorKind: "system_error"}
	}

	if err := t.Tasks.Stop(taskID); err != nil {
		return tool.Result{Error: err.Error(), ErrorKind: "invalid_argument"}
	}
	return tool.Result{Success: true, Output: fmt.Sprintf("Stopped task %s", taskID)}
}

func (t *TaskStopTool) Subtext(args map[string]any) string { return "Stopping task" }

func (t *TaskStopTool) Preview(args map[string]any, r tool.Result) string {
	if !r.Success {
		return r.Error
	}
	return r.Output
}
