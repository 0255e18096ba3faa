package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/loomcode/loom/internal/tool"
)

// TodoItem mirrors the teacher's ui.TodoItem, kept minimal for the
// subset the turn loop's progress tracking needs.
type TodoItem struct {
	Content    string `json:"content"`
	Status     string `json:"status"`
	ActiveForm string `json:"activeForm"`
}

// TodoWriteTool replaces the session's current structured task list
// (spec.md §6 representative tool "todo-write"). Read-only in the
// Permission Gate's sense — it mutates in-memory progress state, not
// the filesystem or network, so it is auto-allowed like the teacher's
// "Todo" classification.
type TodoWriteTool struct {
	mu    sync.Mutex
	Items []TodoItem
}

func NewTodoWriteTool() *TodoWriteTool { return &TodoWriteTool{} }

func (t *TodoWriteTool) Name() string { return "todo-write" }

func (t *TodoWriteTool) Description() string {
	return "Replace the current structured task list"
}

func (t *TodoWriteTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"todos": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"content":    map[string]any{"type": "string"},
						"status":     map[string]any{"type": "string", "enum": []any{"pending", "in_progress", "completed"}},
						"activeForm": map[string]any{"type": "string"},
					},
					"required": []any{"content", "status", "activeForm"},
				},
			},
		},
		"required":             []any{"todos"},
		"additionalProperties": false,
	}
}

func (t *TodoWriteTool) RequiresConfirmation() bool   { return false }
func (t *TodoWriteTool) Sensitivity() tool.Sensitivity { return tool.ReadOnly }
func (t *TodoWriteTool) IsTransparentWrapper() bool    { return false }
func (t *TodoWriteTool) VisibleInChat() bool           { return true }

func (t *TodoWriteTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	raw, ok := args["todos"]
	if !ok {
		return tool.Result{Error: "missing required parameter: todos", ErrorKind: "invalid_argument"}
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return tool.Result{Error: "invalid todos format: " + err.Error(), ErrorKind: "invalid_argument"}
	}
	var todos []TodoItem
	if err := json.Unmarshal(encoded, &todos); err != nil {
		return tool.Result{Error: "failed to parse todos: " + err.Error(), ErrorKind: "invalid_argument"}
	}

	pending, inProgress, completed := 0, 0, 0
	for i, todo := range todos {
		if todo.Content == "" {
			return tool.Result{Error: fmt.Sprintf("todo[%d]: content is required", i), ErrorKind: "invalid_argument"}
		}
		if todo.ActiveForm == "" {
			return tool.Result{Error: fmt.Sprintf("todo[%d]: activeForm is required", i), ErrorKind: "invalid_argument"}
		}
		switch todo.Status {
		case "pending":
			pending++
		case "in_progress":
			inProgress++
		case "completed":
			completed++
		default:
			return tool.Result{Error: fmt.Sprintf("todo[%d]: invalid status %q", i, todo.Status), ErrorKind: "invalid_argument"}
		}
	}

	t.mu.Lock()
	t.Items = todos
	t.mu.Unlock()

	return tool.Result{
		Success: true,
		Output:  fmt.Sprintf("Todo list updated: %d pending, %d in progress, %d completed", pending, inProgress, completed),
	}
}

func (t *TodoWriteTool) Subtext(args map[string]any) string { return "Updating task list" }

func (t *TodoWriteTool) Preview(args map[string]any, r tool.Result) string {
	if !r.Success {
		return r.Error
	}
	return r.Output
}
