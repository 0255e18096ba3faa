package builtin

import (
	"github.com/loomcode/loom/internal/subagent"
	"github.com/loomcode/loom/internal/task"
	"github.com/loomcode/loom/internal/tool"
)

// Register adds the default tool set to r: read, write, edit, bash,
// glob, grep, task-output, task-stop, web-search, web-fetch, todo-write,
// the "task" tool when runner is non-nil, and the batch wrapper the
// Orchestrator depends on (spec.md §6 "Representative tool set"). tasks backs bash
// and subagent background runs; runner is optional — a nil runner
// disables the "task" tool's foreground/background subagent dispatch,
// useful for a caller that has not wired an LLM transport yet.
func Register(r *tool.Registry, tasks *task.Manager, runner *subagent.Runner) *TodoWriteTool {
	r.Register(&ReadTool{})
	r.Register(&WriteTool{})
	r.Register(&EditTool{})
	r.Register(&BashTool{Tasks: tasks})
	r.Register(&GlobTool{})
	r.Register(&GrepTool{})
	r.Register(&BatchTool{})
	r.Register(NewTaskOutputTool(tasks))
	r.Register(NewTaskStopTool(tasks))
	r.Register(&WebSearchTool{})
	r.Register(&WebFetchTool{})
	if runner != nil {
		r.Register(NewTaskTool(runner, tasks))
	}
	todo := NewTodoWriteTool()
	r.Register(todo)
	return todo
}
