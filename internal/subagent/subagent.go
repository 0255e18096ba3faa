// Package subagent implements nested sub-agent turns (spec.md §9
// "Nested contexts for sub-agents", SPEC_FULL.md §C.1): a "task" tool
// dispatches a child Turn Controller with its own Message History,
// running against an Event Bus scoped with parent_id, whose
// InterruptionToken is force-set if the parent call's own
// interruption poll trips while the child is still running. Grounded
// on the teacher's internal/agent.Executor (agent-loop reuse,
// turn/token accounting) and internal/tool/task.go's
// TaskTool/AgentExecutor seam, generalized into this engine's
// turn.Controller/bus.Scoped vocabulary instead of a second bespoke
// loop implementation.
package subagent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/loomcode/loom/internal/bus"
	"github.com/loomcode/loom/internal/cycle"
	"github.com/loomcode/loom/internal/interrupt"
	"github.com/loomcode/loom/internal/message"
	"github.com/loomcode/loom/internal/task"
	"github.com/loomcode/loom/internal/tool"
	"github.com/loomcode/loom/internal/turn"
)

// watchInterval is how often a running child turn's owning call is
// polled for the parent's own interruption (spec.md §5 "Suspension
// points" — the Task tool's own execution is itself a suspension
// point of the parent dispatch, polled the same way every tool is).
const watchInterval = 50 * time.Millisecond

// Request describes one subagent dispatch.
type Request struct {
	AgentType    string
	Prompt       string
	Description  string
	SystemPrompt string
	MaxHistory   message.EstimatorConfig
}

// Result is the terminal outcome of a foreground subagent run.
type Result struct {
	AgentName string
	Content   string
	Error     string
}

// Runner builds and drives child Turn Controllers sharing the parent's
// Registry, Transport and root Bus. One Runner typically backs the
// "task" builtin tool.
type Runner struct {
	Registry      *tool.Registry
	RootBus       *bus.Bus
	Transport     turn.Transport
	NewDispatcher func(*bus.Scoped, *interrupt.Token) turn.Dispatcher
}

// Run drives req to completion (or to a terminal condition) in the
// caller's goroutine, returning the final assistant text. parentID
// scopes every event the child turn emits so a UI can distinguish
// nested activity from the top-level turn's own (spec.md §4.1
// "Scoping"). parentInterrupted, if it starts reporting true while
// the child is still running, force-interrupts the child (spec.md §9
// "Ensure a child turn cannot outlive its parent").
func (r *Runner) Run(ctx context.Context, parentID string, parentInterrupted func() bool, req Request) (Result, error) {
	if req.AgentType == "" {
		return Result{}, fmt.Errorf("subagent_type is required")
	}
	if req.Prompt == "" {
		return Result{}, fmt.Errorf("prompt is required")
	}

	childTok := interrupt.New()
	stopWatch := watchParent(parentInterrupted, childTok)
	defer stopWatch()

	content, err := r.runWithToken(ctx, parentID, childTok, req)
	if err != nil {
		return Result{AgentName: req.AgentType, Error: err.Error()}, err
	}

	res := Result{AgentName: req.AgentType, Content: content}
	if childTok.IsSet() {
		res.Error = content
	}
	return res, nil
}

// RunBackground starts req in a new goroutine and returns a tracked
// *task.AgentTask immediately, for the "task" tool's
// run_in_background option (SPEC_FULL.md §C.1). The caller registers
// the returned task with a *task.Manager so a later "task-output"/
// "task-stop" call can address it by id; AgentTask.Stop sets the
// child's own token directly, independent of the parent call that
// launched it (which has likely already returned by the time a
// "task-stop" call arrives).
func (r *Runner) RunBackground(parentID string, req Request) *task.AgentTask {
	id := task.NewID()
	childTok := interrupt.New()
	at := task.NewAgentTask(id, req.AgentType, req.Description, childTok)

	go func() {
		content, err := r.runWithToken(context.Background(), parentID, childTok, req)
		at.AppendOutput(content)
		at.Complete(err)
	}()

	return at
}

// runWithToken is shared by Run and RunBackground: build a child
// history/bus/controller and drive one child turn under childTok.
func (r *Runner) runWithToken(ctx context.Context, parentID string, childTok *interrupt.Token, req Request) (string, error) {
	scoped := r.RootBus.Scoped(parentID)
	history := message.NewHistory(orDefaultEstimator(req.MaxHistory))
	if req.SystemPrompt != "" {
		history.ReplaceSystem(req.SystemPrompt)
	}

	var dispatcher turn.Dispatcher
	if r.NewDispatcher != nil {
		dispatcher = r.NewDispatcher(scoped, childTok)
	}

	ctrl := turn.New(history, scoped, dispatcher, cycle.NewDetector(), childTok, r.Transport)
	ctrl.ParentID = parentID
	ctrl.Tools = func() []tool.Descriptor {
		if r.Registry == nil {
			return nil
		}
		return r.Registry.Descriptors()
	}

	return ctrl.SendMessage(ctx, req.Prompt)
}

// watchParent polls parentInterrupted every watchInterval and sets
// childTok the first time it reports true, stopping once the returned
// stop func is called (the child finished on its own first). A nil
// parentInterrupted (a top-level dispatch with no parent to outlive)
// starts no watcher.
func watchParent(parentInterrupted func() bool, childTok *interrupt.Token) (stop func()) {
	if parentInterrupted == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if parentInterrupted() {
					childTok.Set()
					return
				}
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func orDefaultEstimator(cfg message.EstimatorConfig) message.EstimatorConfig {
	if cfg.CharsPerToken <= 0 {
		return message.DefaultEstimatorConfig()
	}
	return cfg
}
