// Package orchestrator implements the Tool Orchestrator: batch
// unwrapping, schema validation, the parallel/serial dispatch split,
// per-call permission gating, lifecycle events, and the ordered
// assembly of tool-role result messages (spec.md §4.5). Grounded on
// the shape of the teacher's core.Loop.Run tool-dispatch loop
// (internal/core/core.go), generalized to the spec's ordered,
// parallel-capable, permission-gated dispatch.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/loomcode/loom/internal/bus"
	"github.com/loomcode/loom/internal/interrupt"
	"github.com/loomcode/loom/internal/message"
	"github.com/loomcode/loom/internal/permission"
	"github.com/loomcode/loom/internal/tool"
)

const (
	DefaultBatchToolName = "batch"
	DefaultMaxBatchSize  = 20
	DefaultMaxFanout     = 8
)

// Config tunes dispatch behavior (spec.md §6 Configuration surface:
// parallel_tools, max_batch_size).
type Config struct {
	Parallel      bool
	MaxFanout     int
	MaxBatchSize  int
	BatchToolName string
	Preview       PreviewTiers
}

// DefaultConfig enables parallel read-only fan-out with the package's
// suggested defaults.
func DefaultConfig() Config {
	return Config{
		Parallel:      true,
		MaxFanout:     DefaultMaxFanout,
		MaxBatchSize:  DefaultMaxBatchSize,
		BatchToolName: DefaultBatchToolName,
		Preview:       DefaultPreviewTiers(),
	}
}

// PreDispatchHook lets an optional pre-classification stage block or
// rewrite a call's arguments before the Permission Gate is consulted
// (spec.md §C.3, generalized from the teacher's internal/hooks
// PreToolUse stage).
type PreDispatchHook func(ctx context.Context, name string, args map[string]any) (updated map[string]any, blocked bool, reason string)

// Dispatcher is the Tool Orchestrator.
type Dispatcher struct {
	Registry    *tool.Registry
	Bus         *bus.Bus
	Gate        *permission.Gate
	PreDispatch PreDispatchHook
	Cfg         Config

	// UsagePercent, if set, is consulted to pick a preview truncation
	// tier (spec.md §4.5); wired to History.UsagePercent by the caller.
	UsagePercent func() float64
}

func (d *Dispatcher) cfg() Config {
	c := d.Cfg
	if c.MaxFanout <= 0 {
		c.MaxFanout = DefaultMaxFanout
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.BatchToolName == "" {
		c.BatchToolName = DefaultBatchToolName
	}
	if c.Preview == (PreviewTiers{}) {
		c.Preview = DefaultPreviewTiers()
	}
	return c
}

type job struct {
	idx  int
	call message.ToolCall
	args map[string]any
	t    tool.Tool
}

// Dispatch runs calls to completion and returns the resulting tool-role
// messages in the same order as calls (spec.md §4.5 entry point,
// invariant 2). A denied call and everything queued after it in the
// serial stream produce no message at all — the Turn Controller detects
// the denial via tok.IsSet() and ends the turn without ever seeing a
// tool-role message for the denied call (spec.md §8 scenario D).
func (d *Dispatcher) Dispatch(ctx context.Context, calls []message.ToolCall, parentID string, tok *interrupt.Token) []message.Message {
	cfg := d.cfg()
	calls, parents := d.unwrapBatches(calls)
	n := len(calls)
	results := make([]*message.Message, n)

	var parallelJobs, serialJobs []job

	for i, c := range calls {
		wrapperID := parents[c.ID]

		t, ok := d.Registry.Get(c.Name)
		if !ok {
			d.emitStart(c.ID, c.Name, nil, parentID, wrapperID, false)
			d.emitEnd(c.ID, parentID, "error", 0, "system_error")
			results[i] = errResult(c, "system_error", "unknown tool: "+c.Name)
			continue
		}

		args, err := message.ParseArguments(c.Arguments)
		if err != nil {
			d.emitStart(c.ID, c.Name, nil, parentID, wrapperID, t.IsTransparentWrapper())
			d.emitEnd(c.ID, parentID, "error", 0, "validation_error")
			results[i] = errResult(c, "validation_error", err.Error())
			continue
		}

		if verr := d.Registry.Validate(c.Name, args); verr != nil {
			d.emitStart(c.ID, c.Name, args, parentID, wrapperID, t.IsTransparentWrapper())
			d.emitEnd(c.ID, parentID, "error", 0, "validation_error")
			results[i] = errResult(c, "validation_error", verr.Error())
			continue
		}

		if d.PreDispatch != nil {
			updated, blocked, reason := d.PreDispatch(ctx, c.Name, args)
			if blocked {
				d.emitStart(c.ID, c.Name, args, parentID, wrapperID, t.IsTransparentWrapper())
				d.emitEnd(c.ID, parentID, "error", 0, "system_error")
				results[i] = errResult(c, "system_error", reason)
				continue
			}
			if updated != nil {
				args = updated
			}
		}

		j := job{idx: i, call: c, args: args, t: t}
		if cfg.Parallel && t.Sensitivity() == tool.ReadOnly && !t.IsTransparentWrapper() {
			parallelJobs = append(parallelJobs, j)
		} else {
			serialJobs = append(serialJobs, j)
		}
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, cfg.MaxFanout)
	for _, j := range parallelJobs {
		if tok.IsSet() {
			break // no new TOOL_CALL_START after the interruption point (invariant 5)
		}
		wrapperID := parents[j.call.ID]
		d.emitStart(j.call.ID, j.call.Name, j.args, parentID, wrapperID, j.t.IsTransparentWrapper())

		decision, permErr := d.checkPermission(ctx, j)
		if permErr != nil || decision == permission.Deny {
			d.emitEnd(j.call.ID, parentID, "cancelled", 0, "permission_denied")
			tok.Set()
			break
		}

		wg.Add(1)
		go func(j job, wrapperID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			d.runJob(ctx, j, parentID, tok, results)
		}(j, wrapperID)
	}

	for _, j := range serialJobs {
		if tok.IsSet() {
			break
		}

		wrapperID := parents[j.call.ID]
		d.emitStart(j.call.ID, j.call.Name, j.args, parentID, wrapperID, j.t.IsTransparentWrapper())

		decision, permErr := d.checkPermission(ctx, j)
		if permErr != nil || decision == permission.Deny {
			d.emitEnd(j.call.ID, parentID, "cancelled", 0, "permission_denied")
			tok.Set()
			break
		}

		d.runJob(ctx, j, parentID, tok, results)
	}

	wg.Wait()

	out := make([]message.Message, 0, n)
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// checkPermission consults the Gate for one call. A nil Gate allows
// everything. Every job — parallel and serial alike — passes through
// here: a pre-seeded Deny rule must win regardless of a tool's
// sensitivity, so the read-only fan-out can't bypass it the way a
// bare fast path would.
func (d *Dispatcher) checkPermission(ctx context.Context, j job) (permission.Decision, error) {
	if d.Gate == nil {
		return permission.Allow, nil
	}
	return d.Gate.Check(ctx, j.call.Name, j.call.Name, j.args, j.t.RequiresConfirmation())
}

// runJob executes one validated, permission-cleared call and records
// its tool-role result message into results[j.idx].
func (d *Dispatcher) runJob(ctx context.Context, j job, parentID string, tok *interrupt.Token, results []*message.Message) {
	start := time.Now()

	ec := tool.ExecContext{
		Interrupted: tok.IsSet,
		Emit: func(chunk string) {
			if d.Bus == nil {
				return
			}
			d.Bus.Emit(bus.Event{Type: bus.ToolOutputChunk, ParentID: parentID, Data: ChunkEvent{ID: j.call.ID, Chunk: chunk}})
		},
	}

	res := j.t.Execute(ctx, j.args, ec)
	duration := time.Since(start).Milliseconds()

	status := "success"
	errorKind := ""
	content := res.Output
	m := message.ToolResult(j.call.ID, j.call.Name, content)
	if !res.Success {
		status = "error"
		errorKind = res.ErrorKind
		if errorKind == "" {
			errorKind = "system_error"
		}
		m = message.ToolError(j.call.ID, j.call.Name, validationError(errorKind, res.Error))
	}

	d.emitEnd(j.call.ID, parentID, status, duration, errorKind)

	results[j.idx] = &m
}

func errResult(c message.ToolCall, kind, msg string) *message.Message {
	m := message.ToolError(c.ID, c.Name, validationError(kind, msg))
	return &m
}

func (d *Dispatcher) emitStart(id, name string, args map[string]any, scopeParentID, wrapperID string, isTransparent bool) {
	if d.Bus == nil {
		return
	}
	d.Bus.Emit(bus.Event{
		Type:     bus.ToolCallStart,
		ParentID: scopeParentID,
		Data:     StartEvent{ID: id, Name: name, Args: args, ParentID: wrapperID, IsTransparent: isTransparent},
	})
}

func (d *Dispatcher) emitEnd(id, scopeParentID, status string, durationMs int64, errorKind string) {
	if d.Bus == nil {
		return
	}
	d.Bus.Emit(bus.Event{
		Type:     bus.ToolCallEnd,
		ParentID: scopeParentID,
		Data:     EndEvent{ID: id, Status: status, DurationMs: durationMs, ErrorKind: errorKind},
	})
}

// previewBudget resolves the current truncation budget from
// UsagePercent, defaulting to the widest tier when unset.
func (d *Dispatcher) previewBudget() int {
	cfg := d.cfg()
	if d.UsagePercent == nil {
		return cfg.Preview.Normal
	}
	return cfg.Preview.budgetFor(d.UsagePercent())
}

// Preview renders a UI-facing, truncated preview of a tool's raw
// output, independent of the full content fed to the LLM.
func (d *Dispatcher) Preview(output string) string {
	return truncate(output, d.previewBudget())
}
