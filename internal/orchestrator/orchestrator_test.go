package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/loomcode/loom/internal/bus"
	"github.com/loomcode/loom/internal/config"
	"github.com/loomcode/loom/internal/interrupt"
	"github.com/loomcode/loom/internal/message"
	"github.com/loomcode/loom/internal/permission"
	"github.com/loomcode/loom/internal/trust"
	"github.com/loomcode/loom/internal/tool"
)

// fakeTool is a minimal tool.Tool for exercising the Orchestrator
// without a real filesystem/shell dependency.
type fakeTool struct {
	name        string
	sensitivity tool.Sensitivity
	confirm     bool
	wrapper     bool
	delay       time.Duration
	fn          func(args map[string]any) tool.Result
}

func (f *fakeTool) Name() string                      { return f.name }
func (f *fakeTool) Schema() map[string]any            { return nil }
func (f *fakeTool) RequiresConfirmation() bool        { return f.confirm }
func (f *fakeTool) Sensitivity() tool.Sensitivity     { return f.sensitivity }
func (f *fakeTool) IsTransparentWrapper() bool        { return f.wrapper }
func (f *fakeTool) VisibleInChat() bool               { return true }
func (f *fakeTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fn != nil {
		return f.fn(args)
	}
	return tool.Result{Success: true, Output: "ok"}
}

func newRegistry(tools ...tool.Tool) *tool.Registry {
	r := tool.NewRegistry()
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func call(id, name string, args map[string]any) message.ToolCall {
	buf, _ := json.Marshal(args)
	return message.ToolCall{ID: id, Name: name, Arguments: string(buf)}
}

// Scenario C: parallel read-only calls still append results in input
// order even when the second call finishes first.
func TestDispatch_ParallelOrderPreserved(t *testing.T) {
	readA := &fakeTool{name: "read", sensitivity: tool.ReadOnly, delay: 30 * time.Millisecond,
		fn: func(args map[string]any) tool.Result { return tool.Result{Success: true, Output: "A"} }}

	var mu sync.Mutex
	order := []string{}
	readB := &fakeTool{name: "read-fast", sensitivity: tool.ReadOnly,
		fn: func(args map[string]any) tool.Result {
			mu.Lock()
			order = append(order, "B")
			mu.Unlock()
			return tool.Result{Success: true, Output: "B"}
		}}

	reg := newRegistry(readA, readB)
	d := &Dispatcher{Registry: reg, Bus: bus.New(), Cfg: DefaultConfig()}
	tok := interrupt.New()

	calls := []message.ToolCall{
		call("t1", "read", map[string]any{"path": "a"}),
		call("t2", "read-fast", map[string]any{"path": "b"}),
	}

	msgs := d.Dispatch(context.Background(), calls, "", tok)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ToolCallID != "t1" || msgs[1].ToolCallID != "t2" {
		t.Fatalf("expected result order [t1, t2], got [%s, %s]", msgs[0].ToolCallID, msgs[1].ToolCallID)
	}
}

// Scenario D: a denied call produces no tool-role message and sets the
// interruption token; TOOL_CALL_END fires with status cancelled.
func TestDispatch_DenialProducesNoMessage(t *testing.T) {
	shell := &fakeTool{name: "bash", sensitivity: tool.Destructive, confirm: true}
	reg := newRegistry(shell)

	b := bus.New()
	var ended []EndEvent
	b.Subscribe(bus.ToolCallEnd, func(e bus.Event) {
		ended = append(ended, e.Data.(EndEvent))
	})

	trustCache := trust.New()
	gate := &permission.Gate{Bus: b, Trust: trustCache, Classify: permission.DefaultClassifier, Timeout: time.Second}

	b.Subscribe(bus.PermissionRequest, func(e bus.Event) {
		req := e.Data.(permission.Request)
		b.Emit(bus.Event{Type: bus.PermissionResponse, Data: permission.Response{RequestID: req.RequestID, Approved: false}})
	})

	d := &Dispatcher{Registry: reg, Bus: b, Gate: gate, Cfg: DefaultConfig()}
	tok := interrupt.New()

	calls := []message.ToolCall{call("t1", "bash", map[string]any{"command": "rm -rf /"})}
	msgs := d.Dispatch(context.Background(), calls, "", tok)

	if len(msgs) != 0 {
		t.Fatalf("expected no tool-role messages for a denied call, got %d", len(msgs))
	}
	if !tok.IsSet() {
		t.Fatal("expected interruption token to be set after denial")
	}
	if len(ended) != 1 || ended[0].Status != "cancelled" {
		t.Fatalf("expected one cancelled TOOL_CALL_END, got %+v", ended)
	}
}

// A pre-seeded Deny rule must win even for a read-only call that would
// otherwise take the parallel fan-out fast path, since the Gate is the
// only thing standing between the call and a config.Settings.Check
// verdict of RuleDeny.
func TestDispatch_DenyRuleBlocksParallelReadOnlyCall(t *testing.T) {
	read := &fakeTool{name: "read", sensitivity: tool.ReadOnly,
		fn: func(args map[string]any) tool.Result { return tool.Result{Success: true, Output: "should never run"} }}
	reg := newRegistry(read)

	b := bus.New()
	var ended []EndEvent
	b.Subscribe(bus.ToolCallEnd, func(e bus.Event) {
		ended = append(ended, e.Data.(EndEvent))
	})

	settings := &config.Settings{Permissions: config.PermissionRules{Deny: []string{"read(**/.env)"}}}
	gate := &permission.Gate{Bus: b, Trust: trust.New(), Classify: permission.DefaultClassifier, Timeout: time.Second, Rules: settings}

	d := &Dispatcher{Registry: reg, Bus: b, Gate: gate, Cfg: DefaultConfig()}
	tok := interrupt.New()

	calls := []message.ToolCall{call("t1", "read", map[string]any{"file_path": "project/.env"})}
	msgs := d.Dispatch(context.Background(), calls, "", tok)

	if len(msgs) != 0 {
		t.Fatalf("expected no tool-role message for a denied parallel call, got %d", len(msgs))
	}
	if !tok.IsSet() {
		t.Fatal("expected interruption token to be set after denial")
	}
	if len(ended) != 1 || ended[0].Status != "cancelled" {
		t.Fatalf("expected one cancelled TOOL_CALL_END, got %+v", ended)
	}
}

// Invariant 4: every TOOL_CALL_START is paired with exactly one
// TOOL_CALL_END with the same id, including for validation failures.
func TestDispatch_StartEndPairedOnValidationFailure(t *testing.T) {
	reg := tool.NewRegistry() // no tools registered: "missing" is unknown
	b := bus.New()

	var starts, ends []string
	b.Subscribe(bus.ToolCallStart, func(e bus.Event) { starts = append(starts, e.Data.(StartEvent).ID) })
	b.Subscribe(bus.ToolCallEnd, func(e bus.Event) { ends = append(ends, e.Data.(EndEvent).ID) })

	d := &Dispatcher{Registry: reg, Bus: b, Cfg: DefaultConfig()}
	tok := interrupt.New()

	calls := []message.ToolCall{call("t1", "missing", nil)}
	msgs := d.Dispatch(context.Background(), calls, "", tok)

	if len(msgs) != 1 || msgs[0].Role != message.RoleTool {
		t.Fatalf("expected one error tool-role message, got %+v", msgs)
	}
	if len(starts) != 1 || len(ends) != 1 || starts[0] != ends[0] {
		t.Fatalf("expected paired start/end for t1, got starts=%v ends=%v", starts, ends)
	}
}

// Batch unwrap boundary: exactly MAX_BATCH_SIZE children unwraps;
// MAX_BATCH_SIZE+1 does not (passes through as a single call).
func TestUnwrapBatches_SizeBoundary(t *testing.T) {
	readOK := &fakeTool{name: "read", sensitivity: tool.ReadOnly}
	reg := newRegistry(readOK)

	mkBatch := func(n int) message.ToolCall {
		children := make([]map[string]any, n)
		for i := range children {
			children[i] = map[string]any{"name": "read", "arguments": map[string]any{"path": "x"}}
		}
		buf, _ := json.Marshal(map[string]any{"calls": children})
		return message.ToolCall{ID: "wrap", Name: DefaultBatchToolName, Arguments: string(buf)}
	}

	cfg := Config{MaxBatchSize: 3, BatchToolName: DefaultBatchToolName}
	d := &Dispatcher{Registry: reg, Cfg: cfg}

	atLimit, _ := d.unwrapBatches([]message.ToolCall{mkBatch(3)})
	if len(atLimit) != 3 {
		t.Fatalf("expected batch of 3 to unwrap into 3 calls, got %d", len(atLimit))
	}

	overLimit, _ := d.unwrapBatches([]message.ToolCall{mkBatch(4)})
	if len(overLimit) != 1 || overLimit[0].Name != DefaultBatchToolName {
		t.Fatalf("expected batch of 4 (over MaxBatchSize=3) to pass through unchanged, got %+v", overLimit)
	}
}
