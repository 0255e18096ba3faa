package turn

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/loomcode/loom/internal/bus"
	"github.com/loomcode/loom/internal/cycle"
	"github.com/loomcode/loom/internal/interrupt"
	"github.com/loomcode/loom/internal/message"
	"github.com/loomcode/loom/internal/tool"
	"github.com/loomcode/loom/internal/trust"
)

// fakeTransport replays a scripted sequence of responses, one per call.
type fakeTransport struct {
	responses []message.CompletionResponse
	errs      []error
	calls     int
	seen      [][]message.Message // history as received by each Send call, in order
}

func (f *fakeTransport) Send(ctx context.Context, msgs []message.Message, tools []tool.Descriptor) (message.CompletionResponse, error) {
	i := f.calls
	f.calls++
	f.seen = append(f.seen, msgs)
	if i < len(f.errs) && f.errs[i] != nil {
		return message.CompletionResponse{}, f.errs[i]
	}
	if i >= len(f.responses) {
		return message.CompletionResponse{Content: "done"}, nil
	}
	return f.responses[i], nil
}

// fakeDispatcher turns every call into a successful tool-role message.
type fakeDispatcher struct {
	n int
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, calls []message.ToolCall, parentID string, tok *interrupt.Token) []message.Message {
	f.n += len(calls)
	out := make([]message.Message, len(calls))
	for i, c := range calls {
		out[i] = message.ToolResult(c.ID, c.Name, "ok")
	}
	return out
}

// fakeNamedDispatcher fails every call whose name is in fail, and
// succeeds every other call, so checkpoint-counting tests can tell the
// two apart.
type fakeNamedDispatcher struct {
	fail map[string]bool
}

func (f *fakeNamedDispatcher) Dispatch(ctx context.Context, calls []message.ToolCall, parentID string, tok *interrupt.Token) []message.Message {
	out := make([]message.Message, len(calls))
	for i, c := range calls {
		if f.fail[c.Name] {
			out[i] = message.ToolError(c.ID, c.Name, `{"error_kind":"exec_error","error":"boom"}`)
		} else {
			out[i] = message.ToolResult(c.ID, c.Name, "ok")
		}
	}
	return out
}

func newController(tr Transport, d Dispatcher) (*Controller, *bus.Bus) {
	b := bus.New()
	h := message.NewHistory(message.DefaultEstimatorConfig())
	tok := interrupt.New()
	cy := cycle.NewDetector()
	c := New(h, b, d, cy, tok, tr)
	return c, b
}

// Scenario A: simple answer, no tool calls.
func TestSendMessage_SimpleAnswer(t *testing.T) {
	tr := &fakeTransport{responses: []message.CompletionResponse{{Content: "hi"}}}
	c, b := newController(tr, &fakeDispatcher{})

	var events []bus.Type
	b.Subscribe(bus.Wildcard, func(e bus.Event) { events = append(events, e.Type) })

	got, err := c.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hi" {
		t.Fatalf("expected %q, got %q", "hi", got)
	}

	want := []bus.Type{bus.TurnStart, bus.AssistantMessageComplete, bus.TurnEnd}
	if len(events) != len(want) {
		t.Fatalf("expected events %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, events)
		}
	}

	msgs := c.History.GetAll()
	if len(msgs) != 2 || msgs[0].Role != message.RoleUser || msgs[1].Role != message.RoleAssistant {
		t.Fatalf("expected [user, assistant], got %+v", msgs)
	}
}

// Scenario B: one tool call round-trip then an answer.
func TestSendMessage_ToolCallThenAnswer(t *testing.T) {
	tr := &fakeTransport{responses: []message.CompletionResponse{
		{ToolCalls: []message.ToolCall{{ID: "t1", Name: "read", Arguments: `{"path":"README"}`}}},
		{Content: "The README says hi"},
	}}
	c, _ := newController(tr, &fakeDispatcher{})

	got, err := c.SendMessage(context.Background(), "read readme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "The README says hi" {
		t.Fatalf("unexpected final content: %q", got)
	}

	msgs := c.History.GetAll()
	if len(msgs) != 4 {
		t.Fatalf("expected [user, assistant(t1), tool(t1), assistant], got %d messages: %+v", len(msgs), msgs)
	}
	if msgs[2].Role != message.RoleTool || msgs[2].ToolCallID != "t1" {
		t.Fatalf("expected tool-role message answering t1, got %+v", msgs[2])
	}
}

// Scenario E: a validation failure triggers one retry with a corrective
// reminder that is absent from history once the turn ends.
func TestSendMessage_ValidationRetry(t *testing.T) {
	tr := &fakeTransport{responses: []message.CompletionResponse{
		{ToolCallValidationFailed: true, ValidationErrors: "bad json"},
		{Content: "ok now"},
	}}
	c, _ := newController(tr, &fakeDispatcher{})

	got, err := c.SendMessage(context.Background(), "do something")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok now" {
		t.Fatalf("expected recovered content, got %q", got)
	}
	if tr.calls != 2 {
		t.Fatalf("expected exactly 2 transport calls, got %d", tr.calls)
	}

	for _, m := range c.History.GetAll() {
		if m.IsEphemeral() {
			t.Fatalf("expected ephemeral reminders purged at turn end, found %+v", m)
		}
	}
}

// Scenario F: the same tool signature repeated past the threshold ends
// the turn with reason=cycle.
func TestSendMessage_ToolCallCycleTerminates(t *testing.T) {
	call := message.ToolCall{ID: "rep", Name: "read", Arguments: `{"path":"x"}`}
	var responses []message.CompletionResponse
	for i := 0; i < 10; i++ {
		responses = append(responses, message.CompletionResponse{ToolCalls: []message.ToolCall{call}})
	}
	tr := &fakeTransport{responses: responses}
	c, b := newController(tr, &fakeDispatcher{})

	var endReason EndReason
	b.Subscribe(bus.TurnEnd, func(e bus.Event) { endReason = e.Data.(EndData).Reason })

	got, err := c.SendMessage(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != CanonicalCycle {
		t.Fatalf("expected canonical cycle message, got %q", got)
	}
	if endReason != ReasonCycle {
		t.Fatalf("expected TURN_END reason=cycle, got %q", endReason)
	}
	if !c.WasInterrupted() {
		t.Fatal("expected WasInterrupted() after a cycle termination")
	}
}

// Only successful tool calls advance the checkpoint cadence: a failed
// call alone must not trigger the reminder, but a successful one right
// after it must.
func TestSendMessage_CheckpointCountsOnlySuccessfulCalls(t *testing.T) {
	tr := &fakeTransport{responses: []message.CompletionResponse{
		{ToolCalls: []message.ToolCall{{ID: "t1", Name: "bad", Arguments: `{}`}}},
		{ToolCalls: []message.ToolCall{{ID: "t2", Name: "good", Arguments: `{}`}}},
		{Content: "done"},
	}}
	c, _ := newController(tr, &fakeNamedDispatcher{fail: map[string]bool{"bad": true}})
	c.Cfg.CheckpointInterval = 1
	c.Cfg.CheckpointMinPromptTokens = 0
	c.Cfg.CheckpointMaxPromptTokens = 0

	got, err := c.SendMessage(context.Background(), "do the thing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "done" {
		t.Fatalf("expected final content %q, got %q", "done", got)
	}

	// The reminder is ephemeral and purged at turn end, so inspect what
	// each Send call actually saw: the failed "bad" call alone must not
	// have produced a reminder by the time of the second Send, but the
	// successful "good" call right after it must, by the third.
	if len(tr.seen) != 3 {
		t.Fatalf("expected 3 transport calls, got %d", len(tr.seen))
	}
	if countReminders(tr.seen[1]) != 0 {
		t.Fatalf("expected no checkpoint reminder yet after only a failed call, got %+v", tr.seen[1])
	}
	if countReminders(tr.seen[2]) != 1 {
		t.Fatalf("expected exactly one checkpoint reminder after the first successful call, got %+v", tr.seen[2])
	}

	for _, m := range c.History.GetAll() {
		if m.IsEphemeral() {
			t.Fatalf("expected ephemeral checkpoint reminder purged at turn end, found %+v", m)
		}
	}
}

func countReminders(msgs []message.Message) int {
	n := 0
	for _, m := range msgs {
		if m.Role == message.RoleSystem && strings.HasPrefix(m.Content, "Reminder of the original request") {
			n++
		}
	}
	return n
}

// A Turn-lifetime trust grant must not survive past the turn that
// created it, so a long-lived REPL session can't leak it into the
// next exchange.
func TestSendMessage_ClearsTurnScopedTrustGrantAtEnd(t *testing.T) {
	tr := &fakeTransport{responses: []message.CompletionResponse{{Content: "hi"}}}
	c, _ := newController(tr, &fakeDispatcher{})

	cache := trust.New()
	cache.Grant(trust.Grant{Tool: "bash", Scope: "git *", Lifetime: trust.Turn})
	c.Trust = cache

	if _, err := c.SendMessage(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := cache.Lookup("bash", "git *"); ok {
		t.Fatal("expected the turn-scoped grant to be cleared once the turn ends")
	}
}

// Transport errors terminate the turn with a canonical error message
// rather than crashing the call.
func TestSendMessage_TransportError(t *testing.T) {
	tr := &fakeTransport{errs: []error{errors.New("connection refused")}}
	c, _ := newController(tr, &fakeDispatcher{})

	got, err := c.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("transport errors must not propagate out of SendMessage: %v", err)
	}
	if got == "" {
		t.Fatal("expected a non-empty canonical error message")
	}
}

// Boundary: empty user_text with no prior messages still produces a
// TURN_START/TURN_END pair and a non-null return value.
func TestSendMessage_EmptyInput(t *testing.T) {
	tr := &fakeTransport{responses: []message.CompletionResponse{{Content: "ok"}}}
	c, b := newController(tr, &fakeDispatcher{})

	var starts, ends int
	b.Subscribe(bus.TurnStart, func(e bus.Event) { starts++ })
	b.Subscribe(bus.TurnEnd, func(e bus.Event) { ends++ })

	got, err := c.SendMessage(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == "" {
		t.Fatal("expected a non-null return value")
	}
	if starts != 1 || ends != 1 {
		t.Fatalf("expected exactly one TURN_START/TURN_END pair, got starts=%d ends=%d", starts, ends)
	}
}
