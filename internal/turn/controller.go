// Package turn implements the Turn Controller (spec.md §4.8): the outer
// loop that sends the conversation to the LLM, validates the response,
// routes tool calls through the Orchestrator, feeds the Cycle Detector,
// injects checkpoint/validation reminders, and decides when a turn is
// complete. Grounded on the shape of the teacher's core.Loop.Run
// (internal/core/core.go): stream/collect/add-response/exec-tool
// staging and a StopReason-style terminal classification, generalized
// to route every transition through the Activity Event Bus and to gate
// tool calls through the Permission Gate via the Orchestrator.
package turn

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/loomcode/loom/internal/bus"
	"github.com/loomcode/loom/internal/cycle"
	"github.com/loomcode/loom/internal/interrupt"
	"github.com/loomcode/loom/internal/message"
	"github.com/loomcode/loom/internal/tool"
	"github.com/loomcode/loom/internal/trust"
)

// Transport is the LLM transport's contract from the Turn Controller's
// point of view (spec.md §6 "LLM transport"). It must honor ctx
// cancellation, aborting any in-flight request when signaled.
type Transport interface {
	Send(ctx context.Context, messages []message.Message, tools []tool.Descriptor) (message.CompletionResponse, error)
}

// Dispatcher is the Tool Orchestrator's contract from the Turn
// Controller's point of view; *orchestrator.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, calls []message.ToolCall, parentID string, tok *interrupt.Token) []message.Message
}

// EventEmitter is satisfied by both *bus.Bus and *bus.Scoped.
type EventEmitter interface {
	Emit(bus.Event)
}

// State is the Turn Controller's coarse execution state (spec.md §4.8
// "State machine").
type State string

const (
	StateIdle         State = "idle"
	StateAwaitingLLM  State = "awaiting_llm"
	StateAwaitingTool State = "awaiting_tools"
)

// Config tunes the checkpoint/validation auxiliaries and the turn
// duration cap (spec.md §6: validation_retry_enabled,
// checkpoint_interval, checkpoint_min_prompt_tokens,
// checkpoint_max_prompt_tokens, turn_duration_cap_minutes,
// chars_per_token_estimate).
type Config struct {
	ValidationRetryEnabled    bool
	MaxValidationRetries      int
	CheckpointInterval        int
	CheckpointMinPromptTokens int
	CheckpointMaxPromptTokens int
	CharsPerToken             int
	TurnDurationCap           time.Duration
}

// DefaultConfig applies the bounded-retry Open Question decision
// (spec.md §9(a)): 3 attempts, configurable.
func DefaultConfig() Config {
	return Config{
		ValidationRetryEnabled:    true,
		MaxValidationRetries:      3,
		CheckpointInterval:        10,
		CheckpointMinPromptTokens: 20,
		CheckpointMaxPromptTokens: 4000,
		CharsPerToken:             4,
	}
}

// Controller is the Turn Controller. It exclusively owns its History
// and InterruptionToken for the duration of one turn (spec.md §3
// "Ownership"); the Orchestrator only borrows them.
type Controller struct {
	History    *message.History
	Bus        EventEmitter
	Dispatcher Dispatcher
	Cycle      *cycle.Detector
	Interrupt  *interrupt.Token
	Transport  Transport
	Tools      func() []tool.Descriptor
	ParentID   string // this turn's own scope id, stamped on emitted events

	// Trust, if set, has its Turn-lifetime grants cleared at the end of
	// every SendMessage call (spec.md §4.3 step 6, §4.8): a grant scoped
	// to "this turn" must not survive into the next one.
	Trust *trust.Cache

	Cfg Config

	manager *Manager
	state   atomic.Value // State
}

// New creates a Controller with DefaultConfig. Collaborators
// (History, Bus, Dispatcher, Cycle, Interrupt, Transport) are supplied
// by the caller — no global registry, per spec.md §9 "explicit
// dependencies".
func New(history *message.History, b EventEmitter, d Dispatcher, cy *cycle.Detector, tok *interrupt.Token, tr Transport) *Controller {
	c := &Controller{
		History:    history,
		Bus:        b,
		Dispatcher: d,
		Cycle:      cy,
		Interrupt:  tok,
		Transport:  tr,
		Cfg:        DefaultConfig(),
	}
	c.manager = NewManager(0)
	c.state.Store(StateIdle)
	return c
}

// State returns the controller's current coarse state.
func (c *Controller) State() State {
	if v, ok := c.state.Load().(State); ok {
		return v
	}
	return StateIdle
}

// WasInterrupted reports whether the most recent turn ended via
// interruption (denial, cancellation, cycle, or timeout all set the
// token) — observable after SendMessage returns (spec.md §4.9).
func (c *Controller) WasInterrupted() bool {
	return c.Interrupt.IsSet()
}

func (c *Controller) emit(typ bus.Type, data any) {
	if c.Bus == nil {
		return
	}
	c.Bus.Emit(bus.Event{Type: typ, ParentID: c.ParentID, Data: data})
}

func (c *Controller) setState(s State) { c.state.Store(s) }

// clearTurnTrust drops this turn's Turn-lifetime grants so they don't
// leak into the next turn of a long-lived REPL session.
func (c *Controller) clearTurnTrust() {
	if c.Trust != nil {
		c.Trust.ClearTurn()
	}
}

// countSuccessfulToolResults counts the tool-role results that
// reflect a completed, non-error call. Denied/unknown/validation/
// execution failures don't advance the checkpoint cadence (spec.md
// §4.7: "every K successful tool calls").
func countSuccessfulToolResults(results []message.Message) int {
	n := 0
	for _, m := range results {
		if m.Role == message.RoleTool && !m.IsToolError() {
			n++
		}
	}
	return n
}

// SendMessage drives one full turn: append the user message, loop
// LLM-call/dispatch until a content-only response or a terminal
// condition fires, and return the final assistant text (spec.md §4.8
// entry point).
func (c *Controller) SendMessage(ctx context.Context, userText string) (string, error) {
	c.Interrupt.Reset()
	c.Cycle.Reset()
	if c.manager == nil {
		c.manager = NewManager(c.Cfg.TurnDurationCap)
	} else {
		c.manager.cap = c.Cfg.TurnDurationCap
		c.manager.Reset()
	}

	c.History.Append(message.User(userText))
	c.emit(bus.TurnStart, StartData{ParentID: c.ParentID})

	validationAttempts := 0
	checkpointCounter := 0
	toolCycleWarned := false
	thinkingCycleWarned := false

	defer c.History.PurgeEphemeral()
	defer c.clearTurnTrust()

	for {
		if c.manager.Exceeded() {
			c.Interrupt.Set()
			c.emit(bus.TurnEnd, EndData{Interrupted: true, Reason: ReasonTimeout})
			c.setState(StateIdle)
			return CanonicalTimeout, nil
		}

		c.setState(StateAwaitingLLM)
		var descriptors []tool.Descriptor
		if c.Tools != nil {
			descriptors = c.Tools()
		}

		resp, err := c.Transport.Send(ctx, c.History.GetAll(), descriptors)
		if err != nil {
			c.Interrupt.Set()
			if ctx.Err() != nil {
				c.emit(bus.TurnEnd, EndData{Interrupted: true, Reason: ReasonInterrupted})
				c.setState(StateIdle)
				return CanonicalInterrupted, nil
			}
			c.emit(bus.Error, err.Error())
			c.emit(bus.TurnEnd, EndData{Interrupted: true, Reason: ReasonTransportError})
			c.setState(StateIdle)
			return transportErrorMessage(err), nil
		}

		if resp.ToolCallValidationFailed {
			if c.Cfg.ValidationRetryEnabled && validationAttempts < c.Cfg.MaxValidationRetries {
				validationAttempts++
				c.History.Append(message.Reminder(validationReminder(resp.ValidationErrors)))
				continue
			}
			c.Interrupt.Set()
			c.emit(bus.TurnEnd, EndData{Interrupted: true, Reason: ReasonValidationExhausted})
			c.setState(StateIdle)
			return CanonicalValidationExhausted, nil
		}
		validationAttempts = 0

		c.History.Append(message.Assistant(resp.Content, resp.ToolCalls))
		c.emit(bus.AssistantMessageComplete, AssistantCompleteData{Content: resp.Content, ToolCalls: len(resp.ToolCalls)})

		if len(resp.ToolCalls) == 0 {
			c.emit(bus.TurnEnd, EndData{Interrupted: false, Reason: ReasonCompleted})
			c.setState(StateIdle)
			return resp.Content, nil
		}

		toolCycle := false
		for _, tc := range resp.ToolCalls {
			args, _ := message.ParseArguments(tc.Arguments)
			if c.Cycle.RecordToolCall(tc.Name, args) {
				toolCycle = true
			}
		}
		thinkingCycle := c.Cycle.RecordAssistantContent(resp.Content)

		if toolCycle || thinkingCycle {
			warnedAlready := (toolCycle && toolCycleWarned) || (thinkingCycle && thinkingCycleWarned)
			if warnedAlready {
				c.Interrupt.Set()
				c.emit(bus.TurnEnd, EndData{Interrupted: true, Reason: ReasonCycle})
				c.setState(StateIdle)
				return CanonicalCycle, nil
			}
			c.History.Append(message.Reminder(cycleWarningReminder))
			if toolCycle {
				toolCycleWarned = true
			}
			if thinkingCycle {
				thinkingCycleWarned = true
			}
		}

		c.setState(StateAwaitingTool)
		results := c.Dispatcher.Dispatch(ctx, resp.ToolCalls, c.ParentID, c.Interrupt)
		c.History.AppendMany(results)

		if c.Interrupt.IsSet() {
			c.emit(bus.TurnEnd, EndData{Interrupted: true, Reason: ReasonInterrupted})
			c.setState(StateIdle)
			return CanonicalDenied, nil
		}

		checkpointCounter += countSuccessfulToolResults(results)
		if checkpointCounter >= c.Cfg.CheckpointInterval &&
			isNontrivialPrompt(userText, c.Cfg.CheckpointMinPromptTokens, c.Cfg.CheckpointMaxPromptTokens, c.Cfg.CharsPerToken) {
			c.History.Append(message.Reminder(checkpointReminder(userText)))
			checkpointCounter = 0
		}
	}
}
