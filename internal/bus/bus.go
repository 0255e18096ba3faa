// Package bus implements the Activity Event Bus: a typed, wildcard-capable
// publish/subscribe channel coupling the core to its UI and to
// asynchronous out-of-band responses (permission grant/deny, model
// selection). Grounded on the closed EventType enumerations used across
// the retrieval pack's own agent-loop event systems (see DESIGN.md),
// generalized here into an explicit two-phase dispatcher since the
// teacher drives its UI through bubbletea's Elm-architecture messages
// rather than an explicit bus.
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Type is a member of the closed event-type enumeration (spec.md §6).
type Type string

const (
	TurnStart                Type = "TURN_START"
	TurnEnd                  Type = "TURN_END"
	AssistantMessageComplete Type = "ASSISTANT_MESSAGE_COMPLETE"
	AssistantChunk           Type = "ASSISTANT_CHUNK"
	ThoughtChunk             Type = "THOUGHT_CHUNK"
	ToolCallStart            Type = "TOOL_CALL_START"
	ToolOutputChunk          Type = "TOOL_OUTPUT_CHUNK"
	ToolCallEnd              Type = "TOOL_CALL_END"
	PermissionRequest        Type = "PERMISSION_REQUEST"
	PermissionResponse       Type = "PERMISSION_RESPONSE"
	ConversationClear        Type = "CONVERSATION_CLEAR"
	Error                    Type = "ERROR"

	// Wildcard subscribes to every event type.
	Wildcard Type = "*"
)

// Event is one activity notification (spec.md §3).
type Event struct {
	ID          string
	Type        Type
	TimestampMs int64
	ParentID    string
	Data        any
}

// Callback receives delivered events. A callback must not block on
// long-running work; it runs synchronously on the emitter's goroutine
// (spec.md §4.1 "Delivery is synchronous").
type Callback func(Event)

// listenerCountWarnThreshold is the soft threshold (spec.md §4.1) above
// which Bus logs a probable-subscriber-leak warning via WarnFunc.
const listenerCountWarnThreshold = 50

type subscription struct {
	id       uint64
	callback Callback
}

// Bus is the root Event Bus.
type Bus struct {
	mu        sync.RWMutex
	typed     map[Type][]subscription
	wildcard  []subscription
	nextSubID uint64
	clock     int64
	cleaned   bool

	// WarnFunc is invoked (if set) when listener_count crosses the soft
	// leak-detection threshold. Left nil by default; callers wire it to
	// their logger.
	WarnFunc func(count int)
}

// New creates an empty root Bus.
func New() *Bus {
	return &Bus{typed: make(map[Type][]subscription)}
}

// Subscribe registers callback against typ ("*" for wildcard). The
// returned cancel function removes the subscription; it is safe to call
// more than once and safe to call concurrently with Emit.
func (b *Bus) Subscribe(typ Type, callback Callback) (cancel func()) {
	b.mu.Lock()
	b.nextSubID++
	id := b.nextSubID
	sub := subscription{id: id, callback: callback}
	if typ == Wildcard {
		b.wildcard = append(b.wildcard, sub)
	} else {
		b.typed[typ] = append(b.typed[typ], sub)
	}
	count := b.listenerCountLocked()
	warn := b.WarnFunc
	b.mu.Unlock()

	if warn != nil && count > listenerCountWarnThreshold {
		warn(count)
	}

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(typ, id) })
	}
}

// SubscribeOnce registers a callback that fires for at most one matching
// event, then auto-cancels. Used by the Permission Gate to correlate a
// single PERMISSION_RESPONSE with its request (spec.md §4.3 step 4).
func (b *Bus) SubscribeOnce(typ Type, callback Callback) (cancel func()) {
	var cancelFn func()
	var fired int32
	cancelFn = b.Subscribe(typ, func(e Event) {
		if !atomic.CompareAndSwapInt32(&fired, 0, 1) {
			return
		}
		callback(e)
		cancelFn()
	})
	return cancelFn
}

func (b *Bus) unsubscribe(typ Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if typ == Wildcard {
		b.wildcard = removeSub(b.wildcard, id)
	} else {
		b.typed[typ] = removeSub(b.typed[typ], id)
	}
}

func removeSub(subs []subscription, id uint64) []subscription {
	for i, s := range subs {
		if s.id == id {
			out := make([]subscription, 0, len(subs)-1)
			out = append(out, subs[:i]...)
			out = append(out, subs[i+1:]...)
			return out
		}
	}
	return subs
}

// Emit delivers event to every matching subscriber: the type-specific
// cohort first (in registration order), then the wildcard cohort (in
// registration order) — spec.md §5 ordering guarantee (c). Both cohorts
// are snapshotted before dispatch so an unsubscribe triggered mid-emit
// neither skips nor double-delivers a remaining subscriber. A callback
// panic is isolated: it is recovered so the remaining callbacks in the
// same emit still run.
func (b *Bus) Emit(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	b.mu.Lock()
	b.clock++
	e.TimestampMs = b.clock
	typed := append([]subscription(nil), b.typed[e.Type]...)
	wildcard := append([]subscription(nil), b.wildcard...)
	b.mu.Unlock()

	for _, s := range typed {
		invokeSafely(s.callback, e)
	}
	for _, s := range wildcard {
		invokeSafely(s.callback, e)
	}
}

func invokeSafely(cb Callback, e Event) {
	defer func() { recover() }()
	cb(e)
}

// ListenerCount returns the total number of live subscriptions, typed
// plus wildcard.
func (b *Bus) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.listenerCountLocked()
}

func (b *Bus) listenerCountLocked() int {
	n := len(b.wildcard)
	for _, subs := range b.typed {
		n += len(subs)
	}
	return n
}

// Cleanup drops every subscription. The instance is not reusable
// afterward; repeated calls are a no-op.
func (b *Bus) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cleaned {
		return
	}
	b.cleaned = true
	b.typed = make(map[Type][]subscription)
	b.wildcard = nil
}

// Scoped returns a sub-bus that stamps parentID onto every event it
// emits before forwarding to root, letting nested-agent UIs filter
// nested activity without conflating it with their own (spec.md §4.1
// "Scoping", §9 "Nested contexts for sub-agents").
func (b *Bus) Scoped(parentID string) *Scoped {
	return &Scoped{root: b, parentID: parentID}
}

// Scoped wraps a root Bus, stamping ParentID on every emitted event.
type Scoped struct {
	root     *Bus
	parentID string
}

// Emit stamps ParentID (if unset) and forwards to the root bus.
func (s *Scoped) Emit(e Event) {
	if e.ParentID == "" {
		e.ParentID = s.parentID
	}
	s.root.Emit(e)
}

// Subscribe delegates to the root bus — nested agents' observers still
// see their own events plus their children's, distinguished by ParentID.
func (s *Scoped) Subscribe(typ Type, callback Callback) (cancel func()) {
	return s.root.Subscribe(typ, callback)
}

// SubscribeOnce delegates to the root bus.
func (s *Scoped) SubscribeOnce(typ Type, callback Callback) (cancel func()) {
	return s.root.SubscribeOnce(typ, callback)
}

// ParentID returns the id this scope stamps onto emitted events.
func (s *Scoped) ParentID() string { return s.parentID }
