package message

import "sync"

// EstimatorConfig controls the token-estimate heuristic and eviction caps
// (spec.md §4.2, §6: max_history_messages, max_history_tokens,
// chars_per_token_estimate).
type EstimatorConfig struct {
	CharsPerToken int
	MaxMessages   int
	MaxTokens     int
}

// DefaultEstimatorConfig mirrors the teacher's token-budget defaults.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{CharsPerToken: 4, MaxMessages: 200, MaxTokens: 150_000}
}

const perMessageOverhead = 8

// History is the ordered, token-budgeted conversation state. It owns the
// system-message slot, the cached token estimate and FIFO eviction.
//
// Exclusively owned by the Turn Controller for the duration of one turn
// (spec.md §3 "Ownership"); the Orchestrator only reads it.
type History struct {
	mu       sync.Mutex
	cfg      EstimatorConfig
	messages []Message
	tokens   int // cached Σ estimate(m)
	clock    int64
}

// NewHistory creates an empty history under the given estimator config.
func NewHistory(cfg EstimatorConfig) *History {
	if cfg.CharsPerToken <= 0 {
		cfg.CharsPerToken = 4
	}
	return &History{cfg: cfg}
}

func (h *History) nextTimestamp() int64 {
	h.clock++
	return h.clock
}

func (h *History) estimate(m Message) int {
	n := len(m.Content) + perMessageOverhead
	if len(m.ToolCalls) > 0 {
		for _, tc := range m.ToolCalls {
			n += len(tc.Name) + len(tc.Arguments) + len(tc.ID)
		}
	}
	toks := (n + h.cfg.CharsPerToken - 1) / h.cfg.CharsPerToken
	if toks < 1 {
		toks = 1
	}
	return toks
}

// Append appends a single message, stamping a monotonic timestamp, then
// enforces eviction.
func (h *History) Append(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.appendLocked(m)
	h.evictLocked()
}

// AppendMany appends several messages as one batch before evicting once,
// so ordering guarantees hold even when a dispatch yields many tool
// results.
func (h *History) AppendMany(msgs []Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range msgs {
		h.appendLocked(m)
	}
	h.evictLocked()
}

func (h *History) appendLocked(m Message) {
	m.TimestampMs = h.nextTimestamp()

	if m.Role == RoleSystem && !m.ephemeral {
		h.replaceSystemLocked(m)
		return
	}

	h.messages = append(h.messages, m)
	h.tokens += h.estimate(m)
}

// ReplaceSystem sets (or replaces) the privileged system message at index 0.
func (h *History) ReplaceSystem(content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := System(content)
	m.TimestampMs = h.nextTimestamp()
	h.replaceSystemLocked(m)
}

func (h *History) replaceSystemLocked(m Message) {
	if len(h.messages) > 0 && h.messages[0].Role == RoleSystem {
		h.tokens -= h.estimate(h.messages[0])
		h.messages[0] = m
	} else {
		h.messages = append([]Message{m}, h.messages...)
	}
	h.tokens += h.estimate(m)
}

// systemOffset returns 1 if index 0 holds the system message, else 0.
func (h *History) systemOffset() int {
	if len(h.messages) > 0 && h.messages[0].Role == RoleSystem {
		return 1
	}
	return 0
}

// evictLocked enforces messages <= MaxMessages then tokens <= MaxTokens, in
// that order, by dropping the oldest non-system message. A tool-role
// message is always evicted together with the assistant message that
// introduced its tool_call id, treating the pair as one eviction unit so
// no orphan tool_call id is ever left referenced (spec.md §4.2, §9(c)).
func (h *History) evictLocked() {
	for h.cfg.MaxMessages > 0 && len(h.messages)-h.systemOffset() > h.cfg.MaxMessages {
		if !h.evictOldestLocked() {
			break
		}
	}
	for h.cfg.MaxTokens > 0 && h.tokens > h.cfg.MaxTokens {
		if !h.evictOldestLocked() {
			break
		}
	}
}

// evictOldestLocked drops the oldest non-system message, cascading to
// every tool-role message that answers one of its tool calls if it is an
// assistant message, or, if it is a tool result, to the assistant
// message that issued its tool call. Returns false when only the system
// message remains.
func (h *History) evictOldestLocked() bool {
	start := h.systemOffset()
	if start >= len(h.messages) {
		return false
	}

	victim := h.messages[start]
	unit := map[int]bool{start: true}

	if ids := victim.referencedToolCallIDs(); len(ids) > 0 {
		for i := start + 1; i < len(h.messages); i++ {
			m := h.messages[i]
			if m.Role == RoleTool && ids[m.ToolCallID] {
				unit[i] = true
			}
		}
	} else if victim.Role == RoleTool {
		// An evicted tool result whose originating assistant message is
		// still present is left dangling; pull that ancestor in too.
		for i := start - 1; i >= h.systemOffset(); i-- {
			if ids := h.messages[i].referencedToolCallIDs(); ids[victim.ToolCallID] {
				unit[i] = true
				break
			}
		}
	}

	kept := h.messages[:0:0]
	for i, m := range h.messages {
		if unit[i] {
			h.tokens -= h.estimate(m)
			continue
		}
		kept = append(kept, m)
	}
	h.messages = kept
	return true
}

// GetAll returns a copy of the full message list.
func (h *History) GetAll() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// GetTail returns a copy of the last n messages (fewer if the history is
// shorter).
func (h *History) GetTail(n int) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n >= len(h.messages) {
		out := make([]Message, len(h.messages))
		copy(out, h.messages)
		return out
	}
	out := make([]Message, n)
	copy(out, h.messages[len(h.messages)-n:])
	return out
}

// ClearConversation drops every non-system message, keeping the system
// slot intact.
func (h *History) ClearConversation() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if off := h.systemOffset(); off == 1 {
		sys := h.messages[0]
		h.messages = []Message{sys}
		h.tokens = h.estimate(sys)
		return
	}
	h.messages = nil
	h.tokens = 0
}

// ClearAll drops every message, including the system slot.
func (h *History) ClearAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
	h.tokens = 0
}

// PurgeEphemeral removes every ephemeral reminder message. Called by the
// Turn Controller at turn end (spec.md §4.8 step 4).
func (h *History) PurgeEphemeral() {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.messages[:0:0]
	for _, m := range h.messages {
		if m.ephemeral {
			h.tokens -= h.estimate(m)
			continue
		}
		kept = append(kept, m)
	}
	h.messages = kept
}

// Snapshot is an opaque, restorable copy of history state.
type Snapshot struct {
	messages []Message
	clock    int64
}

// Snapshot captures the current state for later restoration.
func (h *History) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return Snapshot{messages: out, clock: h.clock}
}

// Restore replaces the current state with a previously captured snapshot,
// recomputing the token estimate from scratch and re-applying eviction.
func (h *History) Restore(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = make([]Message, len(s.messages))
	copy(h.messages, s.messages)
	h.clock = s.clock
	h.tokens = 0
	for _, m := range h.messages {
		h.tokens += h.estimate(m)
	}
	h.evictLocked()
}

// EstimateTokens returns the cached total token estimate.
func (h *History) EstimateTokens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tokens
}

// Len returns the number of messages currently held (including the system
// message, if any).
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// UsagePercent returns EstimateTokens() as a percentage of MaxTokens, or 0
// if no cap is configured.
func (h *History) UsagePercent() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cfg.MaxTokens <= 0 {
		return 0
	}
	return float64(h.tokens) / float64(h.cfg.MaxTokens) * 100
}

// NearCapacity reports whether usage meets or exceeds threshold percent.
func (h *History) NearCapacity(threshold float64) bool {
	return h.UsagePercent() >= threshold
}
