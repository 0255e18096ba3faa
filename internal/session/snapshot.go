// Package session implements the Session Snapshot adapter (spec.md §6
// "Session snapshot interface"): a read-only view the core exposes so
// an external persister can opportunistically checkpoint messages,
// tool history and turn stats. Grounded on the teacher's
// internal/session/{types,store}.go shape (SessionMetadata/Session),
// narrowed to the core's own read-only accessor contract — the actual
// on-disk writer (Persister) is a thin, separately-invoked collaborator
// per spec.md §6 ("fire-and-forget from the core's perspective").
package session

import (
	"github.com/loomcode/loom/internal/message"
)

// ToolCallRecord summarizes one completed tool call for the snapshot's
// get_tool_history() accessor.
type ToolCallRecord struct {
	ID      string
	Name    string
	Content string
}

// TurnStats summarizes the most recently completed (or in-flight) turn
// for the snapshot's get_turn_stats() accessor.
type TurnStats struct {
	Turns       int
	Interrupted bool
	Reason      string
}

// StatsProvider is satisfied by *turn.Controller without this package
// importing internal/turn. The caller passes one to New with each
// snapshot it takes (cmd/loom passes its Controller); a nil one reports
// no interruption.
type StatsProvider interface {
	WasInterrupted() bool
}

// Snapshot is the read-only accessor surface the core exposes
// (spec.md §6): get_messages(), get_tool_history(), get_turn_stats().
// It never mutates the History; all writes remain the Turn
// Controller's exclusive responsibility (spec.md §3 "Ownership").
type Snapshot struct {
	History *message.History
	Stats   StatsProvider
}

// New creates a Snapshot adapter over a live History, optionally
// wired to a turn Controller for interruption state.
func New(h *message.History, stats StatsProvider) *Snapshot {
	return &Snapshot{History: h, Stats: stats}
}

// GetMessages returns every message currently in history, in order.
func (s *Snapshot) GetMessages() []message.Message {
	return s.History.GetAll()
}

// GetToolHistory extracts every tool-role message as a ToolCallRecord,
// in the order they were appended.
func (s *Snapshot) GetToolHistory() []ToolCallRecord {
	msgs := s.History.GetAll()
	records := make([]ToolCallRecord, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != message.RoleTool {
			continue
		}
		records = append(records, ToolCallRecord{
			ID:      m.ToolCallID,
			Name:    m.Name,
			Content: m.Content,
		})
	}
	return records
}

// GetTurnStats reports whether the most recent turn ended by
// interruption. Turns isn't tracked by the Snapshot itself (the Turn
// Controller doesn't expose a turn counter beyond spec.md's scope); a
// caller that needs it derives it from its own event-bus subscription.
func (s *Snapshot) GetTurnStats() TurnStats {
	stats := TurnStats{}
	if s.Stats != nil {
		stats.Interrupted = s.Stats.WasInterrupted()
	}
	return stats
}
