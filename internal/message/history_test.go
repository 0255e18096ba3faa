package message

import "testing"

func TestHistorySystemAlwaysAtIndexZero(t *testing.T) {
	h := NewHistory(DefaultEstimatorConfig())
	h.Append(User("hi"))
	h.ReplaceSystem("you are an assistant")
	h.Append(User("again"))

	all := h.GetAll()
	if all[0].Role != RoleSystem {
		t.Fatalf("system message not at index 0: %+v", all[0])
	}
	if all[0].Content != "you are an assistant" {
		t.Fatalf("unexpected system content: %q", all[0].Content)
	}
}

func TestHistoryMaxMessagesEviction(t *testing.T) {
	cfg := EstimatorConfig{CharsPerToken: 4, MaxMessages: 3, MaxTokens: 1_000_000}
	h := NewHistory(cfg)
	h.ReplaceSystem("sys")
	for i := 0; i < 10; i++ {
		h.Append(User("hello"))
	}
	if h.Len() > cfg.MaxMessages+1 { // +1 for the system message
		t.Fatalf("history grew past max_messages: len=%d", h.Len())
	}
	if h.GetAll()[0].Role != RoleSystem {
		t.Fatal("system message evicted")
	}
}

func TestHistoryNeverEvictsSystem(t *testing.T) {
	cfg := EstimatorConfig{CharsPerToken: 4, MaxMessages: 0, MaxTokens: 10}
	h := NewHistory(cfg)
	h.ReplaceSystem("sys")
	for i := 0; i < 50; i++ {
		h.Append(User("some moderately long message to force eviction"))
	}
	all := h.GetAll()
	if len(all) == 0 || all[0].Role != RoleSystem {
		t.Fatal("system message must survive eviction")
	}
}

func TestHistoryEvictionCascadesToolPair(t *testing.T) {
	cfg := EstimatorConfig{CharsPerToken: 4, MaxMessages: 2, MaxTokens: 1_000_000}
	h := NewHistory(cfg)
	h.Append(Assistant("", []ToolCall{{ID: "t1", Name: "Read"}}))
	h.Append(ToolResult("t1", "Read", "contents"))
	h.Append(User("next"))

	for _, m := range h.GetAll() {
		if m.Role == RoleTool {
			t.Fatalf("tool-role message referencing evicted assistant survived: %+v", m)
		}
	}
}

func TestHistorySnapshotRoundTrip(t *testing.T) {
	h := NewHistory(DefaultEstimatorConfig())
	h.ReplaceSystem("sys")
	h.Append(User("hello"))
	h.Append(Assistant("hi", nil))

	snap := h.Snapshot()
	before := h.GetAll()
	beforeTokens := h.EstimateTokens()

	h.Append(User("more"))
	h.Restore(snap)

	after := h.GetAll()
	if len(after) != len(before) {
		t.Fatalf("restore changed length: before=%d after=%d", len(before), len(after))
	}
	for i := range before {
		if before[i].Content != after[i].Content || before[i].Role != after[i].Role {
			t.Fatalf("restore mismatch at %d: before=%+v after=%+v", i, before[i], after[i])
		}
	}
	if h.EstimateTokens() != beforeTokens {
		t.Fatalf("token estimate mismatch after restore: before=%d after=%d", beforeTokens, h.EstimateTokens())
	}
}

func TestHistoryClearConversationKeepsSystem(t *testing.T) {
	h := NewHistory(DefaultEstimatorConfig())
	h.ReplaceSystem("sys")
	h.Append(User("hi"))
	h.ClearConversation()

	all := h.GetAll()
	if len(all) != 1 || all[0].Role != RoleSystem {
		t.Fatalf("expected only system message, got %+v", all)
	}
}

func TestHistoryPurgeEphemeral(t *testing.T) {
	h := NewHistory(DefaultEstimatorConfig())
	h.Append(User("hi"))
	h.Append(Reminder("checkpoint: remember the goal"))
	h.Append(Assistant("ok", nil))
	h.PurgeEphemeral()

	for _, m := range h.GetAll() {
		if m.IsEphemeral() {
			t.Fatal("ephemeral reminder survived PurgeEphemeral")
		}
	}
	if h.Len() != 2 {
		t.Fatalf("expected 2 messages after purge, got %d", h.Len())
	}
}

func TestHistoryTimestampsNonDecreasing(t *testing.T) {
	h := NewHistory(DefaultEstimatorConfig())
	h.Append(User("a"))
	h.Append(User("b"))
	h.Append(User("c"))

	all := h.GetAll()
	for i := 1; i < len(all); i++ {
		if all[i].TimestampMs < all[i-1].TimestampMs {
			t.Fatalf("timestamps decreased at %d: %+v", i, all)
		}
	}
}
