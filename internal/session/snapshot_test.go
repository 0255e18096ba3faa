package session

import (
	"testing"

	"github.com/loomcode/loom/internal/message"
)

type fakeStats struct{ interrupted bool }

func (f fakeStats) WasInterrupted() bool { return f.interrupted }

func TestSnapshotGetMessages(t *testing.T) {
	h := message.NewHistory(message.DefaultEstimatorConfig())
	h.ReplaceSystem("sys")
	h.Append(message.User("hi"))

	snap := New(h, fakeStats{})
	msgs := snap.GetMessages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Content != "hi" {
		t.Fatalf("unexpected message content: %q", msgs[1].Content)
	}
}

func TestSnapshotGetToolHistoryFiltersToToolRole(t *testing.T) {
	h := message.NewHistory(message.DefaultEstimatorConfig())
	h.Append(message.User("run ls"))
	h.Append(message.ToolResult("call-1", "ls", "a.go\nb.go"))
	h.Append(message.Assistant("done", nil))

	snap := New(h, fakeStats{})
	records := snap.GetToolHistory()
	if len(records) != 1 {
		t.Fatalf("expected exactly one tool record, got %d", len(records))
	}
	if records[0].Name != "ls" || records[0].ID != "call-1" {
		t.Fatalf("unexpected tool record: %+v", records[0])
	}
}

func TestSnapshotGetTurnStatsReflectsInterruption(t *testing.T) {
	h := message.NewHistory(message.DefaultEstimatorConfig())
	snap := New(h, fakeStats{interrupted: true})

	stats := snap.GetTurnStats()
	if !stats.Interrupted {
		t.Fatal("expected GetTurnStats to report interruption from the StatsProvider")
	}
}

func TestSnapshotGetTurnStatsWithNilStats(t *testing.T) {
	h := message.NewHistory(message.DefaultEstimatorConfig())
	snap := New(h, nil)

	stats := snap.GetTurnStats()
	if stats.Interrupted {
		t.Fatal("expected no interruption with a nil StatsProvider")
	}
}
