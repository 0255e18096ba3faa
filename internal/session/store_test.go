package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/loomcode/loom/internal/message"
)

func newTestPersister(t *testing.T) *Persister {
	t.Helper()
	dir := t.TempDir()
	return &Persister{baseDir: dir}
}

func TestPersisterSaveLoadRoundTrip(t *testing.T) {
	p := newTestPersister(t)

	h := message.NewHistory(message.DefaultEstimatorConfig())
	h.ReplaceSystem("sys")
	h.Append(message.User("hello"))
	h.Append(message.Assistant("hi there", nil))

	snap := New(h, fakeStats{})
	id, err := p.Save("", snap, Metadata{Provider: "anthropic", Model: "claude-test"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated session id")
	}

	rec, err := p.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rec.Messages) != 3 {
		t.Fatalf("expected 3 messages round-tripped, got %d", len(rec.Messages))
	}
	if rec.Metadata.Model != "claude-test" {
		t.Fatalf("unexpected model in metadata: %q", rec.Metadata.Model)
	}
	if rec.Metadata.MessageCount != 3 {
		t.Fatalf("expected MessageCount to be stamped, got %d", rec.Metadata.MessageCount)
	}
}

func TestPersisterListSortsByUpdatedDescending(t *testing.T) {
	p := newTestPersister(t)
	h := message.NewHistory(message.DefaultEstimatorConfig())
	snap := New(h, fakeStats{})

	idA, err := p.Save("session-a", snap, Metadata{Title: "first"})
	if err != nil {
		t.Fatalf("Save a: %v", err)
	}
	idB, err := p.Save("session-b", snap, Metadata{Title: "second"})
	if err != nil {
		t.Fatalf("Save b: %v", err)
	}

	metas, err := p.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(metas))
	}
	ids := map[string]bool{idA: true, idB: true}
	for _, m := range metas {
		if !ids[m.ID] {
			t.Fatalf("unexpected session id in listing: %q", m.ID)
		}
	}
	if metas[0].ID != idB {
		t.Fatalf("expected the most recently saved session first, got %q", metas[0].ID)
	}
}

func TestPersisterLoadMissingSession(t *testing.T) {
	p := newTestPersister(t)
	if _, err := p.Load("does-not-exist"); err == nil {
		t.Fatal("expected an error loading a missing session")
	}
}

func TestPersisterCreatesBaseDir(t *testing.T) {
	parent := t.TempDir()
	home := filepath.Join(parent, "fakehome")
	t.Setenv("HOME", home)

	p, err := NewPersister()
	if err != nil {
		t.Fatalf("NewPersister: %v", err)
	}
	if _, err := os.Stat(p.baseDir); err != nil {
		t.Fatalf("expected base dir to be created: %v", err)
	}
}
