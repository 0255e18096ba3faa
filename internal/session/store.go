package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loomcode/loom/internal/message"
)

// Metadata describes one persisted session, mirroring the teacher's
// SessionMetadata.
type Metadata struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Cwd          string    `json:"cwd"`
	MessageCount int       `json:"message_count"`
}

// Record is the full on-disk shape of one session.
type Record struct {
	Metadata Metadata           `json:"metadata"`
	Messages []message.Message  `json:"messages"`
	Tools    []ToolCallRecord   `json:"tools,omitempty"`
}

// Persister is the external, fire-and-forget writer spec.md §6
// describes: it reads a Snapshot opportunistically and serializes it
// to disk, but the core never blocks on it and never calls into it
// synchronously from the turn loop. Grounded on the teacher's
// internal/session/store.go (Store.Save/Load, ~/.gen/sessions
// layout), retargeted at ~/.loom/sessions.
type Persister struct {
	mu      sync.RWMutex
	baseDir string
}

// NewPersister creates a persister rooted at ~/.loom/sessions.
func NewPersister() (*Persister, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("session persister: %w", err)
	}
	baseDir := filepath.Join(home, ".loom", "sessions")
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("session persister: %w", err)
	}
	return &Persister{baseDir: baseDir}, nil
}

// Save writes snap to disk under id, creating a fresh id when empty.
// Callers invoke this opportunistically (e.g. after each turn); a
// failure here never propagates into the turn loop.
func (p *Persister) Save(id string, snap *Snapshot, meta Metadata) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	meta.ID = id
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}
	meta.UpdatedAt = time.Now()

	messages := snap.GetMessages()
	meta.MessageCount = len(messages)

	record := Record{
		Metadata: meta,
		Messages: messages,
		Tools:    snap.GetToolHistory(),
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return id, fmt.Errorf("marshal session %s: %w", id, err)
	}
	path := filepath.Join(p.baseDir, id+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return id, fmt.Errorf("write session %s: %w", id, err)
	}
	return id, nil
}

// Load reads a previously persisted session by id.
func (p *Persister) Load(id string) (*Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(p.baseDir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", id, err)
	}
	return &rec, nil
}

// List returns every persisted session's metadata, most recently
// updated first.
func (p *Persister) List() ([]Metadata, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, err := os.ReadDir(p.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var metas []Metadata
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(p.baseDir, e.Name()))
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		metas = append(metas, rec.Metadata)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}
