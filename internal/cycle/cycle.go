// Package cycle implements the Cycle/Loop Detector: a tool-call
// signature window and an assistant-content repetition detector, both
// scoped to one turn (spec.md §4.6). No direct teacher analogue — the
// teacher relies on a fixed max-turns cap instead of recognizing
// repetition directly — so this is grounded on the general
// content-addressing idiom (canonicalize, then hash) applied to the
// spec's own signature/window/threshold vocabulary.
package cycle

import (
	"crypto/sha256"
	"encoding/hex"
)

// Config tunes both detectors (spec.md §6: tool_call_cycle_window,
// tool_call_cycle_threshold, thinking_cycle_similarity,
// thinking_cycle_repetition).
type Config struct {
	ToolCallWindow     int
	ToolCallThreshold  int
	ThinkingSimilarity float64
	ThinkingRepetition int
}

// DefaultConfig matches the suggested defaults in spec.md §4.6 and
// DESIGN.md's Open Question decision: N=20/K=4 for tool-call cycles,
// Jaccard 0.85/repetition 3 for thinking cycles.
func DefaultConfig() Config {
	return Config{ToolCallWindow: 20, ToolCallThreshold: 4, ThinkingSimilarity: 0.85, ThinkingRepetition: 3}
}

// Detector recognizes repeated tool-call signatures and repeated
// assistant content fragments within one turn.
type Detector struct {
	cfg Config

	toolWindow []string
	fragments  []string
}

// NewDetector creates a Detector using DefaultConfig.
func NewDetector() *Detector { return NewDetectorWithConfig(DefaultConfig()) }

// NewDetectorWithConfig creates a Detector with custom thresholds.
func NewDetectorWithConfig(cfg Config) *Detector {
	if cfg.ToolCallWindow <= 0 {
		cfg.ToolCallWindow = 20
	}
	if cfg.ToolCallThreshold <= 0 {
		cfg.ToolCallThreshold = 4
	}
	if cfg.ThinkingSimilarity <= 0 {
		cfg.ThinkingSimilarity = 0.85
	}
	if cfg.ThinkingRepetition <= 0 {
		cfg.ThinkingRepetition = 3
	}
	return &Detector{cfg: cfg}
}

// Reset clears both detectors' state. Called by the Turn Controller at
// the start of each new turn — cycles are turn-scoped, not carried
// across turns.
func (d *Detector) Reset() {
	d.toolWindow = nil
	d.fragments = nil
}

// signature hashes a tool name plus its canonicalized arguments.
func signature(name string, args map[string]any) string {
	sum := sha256.Sum256([]byte(name + "\x00" + canonicalize(args)))
	return hex.EncodeToString(sum[:])
}

// RecordToolCall appends (name, args)'s signature to the sliding window
// and reports whether it now occurs at least ToolCallThreshold times
// within the last ToolCallWindow signatures (spec.md §4.6(a)).
func (d *Detector) RecordToolCall(name string, args map[string]any) bool {
	sig := signature(name, args)
	d.toolWindow = append(d.toolWindow, sig)
	if len(d.toolWindow) > d.cfg.ToolCallWindow {
		d.toolWindow = d.toolWindow[len(d.toolWindow)-d.cfg.ToolCallWindow:]
	}

	count := 0
	for _, s := range d.toolWindow {
		if s == sig {
			count++
		}
	}
	return count >= d.cfg.ToolCallThreshold
}
