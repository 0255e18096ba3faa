package orchestrator

import "strconv"

// PreviewTiers sets the four truncation budgets the Orchestrator chooses
// between based on current context usage (spec.md §4.5 "Result preview
// / truncation", §6 tool_result_max_tokens_{normal,moderate,aggressive,
// critical}). Values are character counts, matching the chars-per-token
// heuristic used by internal/message's estimator.
type PreviewTiers struct {
	Normal     int
	Moderate   int
	Aggressive int
	Critical   int
}

// DefaultPreviewTiers mirrors the teacher's context-aware truncation
// defaults, widening the budget when headroom is plentiful and
// tightening it as the window fills.
func DefaultPreviewTiers() PreviewTiers {
	return PreviewTiers{Normal: 4000, Moderate: 2000, Aggressive: 800, Critical: 300}
}

// budgetFor selects the char budget for the given history usage percent.
func (t PreviewTiers) budgetFor(usagePercent float64) int {
	switch {
	case usagePercent >= 90:
		return t.Critical
	case usagePercent >= 75:
		return t.Aggressive
	case usagePercent >= 50:
		return t.Moderate
	default:
		return t.Normal
	}
}

// truncate clips s to budget characters, appending a marker noting how
// much was cut. The full, untruncated text is always what the tool-role
// message carries; only the UI-facing preview is shortened (spec.md
// §4.5 "raw output is appended in full ... the preview used for UI
// events is truncated").
func truncate(s string, budget int) string {
	if budget <= 0 || len(s) <= budget {
		return s
	}
	cut := len(s) - budget
	return s[:budget] + trailer(cut)
}

func trailer(n int) string {
	return "…[truncated " + strconv.Itoa(n) + " chars]"
}
