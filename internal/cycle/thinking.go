package cycle

import (
	"regexp"
	"strings"
)

// sentenceSplit breaks assistant content into sentence/question/action
// fragments (spec.md §4.6(b) "extract sentence/question/action
// fragments"). It is intentionally simple: split on terminal
// punctuation, drop empties and very short fragments that would
// otherwise dominate the similarity groups.
var sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

func extractFragments(content string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(content, -1) {
		s = strings.TrimSpace(s)
		if len(s) < 8 {
			continue
		}
		out = append(out, s)
	}
	return out
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.Trim(w, ".,!?;:()\"'")] = true
	}
	return set
}

// jaccard computes the Jaccard similarity of two word sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter, union := 0, 0
	seen := make(map[string]bool, len(a)+len(b))
	for w := range a {
		seen[w] = true
	}
	for w := range b {
		seen[w] = true
	}
	union = len(seen)
	for w := range a {
		if b[w] {
			inter++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// maxRecentFragments bounds the sliding window of fragments considered
// for thinking-cycle grouping, so a very long turn does not make every
// call to RecordAssistantContent quadratic in the turn's entire history.
const maxRecentFragments = 60

// RecordAssistantContent extracts fragments from content, folds them
// into the recent-fragment window, and reports whether any similarity
// group (Jaccard >= ThinkingSimilarity) now has at least
// ThinkingRepetition members (spec.md §4.6(b)).
func (d *Detector) RecordAssistantContent(content string) bool {
	d.fragments = append(d.fragments, extractFragments(content)...)
	if len(d.fragments) > maxRecentFragments {
		d.fragments = d.fragments[len(d.fragments)-maxRecentFragments:]
	}

	sets := make([]map[string]bool, len(d.fragments))
	for i, f := range d.fragments {
		sets[i] = wordSet(f)
	}

	for i := range sets {
		group := 1
		for j := range sets {
			if i == j {
				continue
			}
			if jaccard(sets[i], sets[j]) >= d.cfg.ThinkingSimilarity {
				group++
			}
		}
		if group >= d.cfg.ThinkingRepetition {
			return true
		}
	}
	return false
}
