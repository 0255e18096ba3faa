package turn

import "strings"

// checkpointRestateMaxChars bounds the restated-goal reminder so it cannot itself
// become a meaningful fraction of the context budget.
const checkpointRestateMaxChars = 400

// validationReminder builds the corrective, ephemeral system message
// injected after a malformed tool-call response (spec.md §4.7
// "Validation").
func validationReminder(validationErrors string) string {
	msg := "Your previous response's tool call could not be parsed"
	if validationErrors != "" {
		msg += ": " + validationErrors
	}
	return msg + ". Reissue the tool call as valid JSON matching the declared schema."
}

// checkpointReminder restates the user's original goal, truncated, so a
// long tool-call sequence does not drift from it (spec.md §4.7
// "Checkpoint").
func checkpointReminder(initialPrompt string) string {
	goal := strings.TrimSpace(initialPrompt)
	if len(goal) > checkpointRestateMaxChars {
		goal = goal[:checkpointRestateMaxChars] + "…"
	}
	return "Reminder of the original request: " + goal
}

// cycleWarningReminder is injected the first time either cycle detector
// fires (spec.md §4.6 "Effect").
const cycleWarningReminder = "You appear to be repeating the same action without making progress. " +
	"Change your approach, or stop and explain what is blocking you."

// isNontrivialPrompt reports whether prompt falls within the
// checkpoint-eligible token range (spec.md §6
// checkpoint_min_prompt_tokens/checkpoint_max_prompt_tokens), using the
// same chars-per-token heuristic as internal/message's estimator.
func isNontrivialPrompt(prompt string, minTokens, maxTokens, charsPerToken int) bool {
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	toks := len(prompt) / charsPerToken
	if minTokens > 0 && toks < minTokens {
		return false
	}
	if maxTokens > 0 && toks > maxTokens {
		return false
	}
	return true
}

// canonical user-visible terminal strings (spec.md §7 "User-visible
// behavior"): downstream UI renders these verbatim so behavior is
// consistent regardless of cause.
const (
	CanonicalDenied              = "I'm not able to continue: the requested action was not approved."
	CanonicalInterrupted         = "Stopped."
	CanonicalCycle               = "I detected I was repeating the same action without progress, so I stopped."
	CanonicalTimeout             = "This turn took too long and was stopped."
	CanonicalValidationExhausted = "I was unable to produce a valid tool call after several attempts, so I stopped."
)

func transportErrorMessage(err error) string {
	return "error talking to model: " + err.Error()
}
