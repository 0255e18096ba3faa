package turn

import (
	"context"
	"fmt"
	"strings"

	"github.com/loomcode/loom/internal/message"
)

// compactPrompt is the system prompt steering the summarization call,
// grounded on the teacher's system.CompactPrompt().
const compactPrompt = `You are summarizing a coding assistant conversation so it can
continue from a shorter context. Write a concise summary covering: what the user
asked for, decisions made, files touched, and any outstanding work. Do not include
pleasantries or restate the instructions above.`

// Compact summarizes msgs via tr and returns the summary text and the
// number of messages it replaces. Grounded on the teacher's
// core.Compact (internal/core/core.go): build a flattened conversation
// transcript, ask the model for a summary under a dedicated system
// prompt, optionally steered by a focus string.
func Compact(ctx context.Context, tr Transport, msgs []message.Message, focus string) (summary string, count int, err error) {
	count = len(msgs)

	conversationText := message.BuildConversationText(msgs)
	if focus != "" {
		conversationText += fmt.Sprintf("\n\nFocus the summary on: %s", focus)
	}

	resp, err := tr.Send(ctx, []message.Message{
		message.System(compactPrompt),
		message.User(conversationText),
	}, nil)
	if err != nil {
		return "", count, fmt.Errorf("compact: %w", err)
	}
	return strings.TrimSpace(resp.Content), count, nil
}
