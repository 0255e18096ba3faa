// Package message defines the canonical message and tool-call types shared
// by the Turn Controller, the LLM transport and the Tool Orchestrator.
package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a function-call-shaped request produced by the LLM inside an
// assistant message. Its id is assigned by the LLM transport; the core
// treats it opaquely but requires uniqueness within one assistant response.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON object, decoded lazily
}

// Message is one entry in a conversation history.
//
// Invariants (spec.md §3): at most one system message, always at index 0
// when present; a tool-role message's ToolCallID references a ToolCall in
// an earlier assistant message of the same history; Content may be empty
// when ToolCalls is non-empty; TimestampMs is non-decreasing by insertion
// order.
type Message struct {
	Role        Role        `json:"role"`
	Content     string      `json:"content,omitempty"`
	ToolCalls   []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID  string      `json:"tool_call_id,omitempty"`
	Name        string      `json:"name,omitempty"`
	Images      []ImageData `json:"images,omitempty"`
	TimestampMs int64       `json:"timestamp_ms"`
	ephemeral   bool        // reminder message, purged at turn end; not serialized
	toolError   bool        // tool-role message reporting a failed call; not serialized
}

// ImageData carries multimodal attachment bytes. The core never inspects
// it; a provider binding base64-encodes it into the wire format it needs.
type ImageData struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
	FileName  string `json:"file_name,omitempty"`
}

// System creates a privileged system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User creates a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// UserWithImages creates a user message carrying multimodal attachments.
func UserWithImages(content string, images []ImageData) Message {
	return Message{Role: RoleUser, Content: content, Images: images}
}

// Assistant creates an assistant message, optionally carrying tool calls.
func Assistant(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResult creates a tool-role message answering a specific ToolCall
// with a successful outcome.
func ToolResult(toolCallID, name, content string) Message {
	return Message{Role: RoleTool, ToolCallID: toolCallID, Name: name, Content: content}
}

// ToolError creates a tool-role message answering a specific ToolCall
// that never produced a successful result (unknown tool, malformed or
// schema-invalid arguments, a blocked pre-dispatch hook, or the tool's
// own execution failing). Distinct from ToolResult so callers counting
// successful calls — the Turn Controller's checkpoint cadence — can
// tell the two apart without parsing Content.
func ToolError(toolCallID, name, content string) Message {
	m := ToolResult(toolCallID, name, content)
	m.toolError = true
	return m
}

// IsToolError reports whether m is a tool-role message reporting a
// failed call, as created by ToolError.
func (m Message) IsToolError() bool { return m.toolError }

// Reminder creates an ephemeral system-role message (checkpoint, cycle
// warning, validation retry) purged from history at turn end.
func Reminder(content string) Message {
	m := System(content)
	m.ephemeral = true
	return m
}

// IsEphemeral reports whether m is a one-shot reminder.
func (m Message) IsEphemeral() bool { return m.ephemeral }

// referencedToolCallIDs returns the set of tool_call ids an assistant
// message introduces.
func (m Message) referencedToolCallIDs() map[string]bool {
	if len(m.ToolCalls) == 0 {
		return nil
	}
	ids := make(map[string]bool, len(m.ToolCalls))
	for _, tc := range m.ToolCalls {
		ids[tc.ID] = true
	}
	return ids
}

// ParseArguments decodes a ToolCall's raw JSON arguments into a params map.
func ParseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("decode tool arguments: %w", err)
	}
	return params, nil
}

// Usage carries token usage reported by the LLM transport for one response.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// CompletionResponse is the terminal contract of the LLM transport
// (spec.md §6): either content, tool calls, or a validation/transport error.
type CompletionResponse struct {
	Content                  string     `json:"content,omitempty"`
	ToolCalls                []ToolCall `json:"tool_calls,omitempty"`
	ToolCallValidationFailed bool       `json:"tool_call_validation_failed,omitempty"`
	ValidationErrors         string     `json:"validation_errors,omitempty"`
	Usage                    Usage      `json:"usage"`
}

// BuildConversationText renders a conversation as plain text for
// summarization (used by compaction), truncating long tool output.
func BuildConversationText(msgs []Message) string {
	var sb strings.Builder
	sb.WriteString("Please summarize this conversation:\n\n")

	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			fmt.Fprintf(&sb, "User: %s\n\n", msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				fmt.Fprintf(&sb, "Assistant: %s\n\n", msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				fmt.Fprintf(&sb, "[Tool Call: %s]\n", tc.Name)
			}
		case RoleTool:
			content := msg.Content
			if len(content) > 500 {
				content = content[:500] + "...[truncated]"
			}
			fmt.Fprintf(&sb, "[Tool Result: %s]\n%s\n\n", msg.Name, content)
		}
	}

	return sb.String()
}
