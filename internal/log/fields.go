package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/loomcode/loom/internal/bus"
	"github.com/loomcode/loom/internal/message"
	"github.com/loomcode/loom/internal/trust"
)

// eventMarshaler wraps a bus.Event for zap logging.
type eventMarshaler bus.Event

func (e eventMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", e.ID)
	enc.AddString("type", string(e.Type))
	enc.AddInt64("timestamp_ms", e.TimestampMs)
	if e.ParentID != "" {
		enc.AddString("parent_id", e.ParentID)
	}
	return nil
}

// EventField creates a zap field for an ActivityEvent.
func EventField(e bus.Event) zap.Field {
	return zap.Object("event", eventMarshaler(e))
}

// toolCallMarshaler wraps a message.ToolCall for zap logging.
type toolCallMarshaler message.ToolCall

func (tc toolCallMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", tc.ID)
	enc.AddString("name", tc.Name)
	enc.AddString("arguments", tc.Arguments)
	return nil
}

// toolCallsMarshaler wraps a slice of ToolCalls for zap logging.
type toolCallsMarshaler []message.ToolCall

func (tc toolCallsMarshaler) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, call := range tc {
		_ = enc.AppendObject(toolCallMarshaler(call))
	}
	return nil
}

// ToolCallsField creates a zap field for a batch of tool calls.
func ToolCallsField(calls []message.ToolCall) zap.Field {
	return zap.Array("tool_calls", toolCallsMarshaler(calls))
}

// messageMarshaler wraps a message.Message for zap logging.
type messageMarshaler message.Message

func (m messageMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("role", string(m.Role))
	enc.AddString("content", m.Content)
	if len(m.ToolCalls) > 0 {
		_ = enc.AddArray("tool_calls", toolCallsMarshaler(m.ToolCalls))
	}
	if m.ToolCallID != "" {
		enc.AddString("tool_call_id", m.ToolCallID)
	}
	return nil
}

// MessageField creates a zap field for a single Message.
func MessageField(m message.Message) zap.Field {
	return zap.Object("message", messageMarshaler(m))
}

// messagesMarshaler wraps a slice of Messages for zap logging.
type messagesMarshaler []message.Message

func (m messagesMarshaler) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, msg := range m {
		_ = enc.AppendObject(messageMarshaler(msg))
	}
	return nil
}

// MessagesField creates a zap field for a full message history.
func MessagesField(msgs []message.Message) zap.Field {
	return zap.Array("messages", messagesMarshaler(msgs))
}

// trustGrantMarshaler wraps a trust.Grant for zap logging.
type trustGrantMarshaler trust.Grant

func (g trustGrantMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("tool", g.Tool)
	enc.AddString("scope", g.Scope)
	enc.AddString("lifetime", string(g.Lifetime))
	return nil
}

// TrustGrantField creates a zap field for a trust grant.
func TrustGrantField(g trust.Grant) zap.Field {
	return zap.Object("trust_grant", trustGrantMarshaler(g))
}
