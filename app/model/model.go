package model

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a single tool invocation requested by the assistant.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is one entry of a conversation transcript. Messages are append-only:
// once part of a transcript they are never mutated in place.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

func (m Message) Clone() Message {
	out := m

	if len(m.ToolCalls) > 0 {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))

		for i, call := range m.ToolCalls {
			callCopy := call

			if len(call.Arguments) > 0 {
				callCopy.Arguments = make(map[string]any, len(call.Arguments))
				for k, v := range call.Arguments {
					callCopy.Arguments[k] = v
				}
			}

			out.ToolCalls[i] = callCopy
		}
	}

	return out
}

// CloneTranscript deep-copies a transcript so one conversation turn can grow
// its own working copy without touching the caller's slice.
func CloneTranscript(in []Message) []Message {
	out := make([]Message, len(in))
	for i, msg := range in {
		out[i] = msg.Clone()
	}

	return out
}
