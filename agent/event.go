// Package agent models stage agents as capability configurations over the
// llm client and provides the runner that drives an agent invocation to
// completion, reducing its event stream to a final text answer.
package agent

// EventType classifies events emitted during an agent invocation.
type EventType string

const (
	// EventToolCall signals the agent invoked a tool.
	EventToolCall EventType = "tool_call"

	// EventToolResult carries a tool's output back into the stream.
	EventToolResult EventType = "tool_result"

	// EventText carries a text fragment. Agents think out loud; only the
	// last non-empty text fragment is the final answer.
	EventText EventType = "text"

	// EventError carries a non-fatal error observed mid-stream.
	EventError EventType = "error"
)

// Event is a single item in an agent's invocation stream.
type Event struct {
	Type EventType

	// Tool is the tool name for tool_call and tool_result events.
	Tool string

	// Text is the payload: text fragment, tool input, or tool output.
	Text string

	// Err is set for error events.
	Err error
}
