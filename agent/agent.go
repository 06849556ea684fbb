package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/aida/llm"
	"github.com/c360studio/aida/model"
)

// Tool is an external capability an agent may invoke mid-run (e.g. a
// literature search). Tools are collaborator-provided; the engine only
// relays calls and results.
type Tool interface {
	// Name is the identifier the model uses to request the tool.
	Name() string

	// Run executes the tool with the given input and returns its output.
	Run(ctx context.Context, input string) (string, error)
}

// Definition configures a stage agent. Variants (tool-using vs. plain,
// stricter vs. looser sampling) are configuration on this struct, not
// separate types.
type Definition struct {
	// Name identifies the agent in logs and sessions.
	Name string

	// Stage is the workflow stage this agent serves.
	Stage string

	// Capability selects the model via the registry. Empty resolves from
	// the stage.
	Capability model.Capability

	// SystemPrompt is prepended to every invocation.
	SystemPrompt string

	// Temperature overrides the endpoint default when non-nil.
	Temperature *float64

	// Tools the agent may call. Empty disables the tool loop.
	Tools []Tool

	// MaxToolIterations bounds the tool loop. Zero uses the default.
	MaxToolIterations int
}

// defaultMaxToolIterations bounds tool loops for agents that don't set
// their own limit.
const defaultMaxToolIterations = 4

// Handle is an invokable agent: given a prompt and a session, it produces
// an ordered event stream. The returned channel is closed when the
// invocation completes.
type Handle interface {
	Name() string
	Invoke(ctx context.Context, session *Session, prompt string) (<-chan Event, error)
}

// LLMAgent is the standard Handle implementation over the llm client.
type LLMAgent struct {
	def    Definition
	client *llm.Client
	logger *slog.Logger
}

// Option configures an LLMAgent.
type Option func(*LLMAgent)

// WithLogger sets the agent logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *LLMAgent) {
		a.logger = logger
	}
}

// New creates an agent from a definition. An empty capability is resolved
// from the stage name.
func New(def Definition, client *llm.Client, opts ...Option) *LLMAgent {
	if def.Capability == "" {
		def.Capability = model.CapabilityForStage(def.Stage)
	}
	if def.MaxToolIterations <= 0 {
		def.MaxToolIterations = defaultMaxToolIterations
	}

	a := &LLMAgent{
		def:    def,
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the agent name.
func (a *LLMAgent) Name() string {
	return a.def.Name
}

// Invoke starts the agent and returns its event stream. Events are
// recorded into the session as they are emitted so the runner's history
// fallback can recover text the drain loop never saw.
func (a *LLMAgent) Invoke(ctx context.Context, session *Session, prompt string) (<-chan Event, error) {
	if a.client == nil {
		return nil, fmt.Errorf("agent %s has no client", a.def.Name)
	}

	events := make(chan Event, 16)

	go func() {
		defer close(events)
		a.run(ctx, session, prompt, events)
	}()

	return events, nil
}

// run executes the completion (and bounded tool loop, if tools are
// configured), emitting events as it goes.
func (a *LLMAgent) run(ctx context.Context, session *Session, prompt string, events chan<- Event) {
	emit := func(ev Event) {
		session.Record(ev)
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	messages := []llm.Message{}
	if a.def.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: a.def.SystemPrompt})
	}
	messages = append(messages, llm.Message{Role: "user", Content: prompt})

	for iteration := 0; ; iteration++ {
		resp, err := a.client.Complete(ctx, llm.Request{
			Capability:  a.def.Capability.String(),
			Messages:    messages,
			Temperature: a.def.Temperature,
		})
		if err != nil {
			emit(Event{Type: EventError, Err: fmt.Errorf("agent %s completion: %w", a.def.Name, err)})
			return
		}

		a.logger.Debug("Agent response",
			"agent", a.def.Name,
			"request_id", resp.RequestID,
			"chars", len(resp.Content))

		tool, input, isCall := a.parseToolCall(resp.Content)
		if !isCall || iteration >= a.def.MaxToolIterations {
			emit(Event{Type: EventText, Text: resp.Content})
			return
		}

		emit(Event{Type: EventToolCall, Tool: tool.Name(), Text: input})

		output, err := tool.Run(ctx, input)
		if err != nil {
			emit(Event{Type: EventError, Err: fmt.Errorf("tool %s: %w", tool.Name(), err)})
			return
		}
		emit(Event{Type: EventToolResult, Tool: tool.Name(), Text: output})

		messages = append(messages,
			llm.Message{Role: "assistant", Content: resp.Content},
			llm.Message{Role: "user", Content: fmt.Sprintf("Result of %s:\n%s", tool.Name(), output)},
		)
	}
}

// parseToolCall checks whether a response is a tool directive of the form
// {"tool": "...", "input": "..."}. Returns the matched tool when the
// directive names one the agent actually has.
func (a *LLMAgent) parseToolCall(content string) (Tool, string, bool) {
	if len(a.def.Tools) == 0 {
		return nil, "", false
	}

	data, err := llm.Extract(content, []string{"tool", "input"})
	if err != nil {
		return nil, "", false
	}

	name, _ := data["tool"].(string)
	input, _ := data["input"].(string)
	for _, tool := range a.def.Tools {
		if tool.Name() == name {
			return tool, input, true
		}
	}
	return nil, "", false
}
