package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ExecutionError indicates an agent produced no usable text after its
// event stream and the session-history fallback were both exhausted.
type ExecutionError struct {
	Agent string
	err   error
}

func (e *ExecutionError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("agent %s execution failed: %v", e.Agent, e.err)
	}
	return fmt.Sprintf("agent %s did not return any text response", e.Agent)
}

func (e *ExecutionError) Unwrap() error {
	return e.err
}

// IsExecutionError returns true if the error is an agent execution failure.
func IsExecutionError(err error) bool {
	var execution *ExecutionError
	return errors.As(err, &execution)
}

// Runner drives agent invocations to completion. Each Run gets a fresh
// session that is released when Run returns, regardless of outcome; no
// state leaks between stage invocations.
type Runner struct {
	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run invokes the agent with the prompt and reduces its event stream to
// the final text answer.
//
// Agents think out loud: they may emit intermediate text, call tools, and
// only produce the real answer last. The reducer therefore keeps the most
// recent non-empty text fragment, overwriting earlier ones — never
// concatenating. If the stream ends without any text event, one fallback
// lookup against the session history is performed before failing.
func (r *Runner) Run(ctx context.Context, handle Handle, prompt string) (string, error) {
	session := NewSession(handle.Name())
	defer session.Close()

	r.logger.Info("Executing agent", "agent", handle.Name(), "session", session.ID)

	events, err := handle.Invoke(ctx, session, prompt)
	if err != nil {
		return "", &ExecutionError{Agent: handle.Name(), err: err}
	}

	var finalText string
	var lastErr error

	for ev := range events {
		switch ev.Type {
		case EventToolCall:
			r.logger.Info("Agent tool call", "agent", handle.Name(), "tool", ev.Tool)
		case EventToolResult:
			r.logger.Debug("Agent tool result",
				"agent", handle.Name(),
				"tool", ev.Tool,
				"chars", len(ev.Text))
		case EventText:
			if strings.TrimSpace(ev.Text) != "" {
				finalText = ev.Text
			}
		case EventError:
			lastErr = ev.Err
			r.logger.Warn("Agent stream error", "agent", handle.Name(), "error", ev.Err)
		}
	}

	if finalText == "" {
		// The agent may have recorded text it never surfaced as an event.
		if recovered := session.LastText(); recovered != "" {
			r.logger.Info("Recovered text from session history", "agent", handle.Name())
			finalText = recovered
		}
	}

	if finalText == "" {
		return "", &ExecutionError{Agent: handle.Name(), err: lastErr}
	}

	r.logger.Info("Agent finished", "agent", handle.Name(), "chars", len(finalText))
	return finalText, nil
}
