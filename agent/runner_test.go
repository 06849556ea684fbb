package agent

import (
	"context"
	"errors"
	"testing"
)

// streamAgent plays a fixed event stream and exposes the session it was
// invoked with.
type streamAgent struct {
	name        string
	events      []Event
	invokeErr   error
	lastSession *Session
}

func (a *streamAgent) Name() string { return a.name }

func (a *streamAgent) Invoke(_ context.Context, session *Session, _ string) (<-chan Event, error) {
	a.lastSession = session
	if a.invokeErr != nil {
		return nil, a.invokeErr
	}

	ch := make(chan Event, len(a.events))
	for _, ev := range a.events {
		session.Record(ev)
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func TestRunKeepsLastNonEmptyText(t *testing.T) {
	handle := &streamAgent{
		name: "thinker",
		events: []Event{
			{Type: EventText, Text: "thinking out loud..."},
			{Type: EventToolCall, Tool: "search", Text: "query"},
			{Type: EventToolResult, Tool: "search", Text: "results"},
			{Type: EventText, Text: "final answer"},
			{Type: EventText, Text: "   "},
		},
	}

	text, err := NewRunner().Run(context.Background(), handle, "prompt")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if text != "final answer" {
		t.Errorf("expected last non-empty text to win, got %q", text)
	}
}

func TestRunTextOverwritesNotConcatenates(t *testing.T) {
	handle := &streamAgent{
		name: "chatty",
		events: []Event{
			{Type: EventText, Text: "draft one"},
			{Type: EventText, Text: "draft two"},
		},
	}

	text, err := NewRunner().Run(context.Background(), handle, "prompt")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if text != "draft two" {
		t.Errorf("expected %q, got %q", "draft two", text)
	}
}

func TestRunSessionHistoryFallback(t *testing.T) {
	// Text reaches the session history but never the event stream.
	handle := &historyOnlyAgent{}

	text, err := NewRunner().Run(context.Background(), handle, "prompt")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if text != "recorded only" {
		t.Errorf("expected history fallback to recover text, got %q", text)
	}
}

// historyOnlyAgent records a text event into the session without emitting it.
type historyOnlyAgent struct{}

func (a *historyOnlyAgent) Name() string { return "quiet" }

func (a *historyOnlyAgent) Invoke(_ context.Context, session *Session, _ string) (<-chan Event, error) {
	session.Record(Event{Type: EventText, Text: "recorded only"})
	ch := make(chan Event)
	close(ch)
	return ch, nil
}

func TestRunNoTextFails(t *testing.T) {
	handle := &streamAgent{
		name: "silent",
		events: []Event{
			{Type: EventToolCall, Tool: "search", Text: "query"},
		},
	}

	_, err := NewRunner().Run(context.Background(), handle, "prompt")
	if err == nil {
		t.Fatal("expected error when no text is produced")
	}
	if !IsExecutionError(err) {
		t.Errorf("expected ExecutionError, got %T", err)
	}
}

func TestRunStreamErrorSurfaced(t *testing.T) {
	cause := errors.New("model exploded")
	handle := &streamAgent{
		name: "broken",
		events: []Event{
			{Type: EventError, Err: cause},
		},
	}

	_, err := NewRunner().Run(context.Background(), handle, "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestRunInvokeError(t *testing.T) {
	handle := &streamAgent{name: "dead", invokeErr: errors.New("no client")}

	_, err := NewRunner().Run(context.Background(), handle, "prompt")
	if !IsExecutionError(err) {
		t.Errorf("expected ExecutionError, got %v", err)
	}
}

func TestRunClosesSession(t *testing.T) {
	handle := &streamAgent{
		name:   "tidy",
		events: []Event{{Type: EventText, Text: "done"}},
	}

	if _, err := NewRunner().Run(context.Background(), handle, "prompt"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if handle.lastSession == nil || !handle.lastSession.Closed() {
		t.Error("session must be closed when Run returns")
	}
}

func TestRunClosesSessionOnFailure(t *testing.T) {
	handle := &streamAgent{name: "tidy-failure"}

	if _, err := NewRunner().Run(context.Background(), handle, "prompt"); err == nil {
		t.Fatal("expected failure for empty stream")
	}
	if handle.lastSession == nil || !handle.lastSession.Closed() {
		t.Error("session must be closed on the failure path too")
	}
}
