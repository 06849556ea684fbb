package workflow

import (
	"time"
)

// Transition is an immutable record of a single state change.
type Transition struct {
	From      State          `json:"from"`
	To        State          `json:"to"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Context tracks the state of one workflow run. It is owned exclusively by
// the orchestrator for the lifetime of the run and is not safe for sharing
// across concurrent runs.
type Context struct {
	CurrentState    State        `json:"current_state"`
	History         []Transition `json:"history"`
	RefinementCount int          `json:"refinement_count"`
	MaxRefinements  int          `json:"max_refinements"`
	ErrorMessage    string       `json:"error_message,omitempty"`
}

// DefaultMaxRefinements bounds the refinement loop when no explicit budget
// is configured.
const DefaultMaxRefinements = 2

// NewContext creates a workflow context in the Init state with the given
// refinement budget. A negative budget is treated as zero.
func NewContext(maxRefinements int) *Context {
	if maxRefinements < 0 {
		maxRefinements = 0
	}
	return &Context{
		CurrentState:   StateInit,
		MaxRefinements: maxRefinements,
	}
}

// TransitionTo moves the context to a new state, appending a transition
// record. On an invalid transition the context is left untouched and an
// *InvalidTransitionError is returned. A transition into Refinement
// increments the refinement counter.
func (c *Context) TransitionTo(to State, metadata map[string]any) error {
	if !IsValidTransition(c.CurrentState, to) {
		return &InvalidTransitionError{From: c.CurrentState, To: to}
	}

	c.History = append(c.History, Transition{
		From:      c.CurrentState,
		To:        to,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	})
	c.CurrentState = to

	if to == StateRefinement {
		c.RefinementCount++
	}
	return nil
}

// CanRefine reports whether another refinement pass is within budget.
func (c *Context) CanRefine() bool {
	return c.RefinementCount < c.MaxRefinements
}

// Progress returns the progress percentage for the current state.
func (c *Context) Progress() float64 {
	return c.CurrentState.Progress()
}

// StepName returns the human-readable name of the current step.
func (c *Context) StepName() string {
	return c.CurrentState.StepName()
}
