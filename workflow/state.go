// Package workflow implements the research-proposal orchestration engine:
// a state machine over the proposal stages, a bounded refinement loop, and
// the orchestrator that drives stage agents to a final proposal.
package workflow

import (
	"fmt"
)

// State represents a stage in the proposal workflow.
type State string

const (
	StateInit               State = "init"
	StateInterviewing       State = "interviewing"
	StateProblemFormulation State = "problem_formulation"
	StateObjectives         State = "objectives"
	StateMethodology        State = "methodology"
	StateDataCollection     State = "data_collection"
	StateQualityControl     State = "quality_control"
	StateRefinement         State = "refinement"
	StateComplete           State = "complete"
	StateError              State = "error"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether the state has no outgoing transitions.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateError
}

// validTransitions is the directed transition table. The only cycle is
// QualityControl -> Refinement -> ProblemFormulation -> ... -> QualityControl,
// bounded by the context's refinement budget.
var validTransitions = map[State][]State{
	StateInit:               {StateInterviewing, StateError},
	StateInterviewing:       {StateProblemFormulation, StateError},
	StateProblemFormulation: {StateObjectives, StateError},
	StateObjectives:         {StateMethodology, StateError},
	StateMethodology:        {StateDataCollection, StateError},
	StateDataCollection:     {StateQualityControl, StateError},
	StateQualityControl:     {StateComplete, StateRefinement, StateError},
	StateRefinement:         {StateProblemFormulation, StateError},
	StateComplete:           {},
	StateError:              {},
}

// IsValidTransition reports whether moving from one state to another is
// permitted by the transition table.
func IsValidTransition(from, to State) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError indicates an attempted state change outside the
// transition table. It is always a caller bug and never retried.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid workflow transition from %s to %s", e.From, e.To)
}

// progressWeights maps each state to a fixed progress percentage.
// Telemetry only; nothing keys correctness off these values.
var progressWeights = map[State]float64{
	StateInit:               0,
	StateInterviewing:       10,
	StateProblemFormulation: 25,
	StateObjectives:         40,
	StateMethodology:        55,
	StateDataCollection:     70,
	StateQualityControl:     85,
	StateRefinement:         90,
	StateComplete:           100,
	StateError:              0,
}

// Progress returns the progress percentage for the state.
func (s State) Progress() float64 {
	return progressWeights[s]
}

// stepNames maps each state to a human-readable step description.
var stepNames = map[State]string{
	StateInit:               "Initializing",
	StateInterviewing:       "Conducting Interview",
	StateProblemFormulation: "Formulating Research Problem",
	StateObjectives:         "Defining Research Objectives",
	StateMethodology:        "Selecting Methodology",
	StateDataCollection:     "Planning Data Collection",
	StateQualityControl:     "Validating Proposal Quality",
	StateRefinement:         "Refining Proposal",
	StateComplete:           "Proposal Complete",
	StateError:              "Error Occurred",
}

// StepName returns a human-readable name for the state.
func (s State) StepName() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "Unknown"
}
