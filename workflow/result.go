package workflow

import (
	"github.com/c360studio/aida/proposal"
)

// RunMetadata summarizes a finished run.
type RunMetadata struct {
	RunID                string       `json:"run_id"`
	RefinementIterations int          `json:"refinement_iterations"`
	ValidationPassed     bool         `json:"validation_passed"`
	CoherenceScore       float64      `json:"coherence_score,omitempty"`
	FeasibilityScore     float64      `json:"feasibility_score,omitempty"`
	Warning              string       `json:"warning,omitempty"`
	WorkflowHistory      []Transition `json:"workflow_history,omitempty"`
}

// Result is the structured outcome of a workflow run. On success Proposal
// is populated; on failure Error carries the cause and State the terminal
// state the run ended in.
type Result struct {
	Success  bool               `json:"success"`
	Proposal *proposal.Proposal `json:"proposal,omitempty"`
	Error    string             `json:"error,omitempty"`
	State    State              `json:"state"`
	Metadata RunMetadata        `json:"metadata"`
}
