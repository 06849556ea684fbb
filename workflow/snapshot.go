package workflow

import (
	"context"
	"time"

	"github.com/c360studio/aida/proposal"
)

// Snapshot captures a run's state and accumulated stage records. The
// orchestrator persists one after every transition when a store is
// configured, so an observer can inspect a run mid-flight.
type Snapshot struct {
	RunID       string                              `json:"run_id"`
	Context     *Context                            `json:"context"`
	Profile     *proposal.UserProfile               `json:"profile,omitempty"`
	Problem     *proposal.ProblemDefinition         `json:"problem,omitempty"`
	Objectives  *proposal.ResearchObjectives        `json:"objectives,omitempty"`
	Methodology *proposal.MethodologyRecommendation `json:"methodology,omitempty"`
	Plan        *proposal.DataCollectionPlan        `json:"plan,omitempty"`
	Quality     *proposal.QualityValidation         `json:"quality,omitempty"`
	UpdatedAt   time.Time                           `json:"updated_at"`
}

// SnapshotStore persists run snapshots. Implementations must tolerate
// repeated saves for the same run id (last write wins).
type SnapshotStore interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, runID string) (*Snapshot, error)
}
