package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/aida/agent"
	"github.com/c360studio/aida/events"
	"github.com/c360studio/aida/llm"
	"github.com/c360studio/aida/metrics"
	"github.com/c360studio/aida/proposal"
)

// StageAgents holds the five stage agents the pipeline drives. All must be
// set before Run is called.
type StageAgents struct {
	ProblemFormulation agent.Handle
	Objectives         agent.Handle
	Methodology        agent.Handle
	DataCollection     agent.Handle
	QualityControl     agent.Handle
}

// TextRunner reduces an agent invocation to its final text answer.
// *agent.Runner is the production implementation.
type TextRunner interface {
	Run(ctx context.Context, handle agent.Handle, prompt string) (string, error)
}

// stageRequiredKeys are the keys response extraction demands per stage.
// Extraction rejects any JSON object missing one of them, which filters out
// tool directives and partial objects embedded in agent chatter.
var stageRequiredKeys = map[State][]string{
	StateProblemFormulation: {"problem_statement", "main_research_question"},
	StateObjectives:         {"general_objective", "specific_objectives"},
	StateMethodology:        {"recommended_methodology", "methodology_type"},
	StateDataCollection:     {"collection_techniques", "timeline_breakdown"},
	StateQualityControl:     {"validation_passed", "overall_quality_score"},
}

// Orchestrator drives one proposal workflow at a time through the state
// machine: five sequential stages, then a quality decision that either
// completes the run or loops back through refinement.
type Orchestrator struct {
	agents         StageAgents
	runner         TextRunner
	reporter       events.Reporter
	store          SnapshotStore
	logger         *slog.Logger
	maxRefinements int

	// mu guards current and every mutation of its workflow context, so
	// Status can be polled while Run is executing.
	mu      sync.Mutex
	current *run
}

// run is the per-invocation state: the workflow context plus the stage
// records accumulated so far.
type run struct {
	id          string
	wctx        *Context
	profile     *proposal.UserProfile
	problem     *proposal.ProblemDefinition
	objectives  *proposal.ResearchObjectives
	methodology *proposal.MethodologyRecommendation
	plan        *proposal.DataCollectionPlan
	quality     *proposal.QualityValidation
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxRefinements sets the refinement budget per run.
func WithMaxRefinements(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxRefinements = n
	}
}

// WithReporter sets the progress reporter.
func WithReporter(reporter events.Reporter) OrchestratorOption {
	return func(o *Orchestrator) {
		o.reporter = reporter
	}
}

// WithSnapshotStore enables snapshot persistence after every transition.
func WithSnapshotStore(store SnapshotStore) OrchestratorOption {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithOrchestratorLogger sets the orchestrator logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an orchestrator over the given stage agents and
// runner.
func NewOrchestrator(agents StageAgents, runner TextRunner, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		agents:         agents,
		runner:         runner,
		logger:         slog.Default(),
		maxRefinements: DefaultMaxRefinements,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status reports the position of the run in flight, or a zero-progress
// status when no run is active.
type Status struct {
	RunID           string  `json:"run_id,omitempty"`
	State           State   `json:"state"`
	StepName        string  `json:"step_name"`
	Progress        float64 `json:"progress"`
	RefinementCount int     `json:"refinement_count"`
	MaxRefinements  int     `json:"max_refinements"`
	Error           string  `json:"error,omitempty"`
}

// Status returns the current run position.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil {
		return Status{
			State:          StateInit,
			StepName:       StateInit.StepName(),
			MaxRefinements: o.maxRefinements,
		}
	}
	wctx := o.current.wctx
	return Status{
		RunID:           o.current.id,
		State:           wctx.CurrentState,
		StepName:        wctx.StepName(),
		Progress:        wctx.Progress(),
		RefinementCount: wctx.RefinementCount,
		MaxRefinements:  wctx.MaxRefinements,
		Error:           wctx.ErrorMessage,
	}
}

// Run executes the full pipeline for one user profile and returns the
// structured outcome. All stage failures are fatal: the run transitions to
// the error state and the result carries the cause. Run never panics the
// workflow into a half-finished state; the context's transition history is
// complete in both outcomes.
func (o *Orchestrator) Run(ctx context.Context, profile *proposal.UserProfile) *Result {
	r := &run{
		id:      uuid.NewString(),
		wctx:    NewContext(o.maxRefinements),
		profile: profile,
	}
	o.mu.Lock()
	o.current = r
	o.mu.Unlock()

	metrics.WorkflowsStarted.Inc()
	start := time.Now()
	defer func() {
		metrics.WorkflowDuration.Observe(time.Since(start).Seconds())
	}()

	o.logger.Info("Starting proposal workflow",
		"run_id", r.id,
		"research_area", profile.ResearchArea,
		"max_refinements", r.wctx.MaxRefinements)

	if err := proposal.ValidateProfile(profile); err != nil {
		return o.fail(ctx, r, fmt.Errorf("invalid user profile: %w", err))
	}

	// The intake interview happens upstream; the state is recorded so the
	// progress trail covers the whole journey.
	if err := o.transition(ctx, r, StateInterviewing, nil); err != nil {
		return o.fail(ctx, r, err)
	}

	var feedback string
	var warning string

	for {
		problem, err := runStage[proposal.ProblemDefinition](ctx, o, r,
			StateProblemFormulation, o.agents.ProblemFormulation,
			buildProblemFormulationPrompt(profile, feedback, r.problem))
		if err != nil {
			return o.fail(ctx, r, err)
		}
		r.problem = problem

		objectives, err := runStage[proposal.ResearchObjectives](ctx, o, r,
			StateObjectives, o.agents.Objectives,
			buildObjectivesPrompt(profile, r.problem))
		if err != nil {
			return o.fail(ctx, r, err)
		}
		r.objectives = objectives

		methodology, err := runStage[proposal.MethodologyRecommendation](ctx, o, r,
			StateMethodology, o.agents.Methodology,
			buildMethodologyPrompt(profile, r.problem, r.objectives))
		if err != nil {
			return o.fail(ctx, r, err)
		}
		r.methodology = methodology

		plan, err := runStage[proposal.DataCollectionPlan](ctx, o, r,
			StateDataCollection, o.agents.DataCollection,
			buildDataCollectionPrompt(profile, r.objectives, r.methodology))
		if err != nil {
			return o.fail(ctx, r, err)
		}
		r.plan = plan

		quality, err := runStage[proposal.QualityValidation](ctx, o, r,
			StateQualityControl, o.agents.QualityControl,
			buildQualityControlPrompt(profile, r.problem, r.objectives, r.methodology, r.plan))
		if err != nil {
			return o.fail(ctx, r, err)
		}
		quality.Normalize()
		r.quality = quality

		if quality.ValidationPassed {
			if err := o.transition(ctx, r, StateComplete, nil); err != nil {
				return o.fail(ctx, r, err)
			}
			break
		}

		if quality.RequiresRefinement && r.wctx.CanRefine() {
			meta := map[string]any{
				"iteration": r.wctx.RefinementCount + 1,
				"issues":    issueSummaries(quality),
			}
			if err := o.transition(ctx, r, StateRefinement, meta); err != nil {
				return o.fail(ctx, r, err)
			}
			metrics.RefinementIterations.Inc()
			feedback = refinementFeedback(quality)
			o.logger.Info("Refinement pass",
				"run_id", r.id,
				"iteration", r.wctx.RefinementCount,
				"overall_score", quality.OverallQualityScore)
			continue
		}

		// Budget exhausted (or the reviewer failed the proposal without
		// requesting refinement): finish best-effort rather than discard
		// four stages of work.
		warning = fmt.Sprintf(
			"proposal completed without passing validation after %d refinement iteration(s)",
			r.wctx.RefinementCount)
		meta := map[string]any{
			"warning":           warning,
			"validation_passed": false,
		}
		if err := o.transition(ctx, r, StateComplete, meta); err != nil {
			return o.fail(ctx, r, err)
		}
		metrics.RefinementBudgetExhausted.Inc()
		o.logger.Warn("Refinement budget exhausted",
			"run_id", r.id,
			"iterations", r.wctx.RefinementCount,
			"overall_score", quality.OverallQualityScore)
		break
	}

	metrics.WorkflowsCompleted.WithLabelValues("success").Inc()
	o.logger.Info("Workflow complete",
		"run_id", r.id,
		"validation_passed", r.quality.ValidationPassed,
		"refinement_iterations", r.wctx.RefinementCount,
		"duration", time.Since(start))

	return &Result{
		Success: true,
		Proposal: &proposal.Proposal{
			UserProfile:        profile,
			ProblemDefinition:  r.problem,
			ResearchObjectives: r.objectives,
			Methodology:        r.methodology,
			DataCollectionPlan: r.plan,
			QualityValidation:  r.quality,
			GeneratedAt:        time.Now().UTC(),
		},
		State: r.wctx.CurrentState,
		Metadata: RunMetadata{
			RunID:                r.id,
			RefinementIterations: r.wctx.RefinementCount,
			ValidationPassed:     r.quality.ValidationPassed,
			CoherenceScore:       r.quality.CoherenceScore,
			FeasibilityScore:     r.quality.FeasibilityScore,
			Warning:              warning,
			WorkflowHistory:      r.wctx.History,
		},
	}
}

// runStage transitions into a stage, drives its agent, and decodes the
// structured record from the agent's final text. Any failure is returned
// wrapped with the stage name; classification (agent, extraction, schema)
// is recorded in metrics.
func runStage[T any](ctx context.Context, o *Orchestrator, r *run, state State, handle agent.Handle, prompt string) (*T, error) {
	if err := o.transition(ctx, r, state, nil); err != nil {
		return nil, err
	}

	stage := state.String()
	if handle == nil {
		return nil, fmt.Errorf("stage %s: no agent configured", stage)
	}

	o.logger.Info("Running stage", "run_id", r.id, "stage", stage)
	stageStart := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(stageStart).Seconds())
	}()

	text, err := o.runner.Run(ctx, handle, prompt)
	if err != nil {
		metrics.StageFailures.WithLabelValues(stage, "agent").Inc()
		return nil, fmt.Errorf("stage %s: %w", stage, err)
	}

	data, err := llm.Extract(text, stageRequiredKeys[state])
	if err != nil {
		metrics.StageFailures.WithLabelValues(stage, "extraction").Inc()
		return nil, fmt.Errorf("stage %s: %w", stage, err)
	}

	record, err := proposal.Decode[T](stage, data)
	if err != nil {
		metrics.StageFailures.WithLabelValues(stage, "schema").Inc()
		return nil, fmt.Errorf("stage %s: %w", stage, err)
	}
	return record, nil
}

// transition moves the run to a new state, then reports progress and
// persists a snapshot. Reporting and persistence never fail the run.
func (o *Orchestrator) transition(ctx context.Context, r *run, to State, metadata map[string]any) error {
	o.mu.Lock()
	err := r.wctx.TransitionTo(to, metadata)
	o.mu.Unlock()
	if err != nil {
		metrics.StageFailures.WithLabelValues(to.String(), "transition").Inc()
		return err
	}

	if o.reporter != nil {
		o.reporter.Report(events.ProgressEvent{
			RunID:      r.id,
			State:      to.String(),
			StepName:   to.StepName(),
			Percentage: to.Progress(),
			Refinement: r.wctx.RefinementCount,
			Timestamp:  time.Now().UTC(),
		})
	}

	if o.store != nil {
		snap := &Snapshot{
			RunID:       r.id,
			Context:     r.wctx,
			Profile:     r.profile,
			Problem:     r.problem,
			Objectives:  r.objectives,
			Methodology: r.methodology,
			Plan:        r.plan,
			Quality:     r.quality,
			UpdatedAt:   time.Now().UTC(),
		}
		if err := o.store.Save(ctx, snap); err != nil {
			o.logger.Warn("Failed to persist run snapshot", "run_id", r.id, "error", err)
		}
	}
	return nil
}

// fail records the cause, transitions the run to the error state, and
// builds the structured failure result.
func (o *Orchestrator) fail(ctx context.Context, r *run, cause error) *Result {
	o.mu.Lock()
	r.wctx.ErrorMessage = cause.Error()
	o.mu.Unlock()
	if IsValidTransition(r.wctx.CurrentState, StateError) {
		if err := o.transition(ctx, r, StateError, map[string]any{"error": cause.Error()}); err != nil {
			o.logger.Error("Failed to enter error state", "run_id", r.id, "error", err)
		}
	}

	metrics.WorkflowsCompleted.WithLabelValues("failed").Inc()
	o.logger.Error("Workflow failed",
		"run_id", r.id,
		"state", r.wctx.CurrentState,
		"error", cause)

	return &Result{
		Success: false,
		Error:   cause.Error(),
		State:   r.wctx.CurrentState,
		Metadata: RunMetadata{
			RunID:                r.id,
			RefinementIterations: r.wctx.RefinementCount,
			WorkflowHistory:      r.wctx.History,
		},
	}
}

// refinementFeedback flattens the reviewer's findings into the feedback
// text handed back to the problem-formulation agent.
func refinementFeedback(q *proposal.QualityValidation) string {
	var b strings.Builder
	for _, issue := range q.IssuesIdentified {
		if issue.Component != "" {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", issue.Severity, issue.Component, issue.Description)
		} else {
			fmt.Fprintf(&b, "- [%s] %s\n", issue.Severity, issue.Description)
		}
	}
	for _, rec := range q.Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	if len(q.RefinementTargets) > 0 {
		fmt.Fprintf(&b, "Focus on: %s\n", strings.Join(q.RefinementTargets, ", "))
	}
	return b.String()
}

// issueSummaries extracts the issue descriptions for transition metadata.
func issueSummaries(q *proposal.QualityValidation) []string {
	summaries := make([]string, 0, len(q.IssuesIdentified))
	for _, issue := range q.IssuesIdentified {
		summaries = append(summaries, issue.Description)
	}
	return summaries
}
