// Package metrics defines Prometheus instrumentation for the proposal
// workflow engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowsStarted counts workflow runs by outcome-independent start.
	WorkflowsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aida_workflows_started_total",
			Help: "Total number of proposal workflow runs started",
		},
	)

	// WorkflowsCompleted counts finished runs by status (success, failed).
	WorkflowsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aida_workflows_completed_total",
			Help: "Total number of proposal workflow runs completed",
		},
		[]string{"status"},
	)

	// WorkflowDuration observes end-to-end run duration.
	WorkflowDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aida_workflow_duration_seconds",
			Help:    "Proposal workflow run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// StageDuration observes per-stage duration, labeled by stage.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aida_stage_duration_seconds",
			Help:    "Stage execution duration in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"stage"},
	)

	// StageFailures counts stage failures by stage and failure kind.
	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aida_stage_failures_total",
			Help: "Total stage failures by kind (agent, extraction, schema, transition)",
		},
		[]string{"stage", "kind"},
	)

	// RefinementIterations counts refinement passes across all runs.
	RefinementIterations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aida_refinement_iterations_total",
			Help: "Total refinement loop iterations",
		},
	)

	// RefinementBudgetExhausted counts runs that completed with the
	// refinement budget spent and validation still failing.
	RefinementBudgetExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aida_refinement_budget_exhausted_total",
			Help: "Runs completed best-effort after exhausting the refinement budget",
		},
	)
)
