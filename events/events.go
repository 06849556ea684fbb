// Package events provides workflow progress reporting. The orchestrator
// publishes a progress event on every state transition; sinks range from a
// log line to a NATS subject a UI can subscribe to.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// ProgressEvent describes the workflow's position after a transition.
type ProgressEvent struct {
	RunID      string    `json:"run_id"`
	State      string    `json:"state"`
	StepName   string    `json:"step_name"`
	Percentage float64   `json:"percentage"`
	Refinement int       `json:"refinement,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Reporter receives progress events. Implementations must be cheap and
// non-blocking; reporting failures never affect the workflow.
type Reporter interface {
	Report(ev ProgressEvent)
}

// LogReporter writes progress events to a logger.
type LogReporter struct {
	Logger *slog.Logger
}

// Report logs the event.
func (r *LogReporter) Report(ev ProgressEvent) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Workflow progress",
		"run_id", ev.RunID,
		"state", ev.State,
		"step", ev.StepName,
		"percent", ev.Percentage)
}

// progressSubjectPrefix is the NATS subject prefix for progress events.
// Full subject: aida.workflow.progress.<run_id>
const progressSubjectPrefix = "aida.workflow.progress"

// NATSReporter publishes progress events to a per-run NATS subject.
type NATSReporter struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSReporter creates a reporter publishing on the given connection.
func NewNATSReporter(conn *nats.Conn, logger *slog.Logger) *NATSReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSReporter{conn: conn, logger: logger}
}

// Subject returns the progress subject for a run.
func Subject(runID string) string {
	return fmt.Sprintf("%s.%s", progressSubjectPrefix, runID)
}

// Report publishes the event. Publish failures are logged and dropped.
func (r *NATSReporter) Report(ev ProgressEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		r.logger.Warn("Failed to marshal progress event", "run_id", ev.RunID, "error", err)
		return
	}
	if err := r.conn.Publish(Subject(ev.RunID), data); err != nil {
		r.logger.Warn("Failed to publish progress event", "run_id", ev.RunID, "error", err)
	}
}
