package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/aida/agent"
	"github.com/c360studio/aida/config"
	"github.com/c360studio/aida/events"
	"github.com/c360studio/aida/intake"
	"github.com/c360studio/aida/llm"
	"github.com/c360studio/aida/storage"
	"github.com/c360studio/aida/workflow"
)

// app wires configuration, the model registry, stage agents, and optional
// NATS-backed reporting and persistence into a runnable orchestrator.
type app struct {
	cfg          *config.Config
	orchestrator *workflow.Orchestrator
	store        *storage.RunStore
	nc           *nats.Conn
	logger       *slog.Logger
}

func newApp(ctx context.Context) (*app, error) {
	logger := slog.Default()

	cfg, err := config.NewLoader(logger).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	client := llm.NewClient(cfg.Registry(), llm.WithLogger(logger))
	runner := agent.NewRunner(agent.WithRunnerLogger(logger))

	a := &app{cfg: cfg, logger: logger}

	opts := []workflow.OrchestratorOption{
		workflow.WithMaxRefinements(cfg.Workflow.MaxRefinements),
		workflow.WithOrchestratorLogger(logger),
	}

	var reporter events.Reporter = &events.LogReporter{Logger: logger}
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name(appName))
		if err != nil {
			return nil, wrapNATSError(err, cfg.NATS.URL)
		}
		a.nc = nc

		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create JetStream context: %w", err)
		}
		store, err := storage.NewRunStore(ctx, js)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create run store: %w", err)
		}
		a.store = store
		opts = append(opts, workflow.WithSnapshotStore(store))
		reporter = events.NewNATSReporter(nc, logger)
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	}
	opts = append(opts, workflow.WithReporter(reporter))

	a.orchestrator = workflow.NewOrchestrator(stageAgents(client, logger), runner, opts...)
	return a, nil
}

// Close releases the NATS connection if one was opened.
func (a *app) Close() {
	if a.nc != nil {
		a.nc.Close()
	}
}

// RunProfile loads a profile file and runs the workflow for it. When a run
// store is configured the result is archived after the run.
func (a *app) RunProfile(ctx context.Context, path string) (*workflow.Result, error) {
	profile, err := intake.LoadProfile(path)
	if err != nil {
		return nil, err
	}

	result := a.orchestrator.Run(ctx, profile)

	if a.store != nil {
		if err := a.store.SaveResult(ctx, result.Metadata.RunID, result); err != nil {
			a.logger.Warn("Failed to archive result", "run_id", result.Metadata.RunID, "error", err)
		}
	}
	return result, nil
}

// Watch runs the workflow for every profile dropped into the watch
// directory until interrupted.
func (a *app) Watch(ctx context.Context, dirOverride string) error {
	dir := dirOverride
	if dir == "" {
		dir = a.cfg.Intake.WatchDir
	}
	if dir == "" {
		return fmt.Errorf("no watch directory configured (set intake.watch_dir or pass --dir)")
	}

	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	watcher, err := intake.NewWatcher(dir, a.cfg.Intake.Debounce, a.logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Start(signalCtx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer func() { _ = watcher.Stop() }()

	a.logger.Info("Watching for profiles", "dir", dir)

	for {
		select {
		case <-signalCtx.Done():
			a.logger.Info("Shutting down")
			return nil

		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			if ev.Err != nil {
				a.logger.Warn("Skipping profile", "path", ev.Path, "error", ev.Err)
				continue
			}

			result := a.orchestrator.Run(signalCtx, ev.Profile)
			if a.store != nil {
				if err := a.store.SaveResult(signalCtx, result.Metadata.RunID, result); err != nil {
					a.logger.Warn("Failed to archive result", "run_id", result.Metadata.RunID, "error", err)
				}
			}
			if result.Success {
				a.logger.Info("Proposal generated",
					"profile", ev.Path,
					"run_id", result.Metadata.RunID,
					"validation_passed", result.Metadata.ValidationPassed)
			} else {
				a.logger.Error("Proposal generation failed",
					"profile", ev.Path,
					"run_id", result.Metadata.RunID,
					"error", result.Error)
			}
		}
	}
}

// stageAgents builds the five stage agents over a shared client.
func stageAgents(client *llm.Client, logger *slog.Logger) workflow.StageAgents {
	build := func(name, stage, systemPrompt string) agent.Handle {
		return agent.New(agent.Definition{
			Name:         name,
			Stage:        stage,
			SystemPrompt: systemPrompt,
		}, client, agent.WithLogger(logger))
	}

	return workflow.StageAgents{
		ProblemFormulation: build("problem-formulator", workflow.StateProblemFormulation.String(),
			"You are an academic research advisor. You turn a student's profile into a "+
				"precise, researchable problem statement with a main research question. "+
				"Always answer with a single JSON object."),
		Objectives: build("objectives-definer", workflow.StateObjectives.String(),
			"You derive SMART research objectives from a problem definition, keeping them "+
				"achievable within the student's stated hours and timeline. "+
				"Always answer with a single JSON object."),
		Methodology: build("methodology-advisor", workflow.StateMethodology.String(),
			"You recommend research methodologies matched to the research question, the "+
				"student's skills, and their constraints. "+
				"Always answer with a single JSON object."),
		DataCollection: build("data-collection-planner", workflow.StateDataCollection.String(),
			"You plan concrete data collection: techniques, tools, sources, sample sizes, "+
				"and a timeline breakdown that fits the student's availability. "+
				"Always answer with a single JSON object."),
		QualityControl: build("quality-reviewer", workflow.StateQualityControl.String(),
			"You are a strict reviewer of research proposals. You score coherence and "+
				"feasibility between 0 and 1, list concrete issues with severities, and "+
				"decide whether refinement is required. "+
				"Always answer with a single JSON object."),
	}
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or leave nats.url empty to run without progress publishing and persistence.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}
