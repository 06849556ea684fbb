// Package main provides the aida binary entry point.
// Aida generates academic research proposals by driving LLM stage agents
// through a validated workflow: problem formulation, objectives,
// methodology, data collection, and quality control.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	// Register LLM providers via init()
	_ "github.com/c360studio/aida/llm/providers"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "aida"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Research proposal generation engine",
		Long: `Aida turns a student research profile into a complete proposal.

A profile (academic program, research area, available hours, timeline)
is run through five LLM-driven stages: problem formulation, objectives,
methodology, data collection planning, and quality validation. Proposals
that fail validation are refined within a bounded loop before delivery.`,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(runCmd(&logLevel))
	cmd.AddCommand(watchCmd(&logLevel))
	cmd.AddCommand(versionCmd())

	return cmd
}

func runCmd(logLevel *string) *cobra.Command {
	var (
		profilePath string
		outputPath  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate a proposal from a profile file",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(*logLevel)

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.RunProfile(cmd.Context(), profilePath)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal result: %w", err)
			}

			if outputPath != "" {
				if err := os.WriteFile(outputPath, data, 0644); err != nil {
					return fmt.Errorf("write result: %w", err)
				}
				slog.Info("Result written", "path", outputPath)
			} else {
				fmt.Println(string(data))
			}

			if !result.Success {
				return fmt.Errorf("workflow failed in state %s: %s", result.State, result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Profile file (YAML or JSON)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the result to a file instead of stdout")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}

func watchCmd(logLevel *string) *cobra.Command {
	var watchDir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a drop directory and run each profile that arrives",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(*logLevel)

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Watch(cmd.Context(), watchDir)
		},
	}

	cmd.Flags().StringVarP(&watchDir, "dir", "d", "", "Drop directory (overrides intake.watch_dir)")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

func setupLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
