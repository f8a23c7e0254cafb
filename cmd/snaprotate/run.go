package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lucasew/snaprotate/internal/orchestration"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Create a snapshot, enforce retention and notify",
	RunE:  runRotation,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRotation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rotation, cleanup, err := buildRotation(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("starting rotation", "instance", cfg.Instance.Name, "policy", cfg.Snapshot.Policy)
	report, err := rotation.Run(ctx)
	if err != nil {
		logger.Error("rotation failed", "instance", cfg.Instance.Name, "step", orchestration.FailedStep(err), "log_lines", len(report.Log))
		return fmt.Errorf("rotation of %s failed: %w", cfg.Instance.Name, err)
	}

	logger.Info("rotation finished",
		"instance", report.Instance,
		"created", report.Created,
		"deleted", len(report.Deleted),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return nil
}
