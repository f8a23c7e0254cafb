package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what a run would create and delete without changing anything",
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rotation, cleanup, err := buildRotation(cmd.Context(), cfg, logger, false)
	if err != nil {
		return err
	}
	defer cleanup()

	dry, err := rotation.Plan(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "instance: %s (%s)\n", dry.Instance.Name, dry.Instance.ID)
	fmt.Fprintf(out, "policy:   %s\n", cfg.Snapshot.Policy)
	fmt.Fprintf(out, "managed:  %d of %d snapshot(s)\n", len(dry.Managed), dry.Total)
	fmt.Fprintf(out, "create:   1 snapshot with prefix %s\n", cfg.Snapshot.Prefix)
	if len(dry.Plan.Delete) == 0 {
		fmt.Fprintln(out, "delete:   nothing")
		return nil
	}
	fmt.Fprintln(out, "delete:")
	for _, s := range dry.Plan.Delete {
		fmt.Fprintf(out, "  - %s (%s)\n", s.Name, s.ID)
	}
	return nil
}
