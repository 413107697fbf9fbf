package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"jobproof/internal/config"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")
			runID, _ := cmd.Flags().GetInt64("run")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			audit, err := openAudit(cfg)
			if err != nil {
				return err
			}
			defer audit.Close()

			ctx := context.Background()
			out := cmd.OutOrStdout()

			if runID > 0 {
				decisions, err := audit.RunDecisions(ctx, runID)
				if err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(out).Encode(decisions)
				}
				if len(decisions) == 0 {
					fmt.Fprintf(out, "No decisions recorded for run %d.\n", runID)
					return nil
				}
				for _, d := range decisions {
					applied := "review"
					if d.Applied {
						applied = "applied"
					}
					fmt.Fprintf(out, "%s task %s (%s): %q -> %q [%s, %s]\n",
						d.JobNumber, d.TaskID, d.FieldKind, d.Original, d.Replacement, d.Source, applied)
				}
				return nil
			}

			runs, err := audit.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(out).Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			for _, r := range runs {
				line := fmt.Sprintf("#%d %s %s: %d field(s), %d applied, %d review",
					r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.Mode,
					r.FieldsTotal, r.AutoApplied, r.ManualReview)
				if r.Degraded {
					line += " (degraded)"
				}
				if r.Error != "" {
					line += " error: " + r.Error
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Number of runs to show")
	cmd.Flags().Int64("run", 0, "Show the decisions of one run")
	return cmd
}
