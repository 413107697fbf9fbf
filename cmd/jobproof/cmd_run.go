package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"jobproof/internal/aroflo"
	"jobproof/internal/checker"
	"jobproof/internal/config"
	"jobproof/internal/engine"
	"jobproof/internal/proofread"
	"jobproof/internal/report"
	"jobproof/internal/rules"
	"jobproof/internal/store"
	"jobproof/internal/transport"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Proofread completed tasks without writing anything back",
		Long: `Fetch completed tasks (and optionally timesheets), proofread every
text field, and print what would be corrected. Nothing is written to the
service; every decision is recorded in the local audit log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProofread(cmd, false)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Proofread completed tasks and write safe corrections back",
		Long: `Like check, but high-confidence corrections on task descriptions are
written back through the API and corrected tasks advance to the
configured substatus. Timesheet notes are never written; their findings
go to the manual-review report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProofread(cmd, true)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("job", "", "Restrict the run to one job number")
	cmd.Flags().Bool("timesheets", false, "Include timesheet notes")
	cmd.Flags().Bool("offline", false, "Skip the remote grammar service, spelling check only")
	cmd.Flags().Int("pages", 0, "Maximum task/timesheet pages to fetch")
}

func runProofread(cmd *cobra.Command, apply bool) error {
	configPath, _ := cmd.Flags().GetString("config")
	jsonOut, _ := cmd.Flags().GetBool("json")
	job, _ := cmd.Flags().GetString("job")
	timesheets, _ := cmd.Flags().GetBool("timesheets")
	offline, _ := cmd.Flags().GetBool("offline")
	pages, _ := cmd.Flags().GetInt("pages")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Credentials.Validate(); err != nil {
		return err
	}

	tbl, err := loadRulesTable(cfg)
	if err != nil {
		return err
	}

	tc := transport.NewClient(cfg.TransportConfig())
	api := aroflo.NewClient(cfg.APIBaseURL, cfg.Credentials, tc)

	var remote checker.TextChecker
	if !offline {
		remote = checker.NewRemoteChecker(cfg.GrammarURL, tc)
	}
	fallback := checker.NewFallbackChecker(cfg.ExtraWords...)
	eng := engine.New(tbl, remote, fallback, transport.NewBreaker(cfg.BreakerThreshold))

	audit, err := openAudit(cfg)
	if err != nil {
		return err
	}
	defer audit.Close()

	runner := proofread.NewRunner(api, eng, audit)

	opts := proofread.Options{
		Apply:             apply,
		JobNumber:         job,
		IncludeTimesheets: timesheets,
		MaxPages:          cfg.MaxPages,
	}
	if pages > 0 {
		opts.MaxPages = pages
	}
	if apply {
		opts.Substatus = cfg.Substatus
	}

	summary, err := runner.Run(context.Background(), opts)
	if err != nil {
		return err
	}

	rep := report.Build(summary.Decisions)
	if jsonOut {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(struct {
			Summary *proofread.Summary `json:"summary"`
			Report  *report.Report     `json:"report"`
		}{summary, rep})
	}

	out := cmd.OutOrStdout()
	mode := "Checked"
	if apply {
		mode = "Applied"
	}
	fmt.Fprintf(out, "%s %d field(s): %d auto-applied, %d for review\n",
		mode, summary.FieldsChecked, summary.AutoApplied, summary.ManualReview)
	if apply {
		fmt.Fprintf(out, "Tasks updated: %d\n", summary.TasksUpdated)
		if summary.WriteFailures > 0 {
			fmt.Fprintf(out, "Write failures: %d\n", summary.WriteFailures)
		}
	}
	if summary.Degraded {
		fmt.Fprintln(out, "Grammar service unavailable for part of the run; spelling-only checks were used.")
	}
	fmt.Fprintln(out)
	return rep.Render(out)
}

func loadRulesTable(cfg config.Config) (*rules.Table, error) {
	if cfg.RulesFile != "" {
		return rules.LoadFile(cfg.RulesFile)
	}
	return rules.Default()
}

func openAudit(cfg config.Config) (*store.Store, error) {
	path := cfg.AuditDB
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return store.Open(path)
}
