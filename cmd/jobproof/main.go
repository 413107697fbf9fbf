package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jobproof",
		Short: "Proofread and correct job-record text",
		Long: `jobproof pulls completed tasks and timesheets from the job-management
service, proofreads their text fields, and either reports the findings
or writes safe corrections back.

Credentials are read from the environment:
  JOBPROOF_ORG_ENCODED, JOBPROOF_U_ENCODED, JOBPROOF_P_ENCODED,
  JOBPROOF_SECRET_KEY and optionally JOBPROOF_HOST_IP.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConnectionCmd(),
		newCheckCmd(),
		newApplyCmd(),
		newHistoryCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "jobproof version %s\n", version)
			}
		},
	}
}
