package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"jobproof/internal/aroflo"
	"jobproof/internal/config"
	"jobproof/internal/transport"
)

func newConnectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connection",
		Short: "Verify API credentials and request signing",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Credentials.Validate(); err != nil {
				return err
			}

			api := aroflo.NewClient(cfg.APIBaseURL, cfg.Credentials, transport.NewClient(cfg.TransportConfig()))
			err = api.TestConnection(context.Background())

			if jsonOut {
				out := map[string]any{"ok": err == nil}
				if err != nil {
					out["error"] = err.Error()
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}
			if err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Connection OK: credentials and signature accepted.")
			return nil
		},
	}
}
