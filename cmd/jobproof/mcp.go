package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"jobproof/internal/config"
	"jobproof/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run jobproof as an MCP (Model Context Protocol) server",
		Long: `Start an MCP server that exposes the correction engine over stdio.

Tools:
  proofread_text - proofread a piece of job text and return corrections
  check_word     - look a word up in the trade lexicon

The server runs fully offline (shorthand tables plus the dictionary
checker) and needs no API credentials. It speaks JSON-RPC 2.0 over
stdin/stdout per the Model Context Protocol specification.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(mcp.Config{
				Name:       "jobproof",
				Version:    version,
				RulesFile:  cfg.RulesFile,
				ExtraWords: cfg.ExtraWords,
			})
			if err != nil {
				return fmt.Errorf("creating MCP server: %w", err)
			}

			if err := server.Run(context.Background()); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}
}
