// Package mcp exposes the correction engine over the Model Context
// Protocol, so editor agents can proofread job text in place. The server
// runs offline: shorthand tables plus the dictionary fallback, no remote
// calls and no credentials.
package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"jobproof/internal/checker"
	"jobproof/internal/engine"
	"jobproof/internal/models"
	"jobproof/internal/rules"
)

// Config configures the MCP server.
type Config struct {
	// Name and Version identify the server to clients.
	Name    string
	Version string

	// RulesFile optionally replaces the embedded correction tables.
	RulesFile string

	// ExtraWords extends the offline spelling lexicon.
	ExtraWords []string
}

// Server is the stdio MCP server.
type Server struct {
	server   *mcpsdk.Server
	engine   *engine.Engine
	fallback *checker.FallbackChecker
}

// NewServer builds the server and registers its tools.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		cfg.Name = "jobproof"
	}

	tbl, err := loadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	fallback := checker.NewFallbackChecker(cfg.ExtraWords...)

	s := &Server{
		server: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		engine:   engine.New(tbl, nil, fallback, nil),
		fallback: fallback,
	}
	s.registerTools()
	return s, nil
}

func loadRules(path string) (*rules.Table, error) {
	if path != "" {
		return rules.LoadFile(path)
	}
	return rules.Default()
}

// Run serves MCP over stdin/stdout until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "proofread_text",
		Description: "Proofread job-record text. Applies the known-misspelling tables and offline spelling check, returns the corrected text and every finding with its classification.",
	}, s.handleProofread)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "check_word",
		Description: "Look a single word up in the trade lexicon and suggest a spelling if it is unknown.",
	}, s.handleCheckWord)
}

// ProofreadParams are the arguments of the proofread_text tool.
type ProofreadParams struct {
	Text string `json:"text" jsonschema:"The text to proofread"`
	Kind string `json:"kind,omitempty" jsonschema:"Field kind: description (default) or timesheet-note"`
}

// CheckWordParams are the arguments of the check_word tool.
type CheckWordParams struct {
	Word string `json:"word" jsonschema:"The word to look up"`
}

func (s *Server) handleProofread(ctx context.Context, req *mcpsdk.CallToolRequest, params *ProofreadParams) (*mcpsdk.CallToolResult, any, error) {
	kind := models.FieldDescription
	if params.Kind == string(models.FieldTimesheetNote) {
		kind = models.FieldTimesheetNote
	}

	decision, err := s.engine.Decide(ctx, models.TextField{Kind: kind, Text: params.Text})
	if err != nil {
		return nil, nil, fmt.Errorf("proofreading: %w", err)
	}

	return textResult(renderDecision(decision)), nil, nil
}

func (s *Server) handleCheckWord(_ context.Context, req *mcpsdk.CallToolRequest, params *CheckWordParams) (*mcpsdk.CallToolResult, any, error) {
	word := strings.TrimSpace(params.Word)
	if word == "" {
		return nil, nil, fmt.Errorf("word is required")
	}

	if s.fallback.Known(word) {
		return textResult(fmt.Sprintf("%q is a known word.", word)), nil, nil
	}

	matches, err := s.fallback.Check(context.Background(), word)
	if err == nil && len(matches) > 0 {
		return textResult(fmt.Sprintf("%q is not in the lexicon; did you mean %q?", word, matches[0].Replacement)), nil, nil
	}
	return textResult(fmt.Sprintf("%q is not in the lexicon and has no close suggestion.", word)), nil, nil
}

// renderDecision formats a decision for an agent to act on.
func renderDecision(d *models.CorrectionDecision) string {
	var sb strings.Builder
	if len(d.Matches) == 0 {
		sb.WriteString("No corrections needed.\n")
		sb.WriteString("Text: " + d.Field.Text)
		return sb.String()
	}

	fmt.Fprintf(&sb, "Corrected text: %s\n\nFindings (%d):\n", d.CorrectedText, len(d.Matches))
	for _, m := range d.Matches {
		original := d.Field.Text[m.Start:m.End]
		fmt.Fprintf(&sb, "- %q -> %q [%s, %s]", original, m.Replacement, m.Source, m.Classification)
		if m.Reason != "" {
			fmt.Fprintf(&sb, " (%s)", m.Reason)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: text},
		},
	}
}
