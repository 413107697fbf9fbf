// Package config loads runtime configuration: API credentials from the
// environment and everything else from an optional YAML file. Credentials
// never live in the file, so a config checked into a repo or shared
// between operators carries no secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"jobproof/internal/aroflo"
	"jobproof/internal/transport"
)

// Environment variables carrying the API credentials.
const (
	EnvOrgEncoded = "JOBPROOF_ORG_ENCODED"
	EnvUEncoded   = "JOBPROOF_U_ENCODED"
	EnvPEncoded   = "JOBPROOF_P_ENCODED"
	EnvSecretKey  = "JOBPROOF_SECRET_KEY"
	EnvHostIP     = "JOBPROOF_HOST_IP"
)

// Config is the full runtime configuration.
type Config struct {
	// APIBaseURL overrides the job-management API endpoint.
	APIBaseURL string `yaml:"api_base_url,omitempty"`

	// GrammarURL overrides the grammar-check endpoint. Point this at a
	// self-hosted instance to avoid the public service's limits.
	GrammarURL string `yaml:"grammar_url,omitempty"`

	// RulesFile replaces the embedded correction tables.
	RulesFile string `yaml:"rules_file,omitempty"`

	// AuditDB overrides the audit database location.
	AuditDB string `yaml:"audit_db,omitempty"`

	// Substatus is the substatus applied to tasks after proofreading.
	// Default: "Ready to Invoice"
	Substatus string `yaml:"substatus,omitempty"`

	// ExtraWords extends the offline spelling lexicon.
	ExtraWords []string `yaml:"extra_words,omitempty"`

	// MaxPages caps how many task/timesheet pages a run fetches.
	// Default: 20
	MaxPages int `yaml:"max_pages,omitempty"`

	// RequestTimeoutSeconds applies per HTTP call.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds,omitempty"`

	// PerSecond and PerMinute override the shared rate windows. Only
	// lower them; the defaults are the service's published limits.
	PerSecond int `yaml:"per_second,omitempty"`
	PerMinute int `yaml:"per_minute,omitempty"`

	// BreakerThreshold is the consecutive-failure count that trips the
	// grammar-service circuit.
	BreakerThreshold int `yaml:"breaker_threshold,omitempty"`

	// Credentials are loaded from the environment, never from YAML.
	Credentials aroflo.Credentials `yaml:"-"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Substatus:        "Ready to Invoice",
		MaxPages:         20,
		BreakerThreshold: transport.DefaultBreakerThreshold,
	}
}

// Load builds the configuration from an optional YAML file path plus the
// environment. An empty path loads defaults and environment credentials
// only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.applyDefaults()
	}

	cfg.Credentials = credentialsFromEnv()
	return cfg, nil
}

// applyDefaults restores defaults the YAML file zeroed out.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Substatus == "" {
		c.Substatus = d.Substatus
	}
	if c.MaxPages <= 0 {
		c.MaxPages = d.MaxPages
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = d.BreakerThreshold
	}
}

// TransportConfig translates the relevant settings into the shared
// transport configuration.
func (c Config) TransportConfig() transport.Config {
	tc := transport.DefaultConfig()
	if c.RequestTimeoutSeconds > 0 {
		tc.Timeout = time.Duration(c.RequestTimeoutSeconds) * time.Second
	}
	if c.PerSecond > 0 && c.PerSecond < tc.PerSecond {
		tc.PerSecond = c.PerSecond
	}
	if c.PerMinute > 0 && c.PerMinute < tc.PerMinute {
		tc.PerMinute = c.PerMinute
	}
	return tc
}

func credentialsFromEnv() aroflo.Credentials {
	return aroflo.Credentials{
		OrgEncoded: os.Getenv(EnvOrgEncoded),
		UEncoded:   os.Getenv(EnvUEncoded),
		PEncoded:   os.Getenv(EnvPEncoded),
		SecretKey:  os.Getenv(EnvSecretKey),
		HostIP:     os.Getenv(EnvHostIP),
	}
}
