// Package store is the local audit log: every run and every correction
// decision is recorded in a SQLite database so operators can answer
// "what did the tool change, and why" after the fact.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataDir returns the path to the tool's data directory (~/.jobproof),
// creating it if needed.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".jobproof")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return dir, nil
}

// DefaultDBPath returns the default audit database path.
func DefaultDBPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audit.db"), nil
}
