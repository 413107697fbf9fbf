// Package checker provides the two text-checking backends: the remote
// grammar service and the offline dictionary fallback used when the
// remote service is unreachable. Both produce models.Match values with
// byte offsets into the checked text; suppression against the rule
// tables happens downstream in the engine.
package checker

import (
	"context"

	"jobproof/internal/models"
)

// TextChecker flags problem spans in one field's text.
type TextChecker interface {
	// Check returns matches ordered by start offset. A non-nil error
	// means the checker could not evaluate the text at all; partial
	// results are never returned alongside an error.
	Check(ctx context.Context, text string) ([]models.Match, error)

	// Name identifies the checker in logs and reports.
	Name() string
}
