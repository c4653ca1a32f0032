// Package history provides persistence for completed evaluation results so
// past safety checks can be retrieved and audited. The evaluation engine
// itself never writes here; the API layer records results after the fact.
package history

import (
	"context"
	"io"
	"time"

	"github.com/medguard-interaction-server/internal/domain"
)

// Record is one stored evaluation. The full result is kept as JSON; the
// summary columns exist for listing and filtering without deserializing.
type Record struct {
	ID              string          `json:"id"`
	RiskTier        domain.RiskTier `json:"risk_tier"`
	RiskScore       int             `json:"risk_score"`
	MedicationCount int             `json:"medication_count"`
	UnresolvedCount int             `json:"unresolved_count"`
	RuleSetVersion  string          `json:"rule_set_version"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Store defines the interface for evaluation history storage operations.
type Store interface {
	// Save stores a completed evaluation result. Saving the same result ID
	// twice replaces the stored copy.
	Save(ctx context.Context, result *domain.EvaluationResult) error

	// Get retrieves a stored evaluation by its ID. Returns nil when no
	// evaluation with that ID exists.
	Get(ctx context.Context, id string) (*domain.EvaluationResult, error)

	// List returns evaluation summaries, newest first, with pagination.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// Count returns the total number of stored evaluations.
	Count(ctx context.Context) (int64, error)

	// Delete removes a stored evaluation by ID.
	Delete(ctx context.Context, id string) error

	// ExportJSON exports all stored evaluations to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version     string                     `json:"version"`
	ExportedAt  time.Time                  `json:"exported_at"`
	Count       int                        `json:"count"`
	Evaluations []*domain.EvaluationResult `json:"evaluations"`
}
