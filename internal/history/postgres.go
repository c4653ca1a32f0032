package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/medguard-interaction-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL history store over an existing
// connection. The schema is created if it does not exist.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createPostgresSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL history store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// createPostgresSchema creates the evaluations table and indexes.
func createPostgresSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		risk_tier TEXT NOT NULL,
		risk_score INTEGER NOT NULL,
		medication_count INTEGER NOT NULL,
		unresolved_count INTEGER NOT NULL DEFAULT 0,
		rule_set_version TEXT NOT NULL,
		result_json JSONB NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_risk_tier ON evaluations(risk_tier);
	CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores a completed evaluation result.
func (s *PostgresStore) Save(ctx context.Context, result *domain.EvaluationResult) error {
	if result.ID == "" {
		return fmt.Errorf("evaluation result has no ID")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	query := `
		INSERT INTO evaluations (
			id, risk_tier, risk_score, medication_count,
			unresolved_count, rule_set_version, result_json, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			risk_tier = EXCLUDED.risk_tier,
			risk_score = EXCLUDED.risk_score,
			medication_count = EXCLUDED.medication_count,
			unresolved_count = EXCLUDED.unresolved_count,
			rule_set_version = EXCLUDED.rule_set_version,
			result_json = EXCLUDED.result_json
	`

	_, err = s.db.ExecContext(ctx, query,
		result.ID,
		result.OverallRisk.String(),
		result.OverallRiskScore,
		len(result.Medications),
		result.UnresolvedCount(),
		result.RuleSetVersion,
		string(resultJSON),
		result.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}

	return nil
}

// Get retrieves a stored evaluation by its ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.EvaluationResult, error) {
	var resultJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT result_json FROM evaluations WHERE id = $1", id,
	).Scan(&resultJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	result := &domain.EvaluationResult{}
	if err := json.Unmarshal([]byte(resultJSON), result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored evaluation: %w", err)
	}
	return result, nil
}

// List returns evaluation summaries, newest first, with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	query := `
		SELECT id, risk_tier, risk_score, medication_count,
			unresolved_count, rule_set_version, created_at
		FROM evaluations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		record := &Record{}
		var tier string
		err := rows.Scan(
			&record.ID, &tier, &record.RiskScore, &record.MedicationCount,
			&record.UnresolvedCount, &record.RuleSetVersion, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		record.RiskTier = domain.RiskTier(tier)
		result = append(result, record)
	}

	return result, rows.Err()
}

// Count returns the total number of stored evaluations.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM evaluations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}
	return count, nil
}

// Delete removes a stored evaluation by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM evaluations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete evaluation: %w", err)
	}
	return nil
}

// pgMaxExportLimit is the maximum number of entries to export at once.
const pgMaxExportLimit = 1000000

// ExportJSON exports all stored evaluations to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	records, err := s.List(ctx, pgMaxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list evaluations: %w", err)
	}

	evaluations := make([]*domain.EvaluationResult, 0, len(records))
	for _, record := range records {
		result, err := s.Get(ctx, record.ID)
		if err != nil {
			return fmt.Errorf("failed to load evaluation %s: %w", record.ID, err)
		}
		if result != nil {
			evaluations = append(evaluations, result)
		}
	}

	export := &Export{
		Version:     "1.0",
		ExportedAt:  time.Now(),
		Count:       len(evaluations),
		Evaluations: evaluations,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
