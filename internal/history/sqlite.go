package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/medguard-interaction-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite history store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// Create schema
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		risk_tier TEXT NOT NULL,
		risk_score INTEGER NOT NULL,
		medication_count INTEGER NOT NULL,
		unresolved_count INTEGER NOT NULL DEFAULT 0,
		rule_set_version TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_risk_tier ON evaluations(risk_tier);
	CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores a completed evaluation result.
func (s *SQLiteStore) Save(ctx context.Context, result *domain.EvaluationResult) error {
	if result.ID == "" {
		return fmt.Errorf("evaluation result has no ID")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evaluations (
			id, risk_tier, risk_score, medication_count,
			unresolved_count, rule_set_version, result_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			risk_tier = excluded.risk_tier,
			risk_score = excluded.risk_score,
			medication_count = excluded.medication_count,
			unresolved_count = excluded.unresolved_count,
			rule_set_version = excluded.rule_set_version,
			result_json = excluded.result_json
	`,
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
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.EvaluationResult, error) {
	var resultJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT result_json FROM evaluations WHERE id = ?", id,
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
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, risk_tier, risk_score, medication_count,
			unresolved_count, rule_set_version, created_at
		FROM evaluations
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM evaluations").Scan(&count)
	return count, err
}

// Delete removes a stored evaluation by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM evaluations WHERE id = ?", id)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all stored evaluations to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	records, err := s.List(ctx, maxExportLimit, 0)
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
