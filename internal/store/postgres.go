package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq" // postgres driver

	"veridoc/internal/domain"
)

// PostgresResultStore persists results in PostgreSQL, one row per external
// document ID. Retried delivery of the same ID upserts in place.
type PostgresResultStore struct {
	db *sql.DB
}

// NewPostgresResultStore wraps an open connection pool.
func NewPostgresResultStore(db *sql.DB) *PostgresResultStore {
	return &PostgresResultStore{db: db}
}

// OpenPostgres opens and pings a connection pool for the given DSN.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the results table if it does not exist yet.
func (s *PostgresResultStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS processing_results (
			external_id           TEXT PRIMARY KEY,
			owner_user_name       TEXT NOT NULL,
			original_file_name    TEXT NOT NULL,
			file_url              TEXT NOT NULL,
			document_type         TEXT NOT NULL,
			structured_data       JSONB,
			expiration_date       TEXT,
			final_decision        TEXT NOT NULL,
			observations          JSONB,
			status                TEXT NOT NULL,
			classification_method TEXT NOT NULL,
			classification_label  TEXT,
			total_cost_usd        DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresResultStore) Save(ctx context.Context, result domain.ProcessedResult) error {
	structured, err := json.Marshal(result.StructuredData)
	if err != nil {
		return fmt.Errorf("marshal structured data: %w", err)
	}
	observations, err := json.Marshal(result.Observations)
	if err != nil {
		return fmt.Errorf("marshal observations: %w", err)
	}

	query := `
		INSERT INTO processing_results (
			external_id, owner_user_name, original_file_name, file_url,
			document_type, structured_data, expiration_date, final_decision,
			observations, status, classification_method, classification_label,
			total_cost_usd, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
		ON CONFLICT (external_id) DO UPDATE SET
			owner_user_name = EXCLUDED.owner_user_name,
			original_file_name = EXCLUDED.original_file_name,
			file_url = EXCLUDED.file_url,
			document_type = EXCLUDED.document_type,
			structured_data = EXCLUDED.structured_data,
			expiration_date = EXCLUDED.expiration_date,
			final_decision = EXCLUDED.final_decision,
			observations = EXCLUDED.observations,
			status = EXCLUDED.status,
			classification_method = EXCLUDED.classification_method,
			classification_label = EXCLUDED.classification_label,
			total_cost_usd = EXCLUDED.total_cost_usd,
			updated_at = now()
	`
	_, err = s.db.ExecContext(ctx, query,
		result.ExternalID, result.Owner, result.OriginalFileName, result.FileURL,
		string(result.DocumentType), structured, result.ExpirationDate, string(result.FinalDecision),
		observations, string(result.Status), result.ClassificationMethod, result.ClassificationLabel,
		result.TotalCostUSD,
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *PostgresResultStore) FindByExternalID(ctx context.Context, externalID string) (domain.ProcessedResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT external_id, owner_user_name, original_file_name, file_url,
		       document_type, structured_data, expiration_date, final_decision,
		       observations, status, classification_method, classification_label,
		       total_cost_usd
		FROM processing_results
		WHERE external_id = $1
	`, externalID)
	result, err := scanResult(row)
	if err == sql.ErrNoRows {
		return domain.ProcessedResult{}, ErrNotFound
	}
	if err != nil {
		return domain.ProcessedResult{}, fmt.Errorf("find result: %w", err)
	}
	return result, nil
}

func (s *PostgresResultStore) ListByOwner(ctx context.Context, owner string) ([]domain.ProcessedResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT external_id, owner_user_name, original_file_name, file_url,
		       document_type, structured_data, expiration_date, final_decision,
		       observations, status, classification_method, classification_label,
		       total_cost_usd
		FROM processing_results
		WHERE owner_user_name = $1
		ORDER BY updated_at DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []domain.ProcessedResult
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, result)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (domain.ProcessedResult, error) {
	var (
		result         domain.ProcessedResult
		docType        string
		decision       string
		status         string
		structured     []byte
		observations   []byte
		expirationDate sql.NullString
		label          sql.NullString
	)
	err := row.Scan(
		&result.ExternalID, &result.Owner, &result.OriginalFileName, &result.FileURL,
		&docType, &structured, &expirationDate, &decision,
		&observations, &status, &result.ClassificationMethod, &label,
		&result.TotalCostUSD,
	)
	if err != nil {
		return domain.ProcessedResult{}, err
	}

	result.DocumentType = domain.DocumentType(docType)
	result.FinalDecision = domain.FinalDecision(decision)
	result.Status = domain.ProcessingStatus(status)
	result.ExpirationDate = expirationDate.String
	result.ClassificationLabel = label.String
	if len(structured) > 0 {
		if err := json.Unmarshal(structured, &result.StructuredData); err != nil {
			return domain.ProcessedResult{}, err
		}
	}
	if len(observations) > 0 {
		if err := json.Unmarshal(observations, &result.Observations); err != nil {
			return domain.ProcessedResult{}, err
		}
	}
	return result, nil
}
