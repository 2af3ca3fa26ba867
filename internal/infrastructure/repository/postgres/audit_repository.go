package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/caselight/retrieval/internal/core/domain"
)

// AuditRepository persists retrieval audit records consumed by the worker.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS retrieval_audit (
	id TEXT PRIMARY KEY,
	family TEXT NOT NULL,
	mode TEXT NOT NULL,
	query_chars INT NOT NULL DEFAULT 0,
	criteria_count INT NOT NULL DEFAULT 0,
	result_limit INT NOT NULL DEFAULT 0,
	context_window INT NOT NULL DEFAULT 0,
	result_count INT NOT NULL DEFAULT 0,
	candidate_count INT NOT NULL DEFAULT 0,
	duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_retrieval_audit_family ON retrieval_audit(family);
CREATE INDEX IF NOT EXISTS idx_retrieval_audit_created_at ON retrieval_audit(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AuditRepository) Insert(ctx context.Context, record domain.AuditRecord) error {
	if record.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "insert audit record",
			fmt.Errorf("record id is required"))
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO retrieval_audit (
	id, family, mode, query_chars, criteria_count, result_limit, context_window, result_count, candidate_count, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO NOTHING
`,
		record.ID, record.Family, string(record.Mode), record.QueryChars, record.CriteriaCount,
		record.Limit, record.ContextWindow, record.ResultCount, record.CandidateCount,
		record.DurationMS, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (r *AuditRepository) CountSince(ctx context.Context, family string, sinceHours int) (int, error) {
	if sinceHours <= 0 {
		sinceHours = 24
	}
	since := time.Now().UTC().Add(-time.Duration(sinceHours) * time.Hour)

	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM retrieval_audit
WHERE family = $1 AND created_at >= $2
`, family, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audit records: %w", err)
	}
	return count, nil
}
