package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Verification statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when a verification id is unknown.
var ErrNotFound = errors.New("verification not found")

// Verification is one persisted claim-verification request.
type Verification struct {
	ID          string
	Claim       string
	Status      string
	Decision    string
	Confidence  int
	Reason      string
	Result      json.RawMessage
	Error       string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// PostgresStore persists verifications in Postgres.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and ensures the schema exists.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	query := `
        CREATE TABLE IF NOT EXISTS verifications (
            id           UUID PRIMARY KEY,
            claim        TEXT NOT NULL,
            status       TEXT NOT NULL DEFAULT 'pending',
            decision     TEXT,
            confidence   INT,
            reason       TEXT,
            result       JSONB,
            error        TEXT,
            created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            completed_at TIMESTAMPTZ
        );
        CREATE INDEX IF NOT EXISTS idx_verifications_status ON verifications (status, created_at);
    `
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// CreateVerification inserts a new pending verification.
func (s *PostgresStore) CreateVerification(ctx context.Context, id, claim string) error {
	log.Printf("[Store.CreateVerification] Inserting verification %s", id)
	query := `INSERT INTO verifications (id, claim) VALUES ($1, $2)`
	if _, err := s.db.Exec(ctx, query, id, claim); err != nil {
		return fmt.Errorf("failed to insert verification: %w", err)
	}
	return nil
}

// ClaimPending atomically marks the oldest pending verification as running
// and returns it, or ErrNotFound when the queue is empty.
func (s *PostgresStore) ClaimPending(ctx context.Context) (*Verification, error) {
	query := `
        UPDATE verifications SET status = $1
        WHERE id = (
            SELECT id FROM verifications
            WHERE status = $2
            ORDER BY created_at
            FOR UPDATE SKIP LOCKED
            LIMIT 1
        )
        RETURNING id, claim, status, created_at;
    `
	var v Verification
	err := s.db.QueryRow(ctx, query, StatusRunning, StatusPending).
		Scan(&v.ID, &v.Claim, &v.Status, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending verification: %w", err)
	}
	return &v, nil
}

// CompleteVerification records a finished verification.
func (s *PostgresStore) CompleteVerification(ctx context.Context, id, decision string, confidence int, reason string, result any) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	query := `
        UPDATE verifications
        SET status = $2, decision = $3, confidence = $4, reason = $5, result = $6, completed_at = NOW()
        WHERE id = $1;
    `
	tag, err := s.db.Exec(ctx, query, id, StatusCompleted, decision, confidence, reason, resultJSON)
	if err != nil {
		return fmt.Errorf("failed to complete verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	log.Printf("[Store.CompleteVerification] Verification %s completed: %s (confidence %d)", id, decision, confidence)
	return nil
}

// FailVerification records a failed verification.
func (s *PostgresStore) FailVerification(ctx context.Context, id, errMsg string) error {
	query := `
        UPDATE verifications
        SET status = $2, error = $3, completed_at = NOW()
        WHERE id = $1;
    `
	tag, err := s.db.Exec(ctx, query, id, StatusFailed, errMsg)
	if err != nil {
		return fmt.Errorf("failed to record verification failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetVerification fetches one verification by id.
func (s *PostgresStore) GetVerification(ctx context.Context, id string) (*Verification, error) {
	query := `
        SELECT id, claim, status, COALESCE(decision, ''), COALESCE(confidence, 0),
               COALESCE(reason, ''), result, COALESCE(error, ''), created_at, completed_at
        FROM verifications WHERE id = $1;
    `
	var v Verification
	err := s.db.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.Claim, &v.Status, &v.Decision, &v.Confidence,
		&v.Reason, &v.Result, &v.Error, &v.CreatedAt, &v.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}
	return &v, nil
}

// CountPending returns the number of queued verifications.
func (s *PostgresStore) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM verifications WHERE status = $1`, StatusPending).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending verifications: %w", err)
	}
	return n, nil
}
