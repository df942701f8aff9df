package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/duongtq/conveyor/internal/core/domain"
	"github.com/duongtq/conveyor/internal/infra/storage"
)

// DeadLetterRepo implements storage.DeadLetterRepository using PostgreSQL.
type DeadLetterRepo struct {
	db *DB
}

// NewDeadLetterRepo creates a new PostgreSQL dead-letter repository.
func NewDeadLetterRepo(db *DB) *DeadLetterRepo {
	return &DeadLetterRepo{db: db}
}

type deadLetterRow struct {
	ID            string    `db:"id"`
	Pipeline      string    `db:"pipeline"`
	Stage         string    `db:"stage"`
	ExecutingUnit string    `db:"executing_unit"`
	ErrorMsg      string    `db:"error_msg"`
	Attempts      int       `db:"attempts"`
	RecordKey     string    `db:"record_key"`
	Payload       []byte    `db:"payload"`
	Status        string    `db:"status"`
	RetryCount    int       `db:"retry_count"`
	LastAttempt   time.Time `db:"last_attempt"`
	CreatedAt     time.Time `db:"created_at"`
}

func (row *deadLetterRow) toDomain() *domain.DeadLetter {
	return &domain.DeadLetter{
		ID:            row.ID,
		Pipeline:      row.Pipeline,
		Stage:         row.Stage,
		ExecutingUnit: row.ExecutingUnit,
		Error:         row.ErrorMsg,
		Attempts:      row.Attempts,
		RecordKey:     row.RecordKey,
		Payload:       row.Payload,
		Status:        domain.DeadLetterStatus(row.Status),
		RetryCount:    row.RetryCount,
		LastAttempt:   row.LastAttempt,
		CreatedAt:     row.CreatedAt,
	}
}

// Add stores a dead letter.
func (r *DeadLetterRepo) Add(ctx context.Context, dl *domain.DeadLetter) error {
	query := `
		INSERT INTO dead_letters (id, pipeline, stage, executing_unit, error_msg, attempts, record_key, payload, status, retry_count, last_attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`
	status := string(dl.Status)
	if status == "" {
		status = string(domain.DeadLetterStatusPending)
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		dl.ID,
		dl.Pipeline,
		dl.Stage,
		dl.ExecutingUnit,
		dl.Error,
		dl.Attempts,
		dl.RecordKey,
		dl.Payload,
		status,
		dl.RetryCount,
	)
	if err != nil {
		return fmt.Errorf("failed to add dead letter: %w", err)
	}
	return nil
}

// GetNext returns the next pending dead letter for a pipeline, preferring
// the least-retried, oldest entry.
func (r *DeadLetterRepo) GetNext(ctx context.Context, pipeline string) (*domain.DeadLetter, error) {
	query := `
		SELECT id, pipeline, stage, executing_unit, error_msg, attempts, record_key, payload, status, retry_count, last_attempt, created_at
		FROM dead_letters
		WHERE pipeline = $1 AND status = 'pending'
		ORDER BY retry_count ASC, created_at ASC
		LIMIT 1
	`

	var row deadLetterRow
	err := r.db.GetContext(ctx, &row, query, pipeline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // No pending dead letters
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter: %w", err)
	}
	return row.toDomain(), nil
}

// GetAll returns all pending dead letters for a pipeline.
func (r *DeadLetterRepo) GetAll(ctx context.Context, pipeline string) ([]*domain.DeadLetter, error) {
	query := `
		SELECT id, pipeline, stage, executing_unit, error_msg, attempts, record_key, payload, status, retry_count, last_attempt, created_at
		FROM dead_letters
		WHERE pipeline = $1 AND status = 'pending'
		ORDER BY retry_count ASC, created_at ASC
	`

	var rows []deadLetterRow
	if err := r.db.SelectContext(ctx, &rows, query, pipeline); err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}

	out := make([]*domain.DeadLetter, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// MarkRequeued marks a dead letter as handed back to the pipeline.
func (r *DeadLetterRepo) MarkRequeued(ctx context.Context, id string) error {
	query := `
		UPDATE dead_letters
		SET status = 'requeued', retry_count = retry_count + 1, last_attempt = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to requeue dead letter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrDeadLetterNotFound
	}
	return nil
}

// Purge removes a dead letter permanently.
func (r *DeadLetterRepo) Purge(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dead_letters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to purge dead letter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrDeadLetterNotFound
	}
	return nil
}

// Count returns the number of pending dead letters for a pipeline.
func (r *DeadLetterRepo) Count(ctx context.Context, pipeline string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM dead_letters WHERE pipeline = $1 AND status = 'pending'`, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to count dead letters: %w", err)
	}
	return count, nil
}
