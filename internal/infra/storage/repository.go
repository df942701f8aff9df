package storage

import (
	"context"
	"errors"

	"github.com/duongtq/conveyor/internal/core/domain"
)

var (
	// ErrDeadLetterNotFound is returned when a dead letter doesn't exist
	ErrDeadLetterNotFound = errors.New("dead letter not found")
)

// DeadLetterRepository handles dead-letter storage operations
type DeadLetterRepository interface {
	// Add stores a dead letter
	Add(ctx context.Context, dl *domain.DeadLetter) error

	// GetNext retrieves the next pending dead letter for a pipeline
	GetNext(ctx context.Context, pipeline string) (*domain.DeadLetter, error)

	// GetAll retrieves all pending dead letters for a pipeline
	GetAll(ctx context.Context, pipeline string) ([]*domain.DeadLetter, error)

	// MarkRequeued marks a dead letter as handed back to the pipeline
	MarkRequeued(ctx context.Context, id string) error

	// Purge removes a dead letter permanently
	Purge(ctx context.Context, id string) error

	// Count returns the number of pending dead letters for a pipeline
	Count(ctx context.Context, pipeline string) (int, error)
}
