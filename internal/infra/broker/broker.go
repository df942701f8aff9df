package broker

import (
	"context"

	"github.com/duongtq/conveyor/internal/core/domain"
)

// Source supplies records from an external system. Implementations are
// external collaborators; the runtime only polls them.
type Source interface {
	// Poll fetches the next batch of records. An empty batch means no new
	// data yet.
	Poll(ctx context.Context) ([]*domain.SourceRecord, error)

	// Close releases source resources
	Close() error
}

// Producer publishes converted records to the messaging broker.
type Producer interface {
	// Send publishes a message
	Send(ctx context.Context, msg *domain.QueueMessage) error

	// Close releases producer resources
	Close() error
}

// SourceFunc adapts a plain poll function to the Source interface.
type SourceFunc func(ctx context.Context) ([]*domain.SourceRecord, error)

func (f SourceFunc) Poll(ctx context.Context) ([]*domain.SourceRecord, error) { return f(ctx) }
func (f SourceFunc) Close() error                                             { return nil }
