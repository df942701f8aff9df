package broker

import (
	"context"
	"sync"

	"github.com/duongtq/conveyor/internal/core/domain"
)

// MemoryQueue is an in-process broker used for local mode and tests. It
// implements Producer on the publish side and exposes the stored messages
// for inspection or draining.
type MemoryQueue struct {
	messages []*domain.QueueMessage
	closed   bool
	mu       sync.Mutex
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

// Send appends the message to the queue.
func (q *MemoryQueue) Send(ctx context.Context, msg *domain.QueueMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.messages = append(q.messages, msg)
	return nil
}

// Messages returns a snapshot of everything published so far.
func (q *MemoryQueue) Messages() []*domain.QueueMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*domain.QueueMessage, len(q.messages))
	copy(out, q.messages)
	return out
}

// Len returns the number of published messages.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Close marks the queue closed; further sends fail.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// SliceSource drains a preloaded batch of records, one batch per poll.
type SliceSource struct {
	batches [][]*domain.SourceRecord
	mu      sync.Mutex
}

func NewSliceSource(batches ...[]*domain.SourceRecord) *SliceSource {
	return &SliceSource{batches: batches}
}

// Poll returns the next preloaded batch, or an empty batch when drained.
func (s *SliceSource) Poll(ctx context.Context) ([]*domain.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func (s *SliceSource) Close() error { return nil }
