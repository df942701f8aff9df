package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/duongtq/conveyor/internal/core/domain"
	"github.com/duongtq/conveyor/internal/infra/storage"
)

// DeadLetterRepo is an in-memory DeadLetterRepository used when no database
// is configured and in tests.
type DeadLetterRepo struct {
	letters map[string]*domain.DeadLetter
	mu      sync.RWMutex
}

func NewDeadLetterRepo() *DeadLetterRepo {
	return &DeadLetterRepo{
		letters: make(map[string]*domain.DeadLetter),
	}
}

func (r *DeadLetterRepo) Add(ctx context.Context, dl *domain.DeadLetter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *dl
	if stored.Status == "" {
		stored.Status = domain.DeadLetterStatusPending
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.letters[stored.ID] = &stored
	return nil
}

func (r *DeadLetterRepo) GetNext(ctx context.Context, pipeline string) (*domain.DeadLetter, error) {
	pending, err := r.GetAll(ctx, pipeline)
	if err != nil || len(pending) == 0 {
		return nil, err
	}
	return pending[0], nil
}

func (r *DeadLetterRepo) GetAll(ctx context.Context, pipeline string) ([]*domain.DeadLetter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.DeadLetter
	for _, dl := range r.letters {
		if dl.Pipeline != pipeline || dl.Status != domain.DeadLetterStatusPending {
			continue
		}
		copied := *dl
		out = append(out, &copied)
	}
	// Lowest retry count first, then oldest; mirrors the retry-first ordering
	// of the redis queue.
	sort.Slice(out, func(i, j int) bool {
		if out[i].RetryCount != out[j].RetryCount {
			return out[i].RetryCount < out[j].RetryCount
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *DeadLetterRepo) MarkRequeued(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dl, ok := r.letters[id]
	if !ok {
		return storage.ErrDeadLetterNotFound
	}
	dl.Status = domain.DeadLetterStatusRequeued
	dl.RetryCount++
	dl.LastAttempt = time.Now()
	return nil
}

func (r *DeadLetterRepo) Purge(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.letters[id]; !ok {
		return storage.ErrDeadLetterNotFound
	}
	delete(r.letters, id)
	return nil
}

func (r *DeadLetterRepo) Count(ctx context.Context, pipeline string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, dl := range r.letters {
		if dl.Pipeline == pipeline && dl.Status == domain.DeadLetterStatusPending {
			count++
		}
	}
	return count, nil
}
