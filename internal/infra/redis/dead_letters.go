package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duongtq/conveyor/internal/core/domain"
	"github.com/duongtq/conveyor/internal/infra/storage"
)

// deadLetterTTL bounds how long an unprocessed dead letter survives in Redis.
const deadLetterTTL = 24 * time.Hour

// DeadLetterRepo implements storage.DeadLetterRepository using Redis. Entries
// live under per-letter keys with a TTL; a sorted set per pipeline orders them
// by retry count so the least-retried entry is requeued first.
type DeadLetterRepo struct {
	rdb *redis.Client
}

// NewDeadLetterRepo creates a new Redis-backed dead-letter repository.
func NewDeadLetterRepo(client *Client) *DeadLetterRepo {
	return &DeadLetterRepo{rdb: client.rdb}
}

// Key helpers
func (r *DeadLetterRepo) queueKey(pipeline string) string {
	return fmt.Sprintf("dead_letters:%s", pipeline)
}

func (r *DeadLetterRepo) letterKey(pipeline, id string) string {
	return fmt.Sprintf("dead_letter:%s:%s", pipeline, id)
}

// Add stores a dead letter and enqueues it for requeueing.
func (r *DeadLetterRepo) Add(ctx context.Context, dl *domain.DeadLetter) error {
	stored := *dl
	if stored.Status == "" {
		stored.Status = domain.DeadLetterStatusPending
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	if err := r.rdb.Set(ctx, r.letterKey(stored.Pipeline, stored.ID), data, deadLetterTTL).Err(); err != nil {
		return fmt.Errorf("failed to set dead letter: %w", err)
	}

	// Score = retry count, lower retried first
	if err := r.rdb.ZAdd(ctx, r.queueKey(stored.Pipeline), redis.Z{
		Score:  float64(stored.RetryCount),
		Member: stored.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	return nil
}

// GetNext retrieves the next dead letter to requeue.
func (r *DeadLetterRepo) GetNext(ctx context.Context, pipeline string) (*domain.DeadLetter, error) {
	ids, err := r.rdb.ZRange(ctx, r.queueKey(pipeline), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	dl, err := r.get(ctx, pipeline, ids[0])
	if err != nil {
		return nil, err
	}
	if dl == nil {
		// Data expired but ID still in queue, remove it
		r.rdb.ZRem(ctx, r.queueKey(pipeline), ids[0])
	}
	return dl, nil
}

// GetAll retrieves all pending dead letters for a pipeline.
func (r *DeadLetterRepo) GetAll(ctx context.Context, pipeline string) ([]*domain.DeadLetter, error) {
	ids, err := r.rdb.ZRange(ctx, r.queueKey(pipeline), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	letters := make([]*domain.DeadLetter, 0, len(ids))
	for _, id := range ids {
		dl, err := r.get(ctx, pipeline, id)
		if err != nil {
			return nil, err
		}
		if dl == nil {
			continue
		}
		letters = append(letters, dl)
	}
	return letters, nil
}

// MarkRequeued increments the retry count and drops the entry from the queue.
func (r *DeadLetterRepo) MarkRequeued(ctx context.Context, id string) error {
	pipeline, dl, err := r.find(ctx, id)
	if err != nil {
		return err
	}
	if dl == nil {
		return storage.ErrDeadLetterNotFound
	}

	dl.Status = domain.DeadLetterStatusRequeued
	dl.RetryCount++
	dl.LastAttempt = time.Now()

	data, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}
	if err := r.rdb.Set(ctx, r.letterKey(pipeline, id), data, deadLetterTTL).Err(); err != nil {
		return fmt.Errorf("failed to set dead letter: %w", err)
	}
	if err := r.rdb.ZRem(ctx, r.queueKey(pipeline), id).Err(); err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	return nil
}

// Purge removes a dead letter permanently.
func (r *DeadLetterRepo) Purge(ctx context.Context, id string) error {
	pipeline, dl, err := r.find(ctx, id)
	if err != nil {
		return err
	}
	if dl == nil {
		return storage.ErrDeadLetterNotFound
	}

	if err := r.rdb.ZRem(ctx, r.queueKey(pipeline), id).Err(); err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	if err := r.rdb.Del(ctx, r.letterKey(pipeline, id)).Err(); err != nil {
		return fmt.Errorf("failed to delete dead letter: %w", err)
	}
	return nil
}

// Count returns the number of queued dead letters for a pipeline.
func (r *DeadLetterRepo) Count(ctx context.Context, pipeline string) (int, error) {
	count, err := r.rdb.ZCard(ctx, r.queueKey(pipeline)).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}

func (r *DeadLetterRepo) get(ctx context.Context, pipeline, id string) (*domain.DeadLetter, error) {
	data, err := r.rdb.Get(ctx, r.letterKey(pipeline, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter: %w", err)
	}

	var dl domain.DeadLetter
	if err := json.Unmarshal(data, &dl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dead letter: %w", err)
	}
	return &dl, nil
}

// find scans for a letter key when the caller only knows the id. Admin
// commands operate across pipelines, so the pipeline name is recovered from
// the key itself.
func (r *DeadLetterRepo) find(ctx context.Context, id string) (string, *domain.DeadLetter, error) {
	pattern := fmt.Sprintf("dead_letter:*:%s", id)
	keys, err := r.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return "", nil, fmt.Errorf("keys scan failed: %w", err)
	}
	if len(keys) == 0 {
		return "", nil, nil
	}

	data, err := r.rdb.Get(ctx, keys[0]).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to get dead letter: %w", err)
	}

	var dl domain.DeadLetter
	if err := json.Unmarshal(data, &dl); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal dead letter: %w", err)
	}
	return dl.Pipeline, &dl, nil
}
