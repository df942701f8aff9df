package reporter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/duongtq/conveyor/internal/core/domain"
	"github.com/duongtq/conveyor/internal/infra/storage"
	"github.com/duongtq/conveyor/internal/pipeline/metrics"
	"github.com/duongtq/conveyor/internal/pipeline/retry"
)

// DeadLetterReporter persists failure reports as dead letters for later
// inspection or requeueing.
type DeadLetterReporter struct {
	pipeline string
	repo     storage.DeadLetterRepository
}

func NewDeadLetterReporter(pipeline string, repo storage.DeadLetterRepository) *DeadLetterReporter {
	return &DeadLetterReporter{
		pipeline: pipeline,
		repo:     repo,
	}
}

func (r *DeadLetterReporter) Report(ctx context.Context, report retry.Report) error {
	dl := &domain.DeadLetter{
		ID:            uuid.NewString(),
		Pipeline:      r.pipeline,
		Stage:         string(report.Stage),
		ExecutingUnit: report.ExecutingUnit,
		Attempts:      report.Attempt,
		Status:        domain.DeadLetterStatusPending,
		LastAttempt:   time.Now(),
		CreatedAt:     time.Now(),
	}
	if report.Error != nil {
		dl.Error = report.Error.Error()
	}
	if report.SourceRecord != nil {
		dl.RecordKey = report.SourceRecord.Key
		dl.Payload = report.SourceRecord.Payload
	} else if report.QueueMessage != nil {
		dl.RecordKey = report.QueueMessage.Key
		dl.Payload = report.QueueMessage.Body
	}

	if err := r.repo.Add(ctx, dl); err != nil {
		return fmt.Errorf("failed to store dead letter: %w", err)
	}
	metrics.DeadLetters.WithLabelValues(r.pipeline).Inc()
	return nil
}
