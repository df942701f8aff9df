package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/duongtq/conveyor/internal/core/domain"
	"github.com/duongtq/conveyor/internal/infra/broker"
	"github.com/duongtq/conveyor/internal/pipeline/convert"
	"github.com/duongtq/conveyor/internal/pipeline/metrics"
	"github.com/duongtq/conveyor/internal/pipeline/retry"
	"github.com/duongtq/conveyor/internal/pipeline/transform"
)

// ErrEmptyPayload marks records the source delivered without a payload;
// they are rejected before entering the stage pipeline.
var ErrEmptyPayload = errors.New("record has an empty payload")

// Config holds the wiring for one pipeline task.
type Config struct {
	Name         string
	PollInterval time.Duration
	Source       broker.Source
	Producer     broker.Producer
	Converter    convert.Converter
	Transforms   []transform.Transform
	Operator     *retry.Operator
}

// Worker runs one pipeline task: poll records from the source, run them
// through the transform chain and converter, and publish to the broker.
// Every stage executes through the retry operator, which decides whether a
// failure is retried, tolerated (record dropped and reported), or fatal
// (task stopped).
type Worker struct {
	cfg     Config
	running atomic.Bool
	stop    chan struct{}
	log     *slog.Logger
}

// Status is a snapshot of the task state for health reporting.
type Status struct {
	Name          string
	Running       bool
	TotalFailures int64
}

func New(cfg Config) *Worker {
	return &Worker{
		cfg:  cfg,
		stop: make(chan struct{}),
		log:  slog.Default().With("pipeline", cfg.Name),
	}
}

// Start begins the polling loop. It blocks until the context is cancelled,
// Stop is called, or a fatal error stops the task.
func (w *Worker) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return fmt.Errorf("worker already running")
	}
	defer w.running.Store(false)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stop:
			return nil
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				metrics.FatalErrors.WithLabelValues(w.cfg.Name).Inc()
				w.log.Error("Fatal pipeline error, stopping task", "error", err)
				return err
			}
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() error {
	if w.running.Load() {
		close(w.stop)
	}
	return nil
}

// GetStatus returns the current task status.
func (w *Worker) GetStatus() Status {
	return Status{
		Name:          w.cfg.Name,
		Running:       w.running.Load(),
		TotalFailures: w.cfg.Operator.TotalFailures(),
	}
}

// processBatch polls once and pipes each record through the stages.
func (w *Worker) processBatch(ctx context.Context) error {
	op := w.cfg.Operator
	op.Reset()

	records, err := retry.Execute(ctx, op, func(ctx context.Context) ([]*domain.SourceRecord, error) {
		recs, err := w.cfg.Source.Poll(ctx)
		if err != nil {
			// Poll failures are transient by contract; the source has no
			// record-local failure mode.
			return nil, retry.Retriable(err)
		}
		return recs, nil
	}, retry.StageTaskPoll, "source")
	if err != nil {
		return err
	}
	if op.Failed() {
		w.recordFailure(retry.StageTaskPoll)
		return nil
	}

	for _, rec := range records {
		if err := w.processRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// processRecord runs one record through transforms, conversion, and publish.
// A tolerated stage failure drops the record (it has already been reported);
// a returned error is fatal for the task.
func (w *Worker) processRecord(ctx context.Context, rec *domain.SourceRecord) error {
	start := time.Now()
	op := w.cfg.Operator
	op.Reset()
	op.SourceRecord(rec)

	// Records the source rejected never enter the stage pipeline; they go
	// straight through the explicit-failure path.
	if len(rec.Payload) == 0 {
		if err := op.ExecuteFailed(ctx, retry.StageTaskPoll, "source", nil, ErrEmptyPayload); err != nil {
			return err
		}
		w.recordFailure(retry.StageTaskPoll)
		return nil
	}

	current := rec
	for _, t := range w.cfg.Transforms {
		in := current
		out, err := retry.Execute(ctx, op, func(ctx context.Context) (*domain.SourceRecord, error) {
			return t.Apply(ctx, in)
		}, retry.StageTransformation, t.Name())
		if err != nil {
			return err
		}
		if op.Failed() {
			w.recordFailure(retry.StageTransformation)
			return nil
		}
		if out == nil {
			// Transform filtered the record out; not a failure.
			return nil
		}
		current = out
	}

	msg, err := retry.Execute(ctx, op, func(ctx context.Context) (*domain.QueueMessage, error) {
		return w.cfg.Converter.Convert(ctx, current)
	}, retry.StageConverter, w.cfg.Converter.Name())
	if err != nil {
		return err
	}
	if op.Failed() {
		w.recordFailure(retry.StageConverter)
		return nil
	}
	op.QueueMessage(msg)

	err = retry.Do(ctx, op, func(ctx context.Context) error {
		if err := w.cfg.Producer.Send(ctx, msg); err != nil {
			return retry.Retriable(err)
		}
		return nil
	}, retry.StageTaskPut, "producer")
	if err != nil {
		return err
	}
	if op.Failed() {
		w.recordFailure(retry.StageTaskPut)
		return nil
	}

	metrics.RecordsProcessed.WithLabelValues(w.cfg.Name).Inc()
	metrics.ProcessingLatency.WithLabelValues(w.cfg.Name).Observe(time.Since(start).Seconds())
	return nil
}

func (w *Worker) recordFailure(stage retry.Stage) {
	op := w.cfg.Operator
	metrics.RecordsDropped.WithLabelValues(w.cfg.Name, string(stage)).Inc()
	metrics.OperationFailures.WithLabelValues(w.cfg.Name, string(stage)).Inc()
	if extra := op.Attempts() - 1; extra > 0 {
		metrics.RetryAttempts.WithLabelValues(w.cfg.Name, string(stage)).Add(float64(extra))
	}
}
