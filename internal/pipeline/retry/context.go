package retry

import (
	"context"
	"io"
	"log/slog"

	"github.com/duongtq/conveyor/internal/core/domain"
)

// ProcessingContext is the mutable state of the current (most recent)
// operation attempt. It is owned by exactly one Operator and is not safe for
// concurrent use; the operator is expected to be driven by a single task
// thread at a time.
type ProcessingContext struct {
	stage         Stage
	executingUnit string
	attempt       int
	err           error
	sourceRecord  *domain.SourceRecord
	queueMessage  *domain.QueueMessage
	reporters     []Reporter
	closed        bool
}

func NewProcessingContext() *ProcessingContext {
	return &ProcessingContext{}
}

// CurrentContext records which stage and executing unit is about to run.
// It does not clear a prior failure: a failed context stays failed so that
// downstream stages on the same record short-circuit.
func (c *ProcessingContext) CurrentContext(stage Stage, executingUnit string) {
	c.stage = stage
	c.executingUnit = executingUnit
}

func (c *ProcessingContext) Stage() Stage           { return c.stage }
func (c *ProcessingContext) ExecutingUnit() string  { return c.executingUnit }
func (c *ProcessingContext) Attempt() int           { return c.attempt }
func (c *ProcessingContext) SetAttempt(attempt int) { c.attempt = attempt }

// SetError records the error of the current operation, marking the context
// as failed.
func (c *ProcessingContext) SetError(err error) { c.err = err }

func (c *ProcessingContext) Error() error { return c.err }

// Failed reports whether the current operation has failed. The flag is
// derived from the recorded error, so failed always implies a non-nil error.
func (c *ProcessingContext) Failed() bool { return c.err != nil }

func (c *ProcessingContext) SourceRecord(r *domain.SourceRecord) { c.sourceRecord = r }
func (c *ProcessingContext) QueueMessage(m *domain.QueueMessage) { c.queueMessage = m }

// Reporters registers the failure sinks for this context. Called once per
// operator lifetime, before any execution.
func (c *ProcessingContext) Reporters(reporters []Reporter) {
	c.reporters = reporters
}

// Reset clears the per-record state (stage, unit, attempt, error, records)
// ahead of a new record. Reporters survive resets.
func (c *ProcessingContext) Reset() {
	c.stage = ""
	c.executingUnit = ""
	c.attempt = 0
	c.err = nil
	c.sourceRecord = nil
	c.queueMessage = nil
}

// Report notifies every registered reporter with a snapshot of the current
// state. Delivery is best effort: a reporter error is logged and delivery
// continues with the next reporter.
func (c *ProcessingContext) Report(ctx context.Context) {
	if len(c.reporters) == 0 {
		return
	}
	snapshot := Report{
		Stage:         c.stage,
		ExecutingUnit: c.executingUnit,
		Error:         c.err,
		Attempt:       c.attempt,
		SourceRecord:  c.sourceRecord,
		QueueMessage:  c.queueMessage,
	}
	for _, r := range c.reporters {
		if err := r.Report(ctx, snapshot); err != nil {
			slog.Warn("Failure reporter returned an error",
				"stage", c.stage,
				"executing_unit", c.executingUnit,
				"error", err,
			)
		}
	}
}

// Close releases resources held by reporters (e.g. flushing a dead-letter
// sink). Safe to call multiple times.
func (c *ProcessingContext) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var firstErr error
	for _, r := range c.reporters {
		closer, ok := r.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
