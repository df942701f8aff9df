package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/duongtq/conveyor/internal/core/domain"
)

// retryBaseDelay is the backoff delay for the first retry; it doubles per
// attempt until it crosses the configured ceiling.
const retryBaseDelay = 300 * time.Millisecond

const defaultMaxDelay = 60 * time.Second

// Operation is a unit of work producing a value or failing. Implementations
// mark transient failures with Retriable to opt into the backoff loop.
type Operation[V any] func(ctx context.Context) (V, error)

// Config holds the construction parameters for an Operator.
type Config struct {
	// RetryTimeout is the total retry budget per operation, measured from the
	// first attempt. Zero disables retries (a single attempt is still made).
	RetryTimeout time.Duration
	// MaxDelay caps the exponential backoff; above it the delay is resampled
	// uniformly in [0, MaxDelay).
	MaxDelay time.Duration
	// Tolerance selects the global failure tolerance policy.
	Tolerance ToleranceType
}

// Operator runs pipeline operations with bounded retry and failure tolerance.
// One operator is constructed per logical pipeline task and lives for the
// task's duration. It is not safe for concurrent use; give each concurrent
// task its own operator.
type Operator struct {
	retryTimeout time.Duration
	maxDelay     time.Duration
	tolerance    ToleranceType

	// totalFailures is monotone over the operator's lifetime; it is never
	// reset between operations and drives the "none" policy.
	totalFailures int64

	context *ProcessingContext
	log     *slog.Logger
}

// NewOperator validates cfg and builds an operator. An unknown tolerance
// type is a configuration error.
func NewOperator(cfg Config) (*Operator, error) {
	tolerance, err := ParseToleranceType(string(cfg.Tolerance))
	if err != nil {
		return nil, err
	}
	if cfg.RetryTimeout < 0 {
		cfg.RetryTimeout = 0
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	return &Operator{
		retryTimeout: cfg.RetryTimeout,
		maxDelay:     cfg.MaxDelay,
		tolerance:    tolerance,
		context:      NewProcessingContext(),
		log:          slog.Default(),
	}, nil
}

// Reporters registers the failure sinks for this operator's context.
func (o *Operator) Reporters(reporters []Reporter) {
	o.context.Reporters(reporters)
}

// SourceRecord sets the source record being processed in the pipeline.
func (o *Operator) SourceRecord(r *domain.SourceRecord) {
	o.context.SourceRecord(r)
}

// QueueMessage sets the broker message being processed in the pipeline.
func (o *Operator) QueueMessage(m *domain.QueueMessage) {
	o.context.QueueMessage(m)
}

// Failed reports whether the current operation ended in a failed state.
func (o *Operator) Failed() bool { return o.context.Failed() }

// Error returns the last error recorded in the context, if any.
func (o *Operator) Error() error { return o.context.Error() }

// Attempts returns the attempt count of the current operation.
func (o *Operator) Attempts() int { return o.context.Attempt() }

// TotalFailures returns the number of failures recorded over the operator's
// lifetime.
func (o *Operator) TotalFailures() int64 { return o.totalFailures }

// Reset clears the per-record context state. The invoking loop calls this
// before each new record; Execute itself never clears a failed context.
func (o *Operator) Reset() { o.context.Reset() }

// Close releases reporter resources. Safe to call multiple times.
func (o *Operator) Close() error { return o.context.Close() }

// WithinToleranceLimits reports whether accumulated failures are still within
// the configured allowance.
func (o *Operator) WithinToleranceLimits() bool {
	switch o.tolerance {
	case ToleranceNone:
		return noneWithinLimits(o.totalFailures)
	case ToleranceAll:
		return allWithinLimits(o.totalFailures)
	default:
		// NewOperator rejects unknown values; reaching this is a bug.
		panic(fmt.Sprintf("unknown tolerance type: %q", o.tolerance))
	}
}

func (o *Operator) markAsFailed() { o.totalFailures++ }

// ExecuteFailed injects a failure for an operation that failed outside the
// retry path (e.g. a record rejected upstream). It records the failure,
// reports immediately, and returns a FatalError if tolerance is exceeded.
func (o *Operator) ExecuteFailed(ctx context.Context, stage Stage, executingUnit string, msg *domain.QueueMessage, cause error) error {
	o.markAsFailed()
	o.context.QueueMessage(msg)
	o.context.CurrentContext(stage, executingUnit)
	o.context.SetError(cause)
	o.context.Report(ctx)
	if !o.WithinToleranceLimits() {
		return &FatalError{Msg: "tolerance exceeded in error handler", Err: cause}
	}
	return nil
}

// Execute runs op under the operator's retry and tolerance policy.
//
// If the context is already failed, the operation is skipped and the zero
// value returned (sticky short-circuit). A tolerated failure is absorbed:
// the zero value is returned with a nil error and Failed() reports true.
// A FatalError is returned when the error falls outside the stage's
// tolerable category or when tolerance is exceeded; callers must treat it
// as terminal for the current record or task.
//
// This is a package function because methods cannot be generic.
func Execute[V any](ctx context.Context, o *Operator, op Operation[V], stage Stage, executingUnit string) (V, error) {
	var zero V
	o.context.CurrentContext(stage, executingUnit)
	if o.context.Failed() {
		o.log.Debug("Processing context already in failed state, ignoring requested operation",
			"stage", stage, "executing_unit", executingUnit)
		return zero, nil
	}

	v, err := execAndTolerate(ctx, o, op, TolerableFor(stage))
	if o.context.Failed() {
		o.context.Report(ctx)
	}
	return v, err
}

// Do runs an operation that produces no value.
func Do(ctx context.Context, o *Operator, op func(ctx context.Context) error, stage Stage, executingUnit string) error {
	_, err := Execute(ctx, o, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, stage, executingUnit)
	return err
}

// execAndTolerate runs the retry loop and classifies any terminal failure
// against the tolerated class.
func execAndTolerate[V any](ctx context.Context, o *Operator, op Operation[V], tolerated ErrorClass) (V, error) {
	var zero V

	v, err := execAndRetry(ctx, o, op)
	if err == nil {
		// Retriable exhaustion and backoff cancellation end here with the
		// error recorded in the context rather than returned.
		if o.context.Failed() {
			o.markAsFailed()
		}
		return v, nil
	}

	o.context.SetError(err)

	// Wrong-category failures are never tolerated and bypass tolerance
	// accounting entirely.
	if !tolerated.Tolerates(err) {
		return zero, &FatalError{Msg: "unhandled error in pipeline stage", Err: err}
	}

	// Tolerance is evaluated against the failures recorded before this one:
	// under the "none" policy the first failure is swallowed and every later
	// one escalates.
	withinLimits := o.WithinToleranceLimits()
	o.markAsFailed()
	if !withinLimits {
		return zero, &FatalError{Msg: "tolerance exceeded in error handler", Err: err}
	}
	return zero, nil
}

// execAndRetry attempts the operation until it succeeds, a non-retriable
// error occurs, or the retry budget elapses. Exhaustion and cancellation are
// recorded into the context and surface as a nil error with a zero value.
func execAndRetry[V any](ctx context.Context, o *Operator, op Operation[V]) (V, error) {
	var zero V
	attempt := 0
	start := time.Now()
	deadline := start.Add(o.retryTimeout)

	for {
		attempt++
		v, err := op(ctx)
		o.context.SetAttempt(attempt)
		if err == nil {
			return v, nil
		}
		if !IsRetriable(err) {
			return zero, err
		}

		o.log.Debug("Caught a retriable error",
			"stage", o.context.Stage(),
			"executing_unit", o.context.ExecutingUnit(),
			"attempt", attempt,
			"error", err,
		)

		if time.Since(start) >= o.retryTimeout {
			o.log.Debug("Retry budget exhausted",
				"stage", o.context.Stage(), "attempt", attempt)
			o.context.SetError(err)
			return zero, nil
		}
		if !o.backoff(ctx, attempt, deadline) {
			o.log.Debug("Backoff wait cancelled, marking operation as failed",
				"stage", o.context.Stage(), "attempt", attempt)
			o.context.SetError(err)
			return zero, nil
		}
	}
}

// backoff blocks for the delay of the given attempt. It returns false when
// the wait was cut short by ctx cancellation.
func (o *Operator) backoff(ctx context.Context, attempt int, deadline time.Time) bool {
	delay := backoffDelay(attempt, o.maxDelay, time.Until(deadline))
	if delay <= 0 {
		return true
	}
	o.log.Debug("Backing off before retry", "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// backoffDelay computes the wait before the next attempt: exponential
// doubling from retryBaseDelay, resampled uniformly in [0, maxDelay) once the
// exponential value crosses the ceiling, and clamped so the wait never
// extends past the retry deadline.
func backoffDelay(attempt int, maxDelay, remaining time.Duration) time.Duration {
	delay := retryBaseDelay << (attempt - 1)
	// A large attempt count overflows the shift to zero or negative; treat
	// that the same as crossing the ceiling.
	if delay <= 0 || delay > maxDelay {
		delay = time.Duration(rand.Int64N(int64(maxDelay)))
	}
	if delay > remaining {
		delay = remaining
	}
	return delay
}
