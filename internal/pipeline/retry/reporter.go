package retry

import (
	"context"

	"github.com/duongtq/conveyor/internal/core/domain"
)

// Report is an immutable snapshot of the processing context handed to
// reporters when an operation ends in a failed state.
type Report struct {
	Stage         Stage
	ExecutingUnit string
	Error         error
	Attempt       int
	SourceRecord  *domain.SourceRecord
	QueueMessage  *domain.QueueMessage
}

// Reporter receives failure reports for observability or dead-letter
// handling. Reporters are invoked in registration order; a failing reporter
// does not stop delivery to the next one.
type Reporter interface {
	Report(ctx context.Context, r Report) error
}
