package reporter

import (
	"context"
	"log/slog"

	"github.com/duongtq/conveyor/internal/pipeline/retry"
)

// LogReporter writes failure reports to the structured log.
type LogReporter struct {
	pipeline string
	log      *slog.Logger
}

func NewLogReporter(pipeline string) *LogReporter {
	return &LogReporter{
		pipeline: pipeline,
		log:      slog.Default(),
	}
}

func (r *LogReporter) Report(ctx context.Context, report retry.Report) error {
	attrs := []any{
		"pipeline", r.pipeline,
		"stage", report.Stage,
		"executing_unit", report.ExecutingUnit,
		"attempts", report.Attempt,
		"error", report.Error,
	}
	if report.SourceRecord != nil {
		attrs = append(attrs, "record_key", report.SourceRecord.Key)
	}
	if report.QueueMessage != nil {
		attrs = append(attrs, "topic", report.QueueMessage.Topic)
	}
	r.log.Error("Record processing failed", attrs...)
	return nil
}
