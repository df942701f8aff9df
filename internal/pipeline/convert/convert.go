package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/duongtq/conveyor/internal/core/domain"
)

// Converter turns a polled source record into a broker message. A conversion
// error is record-local; the retry engine tolerates it at the converter stage
// rather than failing the pipeline.
type Converter interface {
	// Name identifies the converter in failure reports
	Name() string

	// Convert builds the broker message for the record
	Convert(ctx context.Context, record *domain.SourceRecord) (*domain.QueueMessage, error)
}

// JSONConverter validates the payload as JSON and wraps it unchanged.
type JSONConverter struct {
	topic string
}

func NewJSONConverter(topic string) *JSONConverter {
	return &JSONConverter{topic: topic}
}

func (c *JSONConverter) Name() string { return "json_converter" }

func (c *JSONConverter) Convert(ctx context.Context, record *domain.SourceRecord) (*domain.QueueMessage, error) {
	if !json.Valid(record.Payload) {
		return nil, fmt.Errorf("record %q payload is not valid JSON", record.Key)
	}

	headers := make(map[string]string, len(record.Headers))
	for k, v := range record.Headers {
		headers[k] = v
	}

	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return &domain.QueueMessage{
		Topic:     c.topic,
		Key:       record.Key,
		Body:      record.Payload,
		Headers:   headers,
		Timestamp: ts,
	}, nil
}
