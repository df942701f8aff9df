package transform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/duongtq/conveyor/internal/core/domain"
)

// Transform mutates a record between poll and conversion. Transforms run in
// configuration order; each receives the previous transform's output.
type Transform interface {
	// Name identifies the transform in failure reports
	Name() string

	// Apply returns the transformed record. Returning nil drops the record.
	Apply(ctx context.Context, record *domain.SourceRecord) (*domain.SourceRecord, error)
}

// Config describes one transform in the pipeline configuration.
type Config struct {
	Type  string `yaml:"type"`
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Build constructs the transform chain from configuration.
func Build(configs []Config) ([]Transform, error) {
	out := make([]Transform, 0, len(configs))
	for _, cfg := range configs {
		switch cfg.Type {
		case "add_header":
			if cfg.Key == "" {
				return nil, fmt.Errorf("add_header transform requires a key")
			}
			out = append(out, &AddHeader{Key: cfg.Key, Value: cfg.Value})
		case "mask_field":
			if cfg.Key == "" {
				return nil, fmt.Errorf("mask_field transform requires a key")
			}
			out = append(out, &MaskField{Field: cfg.Key})
		default:
			return nil, fmt.Errorf("unknown transform type: %q", cfg.Type)
		}
	}
	return out, nil
}

// AddHeader sets a fixed header on every record.
type AddHeader struct {
	Key   string
	Value string
}

func (t *AddHeader) Name() string { return "add_header" }

func (t *AddHeader) Apply(ctx context.Context, record *domain.SourceRecord) (*domain.SourceRecord, error) {
	out := record.Clone()
	if out.Headers == nil {
		out.Headers = make(map[string]string, 1)
	}
	out.Headers[t.Key] = t.Value
	return out, nil
}

// MaskField replaces a top-level JSON field's value with a placeholder.
type MaskField struct {
	Field string
}

func (t *MaskField) Name() string { return "mask_field" }

func (t *MaskField) Apply(ctx context.Context, record *domain.SourceRecord) (*domain.SourceRecord, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return nil, fmt.Errorf("record %q is not a JSON object: %w", record.Key, err)
	}

	if _, ok := payload[t.Field]; !ok {
		return record, nil
	}

	masked, err := json.Marshal("***")
	if err != nil {
		return nil, err
	}
	payload[t.Field] = masked

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode record %q: %w", record.Key, err)
	}

	out := record.Clone()
	out.Payload = body
	return out, nil
}
