package convert

import (
	"context"
	"testing"
	"time"

	"github.com/duongtq/conveyor/internal/core/domain"
)

func TestJSONConverter_Convert(t *testing.T) {
	c := NewJSONConverter("events")
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := &domain.SourceRecord{
		Key:       "order-1",
		Payload:   []byte(`{"amount":10}`),
		Headers:   map[string]string{"origin": "crm"},
		Timestamp: ts,
	}

	msg, err := c.Convert(context.Background(), rec)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if msg.Topic != "events" {
		t.Errorf("topic = %q, want events", msg.Topic)
	}
	if msg.Key != "order-1" {
		t.Errorf("key = %q, want order-1", msg.Key)
	}
	if string(msg.Body) != `{"amount":10}` {
		t.Errorf("body = %s", msg.Body)
	}
	if msg.Headers["origin"] != "crm" {
		t.Error("headers should be carried over")
	}
	if !msg.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", msg.Timestamp, ts)
	}
}

func TestJSONConverter_InvalidPayload(t *testing.T) {
	c := NewJSONConverter("events")
	_, err := c.Convert(context.Background(), &domain.SourceRecord{
		Key:     "order-1",
		Payload: []byte(`{"amount":`),
	})
	if err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
}

func TestJSONConverter_ZeroTimestampDefaults(t *testing.T) {
	c := NewJSONConverter("events")
	msg, err := c.Convert(context.Background(), &domain.SourceRecord{
		Key:     "order-1",
		Payload: []byte(`true`),
	})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if msg.Timestamp.IsZero() {
		t.Error("zero record timestamp should default to now")
	}
}

func TestJSONConverter_Name(t *testing.T) {
	if got := NewJSONConverter("events").Name(); got != "json_converter" {
		t.Errorf("Name = %q, want json_converter", got)
	}
}
