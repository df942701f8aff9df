package domain

import "time"

// SourceRecord is a record polled from an external system before conversion.
// The payload is opaque to the runtime; converters and transforms give it shape.
type SourceRecord struct {
	Key       string            `json:"key"`
	Payload   []byte            `json:"payload"`
	Headers   map[string]string `json:"headers,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Clone returns a deep copy so transforms can mutate without aliasing
// the caller's record.
func (r *SourceRecord) Clone() *SourceRecord {
	if r == nil {
		return nil
	}
	out := &SourceRecord{
		Key:       r.Key,
		Timestamp: r.Timestamp,
	}
	if r.Payload != nil {
		out.Payload = make([]byte, len(r.Payload))
		copy(out.Payload, r.Payload)
	}
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	return out
}

// QueueMessage is a converted record ready to be published to (or consumed
// from) the messaging broker.
type QueueMessage struct {
	Topic     string            `json:"topic"`
	Key       string            `json:"key"`
	Body      []byte            `json:"body"`
	Headers   map[string]string `json:"headers,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
