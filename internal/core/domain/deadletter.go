package domain

import "time"

// DeadLetter represents a record that exhausted error handling and was
// handed to a dead-letter sink for later inspection or requeueing.
type DeadLetter struct {
	ID            string           `json:"id"`
	Pipeline      string           `json:"pipeline"`
	Stage         string           `json:"stage"`
	ExecutingUnit string           `json:"executing_unit"`
	Error         string           `json:"error_msg"`
	Attempts      int              `json:"attempts"`
	RecordKey     string           `json:"record_key"`
	Payload       []byte           `json:"payload,omitempty"`
	Status        DeadLetterStatus `json:"status"`
	RetryCount    int              `json:"retry_count"`
	LastAttempt   time.Time        `json:"last_attempt"`
	CreatedAt     time.Time        `json:"created_at"`
}

type DeadLetterStatus string

const (
	DeadLetterStatusPending  DeadLetterStatus = "pending"
	DeadLetterStatusRequeued DeadLetterStatus = "requeued"
	DeadLetterStatusPurged   DeadLetterStatus = "purged"
)
