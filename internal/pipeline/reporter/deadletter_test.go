package reporter

import (
	"context"
	"errors"
	"testing"

	"github.com/duongtq/conveyor/internal/core/domain"
	"github.com/duongtq/conveyor/internal/infra/storage/memory"
	"github.com/duongtq/conveyor/internal/pipeline/retry"
)

func TestDeadLetterReporter_Report(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDeadLetterRepo()
	r := NewDeadLetterReporter("orders", repo)

	err := r.Report(ctx, retry.Report{
		Stage:         retry.StageConverter,
		ExecutingUnit: "json_converter",
		Error:         errors.New("payload is not valid JSON"),
		Attempt:       1,
		SourceRecord: &domain.SourceRecord{
			Key:     "order-1",
			Payload: []byte(`{"amount":`),
		},
	})
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	letters, err := repo.GetAll(ctx, "orders")
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(letters) != 1 {
		t.Fatalf("stored %d letters, want 1", len(letters))
	}
	dl := letters[0]
	if dl.ID == "" {
		t.Error("dead letter should get an id")
	}
	if dl.Pipeline != "orders" || dl.Stage != "converter" || dl.ExecutingUnit != "json_converter" {
		t.Errorf("dead letter identifies %q/%q/%q", dl.Pipeline, dl.Stage, dl.ExecutingUnit)
	}
	if dl.RecordKey != "order-1" {
		t.Errorf("record key = %q, want order-1", dl.RecordKey)
	}
	if string(dl.Payload) != `{"amount":` {
		t.Errorf("payload = %s", dl.Payload)
	}
	if dl.Error != "payload is not valid JSON" {
		t.Errorf("error = %q", dl.Error)
	}
	if dl.Status != domain.DeadLetterStatusPending {
		t.Errorf("status = %q, want pending", dl.Status)
	}
}

func TestDeadLetterReporter_FallsBackToQueueMessage(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewDeadLetterRepo()
	r := NewDeadLetterReporter("orders", repo)

	err := r.Report(ctx, retry.Report{
		Stage:         retry.StageTaskPut,
		ExecutingUnit: "producer",
		Error:         errors.New("broker unavailable"),
		QueueMessage: &domain.QueueMessage{
			Topic: "events",
			Key:   "order-2",
			Body:  []byte(`{"amount":10}`),
		},
	})
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	letters, err := repo.GetAll(ctx, "orders")
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(letters) != 1 {
		t.Fatalf("stored %d letters, want 1", len(letters))
	}
	if letters[0].RecordKey != "order-2" {
		t.Errorf("record key = %q, want order-2", letters[0].RecordKey)
	}
	if string(letters[0].Payload) != `{"amount":10}` {
		t.Errorf("payload = %s", letters[0].Payload)
	}
}
