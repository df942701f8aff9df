package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/duongtq/conveyor/internal/core/domain"
)

func TestMemoryQueue_SendAndDrain(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	if err := q.Send(ctx, &domain.QueueMessage{Key: "a"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := q.Send(ctx, &domain.QueueMessage{Key: "b"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if q.Len() != 2 {
		t.Errorf("Len = %d, want 2", q.Len())
	}
	msgs := q.Messages()
	if msgs[0].Key != "a" || msgs[1].Key != "b" {
		t.Errorf("order = %q, %q", msgs[0].Key, msgs[1].Key)
	}
}

func TestMemoryQueue_SendAfterClose(t *testing.T) {
	q := NewMemoryQueue()
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := q.Send(context.Background(), &domain.QueueMessage{Key: "a"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Send after close = %v, want ErrQueueClosed", err)
	}
}

func TestMemoryQueue_SendCancelledContext(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Send(ctx, &domain.QueueMessage{Key: "a"}); err == nil {
		t.Error("Send with a cancelled context should fail")
	}
}

func TestSliceSource_Poll(t *testing.T) {
	ctx := context.Background()
	s := NewSliceSource(
		[]*domain.SourceRecord{{Key: "a"}, {Key: "b"}},
		[]*domain.SourceRecord{{Key: "c"}},
	)

	batch, err := s.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(batch) != 2 || batch[0].Key != "a" {
		t.Errorf("first batch = %+v", batch)
	}

	batch, err = s.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(batch) != 1 || batch[0].Key != "c" {
		t.Errorf("second batch = %+v", batch)
	}

	batch, err = s.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(batch) != 0 {
		t.Errorf("drained source returned %d records", len(batch))
	}
}
