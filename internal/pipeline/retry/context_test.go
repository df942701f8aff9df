package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/duongtq/conveyor/internal/core/domain"
)

type orderedReporter struct {
	name  string
	order *[]string
	fail  bool
}

func (r *orderedReporter) Report(ctx context.Context, report Report) error {
	*r.order = append(*r.order, r.name)
	if r.fail {
		return errors.New("sink unavailable")
	}
	return nil
}

type closableReporter struct {
	closed int
}

func (r *closableReporter) Report(ctx context.Context, report Report) error { return nil }
func (r *closableReporter) Close() error {
	r.closed++
	return nil
}

func TestProcessingContext_ReportFanOutOrder(t *testing.T) {
	var order []string
	c := NewProcessingContext()
	c.Reporters([]Reporter{
		&orderedReporter{name: "first", order: &order},
		&orderedReporter{name: "second", order: &order},
		&orderedReporter{name: "third", order: &order},
	})
	c.CurrentContext(StageConverter, "json_converter")
	c.SetError(errors.New("bad record"))

	c.Report(context.Background())

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("reported to %d reporters, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("delivery order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestProcessingContext_ReportBestEffort(t *testing.T) {
	var order []string
	c := NewProcessingContext()
	c.Reporters([]Reporter{
		&orderedReporter{name: "failing", order: &order, fail: true},
		&orderedReporter{name: "healthy", order: &order},
	})
	c.SetError(errors.New("bad record"))

	c.Report(context.Background())

	if len(order) != 2 {
		t.Fatalf("a failing reporter must not stop delivery, reached %d of 2", len(order))
	}
}

func TestProcessingContext_ReportSnapshot(t *testing.T) {
	var got Report
	c := NewProcessingContext()
	c.Reporters([]Reporter{reporterFunc(func(ctx context.Context, r Report) error {
		got = r
		return nil
	})})

	rec := &domain.SourceRecord{Key: "k1"}
	cause := errors.New("bad record")
	c.SourceRecord(rec)
	c.CurrentContext(StageTransformation, "mask_field")
	c.SetAttempt(3)
	c.SetError(cause)
	c.Report(context.Background())

	if got.Stage != StageTransformation || got.ExecutingUnit != "mask_field" {
		t.Errorf("snapshot identifies %q/%q, want transformation/mask_field", got.Stage, got.ExecutingUnit)
	}
	if got.Attempt != 3 {
		t.Errorf("snapshot attempt = %d, want 3", got.Attempt)
	}
	if !errors.Is(got.Error, cause) {
		t.Error("snapshot should carry the recorded error")
	}
	if got.SourceRecord != rec {
		t.Error("snapshot should carry the source record")
	}
}

type reporterFunc func(ctx context.Context, r Report) error

func (f reporterFunc) Report(ctx context.Context, r Report) error { return f(ctx, r) }

func TestProcessingContext_CloseIdempotent(t *testing.T) {
	closer := &closableReporter{}
	c := NewProcessingContext()
	c.Reporters([]Reporter{closer})

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if closer.closed != 1 {
		t.Errorf("reporter closed %d times, want 1", closer.closed)
	}
}

func TestProcessingContext_FailedImpliesError(t *testing.T) {
	c := NewProcessingContext()
	if c.Failed() {
		t.Error("fresh context must not be failed")
	}
	c.SetError(errors.New("bad record"))
	if !c.Failed() || c.Error() == nil {
		t.Error("failed context must expose its error")
	}
}

func TestProcessingContext_CurrentContextKeepsFailure(t *testing.T) {
	c := NewProcessingContext()
	c.SetError(errors.New("bad record"))
	c.CurrentContext(StageTaskPut, "producer")
	if !c.Failed() {
		t.Error("entering a new stage must not clear a prior failure")
	}
}
