package transform

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/duongtq/conveyor/internal/core/domain"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		configs []Config
		want    []string
		wantErr bool
	}{
		{
			name: "chain in order",
			configs: []Config{
				{Type: "add_header", Key: "env", Value: "prod"},
				{Type: "mask_field", Key: "ssn"},
			},
			want: []string{"add_header", "mask_field"},
		},
		{
			name:    "unknown type",
			configs: []Config{{Type: "uppercase"}},
			wantErr: true,
		},
		{
			name:    "add_header without key",
			configs: []Config{{Type: "add_header", Value: "prod"}},
			wantErr: true,
		},
		{
			name:    "mask_field without key",
			configs: []Config{{Type: "mask_field"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(tt.configs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("built %d transforms, want %d", len(got), len(tt.want))
			}
			for i, name := range tt.want {
				if got[i].Name() != name {
					t.Errorf("transform[%d] = %q, want %q", i, got[i].Name(), name)
				}
			}
		})
	}
}

func TestAddHeader_Apply(t *testing.T) {
	tr := &AddHeader{Key: "env", Value: "prod"}
	in := &domain.SourceRecord{Key: "k1", Payload: []byte(`{}`)}

	out, err := tr.Apply(context.Background(), in)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Headers["env"] != "prod" {
		t.Errorf("header env = %q, want prod", out.Headers["env"])
	}
	if in.Headers != nil {
		t.Error("input record must not be mutated")
	}
}

func TestMaskField_Apply(t *testing.T) {
	tr := &MaskField{Field: "ssn"}
	in := &domain.SourceRecord{
		Key:     "k1",
		Payload: []byte(`{"name":"ann","ssn":"123-45-6789"}`),
	}

	out, err := tr.Apply(context.Background(), in)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	var payload map[string]string
	if err := json.Unmarshal(out.Payload, &payload); err != nil {
		t.Fatalf("masked payload is not valid JSON: %v", err)
	}
	if payload["ssn"] != "***" {
		t.Errorf("ssn = %q, want ***", payload["ssn"])
	}
	if payload["name"] != "ann" {
		t.Errorf("name = %q, other fields must survive", payload["name"])
	}
	if string(in.Payload) != `{"name":"ann","ssn":"123-45-6789"}` {
		t.Error("input record must not be mutated")
	}
}

func TestMaskField_MissingField(t *testing.T) {
	tr := &MaskField{Field: "ssn"}
	in := &domain.SourceRecord{Key: "k1", Payload: []byte(`{"name":"ann"}`)}

	out, err := tr.Apply(context.Background(), in)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out != in {
		t.Error("record without the field should pass through unchanged")
	}
}

func TestMaskField_NonObjectPayload(t *testing.T) {
	tr := &MaskField{Field: "ssn"}
	_, err := tr.Apply(context.Background(), &domain.SourceRecord{
		Key:     "k1",
		Payload: []byte(`[1,2,3]`),
	})
	if err == nil {
		t.Fatal("expected an error for a non-object payload")
	}
}
