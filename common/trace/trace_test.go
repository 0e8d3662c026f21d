package trace_test

import (
	"context"
	"strings"
	"testing"

	"github.com/bdobrica/Kotoba/common/trace"
)

func TestGenerateID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := trace.GenerateID()
		if !strings.HasPrefix(id, trace.Prefix) {
			t.Fatalf("id %q missing prefix", id)
		}
		if len(id) != len(trace.Prefix)+32 {
			t.Fatalf("id %q has unexpected length %d", id, len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestEnsure_KeepsExisting(t *testing.T) {
	ctx := trace.WithTraceID(context.Background(), "t_fixed")
	got, id := trace.Ensure(ctx)
	if id != "t_fixed" {
		t.Fatalf("expected t_fixed, got %q", id)
	}
	if trace.FromContext(got) != "t_fixed" {
		t.Fatal("context lost trace id")
	}
}

func TestEnsure_GeneratesWhenMissing(t *testing.T) {
	ctx, id := trace.Ensure(context.Background())
	if id == "" {
		t.Fatal("expected generated id")
	}
	if trace.FromContext(ctx) != id {
		t.Fatalf("context carries %q, want %q", trace.FromContext(ctx), id)
	}
	if trace.FromContext(context.Background()) != "" {
		t.Fatal("background context should have no trace id")
	}
}
