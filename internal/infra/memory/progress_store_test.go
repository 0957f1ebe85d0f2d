package memory

import (
	"context"
	"testing"
)

func TestProgressStoreRoundTrip(t *testing.T) {
	store := NewProgressStore()
	ctx := context.Background()

	if err := store.SetMany(ctx, "p1", map[string]string{"total_score": "500", "level": "2"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.GetMany(ctx, "p1", []string{"total_score", "level", "missing"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["total_score"] != "500" || got["level"] != "2" {
		t.Fatalf("unexpected values: %v", got)
	}
	if _, ok := got["missing"]; ok {
		t.Fatalf("missing key should be absent, not defaulted")
	}
}

func TestProgressStoreIsolatesPlayers(t *testing.T) {
	store := NewProgressStore()
	ctx := context.Background()

	_ = store.SetMany(ctx, "p1", map[string]string{"total_coins": "30"})
	got, _ := store.GetMany(ctx, "p2", []string{"total_coins"})
	if len(got) != 0 {
		t.Fatalf("p2 sees p1 values: %v", got)
	}
}
