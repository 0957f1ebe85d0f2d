package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestProgressStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewProgressStore(newClient(mr))
	ctx := context.Background()

	if err := store.SetMany(ctx, "p1", map[string]string{
		"level":       "3",
		"total_xp":    "15",
		"total_score": "1500",
	}); err != nil {
		t.Fatalf("set many: %v", err)
	}

	got, err := store.GetMany(ctx, "p1", []string{"level", "total_xp", "total_score", "total_coins"})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if got["level"] != "3" || got["total_xp"] != "15" || got["total_score"] != "1500" {
		t.Fatalf("unexpected values: %v", got)
	}
	if _, ok := got["total_coins"]; ok {
		t.Fatalf("missing field should be absent, got %v", got)
	}
}

func TestProgressStoreIsolatesPlayers(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewProgressStore(newClient(mr))
	ctx := context.Background()

	if err := store.SetMany(ctx, "p1", map[string]string{"level": "5"}); err != nil {
		t.Fatalf("set many: %v", err)
	}

	got, err := store.GetMany(ctx, "p2", []string{"level"})
	if err != nil {
		t.Fatalf("get many: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("p2 should have no progress, got %v", got)
	}
}
