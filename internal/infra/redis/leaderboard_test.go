package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestLeaderboardRanksByScore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	board := NewLeaderboard(newClient(mr), "test_board")
	ctx := context.Background()

	submissions := []struct {
		playerID string
		name     string
		score    int
	}{
		{"p1", "Ada", 1000},
		{"p2", "Linus#4521", 1500},
		{"p3", "Grace", 500},
	}
	for _, s := range submissions {
		if err := board.Submit(ctx, s.playerID, s.name, s.score); err != nil {
			t.Fatalf("submit %s: %v", s.playerID, err)
		}
	}

	top, err := board.GetTop(ctx, 10)
	if err != nil {
		t.Fatalf("get top: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(top))
	}
	if top[0].PlayerID != "p2" || top[0].Rank != 0 || top[0].Score != 1500 {
		t.Fatalf("unexpected first entry: %+v", top[0])
	}
	if top[0].DisplayName != "Linus#4521" {
		t.Fatalf("display name not stored: %+v", top[0])
	}
	if top[2].PlayerID != "p3" {
		t.Fatalf("unexpected last entry: %+v", top[2])
	}
}

func TestLeaderboardKeepsBestScore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	board := NewLeaderboard(newClient(mr), "test_board")
	ctx := context.Background()

	if err := board.Submit(ctx, "p1", "Ada", 1500); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// A worse run must not regress the stored score.
	if err := board.Submit(ctx, "p1", "Ada", 500); err != nil {
		t.Fatalf("submit: %v", err)
	}

	self, err := board.GetSelf(ctx, "p1")
	if err != nil {
		t.Fatalf("get self: %v", err)
	}
	if self == nil || self.Score != 1500 {
		t.Fatalf("expected best score retained, got %+v", self)
	}
}

func TestLeaderboardSelfAbsent(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	board := NewLeaderboard(newClient(mr), "test_board")

	self, err := board.GetSelf(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("get self: %v", err)
	}
	if self != nil {
		t.Fatalf("expected nil entry for unranked player, got %+v", self)
	}
}
