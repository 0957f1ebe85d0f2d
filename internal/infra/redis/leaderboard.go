package redis

import (
	"context"
	"fmt"

	"codium-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Leaderboard is an app.LeaderboardClient over a Redis sorted set:
// ZADD leaderboard:{id} {score} {playerID}   (GT keeps the best score)
// HSET leaderboard:{id}:names {playerID} {displayName}
type Leaderboard struct {
	client *redis.Client
	id     string
}

func NewLeaderboard(client *redis.Client, id string) *Leaderboard {
	if id == "" {
		id = "codium_global"
	}
	return &Leaderboard{client: client, id: id}
}

func (l *Leaderboard) Submit(ctx context.Context, playerID, displayName string, score int) error {
	pipe := l.client.Pipeline()
	pipe.ZAddGT(ctx, l.boardKey(), redis.Z{Score: float64(score), Member: playerID})
	if displayName != "" {
		pipe.HSet(ctx, l.namesKey(), playerID, displayName)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("submit score for %s: %w", playerID, err)
	}
	return nil
}

func (l *Leaderboard) GetTop(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	members, err := l.client.ZRevRangeWithScores(ctx, l.boardKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("load leaderboard page: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(members))
	for i, m := range members {
		playerID, _ := m.Member.(string)
		entries = append(entries, domain.LeaderboardEntry{
			Rank:        i,
			PlayerID:    playerID,
			DisplayName: l.displayName(ctx, playerID),
			Score:       int(m.Score),
		})
	}
	return entries, nil
}

func (l *Leaderboard) GetSelf(ctx context.Context, playerID string) (*domain.LeaderboardEntry, error) {
	rank, err := l.client.ZRevRank(ctx, l.boardKey(), playerID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load self rank: %w", err)
	}
	score, err := l.client.ZScore(ctx, l.boardKey(), playerID).Result()
	if err != nil {
		return nil, fmt.Errorf("load self score: %w", err)
	}
	return &domain.LeaderboardEntry{
		Rank:        int(rank),
		PlayerID:    playerID,
		DisplayName: l.displayName(ctx, playerID),
		Score:       int(score),
	}, nil
}

func (l *Leaderboard) displayName(ctx context.Context, playerID string) string {
	name, err := l.client.HGet(ctx, l.namesKey(), playerID).Result()
	if err != nil || name == "" {
		return playerID
	}
	return name
}

func (l *Leaderboard) boardKey() string {
	return "leaderboard:" + l.id
}

func (l *Leaderboard) namesKey() string {
	return "leaderboard:" + l.id + ":names"
}
