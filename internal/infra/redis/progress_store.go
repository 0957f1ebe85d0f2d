package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ProgressStore keeps each player's progression record in a Redis hash:
// HSET player:{playerID}:progress {key} {value}
// There are no transactions; concurrent writers follow last-writer-wins,
// which the progression ledger documents and accepts.
type ProgressStore struct {
	client *redis.Client
}

func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func (s *ProgressStore) GetMany(ctx context.Context, playerID string, keys []string) (map[string]string, error) {
	values, err := s.client.HMGet(ctx, s.key(playerID), keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load progress for %s: %w", playerID, err)
	}
	out := make(map[string]string, len(keys))
	for i, v := range values {
		if v == nil {
			continue
		}
		if str, ok := v.(string); ok {
			out[keys[i]] = str
		}
	}
	return out, nil
}

func (s *ProgressStore) SetMany(ctx context.Context, playerID string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	flat := make([]interface{}, 0, len(values)*2)
	for k, v := range values {
		flat = append(flat, k, v)
	}
	if err := s.client.HSet(ctx, s.key(playerID), flat...).Err(); err != nil {
		return fmt.Errorf("save progress for %s: %w", playerID, err)
	}
	return nil
}

func (s *ProgressStore) key(playerID string) string {
	return "player:" + playerID + ":progress"
}
