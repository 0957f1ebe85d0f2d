package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"codium-engine/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// SetLoader fetches question-set content from a backing store (e.g. Postgres).
type SetLoader interface {
	LoadSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// SetRepository caches whole question sets in Redis and falls back to a
// loader on cache miss. The engine needs the full definition (distractors,
// ordered sequences, hints), so the value is the set serialized as JSON:
// SET set:{setID}:content {json}
type SetRepository struct {
	client *redis.Client
	loader SetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewSetRepository(client *redis.Client, loader SetLoader, ttl time.Duration) *SetRepository {
	return &SetRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SetRepository) GetSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	key := r.contentKey(setID)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
		if set, err := decodeSet(raw); err == nil {
			return set, nil
		}
		// Corrupt cache entry: fall through and reload.
	}

	result, err, _ := r.sf.Do(setID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
			if set, err := decodeSet(raw); err == nil {
				return set, nil
			}
		}

		set, err := r.loader.LoadSet(ctx, setID)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		if raw, err := json.Marshal(set); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *SetRepository) contentKey(setID string) string {
	return "set:" + setID + ":content"
}

func decodeSet(raw []byte) (domain.QuestionSet, error) {
	var set domain.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.QuestionSet{}, err
	}
	return set, nil
}

func (r *SetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
