package memory

import (
	"context"
	"sort"
	"sync"

	"codium-engine/internal/domain"
)

// Leaderboard is an in-memory app.LeaderboardClient keeping one best score
// per player, ordered by score descending then name.
type Leaderboard struct {
	mu      sync.RWMutex
	scores  map[string]int
	names   map[string]string
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		scores: make(map[string]int),
		names:  make(map[string]string),
	}
}

func (l *Leaderboard) Submit(_ context.Context, playerID, displayName string, score int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if score > l.scores[playerID] {
		l.scores[playerID] = score
	}
	if displayName != "" {
		l.names[playerID] = displayName
	}
	return nil
}

func (l *Leaderboard) GetTop(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := l.rankedLocked()
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (l *Leaderboard) GetSelf(_ context.Context, playerID string) (*domain.LeaderboardEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.rankedLocked() {
		if e.PlayerID == playerID {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (l *Leaderboard) rankedLocked() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(l.scores))
	for id, score := range l.scores {
		name := l.names[id]
		if name == "" {
			name = id
		}
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:    id,
			DisplayName: name,
			Score:       score,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	for i := range entries {
		entries[i].Rank = i
	}
	return entries
}
