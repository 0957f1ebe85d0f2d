package app

import (
	"math/rand"
	"strings"
	"time"
)

// spawnPlaceholder is emitted when a question offers neither an expected item
// nor any candidate text.
const spawnPlaceholder = "hello"

// SpawnConfig tunes the answer-spawn selection bias.
type SpawnConfig struct {
	// CorrectPickChance is the base probability of emitting the expected item.
	CorrectPickChance float64
	// ForceEvery guarantees the expected item after this many picks without
	// it. 0 disables the guarantee.
	ForceEvery int
	// NoRepeatWindow excludes the most recent picks from the random pool.
	NoRepeatWindow int
}

// DefaultSpawnConfig mirrors the tuning the game shipped with.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{CorrectPickChance: 0.45, ForceEvery: 4, NoRepeatWindow: 2}
}

// Spawner chooses which candidate answer text to present next, biased toward
// the expected-but-not-yet-collected item. It is not safe for concurrent use;
// the owning session serializes calls.
type Spawner struct {
	cfg           SpawnConfig
	sinceExpected int
	recent        []string
	rnd           *rand.Rand
}

func NewSpawner(cfg SpawnConfig) *Spawner {
	return &Spawner{
		cfg: cfg,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// newSpawnerWithRand allows deterministic picks in tests.
func newSpawnerWithRand(cfg SpawnConfig, rnd *rand.Rand) *Spawner {
	return &Spawner{cfg: cfg, rnd: rnd}
}

// PickNext returns the next candidate text. pool is every answer and
// distractor the question knows; expected is the item the player still needs
// (empty when there is none).
func (s *Spawner) PickNext(pool []string, expected string) string {
	if s.cfg.ForceEvery > 0 && s.sinceExpected >= s.cfg.ForceEvery && expected != "" {
		s.sinceExpected = 0
		s.remember(expected)
		return expected
	}

	if expected != "" && s.rnd.Float64() < s.cfg.CorrectPickChance {
		s.sinceExpected = 0
		s.remember(expected)
		return expected
	}

	candidates := make([]string, 0, len(pool))
	for _, text := range pool {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if expected != "" && strings.EqualFold(text, expected) {
			continue
		}
		if s.cfg.NoRepeatWindow > 0 && s.isRecent(text) {
			continue
		}
		candidates = append(candidates, text)
	}

	if len(candidates) == 0 {
		// Over-filtered: fall back to the expected item to keep the game
		// moving, or a placeholder when there is none.
		if expected != "" {
			s.sinceExpected = 0
			s.remember(expected)
			return expected
		}
		return spawnPlaceholder
	}

	chosen := candidates[s.rnd.Intn(len(candidates))]
	s.sinceExpected++
	s.remember(chosen)
	return chosen
}

// Reset clears the recent-history queue and the since-expected counter for a
// fresh question.
func (s *Spawner) Reset() {
	s.sinceExpected = 0
	s.recent = s.recent[:0]
}

func (s *Spawner) remember(text string) {
	if s.cfg.NoRepeatWindow <= 0 || text == "" {
		return
	}
	s.recent = append(s.recent, text)
	for len(s.recent) > s.cfg.NoRepeatWindow {
		s.recent = s.recent[1:]
	}
}

func (s *Spawner) isRecent(text string) bool {
	for _, r := range s.recent {
		if r == text {
			return true
		}
	}
	return false
}
