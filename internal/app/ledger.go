package app

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"codium-engine/internal/domain"
)

// Progression keys in the persistence store. Per-challenge keys append the
// challenge id.
const (
	keyTotalScore     = "total_score"
	keyTotalCoins     = "total_coins"
	keyLevel          = "level"
	keyTotalXP        = "total_xp"
	keyNextXP         = "next_xp"
	keyLevelUpPending = "level_up_pending"
	keyLevelUpBonus   = "level_up_bonus"

	prefixCleared   = "cleared_"
	prefixBestScore = "best_score_"
	prefixBestStars = "best_stars_"
)

const (
	defaultLevel      = 1
	defaultNextXP     = 50
	levelBonusPerCoin = 50
	xpCurveGrowth     = 1.1
)

// ProgressStore is the key/value persistence collaborator. Writes are not
// transactional; the last writer wins.
type ProgressStore interface {
	GetMany(ctx context.Context, playerID string, keys []string) (map[string]string, error)
	SetMany(ctx context.Context, playerID string, values map[string]string) error
}

// Ledger merges run rewards into the durable account record.
//
// ApplyRun is a non-atomic read-modify-write: two concurrent calls for the
// same account can lose the earlier increments. The engine assumes a single
// active session per account and does not serialize writers.
type Ledger struct {
	store          ProgressStore
	startingNextXP int
}

func NewLedger(store ProgressStore) *Ledger {
	return &Ledger{store: store, startingNextXP: defaultNextXP}
}

// NewLedgerWithStartingThreshold overrides the level-1 XP threshold for
// accounts with no saved record.
func NewLedgerWithStartingThreshold(store ProgressStore, startingNextXP int) *Ledger {
	if startingNextXP <= 0 {
		startingNextXP = defaultNextXP
	}
	return &Ledger{store: store, startingNextXP: startingNextXP}
}

// ApplyRun loads the account record, folds in the run's rewards, runs the
// level-up loop, and persists everything in one write. The returned record
// includes the transient LevelsGained and BonusCoins for this run.
func (l *Ledger) ApplyRun(ctx context.Context, playerID, challengeID string, stars, score, coins, xpGained int) (domain.ProgressionRecord, error) {
	clearedKey := prefixCleared + challengeID
	bestScoreKey := prefixBestScore + challengeID
	bestStarsKey := prefixBestStars + challengeID

	loaded, err := l.store.GetMany(ctx, playerID, []string{
		keyTotalScore, keyTotalCoins, keyLevel, keyTotalXP, keyNextXP,
		bestScoreKey, bestStarsKey,
	})
	if err != nil {
		return domain.ProgressionRecord{}, fmt.Errorf("load progression: %w", err)
	}

	rec := domain.ProgressionRecord{
		Level:           intField(loaded, keyLevel, defaultLevel),
		TotalXP:         intField(loaded, keyTotalXP, 0),
		NextXPThreshold: intField(loaded, keyNextXP, l.startingNextXP),
		TotalScore:      intField(loaded, keyTotalScore, 0),
		TotalCoins:      intField(loaded, keyTotalCoins, 0),
		BestStars:       map[string]int{challengeID: intField(loaded, bestStarsKey, 0)},
		BestScore:       map[string]int{challengeID: intField(loaded, bestScoreKey, 0)},
		Cleared:         map[string]bool{challengeID: true},
	}

	rec.TotalScore += score
	rec.TotalCoins += coins
	if stars > rec.BestStars[challengeID] {
		rec.BestStars[challengeID] = stars
	}
	if score > rec.BestScore[challengeID] {
		rec.BestScore[challengeID] = score
	}
	if xpGained > 0 {
		rec.TotalXP += xpGained
	}

	// A single large grant can fire this loop several times.
	for rec.TotalXP >= rec.NextXPThreshold {
		rec.TotalXP -= rec.NextXPThreshold
		rec.Level++
		bonus := levelBonusPerCoin * rec.Level
		rec.TotalCoins += bonus
		rec.BonusCoins += bonus
		rec.LevelsGained++
		rec.NextXPThreshold = int(math.Ceil(float64(rec.NextXPThreshold) * xpCurveGrowth))
	}
	rec.LevelUpPending = rec.LevelsGained > 0
	rec.LevelUpBonus = rec.BonusCoins

	toSave := map[string]string{
		keyTotalScore:     strconv.Itoa(rec.TotalScore),
		keyTotalCoins:     strconv.Itoa(rec.TotalCoins),
		keyLevel:          strconv.Itoa(rec.Level),
		keyTotalXP:        strconv.Itoa(rec.TotalXP),
		keyNextXP:         strconv.Itoa(rec.NextXPThreshold),
		keyLevelUpPending: strconv.FormatBool(rec.LevelUpPending),
		keyLevelUpBonus:   strconv.Itoa(rec.LevelUpBonus),
		clearedKey:        "true",
		bestScoreKey:      strconv.Itoa(rec.BestScore[challengeID]),
		bestStarsKey:      strconv.Itoa(rec.BestStars[challengeID]),
	}
	if err := l.store.SetMany(ctx, playerID, toSave); err != nil {
		return domain.ProgressionRecord{}, fmt.Errorf("save progression: %w", err)
	}
	return rec, nil
}

// Load reads the account record for profile display.
func (l *Ledger) Load(ctx context.Context, playerID string) (domain.ProgressionRecord, error) {
	loaded, err := l.store.GetMany(ctx, playerID, []string{
		keyTotalScore, keyTotalCoins, keyLevel, keyTotalXP, keyNextXP,
		keyLevelUpPending, keyLevelUpBonus,
	})
	if err != nil {
		return domain.ProgressionRecord{}, fmt.Errorf("load progression: %w", err)
	}
	return domain.ProgressionRecord{
		Level:           intField(loaded, keyLevel, defaultLevel),
		TotalXP:         intField(loaded, keyTotalXP, 0),
		NextXPThreshold: intField(loaded, keyNextXP, l.startingNextXP),
		TotalScore:      intField(loaded, keyTotalScore, 0),
		TotalCoins:      intField(loaded, keyTotalCoins, 0),
		LevelUpPending:  loaded[keyLevelUpPending] == "true",
		LevelUpBonus:    intField(loaded, keyLevelUpBonus, 0),
	}, nil
}

// AcknowledgeLevelUp clears the one-time level-up notice after the
// presentation layer has shown it.
func (l *Ledger) AcknowledgeLevelUp(ctx context.Context, playerID string) error {
	err := l.store.SetMany(ctx, playerID, map[string]string{
		keyLevelUpPending: "false",
		keyLevelUpBonus:   "0",
	})
	if err != nil {
		return fmt.Errorf("clear level-up notice: %w", err)
	}
	return nil
}

func intField(values map[string]string, key string, fallback int) int {
	raw, ok := values[key]
	if !ok || raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
