package app

import "codium-engine/internal/domain"

// StarsFromLives maps remaining player hearts at a Win to a 1..3 star rating.
// Loss paths never call this; a zero result only exists for callers that
// explicitly want a no-stars policy.
func StarsFromLives(remainingPlayerLives int) int {
	if remainingPlayerLives < 1 {
		return 1
	}
	if remainingPlayerLives > 3 {
		return 3
	}
	return remainingPlayerLives
}

// RewardsFromStars converts a star rating into score and coins.
// score = stars * 500; coins = 100 / 60 / 30 for 3 / 2 / fewer stars.
func RewardsFromStars(stars int) domain.RewardResult {
	coins := 30
	switch stars {
	case 3:
		coins = 100
	case 2:
		coins = 60
	}
	return domain.RewardResult{Stars: stars, Score: stars * 500, Coins: coins}
}
