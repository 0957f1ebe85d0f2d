package app

import "testing"

func TestRewardsFromStars(t *testing.T) {
	cases := []struct {
		stars, score, coins int
	}{
		{1, 500, 30},
		{2, 1000, 60},
		{3, 1500, 100},
	}
	for _, c := range cases {
		r := RewardsFromStars(c.stars)
		if r.Score != c.score || r.Coins != c.coins {
			t.Fatalf("RewardsFromStars(%d) = %d/%d, want %d/%d", c.stars, r.Score, r.Coins, c.score, c.coins)
		}
	}
}

func TestStarsFromLivesClamps(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 3, 4: 3, 9: 3}
	for lives, want := range cases {
		if got := StarsFromLives(lives); got != want {
			t.Fatalf("StarsFromLives(%d) = %d, want %d", lives, got, want)
		}
	}
}
