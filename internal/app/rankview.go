package app

import (
	"fmt"

	"codium-engine/internal/domain"
)

// selfLabel replaces the display name on the viewer's own row.
const selfLabel = "YOU"

// RenderRanking turns a fetched top-N page plus an optional self entry into
// display-ready rows. Ranks are shown 1-based. When the viewer is not on the
// page but a self entry exists, a separator row and the self row at its true
// rank are appended, breaking contiguity on purpose.
func RenderRanking(top []domain.LeaderboardEntry, self *domain.LeaderboardEntry, selfID string) []domain.RankRow {
	rows := make([]domain.RankRow, 0, len(top)+2)
	selfShown := false

	for _, e := range top {
		row := displayRow(e)
		if selfID != "" && e.PlayerID == selfID {
			row.IsSelf = true
			row.DisplayName = selfLabel
			selfShown = true
		}
		rows = append(rows, row)
	}

	if !selfShown && self != nil {
		rows = append(rows, domain.RankRow{Separator: true})
		row := displayRow(*self)
		row.IsSelf = true
		row.DisplayName = selfLabel
		rows = append(rows, row)
	}
	return rows
}

func displayRow(e domain.LeaderboardEntry) domain.RankRow {
	rank := e.Rank + 1
	return domain.RankRow{
		Rank:        rank,
		RankLabel:   OrdinalLabel(rank),
		DisplayName: StripDiscriminator(e.DisplayName),
		Score:       e.Score,
	}
}

// StripDiscriminator removes a trailing "#1234" style suffix, but only when
// everything after the hash is 3-6 digits, so legitimate names survive.
func StripDiscriminator(name string) string {
	if name == "" {
		return name
	}
	hash := -1
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '#' {
			hash = i
			break
		}
	}
	if hash <= 0 {
		return name
	}
	digits := len(name) - hash - 1
	if digits < 3 || digits > 6 {
		return name
	}
	for i := hash + 1; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return name
		}
	}
	return name[:hash]
}

// OrdinalLabel formats a 1-based rank as "1ST", "22ND", "13TH", ...
// The teens always take TH.
func OrdinalLabel(rank int) string {
	suffix := "TH"
	if rem := rank % 100; rem < 11 || rem > 13 {
		switch rank % 10 {
		case 1:
			suffix = "ST"
		case 2:
			suffix = "ND"
		case 3:
			suffix = "RD"
		}
	}
	return fmt.Sprintf("%d%s", rank, suffix)
}
