package scoring

import (
	"sort"

	"github.com/Dosada05/mahjong-scorebook/models"
)

// Summarize totals each roster player's points, chips and rank
// distribution. Rank counts are zero-filled for ranks 1..len(players).
// Rows naming players outside the roster are ignored.
func Summarize(players []string, scores []models.Score, chips []models.Chip) []models.PlayerSummary {
	byPlayer := make(map[string]*models.PlayerSummary, len(players))
	summaries := make([]models.PlayerSummary, len(players))
	for i, p := range players {
		summaries[i] = models.PlayerSummary{Player: p, RankCounts: make(map[int]int, len(players))}
		for r := 1; r <= len(players); r++ {
			summaries[i].RankCounts[r] = 0
		}
		byPlayer[p] = &summaries[i]
	}

	for _, s := range scores {
		ps, ok := byPlayer[s.PlayerName]
		if !ok {
			continue
		}
		ps.ScoreTotal += s.Point
		ps.Rounds++
		ps.RankCounts[s.Rank]++
	}
	for _, c := range chips {
		if ps, ok := byPlayer[c.PlayerName]; ok {
			ps.ChipTotal += c.ChipPoint
		}
	}
	for i := range summaries {
		summaries[i].Total = summaries[i].ScoreTotal + summaries[i].ChipTotal
	}
	return summaries
}

// GroupRounds groups score rows by round index, ascending.
func GroupRounds(scores []models.Score) []models.Round {
	idx := make(map[int]int)
	rounds := make([]models.Round, 0)
	for _, s := range scores {
		i, ok := idx[s.RoundIndex]
		if !ok {
			i = len(rounds)
			idx[s.RoundIndex] = i
			rounds = append(rounds, models.Round{
				Index:         s.RoundIndex,
				Timestamp:     s.Timestamp,
				FormattedTime: s.FormattedTime,
			})
		}
		if s.Timestamp.Before(rounds[i].Timestamp) {
			rounds[i].Timestamp = s.Timestamp
			rounds[i].FormattedTime = s.FormattedTime
		}
		rounds[i].Scores = append(rounds[i].Scores, s)
	}
	sort.SliceStable(rounds, func(a, b int) bool { return rounds[a].Index < rounds[b].Index })
	return rounds
}

// GroupChipEvents groups chip rows into recording events (rows sharing
// one timestamp), oldest first.
func GroupChipEvents(chips []models.Chip) []models.ChipEvent {
	idx := make(map[int64]int)
	events := make([]models.ChipEvent, 0)
	for _, c := range chips {
		key := c.Timestamp.UnixMilli()
		i, ok := idx[key]
		if !ok {
			i = len(events)
			idx[key] = i
			events = append(events, models.ChipEvent{
				RoundIndex:    c.RoundIndex,
				Timestamp:     c.Timestamp,
				FormattedTime: c.FormattedTime,
			})
		}
		events[i].Chips = append(events[i].Chips, c)
	}
	sort.SliceStable(events, func(a, b int) bool { return events[a].Timestamp.Before(events[b].Timestamp) })
	return events
}
