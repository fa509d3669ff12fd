package scoring

import "sort"

// CalculateRanks assigns standard competition ranks to points: players are
// ordered by value descending, equal values share the rank of the first of
// them, and the next distinct value continues at its 1-based position
// (30,0,0,-30 -> 1,2,2,4).
func CalculateRanks(points map[string]int) map[string]int {
	players := make([]string, 0, len(points))
	for p := range points {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if points[players[i]] != points[players[j]] {
			return points[players[i]] > points[players[j]]
		}
		return players[i] < players[j]
	})

	ranks := make(map[string]int, len(players))
	rank := 0
	for i, p := range players {
		if i == 0 || points[p] != points[players[i-1]] {
			rank = i + 1
		}
		ranks[p] = rank
	}
	return ranks
}
