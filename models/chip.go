package models

import "time"

// Chip is one player's side-record (chip) transfer within a recording event.
// RoundIndex is the round that was current when the event was recorded and
// may be 0 for events recorded before the first round.
type Chip struct {
	ID            int       `json:"id" db:"id"`
	GameID        int       `json:"game_id" db:"game_id"`
	RoundIndex    int       `json:"round_index" db:"round_index"`
	PlayerName    string    `json:"player_name" db:"player_name"`
	ChipPoint     int       `json:"chip_point" db:"chip_point"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
	FormattedTime string    `json:"formatted_time" db:"formatted_time"`
}

type ChipEntry struct {
	Player    string `json:"player"`
	ChipPoint int    `json:"chip_point"`
}

// ChipEvent groups chip rows recorded together (same timestamp).
type ChipEvent struct {
	RoundIndex    int       `json:"round_index"`
	Timestamp     time.Time `json:"timestamp"`
	FormattedTime string    `json:"formatted_time"`
	Chips         []Chip    `json:"chips"`
}

// IDs returns the row identifiers of the event, for batch deletion.
func (e ChipEvent) IDs() []int {
	ids := make([]int, len(e.Chips))
	for i, c := range e.Chips {
		ids[i] = c.ID
	}
	return ids
}
