package models

import "time"

// Допустимое число игроков за столом.
const (
	MinPlayers = 3
	MaxPlayers = 4
)

// Game представляет одну игровую сессию (серию ханчанов).
type Game struct {
	ID          int       `json:"id" db:"id"`
	PlayerCount int       `json:"player_count" db:"player_count"`
	StartDate   string    `json:"start_date" db:"start_date"` // YYYY/MM/DD
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	Finished    bool      `json:"finished" db:"finished"`

	// Заполняются репозиторием в списках игр (не колонки games)
	Players    []string `json:"players,omitempty" db:"-"`
	RoundCount int      `json:"round_count" db:"-"`
}

// GameDetail is everything the game screen renders for one game.
type GameDetail struct {
	Game           *Game           `json:"game"`
	Players        []string        `json:"players"`
	Rounds         []Round         `json:"rounds"`
	ChipEvents     []ChipEvent     `json:"chip_events"`
	NextRoundIndex int             `json:"next_round_index"`
	Summaries      []PlayerSummary `json:"summaries"`
}

// PlayerSummary aggregates one player's results over a game.
type PlayerSummary struct {
	Player     string      `json:"player"`
	ScoreTotal int         `json:"score_total"`
	ChipTotal  int         `json:"chip_total"`
	Total      int         `json:"total"`
	Rounds     int         `json:"rounds"`
	RankCounts map[int]int `json:"rank_counts"`
}
