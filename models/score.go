package models

import "time"

// Score is one player's result in one round (hanchan).
type Score struct {
	ID            int       `json:"id" db:"id"`
	GameID        int       `json:"game_id" db:"game_id"`
	RoundIndex    int       `json:"round_index" db:"round_index"`
	PlayerName    string    `json:"player_name" db:"player_name"`
	Point         int       `json:"point" db:"point"`
	Rank          int       `json:"rank" db:"rank"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
	FormattedTime string    `json:"formatted_time" db:"formatted_time"`
}

// ScoreEntry is the input for recording one player's row of a round.
type ScoreEntry struct {
	Player string `json:"player"`
	Point  int    `json:"point"`
	Rank   int    `json:"rank"`
}

// Round groups the score rows sharing one round index.
type Round struct {
	Index         int       `json:"index"`
	Timestamp     time.Time `json:"timestamp"`
	FormattedTime string    `json:"formatted_time"`
	Scores        []Score   `json:"scores"`
}
