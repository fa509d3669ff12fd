package sharecode

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/mahjong-scorebook/models"
	"github.com/Dosada05/mahjong-scorebook/scoring"
)

const (
	Version1 = 1
	Version2 = 2

	CurrentVersion = Version2
)

// Snapshot is everything a share code carries about one game. IDs and
// GameID of the rows are not part of the code and stay zero after Decode.
type Snapshot struct {
	Version     int
	PlayerCount int
	StartDate   string
	Players     []string
	Scores      []models.Score
	Chips       []models.Chip
}

type payloadV2 struct {
	Version     int      `json:"v"`
	PlayerCount int      `json:"pc"`
	StartDate   string   `json:"d"`
	Players     []string `json:"p"`
	Scores      [][3]int `json:"s"`
	Chips       [][3]int `json:"c,omitempty"`
}

// Encode always produces a version 2 code.
func Encode(s *Snapshot) (string, error) {
	index := make(map[string]int, len(s.Players))
	for i, name := range s.Players {
		index[name] = i
	}

	p := payloadV2{
		Version:     Version2,
		PlayerCount: s.PlayerCount,
		StartDate:   s.StartDate,
		Players:     s.Players,
		Scores:      make([][3]int, 0, len(s.Scores)),
	}
	if p.Players == nil {
		p.Players = []string{}
	}

	for _, sc := range s.Scores {
		idx, ok := index[sc.PlayerName]
		if !ok {
			return "", fmt.Errorf("score row for unknown player %q", sc.PlayerName)
		}
		p.Scores = append(p.Scores, [3]int{sc.RoundIndex, idx, sc.Point})
	}
	sort.SliceStable(p.Scores, func(i, j int) bool {
		if p.Scores[i][0] != p.Scores[j][0] {
			return p.Scores[i][0] < p.Scores[j][0]
		}
		return p.Scores[i][1] < p.Scores[j][1]
	})

	for _, c := range s.Chips {
		idx, ok := index[c.PlayerName]
		if !ok {
			return "", fmt.Errorf("chip row for unknown player %q", c.PlayerName)
		}
		p.Chips = append(p.Chips, [3]int{c.RoundIndex, idx, c.ChipPoint})
	}
	sort.SliceStable(p.Chips, func(i, j int) bool {
		if p.Chips[i][0] != p.Chips[j][0] {
			return p.Chips[i][0] < p.Chips[j][0]
		}
		return p.Chips[i][1] < p.Chips[j][1]
	})

	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal share payload: %w", err)
	}
	return EncodeTransport(data), nil
}

// Decode parses and validates a version 1 or 2 code. Version 1 rows are
// returned as stored; version 2 rows get ranks recomputed per round and
// share one timestamp taken from now.
func Decode(code string, now time.Time) (*Snapshot, error) {
	data, err := DecodeTransport(code)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, &MalformedCodeError{Stage: "json"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, &InvalidPayloadError{Reason: "payload is not an object"}
	}

	snap, err := decodeHeader(fields)
	if err != nil {
		return nil, err
	}

	switch snap.Version {
	case Version1:
		err = decodeV1(fields, snap)
	case Version2:
		err = decodeV2(fields, snap, now)
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func decodeHeader(fields map[string]json.RawMessage) (*Snapshot, error) {
	snap := &Snapshot{}

	if err := requireField(fields, "v", &snap.Version); err != nil {
		return nil, err
	}
	if snap.Version != Version1 && snap.Version != Version2 {
		return nil, invalid("v", "unsupported version %d", snap.Version)
	}

	if err := requireField(fields, "pc", &snap.PlayerCount); err != nil {
		return nil, err
	}
	if snap.PlayerCount < models.MinPlayers || snap.PlayerCount > models.MaxPlayers {
		return nil, invalid("pc", "player count must be %d or %d, got %d", models.MinPlayers, models.MaxPlayers, snap.PlayerCount)
	}

	if err := requireField(fields, "d", &snap.StartDate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(snap.StartDate) == "" {
		return nil, invalid("d", "start date is empty")
	}

	if err := requireField(fields, "p", &snap.Players); err != nil {
		return nil, err
	}
	if len(snap.Players) == 0 {
		return nil, invalid("p", "roster is empty")
	}
	if len(snap.Players) != snap.PlayerCount {
		return nil, invalid("p", "roster lists %d players, player count is %d", len(snap.Players), snap.PlayerCount)
	}
	seen := make(map[string]struct{}, len(snap.Players))
	for _, name := range snap.Players {
		if strings.TrimSpace(name) == "" {
			return nil, invalid("p", "blank player name")
		}
		if _, dup := seen[name]; dup {
			return nil, invalid("p", "duplicate player %q", name)
		}
		seen[name] = struct{}{}
	}
	return snap, nil
}

func requireField(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return invalid(name, "missing")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return invalid(name, "wrong type: %v", err)
	}
	return nil
}

// records returns the list stored under name; a missing list is empty.
func records(fields map[string]json.RawMessage, name string) ([]json.RawMessage, error) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, invalid(name, "not a list")
	}
	return list, nil
}

// tuple unmarshals a fixed-arity JSON array element by element.
func tuple(field string, pos int, raw json.RawMessage, dst ...any) error {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return invalid(field, "record %d is not a list", pos)
	}
	if len(items) != len(dst) {
		return invalid(field, "record %d has %d elements, expected %d", pos, len(items), len(dst))
	}
	for i, item := range items {
		if err := json.Unmarshal(item, dst[i]); err != nil {
			return invalid(field, "record %d element %d: %v", pos, i, err)
		}
	}
	return nil
}

type roundSeat struct {
	round  int
	player string
}

func decodeV1(fields map[string]json.RawMessage, snap *Snapshot) error {
	roster := make(map[string]struct{}, len(snap.Players))
	for _, name := range snap.Players {
		roster[name] = struct{}{}
	}

	list, err := records(fields, "s")
	if err != nil {
		return err
	}
	seen := make(map[roundSeat]struct{}, len(list))
	snap.Scores = make([]models.Score, 0, len(list))
	for i, raw := range list {
		var (
			sc models.Score
			ts int64
		)
		if err := tuple("s", i, raw, &sc.RoundIndex, &sc.PlayerName, &sc.Point, &sc.Rank, &ts, &sc.FormattedTime); err != nil {
			return err
		}
		if sc.RoundIndex < 1 {
			return invalid("s", "record %d: round %d is below 1", i, sc.RoundIndex)
		}
		if sc.Rank < 1 {
			return invalid("s", "record %d: rank %d is below 1", i, sc.Rank)
		}
		if _, ok := roster[sc.PlayerName]; !ok {
			return invalid("s", "record %d: player %q is not in the roster", i, sc.PlayerName)
		}
		key := roundSeat{sc.RoundIndex, sc.PlayerName}
		if _, dup := seen[key]; dup {
			return invalid("s", "record %d: player %q appears twice in round %d", i, sc.PlayerName, sc.RoundIndex)
		}
		seen[key] = struct{}{}
		sc.Timestamp = time.UnixMilli(ts)
		snap.Scores = append(snap.Scores, sc)
	}

	list, err = records(fields, "c")
	if err != nil {
		return err
	}
	snap.Chips = make([]models.Chip, 0, len(list))
	for i, raw := range list {
		var (
			c  models.Chip
			ts int64
		)
		if err := tuple("c", i, raw, &c.RoundIndex, &c.PlayerName, &c.ChipPoint, &ts, &c.FormattedTime); err != nil {
			return err
		}
		if c.RoundIndex < 0 {
			return invalid("c", "record %d: round %d is negative", i, c.RoundIndex)
		}
		if _, ok := roster[c.PlayerName]; !ok {
			return invalid("c", "record %d: player %q is not in the roster", i, c.PlayerName)
		}
		c.Timestamp = time.UnixMilli(ts)
		snap.Chips = append(snap.Chips, c)
	}
	return nil
}

func decodeV2(fields map[string]json.RawMessage, snap *Snapshot, now time.Time) error {
	ts := time.UnixMilli(now.UnixMilli())
	formatted := models.FormatDisplayTime(now)

	player := func(field string, pos, idx int) (string, error) {
		if idx < 0 || idx >= len(snap.Players) {
			return "", invalid(field, "record %d: player index %d out of range", pos, idx)
		}
		return snap.Players[idx], nil
	}

	list, err := records(fields, "s")
	if err != nil {
		return err
	}
	rounds := make(map[int]map[string]int)
	var order []int
	for i, raw := range list {
		var round, idx, point int
		if err := tuple("s", i, raw, &round, &idx, &point); err != nil {
			return err
		}
		if round < 1 {
			return invalid("s", "record %d: round %d is below 1", i, round)
		}
		name, err := player("s", i, idx)
		if err != nil {
			return err
		}
		points, ok := rounds[round]
		if !ok {
			points = make(map[string]int, len(snap.Players))
			rounds[round] = points
			order = append(order, round)
		}
		if _, dup := points[name]; dup {
			return invalid("s", "record %d: player %q appears twice in round %d", i, name, round)
		}
		points[name] = point
	}

	sort.Ints(order)
	snap.Scores = make([]models.Score, 0, len(list))
	for _, round := range order {
		points := rounds[round]
		ranks := scoring.CalculateRanks(points)
		for _, name := range snap.Players {
			point, ok := points[name]
			if !ok {
				continue
			}
			snap.Scores = append(snap.Scores, models.Score{
				RoundIndex:    round,
				PlayerName:    name,
				Point:         point,
				Rank:          ranks[name],
				Timestamp:     ts,
				FormattedTime: formatted,
			})
		}
	}

	list, err = records(fields, "c")
	if err != nil {
		return err
	}
	snap.Chips = make([]models.Chip, 0, len(list))
	for i, raw := range list {
		var round, idx, chip int
		if err := tuple("c", i, raw, &round, &idx, &chip); err != nil {
			return err
		}
		if round < 0 {
			return invalid("c", "record %d: round %d is negative", i, round)
		}
		name, err := player("c", i, idx)
		if err != nil {
			return err
		}
		snap.Chips = append(snap.Chips, models.Chip{
			RoundIndex:    round,
			PlayerName:    name,
			ChipPoint:     chip,
			Timestamp:     ts,
			FormattedTime: formatted,
		})
	}
	return nil
}
