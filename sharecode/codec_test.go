package sharecode

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/mahjong-scorebook/models"
)

var importTime = time.Date(2024, 3, 9, 18, 4, 0, 0, time.Local)

func codeFor(t *testing.T, payload any) string {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return EncodeTransport(data)
}

func sampleSnapshot() *Snapshot {
	players := []string{"東", "南", "西", "北"}
	points := [][]int{
		{30, 10, -10, -30},
		{20, 0, 0, -20},
		{-5, 15, 5, -15},
	}
	ranks := [][]int{
		{1, 2, 3, 4},
		{1, 2, 2, 4},
		{3, 1, 2, 4},
	}
	snap := &Snapshot{Version: Version2, PlayerCount: 4, StartDate: "2024/03/09", Players: players}
	for r := range points {
		for i, name := range players {
			snap.Scores = append(snap.Scores, models.Score{
				RoundIndex: r + 1,
				PlayerName: name,
				Point:      points[r][i],
				Rank:       ranks[r][i],
			})
		}
	}
	snap.Chips = []models.Chip{
		{RoundIndex: 1, PlayerName: "東", ChipPoint: 3},
		{RoundIndex: 1, PlayerName: "北", ChipPoint: -3},
	}
	return snap
}

type seat struct {
	Point int
	Rank  int
}

func byRound(scores []models.Score) map[int]map[string]seat {
	out := make(map[int]map[string]seat)
	for _, s := range scores {
		if out[s.RoundIndex] == nil {
			out[s.RoundIndex] = make(map[string]seat)
		}
		out[s.RoundIndex][s.PlayerName] = seat{Point: s.Point, Rank: s.Rank}
	}
	return out
}

func TestTransportEscapesLikeEncodeURIComponent(t *testing.T) {
	got := EncodeTransport([]byte(`{"a":1} -_.!~*'()+`))
	want := base64.StdEncoding.EncodeToString([]byte(`%7B%22a%22%3A1%7D%20-_.!~*'()%2B`))
	assert.Equal(t, want, got)

	back, err := DecodeTransport(got)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1} -_.!~*'()+`, string(back))
}

func TestTransportRoundTripMultibyte(t *testing.T) {
	payload := []byte(`{"p":["東","南","西"]}`)
	code := EncodeTransport(payload)
	assert.Regexp(t, `^[A-Za-z0-9+/=]+$`, code)

	back, err := DecodeTransport(code)
	require.NoError(t, err)
	assert.Equal(t, payload, back)
}

func TestDecodeTransportToleratesWhitespaceAndMissingPadding(t *testing.T) {
	payload := []byte(`{"v":2}`)
	code := EncodeTransport(payload)

	wrapped := code[:5] + "\n" + code[5:10] + "  \t" + code[10:] + "\r\n"
	back, err := DecodeTransport(wrapped)
	require.NoError(t, err)
	assert.Equal(t, payload, back)

	unpadded := strings.TrimRight(code, "=")
	back, err = DecodeTransport(unpadded)
	require.NoError(t, err)
	assert.Equal(t, payload, back)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	snap := sampleSnapshot()

	code, err := Encode(snap)
	require.NoError(t, err)

	got, err := Decode(code, importTime)
	require.NoError(t, err)

	assert.Equal(t, Version2, got.Version)
	assert.Equal(t, snap.PlayerCount, got.PlayerCount)
	assert.Equal(t, snap.StartDate, got.StartDate)
	assert.Equal(t, snap.Players, got.Players)
	assert.Equal(t, byRound(snap.Scores), byRound(got.Scores))

	for _, s := range got.Scores {
		assert.Equal(t, importTime.UnixMilli(), s.Timestamp.UnixMilli())
		assert.Equal(t, "3月9日18:04", s.FormattedTime)
	}

	require.Len(t, got.Chips, 2)
	assert.Equal(t, "東", got.Chips[0].PlayerName)
	assert.Equal(t, 3, got.Chips[0].ChipPoint)
	assert.Equal(t, 1, got.Chips[0].RoundIndex)
	assert.Equal(t, "北", got.Chips[1].PlayerName)
	assert.Equal(t, -3, got.Chips[1].ChipPoint)
}

func TestEncodeProducesSortedCompactPayload(t *testing.T) {
	snap := &Snapshot{
		PlayerCount: 3,
		StartDate:   "2024/01/02",
		Players:     []string{"a", "b", "c"},
		Scores: []models.Score{
			{RoundIndex: 2, PlayerName: "c", Point: -1},
			{RoundIndex: 1, PlayerName: "b", Point: -5},
			{RoundIndex: 2, PlayerName: "a", Point: 1},
			{RoundIndex: 1, PlayerName: "a", Point: 5},
		},
	}

	code, err := Encode(snap)
	require.NoError(t, err)
	raw, err := DecodeTransport(code)
	require.NoError(t, err)

	assert.JSONEq(t, `{"v":2,"pc":3,"d":"2024/01/02","p":["a","b","c"],"s":[[1,0,5],[1,1,-5],[2,0,1],[2,2,-1]]}`, string(raw))
	assert.NotContains(t, string(raw), `"c":`)
}

func TestEncodeSortsChipsByRoundAndSeat(t *testing.T) {
	snap := &Snapshot{
		PlayerCount: 3,
		StartDate:   "2024/01/02",
		Players:     []string{"a", "b", "c"},
		Chips: []models.Chip{
			{RoundIndex: 2, PlayerName: "c", ChipPoint: -1},
			{RoundIndex: 1, PlayerName: "c", ChipPoint: -2},
			{RoundIndex: 2, PlayerName: "b", ChipPoint: 1},
			{RoundIndex: 1, PlayerName: "a", ChipPoint: 2},
			{RoundIndex: 0, PlayerName: "b", ChipPoint: 1},
		},
	}

	code, err := Encode(snap)
	require.NoError(t, err)
	raw, err := DecodeTransport(code)
	require.NoError(t, err)

	assert.JSONEq(t, `{"v":2,"pc":3,"d":"2024/01/02","p":["a","b","c"],"s":[],"c":[[0,1,1],[1,0,2],[1,2,-2],[2,1,1],[2,2,-1]]}`, string(raw))
}

func TestEncodeRejectsUnknownPlayer(t *testing.T) {
	snap := sampleSnapshot()
	snap.Scores[0].PlayerName = "誰"

	_, err := Encode(snap)
	assert.Error(t, err)
}

func TestDecodeVersion1KeepsRowsLiterally(t *testing.T) {
	ts := time.Date(2023, 11, 2, 21, 15, 0, 0, time.Local)
	code := codeFor(t, map[string]any{
		"v":  1,
		"pc": 3,
		"d":  "2023/11/02",
		"p":  []string{"a", "b", "c"},
		"s": [][]any{
			{1, "a", 10, 1, ts.UnixMilli(), "11月2日21:15"},
			{1, "b", 0, 3, ts.UnixMilli(), "11月2日21:15"},
			{1, "c", -10, 3, ts.UnixMilli(), "11月2日21:15"},
		},
		"c": [][]any{
			{0, "a", 2, ts.UnixMilli(), "11月2日21:15"},
			{0, "c", -2, ts.UnixMilli(), "11月2日21:15"},
		},
	})

	got, err := Decode(code, importTime)
	require.NoError(t, err)

	assert.Equal(t, Version1, got.Version)
	require.Len(t, got.Scores, 3)
	// The stored rank of b is kept even though recomputing would give 2.
	assert.Equal(t, 3, got.Scores[1].Rank)
	for _, s := range got.Scores {
		assert.Equal(t, ts.UnixMilli(), s.Timestamp.UnixMilli())
		assert.Equal(t, "11月2日21:15", s.FormattedTime)
	}
	require.Len(t, got.Chips, 2)
	assert.Equal(t, 0, got.Chips[0].RoundIndex)
	assert.Equal(t, ts.UnixMilli(), got.Chips[1].Timestamp.UnixMilli())
}

func TestDecodeVersion1AndVersion2AreEquivalent(t *testing.T) {
	ts := time.Date(2024, 2, 1, 12, 0, 0, 0, time.Local).UnixMilli()
	v1 := codeFor(t, map[string]any{
		"v": 1, "pc": 3, "d": "2024/02/01", "p": []string{"x", "y", "z"},
		"s": [][]any{
			{1, "x", 20, 1, ts, "2月1日12:00"},
			{1, "y", -10, 2, ts, "2月1日12:00"},
			{1, "z", -10, 2, ts, "2月1日12:00"},
			{2, "x", -7, 3, ts + 60000, "2月1日12:01"},
			{2, "y", 4, 1, ts + 60000, "2月1日12:01"},
			{2, "z", 3, 2, ts + 60000, "2月1日12:01"},
		},
	})
	v2 := codeFor(t, map[string]any{
		"v": 2, "pc": 3, "d": "2024/02/01", "p": []string{"x", "y", "z"},
		"s": [][]int{{1, 0, 20}, {1, 1, -10}, {1, 2, -10}, {2, 0, -7}, {2, 1, 4}, {2, 2, 3}},
	})

	a, err := Decode(v1, importTime)
	require.NoError(t, err)
	b, err := Decode(v2, importTime)
	require.NoError(t, err)

	assert.Equal(t, a.Players, b.Players)
	assert.Equal(t, a.PlayerCount, b.PlayerCount)
	assert.Equal(t, byRound(a.Scores), byRound(b.Scores))
	assert.Empty(t, b.Chips)
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":             "",
		"only whitespace":   " \n\t ",
		"not base64":        "!!!not-base64!!!",
		"bad percent":       base64.StdEncoding.EncodeToString([]byte("%ZZ")),
		"invalid utf-8":     base64.StdEncoding.EncodeToString([]byte("%FF%FE")),
		"truncated payload": EncodeTransport([]byte(`{"v":2,"pc":3,`)),
		"not json":          EncodeTransport([]byte(`hello`)),
	}
	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(code, importTime)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedCode)
			var mce *MalformedCodeError
			assert.ErrorAs(t, err, &mce)
		})
	}
}

func TestDecodeInvalidPayload(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			"v": 2, "pc": 3, "d": "2024/01/01", "p": []string{"a", "b", "c"},
			"s": [][]int{{1, 0, 1}, {1, 1, -1}, {1, 2, 0}},
		}
	}
	with := func(key string, value any) map[string]any {
		m := base()
		if value == nil {
			delete(m, key)
		} else {
			m[key] = value
		}
		return m
	}

	cases := []struct {
		name    string
		payload any
		field   string
	}{
		{"array instead of object", []int{1, 2}, ""},
		{"missing version", with("v", nil), "v"},
		{"unknown version", with("v", 3), "v"},
		{"version as string", with("v", "2"), "v"},
		{"missing player count", with("pc", nil), "pc"},
		{"zero player count", with("pc", 0), "pc"},
		{"missing date", with("d", nil), "d"},
		{"blank date", with("d", " "), "d"},
		{"missing roster", with("p", nil), "p"},
		{"empty roster", with("p", []string{}), "p"},
		{"roster shorter than count", with("p", []string{"a", "b"}), "p"},
		{"duplicate roster names", with("p", []string{"a", "a", "b"}), "p"},
		{"scores not a list", with("s", "nope"), "s"},
		{"score arity", with("s", [][]int{{1, 0}}), "s"},
		{"score index out of range", with("s", [][]int{{1, 3, 0}}), "s"},
		{"score round zero", with("s", [][]int{{0, 0, 1}}), "s"},
		{"duplicate seat in round", with("s", [][]int{{1, 0, 1}, {1, 0, -1}}), "s"},
		{"chip index negative", with("c", [][]int{{0, -1, 1}}), "c"},
		{"chip round negative", with("c", [][]int{{-1, 0, 1}}), "c"},
		{"v1 unknown player", map[string]any{
			"v": 1, "pc": 3, "d": "2024/01/01", "p": []string{"a", "b", "c"},
			"s": [][]any{{1, "zz", 1, 1, 0, ""}},
		}, "s"},
		{"v1 rank zero", map[string]any{
			"v": 1, "pc": 3, "d": "2024/01/01", "p": []string{"a", "b", "c"},
			"s": [][]any{{1, "a", 1, 0, 0, ""}},
		}, "s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(codeFor(t, tc.payload), importTime)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPayload)
			var ipe *InvalidPayloadError
			require.ErrorAs(t, err, &ipe)
			assert.Equal(t, tc.field, ipe.Field)
		})
	}
}

func TestDecodeMissingScoresIsEmptyGame(t *testing.T) {
	got, err := Decode(codeFor(t, map[string]any{"v": 2, "pc": 3, "d": "2024/01/01", "p": []string{"a", "b", "c"}}), importTime)
	require.NoError(t, err)
	assert.Empty(t, got.Scores)
	assert.Empty(t, got.Chips)
}
