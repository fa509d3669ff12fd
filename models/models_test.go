package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatHelpers(t *testing.T) {
	ts := time.Date(2024, 1, 5, 9, 7, 0, 0, time.Local)
	assert.Equal(t, "2024/01/05", FormatStartDate(ts))
	assert.Equal(t, "1月5日09:07", FormatDisplayTime(ts))

	ts = time.Date(2023, 12, 31, 23, 59, 0, 0, time.Local)
	assert.Equal(t, "2023/12/31", FormatStartDate(ts))
	assert.Equal(t, "12月31日23:59", FormatDisplayTime(ts))
}

func TestChipEventIDs(t *testing.T) {
	e := ChipEvent{Chips: []Chip{{ID: 4}, {ID: 5}, {ID: 9}}}
	assert.Equal(t, []int{4, 5, 9}, e.IDs())
}
