package models

import (
	"fmt"
	"time"
)

// FormatStartDate renders a game start date (2024/01/31).
func FormatStartDate(t time.Time) string {
	return t.Format("2006/01/02")
}

// FormatDisplayTime renders the time shown next to each recorded row (1月31日09:05).
func FormatDisplayTime(t time.Time) string {
	return fmt.Sprintf("%d月%d日%02d:%02d", int(t.Month()), t.Day(), t.Hour(), t.Minute())
}
