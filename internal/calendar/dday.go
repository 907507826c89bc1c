package calendar

import (
	"fmt"
	"time"
)

// Dday describes the distance from today to an event date.
type Dday struct {
	// Days is positive for future events, negative for past ones.
	Days   int    `json:"days"`
	Text   string `json:"text"`
	IsPast bool   `json:"isPast"`
}

// DaysUntil counts calendar days from now's Seoul date to date.
func DaysUntil(date string, now time.Time) (int, error) {
	event, err := ParseDate(date)
	if err != nil {
		return 0, fmt.Errorf("calendar: parse %q: %w", date, err)
	}
	k := InKST(now)
	today := time.Date(k.Year(), k.Month(), k.Day(), 0, 0, 0, 0, KST)
	// Seoul has no DST, so every day is exactly 24h.
	return int(event.Sub(today).Hours() / 24), nil
}

// CountDday renders the D-DAY / D-n / D+n label for date.
func CountDday(date string, now time.Time) (Dday, error) {
	n, err := DaysUntil(date, now)
	if err != nil {
		return Dday{}, err
	}
	switch {
	case n == 0:
		return Dday{Days: 0, Text: "D-DAY"}, nil
	case n > 0:
		return Dday{Days: n, Text: fmt.Sprintf("D-%d", n)}, nil
	default:
		return Dday{Days: n, Text: fmt.Sprintf("D+%d", -n), IsPast: true}, nil
	}
}
