package calendar

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ymdRe     = regexp.MustCompile(`^(\d{4})\s*[-./년]\s*(\d{1,2})\s*[-./월]\s*(\d{1,2})\s*[.일]?$`)
	compactRe = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	timeRe    = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})(?::\d{1,2})?$`)
)

var relativeDays = map[string]int{
	"그제": -2, "그저께": -2, "어제": -1, "오늘": 0, "내일": 1, "모레": 2,
}

// NormalizeDate turns the date spellings the assistant tends to produce into
// YYYY-MM-DD. Relative Korean words resolve against now in Seoul. The boolean is
// false when s is not a valid calendar date.
func NormalizeDate(s string, now time.Time) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if off, ok := relativeDays[s]; ok {
		return InKST(now).AddDate(0, 0, off).Format(DateLayout), true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			if layout == time.RFC3339 {
				t = InKST(t)
			}
			return t.Format(DateLayout), true
		}
	}
	m := ymdRe.FindStringSubmatch(s)
	if m == nil {
		m = compactRe.FindStringSubmatch(s)
	}
	if m == nil {
		return "", false
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, KST)
	// time.Date normalizes overflow (2025-02-30 -> 03-02); reject those.
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return "", false
	}
	return t.Format(DateLayout), true
}

// NormalizeTime turns "9:5" or "09:05:00" into "09:05". The boolean is false
// for anything that is not a 24-hour clock time.
func NormalizeTime(s string) (string, bool) {
	m := timeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	if h > 23 || mi > 59 {
		return "", false
	}
	return time.Date(2000, 1, 1, h, mi, 0, 0, time.UTC).Format("15:04"), true
}

// ParseDate parses a stored YYYY-MM-DD date at midnight Seoul time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, KST)
}

// InRange reports whether date lies in [from, to]. Empty bounds are open.
// All three are YYYY-MM-DD, so string comparison is date comparison.
func InRange(date, from, to string) bool {
	if from != "" && date < from {
		return false
	}
	if to != "" && date > to {
		return false
	}
	return true
}
