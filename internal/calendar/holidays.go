package calendar

import (
	"fmt"
	"time"
)

// Holiday is a public holiday on a given date.
type Holiday struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// Solar holidays, keyed by MM-DD.
var fixedHolidays = map[string]string{
	"01-01": "신정",
	"03-01": "삼일절",
	"05-05": "어린이날",
	"06-06": "현충일",
	"08-15": "광복절",
	"10-03": "개천절",
	"10-09": "한글날",
	"12-25": "크리스마스",
}

// Lunar and substitute holidays do not follow the solar calendar; they are
// listed per date for the years the app supports.
// TODO: extend past 2026 once the government publishes the 2027 calendar.
var variableHolidays = map[string]string{
	"2024-02-09": "설날 연휴", "2024-02-10": "설날", "2024-02-11": "설날 연휴", "2024-02-12": "대체공휴일",
	"2024-04-10": "국회의원 선거",
	"2024-05-06": "대체공휴일",
	"2024-05-15": "부처님오신날",
	"2024-09-16": "추석 연휴", "2024-09-17": "추석", "2024-09-18": "추석 연휴",

	"2025-01-28": "설날 연휴", "2025-01-29": "설날", "2025-01-30": "설날 연휴",
	"2025-03-03": "대체공휴일",
	"2025-05-05": "어린이날/부처님오신날",
	"2025-05-06": "대체공휴일",
	"2025-10-05": "추석 연휴", "2025-10-06": "추석", "2025-10-07": "추석 연휴", "2025-10-08": "대체공휴일",

	"2026-02-16": "설날 연휴", "2026-02-17": "설날", "2026-02-18": "설날 연휴",
	"2026-05-24": "부처님오신날", "2026-05-25": "대체공휴일",
	"2026-09-24": "추석 연휴", "2026-09-25": "추석", "2026-09-26": "추석 연휴",
}

// HolidayOn returns the holiday name for a YYYY-MM-DD date. A date-specific
// entry wins over the solar one (2025-05-05 is two holidays at once).
func HolidayOn(date string) (string, bool) {
	if name, ok := variableHolidays[date]; ok {
		return name, true
	}
	if len(date) != len(DateLayout) {
		return "", false
	}
	name, ok := fixedHolidays[date[5:]]
	return name, ok
}

// MonthHolidays lists the holidays of a month in date order.
func MonthHolidays(year int, month time.Month) ([]Holiday, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("calendar: month %d out of range", month)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, KST)
	out := []Holiday{}
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		date := d.Format(DateLayout)
		if name, ok := HolidayOn(date); ok {
			out = append(out, Holiday{Date: date, Name: name})
		}
	}
	return out, nil
}

// IsRedDay reports whether date is a Sunday or a holiday.
func IsRedDay(date string) bool {
	t, err := ParseDate(date)
	if err != nil {
		return false
	}
	if t.Weekday() == time.Sunday {
		return true
	}
	_, ok := HolidayOn(date)
	return ok
}
