// Package calendar holds the date math of the assistant: the Seoul clock, date
// normalization, Korean public holidays and D-Day counting.
package calendar

import (
	"fmt"
	"time"
)

// KST is UTC+9 without DST. A fixed zone keeps the binary independent of tzdata.
var KST = time.FixedZone("KST", 9*60*60)

// DateLayout is the only date format stored anywhere.
const DateLayout = "2006-01-02"

var weekdays = [...]string{"일", "월", "화", "수", "목", "금", "토"}

// Clock returns the current instant. Services take one so tests can pin time.
type Clock func() time.Time

// SystemClock reads the wall clock.
func SystemClock() time.Time { return time.Now() }

// InKST converts t to Seoul time.
func InKST(t time.Time) time.Time { return t.In(KST) }

// Today returns t's calendar date in Seoul as YYYY-MM-DD.
func Today(t time.Time) string { return InKST(t).Format(DateLayout) }

// PromptTimestamp formats t as "2025-03-10 (월) 14:05" in Seoul time.
func PromptTimestamp(t time.Time) string {
	k := InKST(t)
	return fmt.Sprintf("%s (%s) %s", k.Format(DateLayout), weekdays[k.Weekday()], k.Format("15:04"))
}

// MonthPrefix returns "YYYY-MM" for t in Seoul.
func MonthPrefix(t time.Time) string { return InKST(t).Format("2006-01") }
