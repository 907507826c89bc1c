package calendar

import (
	"testing"
	"time"
)

// 2025-03-10 14:05 in Seoul.
var fixedNow = time.Date(2025, 3, 10, 5, 5, 0, 0, time.UTC)

func TestPromptTimestamp(t *testing.T) {
	got := PromptTimestamp(fixedNow)
	if got != "2025-03-10 (월) 14:05" {
		t.Errorf("PromptTimestamp = %q", got)
	}
}

func TestToday_CrossesMidnightInSeoul(t *testing.T) {
	// 16:30 UTC is already the next day in Seoul.
	late := time.Date(2025, 3, 10, 16, 30, 0, 0, time.UTC)
	if got := Today(late); got != "2025-03-11" {
		t.Errorf("Today = %q, want 2025-03-11", got)
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := []struct{ in, want string }{
		{"2025-03-10", "2025-03-10"},
		{"2025-3-1", "2025-03-01"},
		{"2025.03.10", "2025-03-10"},
		{"2025/3/10", "2025-03-10"},
		{"2025년 3월 10일", "2025-03-10"},
		{"20250310", "2025-03-10"},
		{"2025-03-10T23:30:00Z", "2025-03-11"},
		{"내일", "2025-03-11"},
		{"어제", "2025-03-09"},
	}
	for _, tc := range cases {
		got, ok := NormalizeDate(tc.in, fixedNow)
		if !ok || got != tc.want {
			t.Errorf("NormalizeDate(%q) = %q, %v; want %q", tc.in, got, ok, tc.want)
		}
	}
}

func TestNormalizeDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "next week", "2025-02-30", "2025-13-01"} {
		if got, ok := NormalizeDate(in, fixedNow); ok {
			t.Errorf("NormalizeDate(%q) = %q, want rejection", in, got)
		}
	}
}

func TestNormalizeTime(t *testing.T) {
	if got, ok := NormalizeTime("9:5"); !ok || got != "09:05" {
		t.Errorf("NormalizeTime(9:5) = %q, %v", got, ok)
	}
	if got, ok := NormalizeTime("15:30:00"); !ok || got != "15:30" {
		t.Errorf("NormalizeTime(15:30:00) = %q, %v", got, ok)
	}
	if _, ok := NormalizeTime("25:00"); ok {
		t.Error("25:00 should be rejected")
	}
}

func TestCountDday(t *testing.T) {
	d, err := CountDday("2025-03-10", fixedNow)
	if err != nil {
		t.Fatalf("CountDday: %v", err)
	}
	if d.Text != "D-DAY" || d.IsPast {
		t.Errorf("today = %+v", d)
	}
	d, _ = CountDday("2025-03-20", fixedNow)
	if d.Text != "D-10" || d.Days != 10 {
		t.Errorf("future = %+v", d)
	}
	d, _ = CountDday("2025-03-07", fixedNow)
	if d.Text != "D+3" || !d.IsPast {
		t.Errorf("past = %+v", d)
	}
	if _, err := CountDday("soon", fixedNow); err == nil {
		t.Error("expected error for bad date")
	}
}

func TestHolidayOn(t *testing.T) {
	if name, ok := HolidayOn("2030-08-15"); !ok || name != "광복절" {
		t.Errorf("solar holiday = %q, %v", name, ok)
	}
	if name, ok := HolidayOn("2025-05-05"); !ok || name != "어린이날/부처님오신날" {
		t.Errorf("overlapping holiday = %q, %v", name, ok)
	}
	if _, ok := HolidayOn("2025-03-11"); ok {
		t.Error("2025-03-11 is not a holiday")
	}
}

func TestMonthHolidays(t *testing.T) {
	hs, err := MonthHolidays(2025, time.October)
	if err != nil {
		t.Fatalf("MonthHolidays: %v", err)
	}
	// 개천절, 추석 연휴 x3 + 대체공휴일, 한글날.
	if len(hs) != 6 {
		t.Fatalf("got %d holidays: %+v", len(hs), hs)
	}
	if hs[0].Date != "2025-10-03" || hs[len(hs)-1].Date != "2025-10-09" {
		t.Errorf("unexpected order: %+v", hs)
	}
	if _, err := MonthHolidays(2025, 13); err == nil {
		t.Error("expected error for month 13")
	}
}

func TestIsRedDay(t *testing.T) {
	if !IsRedDay("2025-03-09") {
		t.Error("Sunday should be red")
	}
	if !IsRedDay("2025-03-03") {
		t.Error("substitute holiday should be red")
	}
	if IsRedDay("2025-03-10") {
		t.Error("plain Monday is not red")
	}
}
