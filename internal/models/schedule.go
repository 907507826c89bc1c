package models

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Reserved category. It always exists and cannot be deleted.
const (
	UncategorizedID    = "default-uncategorized"
	UncategorizedName  = "미분류"
	UncategorizedColor = "#A1A1AA"
)

// ScheduleItem is a calendar event. An empty CategoryID renders as uncategorized.
type ScheduleItem struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Date       string `json:"date"`
	Time       string `json:"time,omitempty"`
	Location   string `json:"location,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
	IsDday     bool   `json:"isDday"`
}

// SchedulePatch lists the fields a modification may overwrite.
type SchedulePatch struct {
	Title      *string `json:"title,omitempty"`
	Date       *string `json:"date,omitempty"`
	Time       *string `json:"time,omitempty"`
	Location   *string `json:"location,omitempty"`
	CategoryID *string `json:"categoryId,omitempty"`
	IsDday     *bool   `json:"isDday,omitempty"`
}

// Apply overwrites the fields set in p. Dates must already be normalized.
func (p SchedulePatch) Apply(s *ScheduleItem) {
	if p.Title != nil {
		s.Title = strings.TrimSpace(*p.Title)
	}
	if p.Date != nil {
		s.Date = *p.Date
	}
	if p.Time != nil {
		s.Time = strings.TrimSpace(*p.Time)
	}
	if p.Location != nil {
		s.Location = strings.TrimSpace(*p.Location)
	}
	if p.CategoryID != nil {
		s.CategoryID = *p.CategoryID
		if s.CategoryID == UncategorizedID {
			s.CategoryID = ""
		}
	}
	if p.IsDday != nil {
		s.IsDday = *p.IsDday
	}
}

// Category groups schedule items under a colour.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Uncategorized returns the reserved category.
func Uncategorized() Category {
	return Category{ID: UncategorizedID, Name: UncategorizedName, Color: UncategorizedColor}
}

const brightHex = "89ABCDEF"

// RandomColor returns a bright #RRGGBB colour. Every hex digit is 8..F, so
// text on top of it stays readable.
func RandomColor(r *rand.Rand) string {
	var b strings.Builder
	b.WriteByte('#')
	for range 6 {
		var n int
		if r != nil {
			n = r.IntN(len(brightHex))
		} else {
			n = rand.IntN(len(brightHex))
		}
		b.WriteByte(brightHex[n])
	}
	return b.String()
}

// IsLight reports whether dark text should be drawn on color.
func IsLight(color string) (bool, error) {
	hex := strings.TrimPrefix(color, "#")
	if len(hex) != 6 {
		return false, fmt.Errorf("color %q: want #RRGGBB", color)
	}
	var rgb [3]int64
	for i := range rgb {
		v, err := strconv.ParseInt(hex[i*2:i*2+2], 16, 64)
		if err != nil {
			return false, fmt.Errorf("color %q: %w", color, err)
		}
		rgb[i] = v
	}
	brightness := (rgb[0]*299 + rgb[1]*587 + rgb[2]*114) / 1000
	return brightness > 155, nil
}
