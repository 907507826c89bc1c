package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/lifeone/internal/apperr"
	"github.com/starford/lifeone/internal/calendar"
	"github.com/starford/lifeone/internal/models"
)

// The Clean* functions trim and default a record before it enters the state.
// They are shared by direct edits and by the assistant's extraction path; an
// error means the record must be rejected (or, for the assistant, dropped).

// CleanContact requires a name.
func CleanContact(c models.Contact) (models.Contact, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = models.PhoneDigits(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	c.Group = strings.TrimSpace(c.Group)
	if c.Group == "" {
		c.Group = models.DefaultGroup
	}
	if c.Name == "" {
		return c, fmt.Errorf("contact name is required: %w", apperr.ErrInvalid)
	}
	return c, nil
}

// CleanSchedule requires a title and a parseable date.
func CleanSchedule(s models.ScheduleItem, now time.Time) (models.ScheduleItem, error) {
	s.Title = strings.TrimSpace(s.Title)
	s.Location = strings.TrimSpace(s.Location)
	if s.CategoryID == models.UncategorizedID {
		s.CategoryID = ""
	}
	if s.Title == "" {
		return s, fmt.Errorf("schedule title is required: %w", apperr.ErrInvalid)
	}
	date, ok := calendar.NormalizeDate(s.Date, now)
	if !ok {
		return s, fmt.Errorf("schedule date %q: %w", s.Date, apperr.ErrInvalid)
	}
	s.Date = date
	if t := strings.TrimSpace(s.Time); t != "" {
		norm, ok := calendar.NormalizeTime(t)
		if !ok {
			return s, fmt.Errorf("schedule time %q: %w", s.Time, apperr.ErrInvalid)
		}
		s.Time = norm
	} else {
		s.Time = ""
	}
	return s, nil
}

// CleanExpense requires an item and a positive amount. A missing date means
// today in Seoul.
func CleanExpense(e models.Expense, now time.Time) (models.Expense, error) {
	e.Item = strings.TrimSpace(e.Item)
	e.Category = strings.TrimSpace(e.Category)
	e.Type = models.NormalizeType(e.Type)
	if e.Item == "" {
		return e, fmt.Errorf("expense item is required: %w", apperr.ErrInvalid)
	}
	if !e.Amount.IsPositive() {
		return e, fmt.Errorf("expense amount must be positive: %w", apperr.ErrInvalid)
	}
	date, err := cleanDate(e.Date, now)
	if err != nil {
		return e, err
	}
	e.Date = date
	return e, nil
}

// CleanDiary requires content: text, or a checklist with at least a title or
// one item. Checklists without a group land in the to-do group.
func CleanDiary(d models.DiaryEntry, now time.Time, newID func() string) (models.DiaryEntry, error) {
	d.Entry = strings.TrimSpace(d.Entry)
	d.Group = strings.TrimSpace(d.Group)

	items := make([]models.ChecklistItem, 0, len(d.ChecklistItems))
	for _, it := range d.ChecklistItems {
		it.Text = strings.TrimSpace(it.Text)
		if it.Text == "" {
			continue
		}
		if it.ID == "" {
			it.ID = newID()
		}
		// Due dates may be free text ("이번 주까지"); only real dates are rewritten.
		it.DueDate = strings.TrimSpace(it.DueDate)
		if due, ok := calendar.NormalizeDate(it.DueDate, now); ok {
			it.DueDate = due
		}
		items = append(items, it)
	}
	if len(items) > 0 {
		d.IsChecklist = true
	}
	d.ChecklistItems = nil
	if d.IsChecklist {
		d.ChecklistItems = items
	}

	if d.Entry == "" && len(items) == 0 {
		return d, fmt.Errorf("diary entry is empty: %w", apperr.ErrInvalid)
	}
	if d.Group == "" {
		d.Group = models.DefaultGroup
		if d.IsChecklist {
			d.Group = models.TodoGroup
		}
	}
	date, err := cleanDate(d.Date, now)
	if err != nil {
		return d, err
	}
	d.Date = date
	return d, nil
}

func cleanDate(s string, now time.Time) (string, error) {
	if strings.TrimSpace(s) == "" {
		return calendar.Today(now), nil
	}
	date, ok := calendar.NormalizeDate(s, now)
	if !ok {
		return "", fmt.Errorf("date %q: %w", s, apperr.ErrInvalid)
	}
	return date, nil
}
