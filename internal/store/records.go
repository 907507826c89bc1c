package store

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/lifeone/internal/apperr"
	"github.com/starford/lifeone/internal/calendar"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/storage"
)

// ---------------------------------------------------------------------------
// Contacts
// ---------------------------------------------------------------------------

// ListContacts returns contacts ordered favourites first, then by name. A
// non-empty query matches a name substring (case-insensitive) or, when it
// contains digits, a phone digit substring.
func (s *State) ListContacts(query string) []models.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	digits := models.PhoneDigits(q)
	out := []models.Contact{}
	for _, c := range s.data.Contacts {
		if q != "" && !strings.Contains(strings.ToLower(c.Name), q) &&
			(digits == "" || !strings.Contains(c.Phone, digits)) {
			continue
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(a, b models.Contact) int {
		if a.Favorite != b.Favorite {
			if a.Favorite {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// GetContact returns one contact.
func (s *State) GetContact(id string) (models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.data.Contacts, func(c models.Contact) bool { return c.ID == id })
	if i < 0 {
		return models.Contact{}, fmt.Errorf("contact %s: %w", id, apperr.ErrNotFound)
	}
	return s.data.Contacts[i], nil
}

// AddContact validates c, assigns an id and stores it.
func (s *State) AddContact(c models.Contact) (models.Contact, error) {
	c, err := CleanContact(c)
	if err != nil {
		return c, err
	}
	c.ID = s.newID()
	err = s.write(func(w *writer) error {
		w.d.Contacts = append(w.d.Contacts, c)
		w.touch(storage.KeyContacts)
		return nil
	})
	return c, err
}

// UpdateContact applies p to the contact with id.
func (s *State) UpdateContact(id string, p models.ContactPatch) (models.Contact, error) {
	var out models.Contact
	err := s.write(func(w *writer) error {
		i := indexOf(w.d.Contacts, func(c models.Contact) bool { return c.ID == id })
		if i < 0 {
			return fmt.Errorf("contact %s: %w", id, apperr.ErrNotFound)
		}
		c := w.d.Contacts[i]
		p.Apply(&c)
		c, err := CleanContact(c)
		if err != nil {
			return err
		}
		w.d.Contacts[i] = c
		w.touch(storage.KeyContacts)
		out = c
		return nil
	})
	return out, err
}

// DeleteContact moves the contact to the trash.
func (s *State) DeleteContact(id string) (models.TrashItem, error) {
	var item models.TrashItem
	err := s.write(func(w *writer) error {
		var err error
		item, err = s.trashContact(w, id)
		return err
	})
	return item, err
}

func (s *State) trashContact(w *writer, id string) (models.TrashItem, error) {
	i := indexOf(w.d.Contacts, func(c models.Contact) bool { return c.ID == id })
	if i < 0 {
		return models.TrashItem{}, fmt.Errorf("contact %s: %w", id, apperr.ErrNotFound)
	}
	c := w.d.Contacts[i]
	w.d.Contacts = slices.Delete(w.d.Contacts, i, i+1)
	w.touch(storage.KeyContacts)
	return s.toTrash(w, models.KindContact, c.Name, c)
}

// ---------------------------------------------------------------------------
// Schedule
// ---------------------------------------------------------------------------

// ListSchedule returns items ordered by date and time. month ("YYYY-MM")
// restricts the result when set.
func (s *State) ListSchedule(month string) []models.ScheduleItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.ScheduleItem{}
	for _, it := range s.data.Schedule {
		if month != "" && !strings.HasPrefix(it.Date, month+"-") {
			continue
		}
		out = append(out, it)
	}
	slices.SortStableFunc(out, func(a, b models.ScheduleItem) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.Time, b.Time))
	})
	return out
}

// GetSchedule returns one schedule item.
func (s *State) GetSchedule(id string) (models.ScheduleItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.data.Schedule, func(it models.ScheduleItem) bool { return it.ID == id })
	if i < 0 {
		return models.ScheduleItem{}, fmt.Errorf("schedule %s: %w", id, apperr.ErrNotFound)
	}
	return s.data.Schedule[i], nil
}

// AddSchedule validates it, assigns an id and stores it. An unknown
// category id is rejected.
func (s *State) AddSchedule(it models.ScheduleItem) (models.ScheduleItem, error) {
	it, err := CleanSchedule(it, s.now())
	if err != nil {
		return it, err
	}
	it.ID = s.newID()
	err = s.write(func(w *writer) error {
		if err := checkCategory(w.d, it.CategoryID); err != nil {
			return err
		}
		w.d.Schedule = append(w.d.Schedule, it)
		w.touch(storage.KeySchedule)
		return nil
	})
	return it, err
}

// UpdateSchedule applies p to the item with id.
func (s *State) UpdateSchedule(id string, p models.SchedulePatch) (models.ScheduleItem, error) {
	var out models.ScheduleItem
	err := s.write(func(w *writer) error {
		i := indexOf(w.d.Schedule, func(it models.ScheduleItem) bool { return it.ID == id })
		if i < 0 {
			return fmt.Errorf("schedule %s: %w", id, apperr.ErrNotFound)
		}
		it := w.d.Schedule[i]
		p.Apply(&it)
		it, err := CleanSchedule(it, s.now())
		if err != nil {
			return err
		}
		if err := checkCategory(w.d, it.CategoryID); err != nil {
			return err
		}
		w.d.Schedule[i] = it
		w.touch(storage.KeySchedule)
		out = it
		return nil
	})
	return out, err
}

// DeleteSchedule moves the item to the trash.
func (s *State) DeleteSchedule(id string) (models.TrashItem, error) {
	var item models.TrashItem
	err := s.write(func(w *writer) error {
		var err error
		item, err = s.trashSchedule(w, id)
		return err
	})
	return item, err
}

func (s *State) trashSchedule(w *writer, id string) (models.TrashItem, error) {
	i := indexOf(w.d.Schedule, func(it models.ScheduleItem) bool { return it.ID == id })
	if i < 0 {
		return models.TrashItem{}, fmt.Errorf("schedule %s: %w", id, apperr.ErrNotFound)
	}
	it := w.d.Schedule[i]
	w.d.Schedule = slices.Delete(w.d.Schedule, i, i+1)
	w.touch(storage.KeySchedule)
	return s.toTrash(w, models.KindSchedule, it.Title, it)
}

func checkCategory(d *Data, id string) error {
	if id == "" {
		return nil
	}
	if indexOf(d.Categories, func(c models.Category) bool { return c.ID == id }) < 0 {
		return fmt.Errorf("category %s: %w", id, apperr.ErrInvalid)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Expenses
// ---------------------------------------------------------------------------

// ListExpenses returns expenses dated within [from, to] (open when empty),
// newest first.
func (s *State) ListExpenses(from, to string) []models.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Expense{}
	for _, e := range s.data.Expenses {
		if calendar.InRange(e.Date, from, to) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Expense) int { return cmp.Compare(b.Date, a.Date) })
	return out
}

// GetExpense returns one expense.
func (s *State) GetExpense(id string) (models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.data.Expenses, func(e models.Expense) bool { return e.ID == id })
	if i < 0 {
		return models.Expense{}, fmt.Errorf("expense %s: %w", id, apperr.ErrNotFound)
	}
	return s.data.Expenses[i], nil
}

// AddExpense validates e, assigns an id and stores it.
func (s *State) AddExpense(e models.Expense) (models.Expense, error) {
	e, err := CleanExpense(e, s.now())
	if err != nil {
		return e, err
	}
	e.ID = s.newID()
	err = s.write(func(w *writer) error {
		w.d.Expenses = append(w.d.Expenses, e)
		w.touch(storage.KeyExpenses)
		return nil
	})
	return e, err
}

// UpdateExpense applies p to the expense with id.
func (s *State) UpdateExpense(id string, p models.ExpensePatch) (models.Expense, error) {
	if p.Amount != nil && !p.Amount.IsPositive() {
		return models.Expense{}, fmt.Errorf("expense amount must be positive: %w", apperr.ErrInvalid)
	}
	var out models.Expense
	err := s.write(func(w *writer) error {
		i := indexOf(w.d.Expenses, func(e models.Expense) bool { return e.ID == id })
		if i < 0 {
			return fmt.Errorf("expense %s: %w", id, apperr.ErrNotFound)
		}
		e := w.d.Expenses[i]
		p.Apply(&e)
		e, err := CleanExpense(e, s.now())
		if err != nil {
			return err
		}
		w.d.Expenses[i] = e
		w.touch(storage.KeyExpenses)
		out = e
		return nil
	})
	return out, err
}

// DeleteExpense moves the expense to the trash.
func (s *State) DeleteExpense(id string) (models.TrashItem, error) {
	var item models.TrashItem
	err := s.write(func(w *writer) error {
		var err error
		item, err = s.trashExpense(w, id)
		return err
	})
	return item, err
}

func (s *State) trashExpense(w *writer, id string) (models.TrashItem, error) {
	i := indexOf(w.d.Expenses, func(e models.Expense) bool { return e.ID == id })
	if i < 0 {
		return models.TrashItem{}, fmt.Errorf("expense %s: %w", id, apperr.ErrNotFound)
	}
	e := w.d.Expenses[i]
	w.d.Expenses = slices.Delete(w.d.Expenses, i, i+1)
	w.touch(storage.KeyExpenses)
	return s.toTrash(w, models.KindExpense, e.Item, e)
}

// ---------------------------------------------------------------------------
// Diary
// ---------------------------------------------------------------------------

// ListDiary returns entries newest first, optionally for a single date.
func (s *State) ListDiary(date string) []models.DiaryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.DiaryEntry{}
	for _, d := range s.data.Diary {
		if date != "" && d.Date != date {
			continue
		}
		d.ChecklistItems = clone(d.ChecklistItems)
		out = append(out, d)
	}
	slices.SortStableFunc(out, func(a, b models.DiaryEntry) int { return cmp.Compare(b.Date, a.Date) })
	return out
}

// GetDiary returns one diary entry.
func (s *State) GetDiary(id string) (models.DiaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.data.Diary, func(d models.DiaryEntry) bool { return d.ID == id })
	if i < 0 {
		return models.DiaryEntry{}, fmt.Errorf("diary %s: %w", id, apperr.ErrNotFound)
	}
	d := s.data.Diary[i]
	d.ChecklistItems = clone(d.ChecklistItems)
	return d, nil
}

// AddDiary validates d, assigns ids and stores it.
func (s *State) AddDiary(d models.DiaryEntry) (models.DiaryEntry, error) {
	d, err := CleanDiary(d, s.now(), s.newID)
	if err != nil {
		return d, err
	}
	d.ID = s.newID()
	err = s.write(func(w *writer) error {
		w.d.Diary = append(w.d.Diary, d)
		w.touch(storage.KeyDiary)
		return nil
	})
	return d, err
}

// UpdateDiary applies p to the entry with id.
func (s *State) UpdateDiary(id string, p models.DiaryPatch) (models.DiaryEntry, error) {
	var out models.DiaryEntry
	err := s.write(func(w *writer) error {
		i := indexOf(w.d.Diary, func(d models.DiaryEntry) bool { return d.ID == id })
		if i < 0 {
			return fmt.Errorf("diary %s: %w", id, apperr.ErrNotFound)
		}
		d := w.d.Diary[i]
		d.ChecklistItems = clone(d.ChecklistItems)
		p.Apply(&d)
		d, err := CleanDiary(d, s.now(), s.newID)
		if err != nil {
			return err
		}
		w.d.Diary[i] = d
		w.touch(storage.KeyDiary)
		out = d
		return nil
	})
	return out, err
}

// ToggleChecklistItem flips the completed flag of one checklist item.
func (s *State) ToggleChecklistItem(entryID, itemID string) (models.DiaryEntry, error) {
	var out models.DiaryEntry
	err := s.write(func(w *writer) error {
		i := indexOf(w.d.Diary, func(d models.DiaryEntry) bool { return d.ID == entryID })
		if i < 0 {
			return fmt.Errorf("diary %s: %w", entryID, apperr.ErrNotFound)
		}
		d := w.d.Diary[i]
		d.ChecklistItems = clone(d.ChecklistItems)
		j := indexOf(d.ChecklistItems, func(it models.ChecklistItem) bool { return it.ID == itemID })
		if j < 0 {
			return fmt.Errorf("checklist item %s: %w", itemID, apperr.ErrNotFound)
		}
		d.ChecklistItems[j].Completed = !d.ChecklistItems[j].Completed
		w.d.Diary[i] = d
		w.touch(storage.KeyDiary)
		out = d
		return nil
	})
	return out, err
}

// DeleteDiary moves the entry to the trash.
func (s *State) DeleteDiary(id string) (models.TrashItem, error) {
	var item models.TrashItem
	err := s.write(func(w *writer) error {
		var err error
		item, err = s.trashDiary(w, id)
		return err
	})
	return item, err
}

func (s *State) trashDiary(w *writer, id string) (models.TrashItem, error) {
	i := indexOf(w.d.Diary, func(d models.DiaryEntry) bool { return d.ID == id })
	if i < 0 {
		return models.TrashItem{}, fmt.Errorf("diary %s: %w", id, apperr.ErrNotFound)
	}
	d := w.d.Diary[i]
	w.d.Diary = slices.Delete(w.d.Diary, i, i+1)
	w.touch(storage.KeyDiary)
	return s.toTrash(w, models.KindDiary, diaryTitle(d), d)
}

func diaryTitle(d models.DiaryEntry) string {
	t := []rune(strings.TrimSpace(d.Entry))
	if len(t) == 0 && len(d.ChecklistItems) > 0 {
		t = []rune(d.ChecklistItems[0].Text)
	}
	if len(t) > 30 {
		return string(t[:30]) + "…"
	}
	return string(t)
}
