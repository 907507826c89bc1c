package store

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/starford/lifeone/internal/apperr"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/storage"
)

func (s *State) toTrash(w *writer, kind, title string, record any) (models.TrashItem, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return models.TrashItem{}, fmt.Errorf("trash %s: %w", kind, err)
	}
	item := models.TrashItem{
		ID:        s.newID(),
		Type:      kind,
		Title:     title,
		Payload:   payload,
		DeletedAt: s.now().UTC(),
	}
	w.d.Trash = append(w.d.Trash, item)
	w.touch(storage.KeyTrash)
	return item, nil
}

// ListTrash returns trashed items, most recently deleted first. kind filters
// by record type when set.
func (s *State) ListTrash(kind string) []models.TrashItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.TrashItem{}
	for _, t := range s.data.Trash {
		if kind == "" || t.Type == kind {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b models.TrashItem) int { return b.DeletedAt.Compare(a.DeletedAt) })
	return out
}

// Restore puts a trashed record back under its original id.
func (s *State) Restore(trashID string) (models.TrashItem, error) {
	var item models.TrashItem
	err := s.write(func(w *writer) error {
		i := indexOf(w.d.Trash, func(t models.TrashItem) bool { return t.ID == trashID })
		if i < 0 {
			return fmt.Errorf("trash %s: %w", trashID, apperr.ErrNotFound)
		}
		item = w.d.Trash[i]
		if err := restoreRecord(w, item); err != nil {
			return err
		}
		w.d.Trash = slices.Delete(w.d.Trash, i, i+1)
		w.touch(storage.KeyTrash)
		return nil
	})
	return item, err
}

func restoreRecord(w *writer, item models.TrashItem) error {
	switch item.Type {
	case models.KindContact:
		var c models.Contact
		if err := json.Unmarshal(item.Payload, &c); err != nil {
			return fmt.Errorf("restore contact: %w", err)
		}
		if indexOf(w.d.Contacts, func(x models.Contact) bool { return x.ID == c.ID }) >= 0 {
			return fmt.Errorf("contact %s: %w", c.ID, apperr.ErrConflict)
		}
		w.d.Contacts = append(w.d.Contacts, c)
		w.touch(storage.KeyContacts)
	case models.KindSchedule:
		var it models.ScheduleItem
		if err := json.Unmarshal(item.Payload, &it); err != nil {
			return fmt.Errorf("restore schedule: %w", err)
		}
		if indexOf(w.d.Schedule, func(x models.ScheduleItem) bool { return x.ID == it.ID }) >= 0 {
			return fmt.Errorf("schedule %s: %w", it.ID, apperr.ErrConflict)
		}
		// The category may have been deleted while the item sat in the trash.
		if checkCategory(w.d, it.CategoryID) != nil {
			it.CategoryID = ""
		}
		w.d.Schedule = append(w.d.Schedule, it)
		w.touch(storage.KeySchedule)
	case models.KindExpense:
		var e models.Expense
		if err := json.Unmarshal(item.Payload, &e); err != nil {
			return fmt.Errorf("restore expense: %w", err)
		}
		if indexOf(w.d.Expenses, func(x models.Expense) bool { return x.ID == e.ID }) >= 0 {
			return fmt.Errorf("expense %s: %w", e.ID, apperr.ErrConflict)
		}
		w.d.Expenses = append(w.d.Expenses, e)
		w.touch(storage.KeyExpenses)
	case models.KindDiary:
		var d models.DiaryEntry
		if err := json.Unmarshal(item.Payload, &d); err != nil {
			return fmt.Errorf("restore diary: %w", err)
		}
		if indexOf(w.d.Diary, func(x models.DiaryEntry) bool { return x.ID == d.ID }) >= 0 {
			return fmt.Errorf("diary %s: %w", d.ID, apperr.ErrConflict)
		}
		w.d.Diary = append(w.d.Diary, d)
		w.touch(storage.KeyDiary)
	default:
		return fmt.Errorf("trash type %q: %w", item.Type, apperr.ErrInvalid)
	}
	return nil
}

// DeleteForever drops one trashed record.
func (s *State) DeleteForever(trashID string) error {
	return s.write(func(w *writer) error {
		i := indexOf(w.d.Trash, func(t models.TrashItem) bool { return t.ID == trashID })
		if i < 0 {
			return fmt.Errorf("trash %s: %w", trashID, apperr.ErrNotFound)
		}
		w.d.Trash = slices.Delete(w.d.Trash, i, i+1)
		w.touch(storage.KeyTrash)
		return nil
	})
}

// EmptyTrash drops every trashed record and returns how many there were.
func (s *State) EmptyTrash() int {
	n := 0
	_ = s.write(func(w *writer) error {
		n = len(w.d.Trash)
		if n > 0 {
			w.d.Trash = []models.TrashItem{}
			w.touch(storage.KeyTrash)
		}
		return nil
	})
	return n
}

// PurgeExpired drops records deleted at least retention ago.
func (s *State) PurgeExpired(now time.Time, retention time.Duration) int {
	n := 0
	_ = s.write(func(w *writer) error {
		kept := w.d.Trash[:0:0]
		for _, t := range w.d.Trash {
			if now.Sub(t.DeletedAt) >= retention {
				n++
				continue
			}
			kept = append(kept, t)
		}
		if n > 0 {
			w.d.Trash = kept
			w.touch(storage.KeyTrash)
		}
		return nil
	})
	return n
}
