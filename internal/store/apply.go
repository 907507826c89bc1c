package store

import (
	"slices"

	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/storage"
)

// ContactUpdate is a modification of one contact.
type ContactUpdate struct {
	ID    string
	Patch models.ContactPatch
}

// ScheduleUpdate is a modification of one schedule item.
type ScheduleUpdate struct {
	ID    string
	Patch models.SchedulePatch
}

// ExpenseUpdate is a modification of one expense.
type ExpenseUpdate struct {
	ID    string
	Patch models.ExpensePatch
}

// DiaryUpdate is a modification of one diary entry.
type DiaryUpdate struct {
	ID    string
	Patch models.DiaryPatch
}

// Changes is a set of assistant-driven operations applied atomically.
type Changes struct {
	// Insert adds records. A record whose id already exists replaces the
	// stored one in place (conflict overwrite).
	Insert models.Batch

	Contacts []ContactUpdate
	Schedule []ScheduleUpdate
	Expenses []ExpenseUpdate
	Diary    []DiaryUpdate

	// Delete moves records to the trash.
	Delete models.IDSet

	// ClearPending drops the pending batch of this session, if set.
	ClearPending string
}

// Outcome counts what Apply did.
type Outcome struct {
	Inserted   int                `json:"inserted"`
	Replaced   int                `json:"replaced"`
	Updated    int                `json:"updated"`
	Deleted    int                `json:"deleted"`
	Categories []models.Category  `json:"categories,omitempty"`
	Trashed    []models.TrashItem `json:"trashed,omitempty"`
}

// Mutated reports whether any record changed.
func (o Outcome) Mutated() bool {
	return o.Inserted+o.Replaced+o.Updated+o.Deleted+len(o.Categories) > 0
}

// Apply runs ch under one lock. Unknown ids and records that fail
// validation are skipped; nothing here returns an error.
func (s *State) Apply(ch Changes) Outcome {
	var out Outcome
	_ = s.write(func(w *writer) error {
		s.insertBatch(w, ch.Insert, &out)
		s.applyUpdates(w, ch, &out)
		s.applyDeletes(w, ch.Delete, &out)
		if ch.ClearPending != "" {
			i := indexOf(w.d.ChatSessions, func(cs models.ChatSession) bool { return cs.ID == ch.ClearPending })
			if i >= 0 && w.d.ChatSessions[i].PendingBatch != nil {
				w.d.ChatSessions[i].PendingBatch = nil
				w.touch(storage.KeyChatSessions)
			}
		}
		return nil
	})
	return out
}

func (s *State) insertBatch(w *writer, b models.Batch, out *Outcome) {
	now := s.now()

	// Categories first, so schedule items can reference them. A category
	// created concurrently under the same name is reused.
	remap := map[string]string{}
	for _, c := range b.Categories {
		if existing, ok := FindCategory(w.d.Categories, c.Name); ok {
			remap[c.ID] = existing.ID
			continue
		}
		if c.ID == "" {
			c.ID = s.newID()
		}
		if c.Color == "" {
			c.Color = models.RandomColor(nil)
		}
		w.d.Categories = append(w.d.Categories, c)
		out.Categories = append(out.Categories, c)
		w.touch(storage.KeyCategories)
	}

	for _, c := range b.Contacts {
		c, err := CleanContact(c)
		if err != nil {
			continue
		}
		upsert(&w.d.Contacts, c, c.ID, s.newID, func(x models.Contact) string { return x.ID }, func(x *models.Contact, id string) { x.ID = id }, out)
		w.touch(storage.KeyContacts)
	}
	for _, it := range b.Schedule {
		if id, ok := remap[it.CategoryID]; ok {
			it.CategoryID = id
		}
		it, err := CleanSchedule(it, now)
		if err != nil {
			continue
		}
		if checkCategory(w.d, it.CategoryID) != nil {
			it.CategoryID = ""
		}
		upsert(&w.d.Schedule, it, it.ID, s.newID, func(x models.ScheduleItem) string { return x.ID }, func(x *models.ScheduleItem, id string) { x.ID = id }, out)
		w.touch(storage.KeySchedule)
	}
	for _, e := range b.Expenses {
		e, err := CleanExpense(e, now)
		if err != nil {
			continue
		}
		upsert(&w.d.Expenses, e, e.ID, s.newID, func(x models.Expense) string { return x.ID }, func(x *models.Expense, id string) { x.ID = id }, out)
		w.touch(storage.KeyExpenses)
	}
	for _, d := range b.Diary {
		d, err := CleanDiary(d, now, s.newID)
		if err != nil {
			continue
		}
		upsert(&w.d.Diary, d, d.ID, s.newID, func(x models.DiaryEntry) string { return x.ID }, func(x *models.DiaryEntry, id string) { x.ID = id }, out)
		w.touch(storage.KeyDiary)
	}
}

func upsert[T any](list *[]T, rec T, id string, newID func() string, idOf func(T) string, setID func(*T, string), out *Outcome) {
	if id != "" {
		if i := indexOf(*list, func(x T) bool { return idOf(x) == id }); i >= 0 {
			(*list)[i] = rec
			out.Replaced++
			return
		}
	} else {
		setID(&rec, newID())
	}
	*list = append(*list, rec)
	out.Inserted++
}

func (s *State) applyUpdates(w *writer, ch Changes, out *Outcome) {
	now := s.now()
	for _, u := range ch.Contacts {
		i := indexOf(w.d.Contacts, func(c models.Contact) bool { return c.ID == u.ID })
		if i < 0 {
			continue
		}
		c := w.d.Contacts[i]
		u.Patch.Apply(&c)
		if c, err := CleanContact(c); err == nil {
			w.d.Contacts[i] = c
			out.Updated++
			w.touch(storage.KeyContacts)
		}
	}
	for _, u := range ch.Schedule {
		i := indexOf(w.d.Schedule, func(it models.ScheduleItem) bool { return it.ID == u.ID })
		if i < 0 {
			continue
		}
		it := w.d.Schedule[i]
		u.Patch.Apply(&it)
		it, err := CleanSchedule(it, now)
		if err != nil || checkCategory(w.d, it.CategoryID) != nil {
			continue
		}
		w.d.Schedule[i] = it
		out.Updated++
		w.touch(storage.KeySchedule)
	}
	for _, u := range ch.Expenses {
		i := indexOf(w.d.Expenses, func(e models.Expense) bool { return e.ID == u.ID })
		if i < 0 {
			continue
		}
		e := w.d.Expenses[i]
		u.Patch.Apply(&e)
		if e, err := CleanExpense(e, now); err == nil {
			w.d.Expenses[i] = e
			out.Updated++
			w.touch(storage.KeyExpenses)
		}
	}
	for _, u := range ch.Diary {
		i := indexOf(w.d.Diary, func(d models.DiaryEntry) bool { return d.ID == u.ID })
		if i < 0 {
			continue
		}
		d := w.d.Diary[i]
		d.ChecklistItems = slices.Clone(d.ChecklistItems)
		u.Patch.Apply(&d)
		if d, err := CleanDiary(d, now, s.newID); err == nil {
			w.d.Diary[i] = d
			out.Updated++
			w.touch(storage.KeyDiary)
		}
	}
}

func (s *State) applyDeletes(w *writer, ids models.IDSet, out *Outcome) {
	trashed := func(item models.TrashItem, err error) {
		if err == nil {
			out.Deleted++
			out.Trashed = append(out.Trashed, item)
		}
	}
	for _, id := range ids.Contacts {
		trashed(s.trashContact(w, id))
	}
	for _, id := range ids.Schedule {
		trashed(s.trashSchedule(w, id))
	}
	for _, id := range ids.Expenses {
		trashed(s.trashExpense(w, id))
	}
	for _, id := range ids.Diary {
		trashed(s.trashDiary(w, id))
	}
}
