// Package conflict finds proposed records that duplicate existing ones.
//
// Two records collide when their discriminating field (contact name,
// schedule title, expense item) is equal after trimming and case folding.
// Diary entries never collide.
package conflict

import (
	"strings"

	"github.com/starford/lifeone/internal/models"
)

// Decisions a user can take on a non-empty report.
const (
	Overwrite = "overwrite"
	Ignore    = "ignore"
	Cancel    = "cancel"
)

// ValidDecision reports whether d is one of the three decisions.
func ValidDecision(d string) bool {
	return d == Overwrite || d == Ignore || d == Cancel
}

// Pair is a proposed record and the existing record it collides with.
type Pair[T any] struct {
	Proposed T `json:"proposed"`
	Existing T `json:"existing"`
}

// Report groups collisions per collection.
type Report struct {
	Contacts []Pair[models.Contact]      `json:"contacts"`
	Schedule []Pair[models.ScheduleItem] `json:"schedule"`
	Expenses []Pair[models.Expense]      `json:"expenses"`
}

// Empty reports whether nothing collides.
func (r Report) Empty() bool {
	return len(r.Contacts) == 0 && len(r.Schedule) == 0 && len(r.Expenses) == 0
}

// Len is the number of colliding proposals.
func (r Report) Len() int {
	return len(r.Contacts) + len(r.Schedule) + len(r.Expenses)
}

// Existing is the part of the store the detector compares against.
type Existing struct {
	Contacts []models.Contact
	Schedule []models.ScheduleItem
	Expenses []models.Expense
}

// Key is the comparison form of a discriminating field.
func Key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Detect compares proposed against existing. It never mutates either side.
func Detect(proposed models.Batch, existing Existing) Report {
	r := Report{
		Contacts: match(proposed.Contacts, existing.Contacts, func(c models.Contact) string { return c.Name }),
		Schedule: match(proposed.Schedule, existing.Schedule, func(s models.ScheduleItem) string { return s.Title }),
		Expenses: match(proposed.Expenses, existing.Expenses, func(e models.Expense) string { return e.Item }),
	}
	return r
}

func match[T any](proposed, existing []T, field func(T) string) []Pair[T] {
	out := []Pair[T]{}
	if len(proposed) == 0 || len(existing) == 0 {
		return out
	}
	byKey := make(map[string]T, len(existing))
	for _, e := range existing {
		k := Key(field(e))
		if k == "" {
			continue
		}
		// First record wins when the store already holds duplicates.
		if _, ok := byKey[k]; !ok {
			byKey[k] = e
		}
	}
	for _, p := range proposed {
		if e, ok := byKey[Key(field(p))]; ok {
			out = append(out, Pair[T]{Proposed: p, Existing: e})
		}
	}
	return out
}

// Resolve turns a batch and its report into what should be committed for
// decision. Overwrite gives each colliding proposal the id of the record it
// replaces; Ignore keeps the batch as is; Cancel returns false.
func Resolve(b models.Batch, r Report, decision string) (models.Batch, bool) {
	switch decision {
	case Ignore:
		return b, true
	case Overwrite:
		out := b
		out.Contacts = retarget(b.Contacts, r.Contacts,
			func(c models.Contact) string { return c.ID }, func(c *models.Contact, id string) { c.ID = id })
		out.Schedule = retarget(b.Schedule, r.Schedule,
			func(s models.ScheduleItem) string { return s.ID }, func(s *models.ScheduleItem, id string) { s.ID = id })
		out.Expenses = retarget(b.Expenses, r.Expenses,
			func(e models.Expense) string { return e.ID }, func(e *models.Expense, id string) { e.ID = id })
		return out, true
	default:
		return models.Batch{}, false
	}
}

func retarget[T any](items []T, pairs []Pair[T], idOf func(T) string, setID func(*T, string)) []T {
	if len(pairs) == 0 {
		return items
	}
	target := make(map[string]string, len(pairs))
	for _, p := range pairs {
		target[idOf(p.Proposed)] = idOf(p.Existing)
	}
	out := make([]T, len(items))
	copy(out, items)
	for i := range out {
		if id, ok := target[idOf(out[i])]; ok {
			setID(&out[i], id)
		}
	}
	return out
}
