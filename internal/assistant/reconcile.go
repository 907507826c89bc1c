package assistant

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/lifeone/internal/calendar"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/store"
)

// Reconciler turns a parsed model reply into store operations.
type Reconciler struct {
	now   calendar.Clock
	newID func() string
	color func() string
}

// NewReconciler returns a Reconciler. Nil arguments fall back to the system
// clock, uuid v4 ids and random bright colours.
func NewReconciler(now calendar.Clock, newID func() string, color func() string) *Reconciler {
	if now == nil {
		now = calendar.SystemClock
	}
	if newID == nil {
		newID = uuid.NewString
	}
	if color == nil {
		color = func() string { return models.RandomColor(nil) }
	}
	return &Reconciler{now: now, newID: newID, color: color}
}

// Plan is what a reply asks the store to do.
type Plan struct {
	// Batch holds new records. It has to pass the conflict detector before
	// it is committed.
	Batch models.Batch
	// Changes holds modifications and confirmed deletions.
	Changes store.Changes
	// DeletionDropped is set when the reply carried deletion ids that were
	// not confirmed by the user.
	DeletionDropped bool
}

// Plan reconciles resp. prev is the conversation state before reply, the
// user message resp answers.
func (r *Reconciler) Plan(resp Response, prev ClarifyState, reply string, cats []models.Category) Plan {
	p := Plan{
		Batch:   r.NormalizeExtraction(resp.DataExtraction, cats),
		Changes: r.NormalizeModification(resp.DataModification, cats),
	}
	if ids, ok := ConfirmedDeletion(prev, reply, resp); ok {
		p.Changes.Delete = ids
	} else if !resp.DataDeletion.Empty() && After(resp).Kind != AwaitingDeletionConfirmation {
		p.DeletionDropped = true
	}
	return p
}

// ResolveCategories maps schedule category names to ids. A name matches an
// existing category when equal after trimming and case folding; every
// distinct unmatched name yields exactly one new category. ids is aligned
// with names and holds "" for blank names.
func ResolveCategories(names []string, existing []models.Category, newID, color func() string) (ids []string, created []models.Category) {
	ids = make([]string, len(names))
	fresh := map[string]string{}
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if c, ok := store.FindCategory(existing, name); ok {
			ids[i] = c.ID
			continue
		}
		key := store.CategoryKey(name)
		if id, ok := fresh[key]; ok {
			ids[i] = id
			continue
		}
		c := models.Category{ID: newID(), Name: name, Color: color()}
		created = append(created, c)
		fresh[key] = c.ID
		ids[i] = c.ID
	}
	return ids, created
}

// NormalizeExtraction cleans proposed records into a batch with fresh ids.
// Records missing their discriminating field, schedule items without a
// parseable date and expenses with a non-positive amount are dropped.
func (r *Reconciler) NormalizeExtraction(x Extraction, cats []models.Category) models.Batch {
	now := r.now()
	b := models.Batch{
		Contacts: []models.Contact{},
		Schedule: []models.ScheduleItem{},
		Expenses: []models.Expense{},
		Diary:    []models.DiaryEntry{},
	}

	for _, c := range x.Contacts {
		rec, err := store.CleanContact(models.Contact{Name: c.Name, Phone: string(c.Phone), Email: c.Email, Group: c.Group})
		if err != nil {
			continue
		}
		rec.ID = r.newID()
		b.Contacts = append(b.Contacts, rec)
	}

	var names []string
	for _, s := range x.Schedule {
		tm, ok := calendar.NormalizeTime(string(s.Time))
		if !ok {
			tm = ""
		}
		rec, err := store.CleanSchedule(models.ScheduleItem{
			Title: s.Title, Date: string(s.Date), Time: tm, Location: s.Location, IsDday: bool(s.IsDday),
		}, now)
		if err != nil {
			continue
		}
		rec.ID = r.newID()
		b.Schedule = append(b.Schedule, rec)
		names = append(names, s.Category)
	}
	ids, created := ResolveCategories(names, cats, r.newID, r.color)
	for i := range b.Schedule {
		if ids[i] != models.UncategorizedID {
			b.Schedule[i].CategoryID = ids[i]
		}
	}
	b.Categories = created

	for _, e := range x.Expenses {
		date := string(e.Date)
		if _, ok := calendar.NormalizeDate(date, now); !ok {
			date = ""
		}
		rec, err := store.CleanExpense(models.Expense{
			Date: date, Item: e.Item, Amount: e.Amount.Decimal, Type: e.Type, Category: e.Category,
		}, now)
		if err != nil {
			continue
		}
		rec.ID = r.newID()
		b.Expenses = append(b.Expenses, rec)
	}

	for _, d := range x.Diary {
		date := string(d.Date)
		if _, ok := calendar.NormalizeDate(date, now); !ok {
			date = ""
		}
		entry := models.DiaryEntry{Date: date, Entry: d.Entry, Group: d.Group, IsChecklist: bool(d.IsChecklist)}
		for _, t := range d.ChecklistItems {
			entry.ChecklistItems = append(entry.ChecklistItems, models.ChecklistItem{
				Text: t.Text, Completed: bool(t.Completed), DueDate: string(t.DueDate),
			})
		}
		rec, err := store.CleanDiary(entry, now, r.newID)
		if err != nil {
			continue
		}
		rec.ID = r.newID()
		b.Diary = append(b.Diary, rec)
	}
	return b
}

// NormalizeModification converts edits into store updates. Field values are
// normalised like extracted ones; a value that cannot be normalised leaves
// its field unchanged. Edits without an id are skipped; unknown ids are left
// for the store to ignore.
func (r *Reconciler) NormalizeModification(m Modification, cats []models.Category) store.Changes {
	now := r.now()
	var ch store.Changes

	for _, e := range m.Contacts {
		if e.ID == "" {
			continue
		}
		f := e.FieldsToUpdate
		ch.Contacts = append(ch.Contacts, store.ContactUpdate{ID: e.ID, Patch: models.ContactPatch{
			Name: f.Name, Phone: f.Phone, Email: f.Email, Group: f.Group, Favorite: (*bool)(f.Favorite),
		}})
	}

	for _, e := range m.Schedule {
		if e.ID == "" {
			continue
		}
		f := e.FieldsToUpdate
		p := models.SchedulePatch{Title: f.Title, Location: f.Location, IsDday: (*bool)(f.IsDday)}
		p.Date = normalizedDate(f.Date, now)
		if f.Time != nil {
			if strings.TrimSpace(*f.Time) == "" {
				p.Time = f.Time
			} else if tm, ok := calendar.NormalizeTime(*f.Time); ok {
				p.Time = &tm
			}
		}
		if f.CategoryID != nil {
			p.CategoryID = resolveCategoryRef(*f.CategoryID, cats)
		}
		ch.Schedule = append(ch.Schedule, store.ScheduleUpdate{ID: e.ID, Patch: p})
	}

	for _, e := range m.Expenses {
		if e.ID == "" {
			continue
		}
		f := e.FieldsToUpdate
		p := models.ExpensePatch{Item: f.Item, Type: f.Type, Category: f.Category}
		p.Date = normalizedDate(f.Date, now)
		if f.Amount != nil && f.Amount.IsPositive() {
			amt := f.Amount.Decimal
			p.Amount = &amt
		}
		ch.Expenses = append(ch.Expenses, store.ExpenseUpdate{ID: e.ID, Patch: p})
	}

	for _, e := range m.Diary {
		if e.ID == "" {
			continue
		}
		f := e.FieldsToUpdate
		p := models.DiaryPatch{Entry: f.Entry, Group: f.Group}
		p.Date = normalizedDate(f.Date, now)
		ch.Diary = append(ch.Diary, store.DiaryUpdate{ID: e.ID, Patch: p})
	}
	return ch
}

func normalizedDate(s *string, now time.Time) *string {
	if s == nil {
		return nil
	}
	d, ok := calendar.NormalizeDate(*s, now)
	if !ok {
		return nil
	}
	return &d
}

// resolveCategoryRef accepts a category id or, failing that, a category name.
// Unknown references yield nil so the field stays unchanged.
func resolveCategoryRef(ref string, cats []models.Category) *string {
	ref = strings.TrimSpace(ref)
	none := ""
	if ref == "" || ref == models.UncategorizedID {
		return &none
	}
	for _, c := range cats {
		if c.ID == ref {
			id := c.ID
			return &id
		}
	}
	if c, ok := store.FindCategory(cats, ref); ok {
		id := c.ID
		if id == models.UncategorizedID {
			return &none
		}
		return &id
	}
	return nil
}
