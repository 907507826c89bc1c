package store

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/starford/lifeone/internal/apperr"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/storage"
)

// 2025-03-10 14:05 in Seoul.
var fixedNow = time.Date(2025, 3, 10, 5, 5, 0, 0, time.UTC)

func newTestState(t *testing.T) (*State, *[][]string) {
	t.Helper()
	n := 0
	var changes [][]string
	st := New(NewData(),
		WithClock(func() time.Time { return fixedNow }),
		WithIDs(func() string { n++; return fmt.Sprintf("id-%d", n) }),
		WithOnChange(func(keys []string) { changes = append(changes, keys) }),
	)
	return st, &changes
}

func TestNew_AlwaysHasReservedCategory(t *testing.T) {
	st := New(Data{Categories: []models.Category{{ID: models.UncategorizedID, Name: "renamed", Color: "#000000"}, {ID: "c1", Name: "운동"}}})
	cats := st.ListCategories()
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	if cats[0] != models.Uncategorized() {
		t.Errorf("reserved category = %+v", cats[0])
	}
}

func TestAddContact_Validates(t *testing.T) {
	st, _ := newTestState(t)
	if _, err := st.AddContact(models.Contact{Name: "  "}); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	c, err := st.AddContact(models.Contact{Name: " 김민준 ", Phone: "010-1234-5678"})
	if err != nil {
		t.Fatalf("AddContact: %v", err)
	}
	if c.ID == "" || c.Name != "김민준" || c.Phone != "01012345678" || c.Group != models.DefaultGroup {
		t.Errorf("unexpected contact %+v", c)
	}
}

func TestListContacts_Search(t *testing.T) {
	st, _ := newTestState(t)
	_, _ = st.AddContact(models.Contact{Name: "김민준", Phone: "01012345678"})
	_, _ = st.AddContact(models.Contact{Name: "Alice", Phone: "01099998888", Favorite: true})

	if got := st.ListContacts("alice"); len(got) != 1 || got[0].Name != "Alice" {
		t.Errorf("name search = %+v", got)
	}
	if got := st.ListContacts("1234"); len(got) != 1 || got[0].Name != "김민준" {
		t.Errorf("phone search = %+v", got)
	}
	all := st.ListContacts("")
	if len(all) != 2 || !all[0].Favorite {
		t.Errorf("favourites should come first: %+v", all)
	}
}

func TestDeleteRestore_RoundTrip(t *testing.T) {
	st, _ := newTestState(t)
	orig, err := st.AddSchedule(models.ScheduleItem{Title: "회의", Date: "2025.03.12", Time: "9:30", Location: "본사"})
	if err != nil {
		t.Fatalf("AddSchedule: %v", err)
	}

	item, err := st.DeleteSchedule(orig.ID)
	if err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	if item.Type != models.KindSchedule || item.Title != "회의" || !item.DeletedAt.Equal(fixedNow) {
		t.Errorf("unexpected trash item %+v", item)
	}
	if len(st.ListSchedule("")) != 0 {
		t.Fatal("schedule should be empty after delete")
	}

	if _, err := st.Restore(item.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, err := st.GetSchedule(orig.ID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if got != orig {
		t.Errorf("restored %+v, want %+v", got, orig)
	}
	if len(st.ListTrash("")) != 0 {
		t.Error("trash should be empty after restore")
	}
}

func TestRestore_ExpenseKeepsAmount(t *testing.T) {
	st, _ := newTestState(t)
	e, _ := st.AddExpense(models.Expense{Item: "점심", Amount: decimal.NewFromInt(12000)})
	item, _ := st.DeleteExpense(e.ID)
	if _, err := st.Restore(item.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, _ := st.GetExpense(e.ID)
	if !got.Amount.Equal(e.Amount) || got.Date != "2025-03-10" || got.Type != models.TypeExpense {
		t.Errorf("restored %+v", got)
	}
}

func TestRestore_ClearsDeletedCategory(t *testing.T) {
	st, _ := newTestState(t)
	cat, _ := st.AddCategory("스터디", "")
	it, _ := st.AddSchedule(models.ScheduleItem{Title: "스터디", Date: "2025-03-11", CategoryID: cat.ID})
	trashed, _ := st.DeleteSchedule(it.ID)
	if _, err := st.DeleteCategory(cat.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if _, err := st.Restore(trashed.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, _ := st.GetSchedule(it.ID)
	if got.CategoryID != "" {
		t.Errorf("CategoryID = %q, want empty", got.CategoryID)
	}
}

func TestCategory_ReservedProtected(t *testing.T) {
	st, _ := newTestState(t)
	name := "다른 이름"
	if _, err := st.UpdateCategory(models.UncategorizedID, &name, nil); !errors.Is(err, apperr.ErrReserved) {
		t.Errorf("rename: expected ErrReserved, got %v", err)
	}
	if _, err := st.DeleteCategory(models.UncategorizedID); !errors.Is(err, apperr.ErrReserved) {
		t.Errorf("delete: expected ErrReserved, got %v", err)
	}
}

func TestCategory_DuplicateName(t *testing.T) {
	st, _ := newTestState(t)
	_, _ = st.AddCategory("Study", "#AABBCC")
	if _, err := st.AddCategory(" study ", ""); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestDeleteCategory_Cascades(t *testing.T) {
	st, changes := newTestState(t)
	cat, _ := st.AddCategory("운동", "#99AABB")
	a, _ := st.AddSchedule(models.ScheduleItem{Title: "헬스", Date: "2025-03-11", CategoryID: cat.ID})
	b, _ := st.AddSchedule(models.ScheduleItem{Title: "수영", Date: "2025-03-12"})
	*changes = nil

	n, err := st.DeleteCategory(cat.ID)
	if err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if n != 1 {
		t.Errorf("detached = %d, want 1", n)
	}
	if got, _ := st.GetSchedule(a.ID); got.CategoryID != "" {
		t.Errorf("item still references deleted category")
	}
	if got, _ := st.GetSchedule(b.ID); got != b {
		t.Errorf("unrelated item changed: %+v", got)
	}
	want := []string{storage.KeyCategories, storage.KeySchedule}
	if len(*changes) != 1 || !reflect.DeepEqual((*changes)[0], want) {
		t.Errorf("changes = %v, want [%v]", *changes, want)
	}
}

func TestAddSchedule_UnknownCategory(t *testing.T) {
	st, _ := newTestState(t)
	if _, err := st.AddSchedule(models.ScheduleItem{Title: "x", Date: "2025-03-11", CategoryID: "nope"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestUpdateExpense_RejectsNonPositive(t *testing.T) {
	st, _ := newTestState(t)
	e, _ := st.AddExpense(models.Expense{Item: "커피", Amount: decimal.NewFromInt(4500)})
	zero := decimal.Zero
	if _, err := st.UpdateExpense(e.ID, models.ExpensePatch{Amount: &zero}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestToggleChecklistItem(t *testing.T) {
	st, _ := newTestState(t)
	d, err := st.AddDiary(models.DiaryEntry{Entry: "장보기", ChecklistItems: []models.ChecklistItem{{Text: "우유"}, {Text: " "}}})
	if err != nil {
		t.Fatalf("AddDiary: %v", err)
	}
	if !d.IsChecklist || d.Group != models.TodoGroup || len(d.ChecklistItems) != 1 {
		t.Fatalf("unexpected entry %+v", d)
	}
	got, err := st.ToggleChecklistItem(d.ID, d.ChecklistItems[0].ID)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !got.ChecklistItems[0].Completed {
		t.Error("item should be completed")
	}
	if _, err := st.ToggleChecklistItem(d.ID, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	now := fixedNow
	st := New(NewData(), WithClock(func() time.Time { return now }))
	old, _ := st.AddContact(models.Contact{Name: "old"})
	_, _ = st.DeleteContact(old.ID)
	now = now.Add(models.TrashRetention)
	fresh, _ := st.AddContact(models.Contact{Name: "fresh"})
	_, _ = st.DeleteContact(fresh.ID)

	if n := st.PurgeExpired(now, models.TrashRetention); n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}
	left := st.ListTrash("")
	if len(left) != 1 || left[0].Title != "fresh" {
		t.Errorf("remaining trash = %+v", left)
	}
}

func TestEmptyTrash(t *testing.T) {
	st, _ := newTestState(t)
	c, _ := st.AddContact(models.Contact{Name: "a"})
	e, _ := st.AddExpense(models.Expense{Item: "b", Amount: decimal.NewFromInt(1)})
	_, _ = st.DeleteContact(c.ID)
	_, _ = st.DeleteExpense(e.ID)

	if got := st.ListTrash(models.KindExpense); len(got) != 1 {
		t.Errorf("filtered trash = %+v", got)
	}
	if n := st.EmptyTrash(); n != 2 {
		t.Errorf("EmptyTrash = %d, want 2", n)
	}
}

func TestSessions_TitleAndSearch(t *testing.T) {
	st, _ := newTestState(t)
	cs := st.CreateSession("")
	_, err := st.AppendMessages(cs.ID, models.ChatMessage{Role: models.RoleUser, Text: "내일 오후 3시에 강남역에서 김민준이랑 저녁 약속 잡아줘"})
	if err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}
	img := st.CreateSession("")
	_, _ = st.AppendMessages(img.ID, models.ChatMessage{Role: models.RoleUser, Image: &models.ImageRef{MIMEType: "image/png"}})

	got, _ := st.GetSession(cs.ID)
	if got.Title != "내일 오후 3시에 강남역에서 김민준이랑 저녁 약속 잡아" {
		t.Errorf("title = %q", got.Title)
	}
	if got, _ := st.GetSession(img.ID); got.Title != ImageSessionTitle {
		t.Errorf("image title = %q", got.Title)
	}
	if found := st.ListSessions("강남"); len(found) != 1 || found[0].ID != cs.ID || found[0].Messages != nil {
		t.Errorf("search = %+v", found)
	}
	if _, err := st.RenameSession(cs.ID, " "); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
	if err := st.DeleteSession(cs.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := st.GetSession(cs.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	st, _ := newTestState(t)
	d, _ := st.AddDiary(models.DiaryEntry{ChecklistItems: []models.ChecklistItem{{Text: "a"}}})
	snap := st.Snapshot()
	snap.Diary[0].ChecklistItems[0].Text = "mutated"
	got, _ := st.GetDiary(d.ID)
	if got.ChecklistItems[0].Text != "a" {
		t.Error("snapshot shares checklist items with state")
	}
}

func TestExpenseStats(t *testing.T) {
	st, _ := newTestState(t)
	add := func(item, date, typ, cat string, amt int64) {
		t.Helper()
		if _, err := st.AddExpense(models.Expense{Item: item, Date: date, Type: typ, Category: cat, Amount: decimal.NewFromInt(amt)}); err != nil {
			t.Fatalf("AddExpense: %v", err)
		}
	}
	add("월급", "2025-03-01", models.TypeIncome, "", 3000000)
	add("점심", "2025-03-02", "", "식비", 12000)
	add("저녁", "2025-03-03", "", "식비", 18000)
	add("택시", "2025-03-04", "", "", 9000)
	add("지난달", "2025-02-28", "", "식비", 50000)

	stats := st.ExpenseStats("2025-03-01", "2025-03-31")
	if !stats.Income.Equal(decimal.NewFromInt(3000000)) || !stats.Expense.Equal(decimal.NewFromInt(39000)) {
		t.Errorf("income/expense = %s/%s", stats.Income, stats.Expense)
	}
	if !stats.Balance.Equal(decimal.NewFromInt(2961000)) {
		t.Errorf("balance = %s", stats.Balance)
	}
	if len(stats.ByCategory) != 2 || stats.ByCategory[0].Category != "식비" || stats.ByCategory[1].Category != models.DefaultGroup {
		t.Errorf("by category = %+v", stats.ByCategory)
	}
	if got := MonthSpending(st.Snapshot().Expenses, "2025-03"); !got.Equal(decimal.NewFromInt(39000)) {
		t.Errorf("MonthSpending = %s", got)
	}
}
