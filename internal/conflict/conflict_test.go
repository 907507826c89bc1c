package conflict

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/starford/lifeone/internal/models"
)

func TestDetect_ContactNameCollision(t *testing.T) {
	existing := Existing{
		Contacts: []models.Contact{{ID: "old", Name: "김민준"}},
		Schedule: []models.ScheduleItem{{ID: "s", Title: "회의", Date: "2025-03-10"}},
		Expenses: []models.Expense{{ID: "e", Item: "점심", Amount: decimal.NewFromInt(1)}},
	}
	proposed := models.Batch{
		Contacts: []models.Contact{{ID: "new", Name: "김민준"}},
		Schedule: []models.ScheduleItem{{ID: "s2", Title: "저녁", Date: "2025-03-10"}},
		Expenses: []models.Expense{{ID: "e2", Item: "커피", Amount: decimal.NewFromInt(1)}},
	}

	r := Detect(proposed, existing)
	if len(r.Contacts) != 1 || len(r.Schedule) != 0 || len(r.Expenses) != 0 {
		t.Fatalf("report = %+v", r)
	}
	if r.Contacts[0].Existing.ID != "old" || r.Contacts[0].Proposed.ID != "new" {
		t.Errorf("pair = %+v", r.Contacts[0])
	}
}

func TestDetect_CaseAndSpaceInsensitive(t *testing.T) {
	r := Detect(
		models.Batch{Schedule: []models.ScheduleItem{{ID: "p", Title: "  Team Meeting "}}},
		Existing{Schedule: []models.ScheduleItem{{ID: "x", Title: "team meeting"}}},
	)
	if len(r.Schedule) != 1 {
		t.Errorf("expected one schedule conflict, got %+v", r.Schedule)
	}
}

func TestDetect_SubstringIsNotAConflict(t *testing.T) {
	r := Detect(
		models.Batch{Expenses: []models.Expense{{Item: "점심 식사"}}},
		Existing{Expenses: []models.Expense{{Item: "점심"}}},
	)
	if !r.Empty() {
		t.Errorf("expected no conflict, got %+v", r)
	}
}

func TestDetect_EmptyInputs(t *testing.T) {
	r := Detect(models.Batch{}, Existing{})
	if !r.Empty() || r.Len() != 0 {
		t.Errorf("report = %+v", r)
	}
	if r.Contacts == nil || r.Schedule == nil || r.Expenses == nil {
		t.Error("report collections must never be nil")
	}
}

func TestResolve(t *testing.T) {
	b := models.Batch{Contacts: []models.Contact{{ID: "new", Name: "김민준"}, {ID: "other", Name: "이서연"}}}
	r := Detect(b, Existing{Contacts: []models.Contact{{ID: "old", Name: "김민준"}}})

	got, ok := Resolve(b, r, Overwrite)
	if !ok || got.Contacts[0].ID != "old" || got.Contacts[1].ID != "other" {
		t.Errorf("overwrite = %+v, %v", got.Contacts, ok)
	}
	if b.Contacts[0].ID != "new" {
		t.Error("Resolve mutated the input batch")
	}

	got, ok = Resolve(b, r, Ignore)
	if !ok || got.Contacts[0].ID != "new" {
		t.Errorf("ignore = %+v, %v", got.Contacts, ok)
	}

	if _, ok := Resolve(b, r, Cancel); ok {
		t.Error("cancel must not commit")
	}
}

func TestValidDecision(t *testing.T) {
	for _, d := range []string{Overwrite, Ignore, Cancel} {
		if !ValidDecision(d) {
			t.Errorf("%q should be valid", d)
		}
	}
	if ValidDecision("merge") {
		t.Error("merge should be invalid")
	}
}
