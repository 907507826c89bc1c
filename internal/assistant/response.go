// Package assistant turns chat turns into model requests and model replies
// into store operations.
package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/starford/lifeone/internal/models"
)

// Response is the structured reply the model is asked to produce. After
// ParseResponse every slice is non-nil.
type Response struct {
	Answer               string             `json:"answer"`
	ClarificationNeeded  bool               `json:"clarificationNeeded"`
	ClarificationOptions []string           `json:"clarificationOptions"`
	DataExtraction       Extraction         `json:"dataExtraction"`
	DataModification     Modification       `json:"dataModification"`
	DataDeletion         models.IDSet       `json:"dataDeletion"`
	WebSearchSources     []models.WebSource `json:"webSearchSources"`
}

// Extraction holds new records proposed by the model.
type Extraction struct {
	Contacts []ExtractedContact  `json:"contacts"`
	Schedule []ExtractedSchedule `json:"schedule"`
	Expenses []ExtractedExpense  `json:"expenses"`
	Diary    []ExtractedDiary    `json:"diary"`
}

// Len is the number of proposed records.
func (x Extraction) Len() int {
	return len(x.Contacts) + len(x.Schedule) + len(x.Expenses) + len(x.Diary)
}

type ExtractedContact struct {
	Name  string `json:"name"`
	Phone Text   `json:"phone"`
	Email string `json:"email"`
	Group string `json:"group"`
}

// ExtractedSchedule refers to its category by name.
type ExtractedSchedule struct {
	Title    string `json:"title"`
	Date     Text   `json:"date"`
	Time     Text   `json:"time"`
	Location string `json:"location"`
	Category string `json:"category"`
	IsDday   Flag   `json:"isDday"`
}

type ExtractedExpense struct {
	Date     Text   `json:"date"`
	Item     string `json:"item"`
	Amount   Amount `json:"amount"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

type ExtractedDiary struct {
	Date           Text            `json:"date"`
	Entry          string          `json:"entry"`
	Group          string          `json:"group"`
	IsChecklist    Flag            `json:"isChecklist"`
	ChecklistItems []ExtractedTask `json:"checklistItems"`
}

type ExtractedTask struct {
	Text      string `json:"text"`
	Completed Flag   `json:"completed"`
	DueDate   Text   `json:"dueDate"`
}

// Modification lists edits of existing records, addressed by id.
type Modification struct {
	Contacts []Edit[ContactFields]  `json:"contacts"`
	Schedule []Edit[ScheduleFields] `json:"schedule"`
	Expenses []Edit[ExpenseFields]  `json:"expenses"`
	Diary    []Edit[DiaryFields]    `json:"diary"`
}

// Len is the number of edits.
func (m Modification) Len() int {
	return len(m.Contacts) + len(m.Schedule) + len(m.Expenses) + len(m.Diary)
}

// Edit is one modification. Only the fields present in FieldsToUpdate change.
type Edit[T any] struct {
	ID             string `json:"id"`
	FieldsToUpdate T      `json:"fieldsToUpdate"`
}

type ContactFields struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Group    *string `json:"group"`
	Favorite *Flag   `json:"favorite"`
}

type ScheduleFields struct {
	Title      *string `json:"title"`
	Date       *string `json:"date"`
	Time       *string `json:"time"`
	Location   *string `json:"location"`
	CategoryID *string `json:"categoryId"`
	IsDday     *Flag   `json:"isDday"`
}

type ExpenseFields struct {
	Date     *string `json:"date"`
	Item     *string `json:"item"`
	Amount   *Amount `json:"amount"`
	Type     *string `json:"type"`
	Category *string `json:"category"`
}

type DiaryFields struct {
	Date  *string `json:"date"`
	Entry *string `json:"entry"`
	Group *string `json:"group"`
}

// Amount accepts a JSON number or a won amount written as a string:
// "12,000원", "₩4500", "3만원", "1억 2천만". A string it cannot read is
// taken as zero, so the record fails the positive-amount check instead of
// being stored with a wrong value.
type Amount struct {
	decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := parseWon(s)
		if err != nil {
			d = decimal.Zero
		}
		a.Decimal = d
		return nil
	}
	return a.Decimal.UnmarshalJSON(b)
}

var (
	wonUnits = map[rune]decimal.Decimal{
		'억': decimal.NewFromInt(100_000_000),
		'만': decimal.NewFromInt(10_000),
		'천': decimal.NewFromInt(1_000),
		'백': decimal.NewFromInt(100),
	}
	wonCleaner = strings.NewReplacer(" ", "", ",", "", "원", "", "₩", "", "\u00a0", "")
)

// parseWon reads a won amount. 억 and 만 close a group; 천 and 백 add within
// it, so "1억 2천만" is 120,000,000. A bare unit counts as one of it.
func parseWon(s string) (decimal.Decimal, error) {
	s = wonCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount: empty")
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d, nil
	}

	total, group := decimal.Zero, decimal.Zero
	rs := []rune(s)
	for i := 0; i < len(rs); {
		j := i
		for j < len(rs) && (rs[j] >= '0' && rs[j] <= '9' || rs[j] == '.') {
			j++
		}
		var n decimal.Decimal
		hasNum := j > i
		if hasNum {
			d, err := decimal.NewFromString(string(rs[i:j]))
			if err != nil {
				return decimal.Zero, fmt.Errorf("amount %q: %w", s, err)
			}
			n = d
		}
		if j == len(rs) {
			if !hasNum {
				return decimal.Zero, fmt.Errorf("amount %q: dangling unit", s)
			}
			group = group.Add(n)
			break
		}

		unit, ok := wonUnits[rs[j]]
		if !ok {
			return decimal.Zero, fmt.Errorf("amount %q: unexpected %q", s, rs[j])
		}
		switch rs[j] {
		case '억', '만':
			if !hasNum && group.IsZero() {
				n = decimal.NewFromInt(1)
			}
			total = total.Add(group.Add(n).Mul(unit))
			group = decimal.Zero
		default:
			if !hasNum {
				n = decimal.NewFromInt(1)
			}
			group = group.Add(n.Mul(unit))
		}
		i = j + 1
	}
	return total.Add(group), nil
}

// EmptyInputAnswer is returned without calling the model when the user sent
// neither text nor an image.
const EmptyInputAnswer = "입력된 내용이 없습니다."

// EmptyResponse returns a reply carrying answer and nothing else.
func EmptyResponse(answer string) Response {
	r := Response{Answer: answer}
	r.normalize()
	return r
}

func (r *Response) normalize() {
	if r.ClarificationOptions == nil {
		r.ClarificationOptions = []string{}
	}
	if r.WebSearchSources == nil {
		r.WebSearchSources = []models.WebSource{}
	}
	x := &r.DataExtraction
	x.Contacts = nonNil(x.Contacts)
	x.Schedule = nonNil(x.Schedule)
	x.Expenses = nonNil(x.Expenses)
	x.Diary = nonNil(x.Diary)
	m := &r.DataModification
	m.Contacts = nonNil(m.Contacts)
	m.Schedule = nonNil(m.Schedule)
	m.Expenses = nonNil(m.Expenses)
	m.Diary = nonNil(m.Diary)
	d := &r.DataDeletion
	d.Contacts = nonNil(d.Contacts)
	d.Schedule = nonNil(d.Schedule)
	d.Expenses = nonNil(d.Expenses)
	d.Diary = nonNil(d.Diary)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
