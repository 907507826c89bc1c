package api

import (
	"encoding/base64"
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/starford/lifeone/internal/conflict"
	"github.com/starford/lifeone/internal/models"
)

var (
	colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// Image types the assistant accepts.
var imageTypes = []any{"image/png", "image/jpeg", "image/webp", "image/gif", "image/heic"}

// ContactRequest is the body of POST /api/contacts.
type ContactRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Group    string `json:"group"`
	Favorite bool   `json:"favorite"`
}

func (r ContactRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Phone, validation.Length(0, 30)),
		validation.Field(&r.Email, validation.Match(emailRe).Error("must be a valid email address")),
	)
}

func (r ContactRequest) model() models.Contact {
	return models.Contact{Name: r.Name, Phone: r.Phone, Email: r.Email, Group: r.Group, Favorite: r.Favorite}
}

// ScheduleRequest is the body of POST /api/schedule.
type ScheduleRequest struct {
	Title      string `json:"title"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Location   string `json:"location"`
	CategoryID string `json:"categoryId"`
	IsDday     bool   `json:"isDday"`
}

func (r ScheduleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Date, validation.Required),
	)
}

func (r ScheduleRequest) model() models.ScheduleItem {
	return models.ScheduleItem{
		Title: r.Title, Date: r.Date, Time: r.Time, Location: r.Location,
		CategoryID: r.CategoryID, IsDday: r.IsDday,
	}
}

// CategoryRequest is the body of POST /api/categories. An empty colour is
// replaced by a random bright one.
type CategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (r CategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Color, validation.Match(colorRe).Error("must be #RRGGBB")),
	)
}

// CategoryPatchRequest is the body of PUT /api/categories/{id}.
type CategoryPatchRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (r CategoryPatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 50)),
		validation.Field(&r.Color, validation.NilOrNotEmpty, validation.Match(colorRe).Error("must be #RRGGBB")),
	)
}

// ExpenseRequest is the body of POST /api/expenses.
type ExpenseRequest struct {
	Date     string          `json:"date"`
	Item     string          `json:"item"`
	Amount   decimal.Decimal `json:"amount"`
	Type     string          `json:"type"`
	Category string          `json:"category"`
}

func (r ExpenseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Item, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Amount, validation.By(positiveAmount)),
		validation.Field(&r.Type, validation.In(models.TypeExpense, models.TypeIncome)),
	)
}

func positiveAmount(v any) error {
	d, _ := v.(decimal.Decimal)
	if !d.IsPositive() {
		return errors.New("must be positive")
	}
	return nil
}

func (r ExpenseRequest) model() models.Expense {
	return models.Expense{Date: r.Date, Item: r.Item, Amount: r.Amount, Type: r.Type, Category: r.Category}
}

// DiaryRequest is the body of POST /api/diary.
type DiaryRequest struct {
	Date           string                 `json:"date"`
	Entry          string                 `json:"entry"`
	Group          string                 `json:"group"`
	IsChecklist    bool                   `json:"isChecklist"`
	ChecklistItems []models.ChecklistItem `json:"checklistItems"`
}

func (r DiaryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Entry, validation.When(!r.IsChecklist, validation.Required)),
		validation.Field(&r.ChecklistItems, validation.When(r.IsChecklist && r.Entry == "", validation.Required)),
	)
}

func (r DiaryRequest) model() models.DiaryEntry {
	return models.DiaryEntry{
		Date: r.Date, Entry: r.Entry, Group: r.Group,
		IsChecklist: r.IsChecklist, ChecklistItems: r.ChecklistItems,
	}
}

// SessionRequest is the body of POST and PATCH /api/chat/sessions.
type SessionRequest struct {
	Title string `json:"title"`
}

func (r SessionRequest) Validate() error {
	return validation.ValidateStruct(&r, validation.Field(&r.Title, validation.Length(0, 100)))
}

// ImageRequest is an inline image attached to a message.
type ImageRequest struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

func (r ImageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MIMEType, validation.Required, validation.In(imageTypes...)),
		validation.Field(&r.Data, validation.Required, validation.By(base64Data)),
	)
}

func base64Data(v any) error {
	s, _ := v.(string)
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return errors.New("must be base64")
	}
	return nil
}

// MessageRequest is the JSON body of POST /api/chat/sessions/{id}/messages.
// Emptiness is not a validation error; the service answers it.
type MessageRequest struct {
	Text  string        `json:"text"`
	Image *ImageRequest `json:"image"`
}

func (r MessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Length(0, 10000)),
		validation.Field(&r.Image),
	)
}

// OptionRequest is the body of POST /api/chat/sessions/{id}/options.
type OptionRequest struct {
	Option string `json:"option"`
}

func (r OptionRequest) Validate() error {
	return validation.ValidateStruct(&r, validation.Field(&r.Option, validation.Required))
}

// DecisionRequest is the body of POST /api/chat/sessions/{id}/conflicts.
type DecisionRequest struct {
	Decision string `json:"decision"`
}

func (r DecisionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Decision, validation.Required,
			validation.In(conflict.Overwrite, conflict.Ignore, conflict.Cancel)),
	)
}

// SettingsRequest is the body of PUT /api/notifications/settings.
type SettingsRequest models.NotificationSettings

func (r SettingsRequest) Validate() error {
	if r.Budget.MonthlyLimit.IsNegative() {
		return validation.Errors{"budget": validation.Errors{"monthlyLimit": errors.New("must not be negative")}}
	}
	return nil
}
