package models

import "github.com/shopspring/decimal"

// NotificationSettings is read by the notification rules.
type NotificationSettings struct {
	Calendar CalendarAlerts `json:"calendar"`
	Budget   BudgetAlerts   `json:"budget"`
}

// CalendarAlerts toggles schedule-driven notifications.
type CalendarAlerts struct {
	Enabled          bool `json:"enabled"`
	DDayAlerts       bool `json:"dDayAlerts"`
	TodayEventAlerts bool `json:"todayEventAlerts"`
}

// BudgetAlerts toggles the monthly spending limit check.
type BudgetAlerts struct {
	Enabled      bool            `json:"enabled"`
	MonthlyLimit decimal.Decimal `json:"monthlyLimit"`
}

// DefaultNotificationSettings enables calendar alerts and leaves the budget off.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Calendar: CalendarAlerts{Enabled: true, DDayAlerts: true, TodayEventAlerts: true},
	}
}

// Notification types.
const (
	NotifyCalendar = "calendar"
	NotifyBudget   = "budget"
	NotifySystem   = "system"
)

// Notification is a generated, non-persisted alert.
type Notification struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Date    string `json:"date"`
	RefID   string `json:"refId,omitempty"`
}
