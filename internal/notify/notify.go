// Package notify derives alerts from the stored state. Notifications are not
// persisted; they are regenerated whenever a client asks or the state changes.
package notify

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/starford/lifeone/internal/calendar"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/store"
)

// Remaining-day counts that trigger a D-Day alert besides multiples of 100.
var milestones = []int{0, 1, 10, 50, 100}

var (
	warnRatio = decimal.NewFromFloat(0.8)
	hundred   = decimal.NewFromInt(100)
)

// Generate builds the notifications for snapshot as of now. The result is
// ordered budget first, then calendar alerts by date.
func Generate(settings models.NotificationSettings, snapshot store.Data, now time.Time) []models.Notification {
	out := []models.Notification{}
	today := calendar.Today(now)

	if settings.Budget.Enabled && settings.Budget.MonthlyLimit.IsPositive() {
		if n, ok := budgetAlert(settings.Budget.MonthlyLimit, snapshot.Expenses, now); ok {
			out = append(out, n)
		}
	}

	if !settings.Calendar.Enabled {
		return out
	}
	var cal []models.Notification
	for _, it := range snapshot.Schedule {
		switch {
		case it.IsDday && settings.Calendar.DDayAlerts:
			days, err := calendar.DaysUntil(it.Date, now)
			if err != nil || !isMilestone(days) {
				continue
			}
			label := "D-DAY"
			if days > 0 {
				label = fmt.Sprintf("D-%d", days)
			}
			cal = append(cal, models.Notification{
				ID:      "dday-" + it.ID + "-" + today,
				Type:    models.NotifyCalendar,
				Title:   fmt.Sprintf("%s %s", label, it.Title),
				Message: ddayMessage(it.Title, days),
				Date:    it.Date,
				RefID:   it.ID,
			})
		case !it.IsDday && settings.Calendar.TodayEventAlerts && it.Date == today:
			msg := "오늘 일정이 있습니다."
			if it.Time != "" {
				msg = fmt.Sprintf("오늘 %s에 일정이 있습니다.", it.Time)
			}
			cal = append(cal, models.Notification{
				ID:      "today-" + it.ID + "-" + today,
				Type:    models.NotifyCalendar,
				Title:   it.Title,
				Message: msg,
				Date:    it.Date,
				RefID:   it.ID,
			})
		}
	}
	slices.SortStableFunc(cal, func(a, b models.Notification) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.ID, b.ID))
	})
	return append(out, cal...)
}

func isMilestone(days int) bool {
	if days < 0 {
		return false
	}
	return slices.Contains(milestones, days) || (days > 0 && days%100 == 0)
}

func ddayMessage(title string, days int) string {
	if days == 0 {
		return fmt.Sprintf("오늘은 %s 날입니다.", title)
	}
	return fmt.Sprintf("%s까지 %d일 남았습니다.", title, days)
}

// budgetAlert compares month-to-date spending against limit.
func budgetAlert(limit decimal.Decimal, expenses []models.Expense, now time.Time) (models.Notification, bool) {
	month := calendar.MonthPrefix(now)
	spent := store.MonthSpending(expenses, month)
	pct := spent.Mul(hundred).Div(limit).Floor()
	n := models.Notification{
		Type: models.NotifyBudget,
		Date: calendar.Today(now),
	}
	switch {
	case spent.GreaterThan(limit):
		n.ID = "budget-exceeded-" + month
		n.Title = "예산 초과"
		n.Message = fmt.Sprintf("이번 달 지출 %s원이 예산 %s원을 초과했습니다. (%s%%)",
			spent.StringFixed(0), limit.StringFixed(0), pct.String())
	case spent.GreaterThanOrEqual(limit.Mul(warnRatio)):
		n.ID = "budget-warning-" + month
		n.Title = "예산 경고"
		n.Message = fmt.Sprintf("이번 달 지출이 예산의 %s%%에 도달했습니다. (%s원 / %s원)",
			pct.String(), spent.StringFixed(0), limit.StringFixed(0))
	default:
		return models.Notification{}, false
	}
	return n, true
}
