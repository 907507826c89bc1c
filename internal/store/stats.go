package store

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/starford/lifeone/internal/calendar"
	"github.com/starford/lifeone/internal/models"
)

// CategoryTotal is the spending of one expense category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Stats summarises the ledger over a date range.
type Stats struct {
	From       string          `json:"from,omitempty"`
	To         string          `json:"to,omitempty"`
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	Balance    decimal.Decimal `json:"balance"`
	ByCategory []CategoryTotal `json:"byCategory"`
}

// ComputeStats totals expenses dated within [from, to]. Only spending is
// broken down by category; an empty category counts as "기타".
func ComputeStats(expenses []models.Expense, from, to string) Stats {
	st := Stats{From: from, To: to, ByCategory: []CategoryTotal{}}
	byCat := map[string]decimal.Decimal{}
	for _, e := range expenses {
		if !calendar.InRange(e.Date, from, to) {
			continue
		}
		if e.Type == models.TypeIncome {
			st.Income = st.Income.Add(e.Amount)
			continue
		}
		st.Expense = st.Expense.Add(e.Amount)
		cat := strings.TrimSpace(e.Category)
		if cat == "" {
			cat = models.DefaultGroup
		}
		byCat[cat] = byCat[cat].Add(e.Amount)
	}
	st.Balance = st.Income.Sub(st.Expense)
	for cat, total := range byCat {
		st.ByCategory = append(st.ByCategory, CategoryTotal{Category: cat, Total: total})
	}
	slices.SortFunc(st.ByCategory, func(a, b CategoryTotal) int {
		return cmp.Or(b.Total.Cmp(a.Total), cmp.Compare(a.Category, b.Category))
	})
	return st
}

// ExpenseStats computes Stats over the stored ledger.
func (s *State) ExpenseStats(from, to string) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ComputeStats(s.data.Expenses, from, to)
}

// MonthSpending sums spending (income excluded) dated in month "YYYY-MM".
func MonthSpending(expenses []models.Expense, month string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		if e.Type != models.TypeIncome && strings.HasPrefix(e.Date, month+"-") {
			total = total.Add(e.Amount)
		}
	}
	return total
}
