package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Transaction types.
const (
	TypeExpense = "expense"
	TypeIncome  = "income"
)

func init() {
	// Amounts travel as JSON numbers, the way the assistant and clients send them.
	decimal.MarshalJSONWithoutQuotes = true
}

// Expense is a ledger line. Amount is always positive; Type carries the sign.
type Expense struct {
	ID       string          `json:"id"`
	Date     string          `json:"date"`
	Item     string          `json:"item"`
	Amount   decimal.Decimal `json:"amount"`
	Type     string          `json:"type"`
	Category string          `json:"category,omitempty"`
}

// ExpensePatch lists the fields a modification may overwrite.
type ExpensePatch struct {
	Date     *string          `json:"date,omitempty"`
	Item     *string          `json:"item,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Type     *string          `json:"type,omitempty"`
	Category *string          `json:"category,omitempty"`
}

// Apply overwrites the fields set in p. Non-positive amounts are ignored.
func (p ExpensePatch) Apply(e *Expense) {
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Item != nil {
		e.Item = strings.TrimSpace(*p.Item)
	}
	if p.Amount != nil && p.Amount.IsPositive() {
		e.Amount = *p.Amount
	}
	if p.Type != nil {
		e.Type = NormalizeType(*p.Type)
	}
	if p.Category != nil {
		e.Category = strings.TrimSpace(*p.Category)
	}
}

// NormalizeType maps anything that is not income to expense.
func NormalizeType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case TypeIncome, "수입":
		return TypeIncome
	default:
		return TypeExpense
	}
}
