package models

import (
	"encoding/json"
	"time"
)

// Trash item types.
const (
	KindContact  = "contact"
	KindSchedule = "schedule"
	KindExpense  = "expense"
	KindDiary    = "diary"
)

// TrashRetention is how long a deleted record stays recoverable.
const TrashRetention = 30 * 24 * time.Hour

// TrashItem keeps a soft-deleted record until it is restored or purged.
type TrashItem struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Payload   json.RawMessage `json:"payload"`
	DeletedAt time.Time       `json:"deletedAt"`
}
