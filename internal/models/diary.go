package models

import "strings"

// TodoGroup is where checklist entries land when no group is given.
const TodoGroup = "To-do list"

// DiaryEntry is a memo or a checklist. For checklists Entry holds the title.
type DiaryEntry struct {
	ID             string          `json:"id"`
	Date           string          `json:"date"`
	Entry          string          `json:"entry"`
	Group          string          `json:"group"`
	IsChecklist    bool            `json:"isChecklist"`
	ChecklistItems []ChecklistItem `json:"checklistItems,omitempty"`
}

// ChecklistItem is a single task of a checklist entry.
type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	DueDate   string `json:"dueDate,omitempty"`
}

// DiaryPatch lists the fields a modification may overwrite. Entry replaces the
// whole content; appending is the caller's job.
type DiaryPatch struct {
	Date  *string `json:"date,omitempty"`
	Entry *string `json:"entry,omitempty"`
	Group *string `json:"group,omitempty"`
}

// Apply overwrites the fields set in p.
func (p DiaryPatch) Apply(d *DiaryEntry) {
	if p.Date != nil {
		d.Date = *p.Date
	}
	if p.Entry != nil {
		d.Entry = *p.Entry
	}
	if p.Group != nil {
		d.Group = strings.TrimSpace(*p.Group)
		if d.Group == "" {
			d.Group = DefaultGroup
		}
	}
}
