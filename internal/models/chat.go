package models

import "time"

// Chat roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ImageRef points at an image attached to a user message. Data is base64 and is
// only kept for the message that is being sent.
type ImageRef struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}

// WebSource is a search result the assistant cited.
type WebSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// ChatMessage is one turn of a chat session.
type ChatMessage struct {
	ID                   string      `json:"id"`
	Role                 string      `json:"role"`
	Text                 string      `json:"text"`
	Image                *ImageRef   `json:"image,omitempty"`
	ClarificationNeeded  bool        `json:"clarificationNeeded,omitempty"`
	ClarificationOptions []string    `json:"clarificationOptions,omitempty"`
	WebSearchSources     []WebSource `json:"webSearchSources,omitempty"`
	PendingDeletion      *IDSet      `json:"pendingDeletion,omitempty"`
	IsError              bool        `json:"isError,omitempty"`
	CreatedAt            time.Time   `json:"createdAt"`
}

// IDSet names records per collection.
type IDSet struct {
	Contacts []string `json:"contacts"`
	Schedule []string `json:"schedule"`
	Expenses []string `json:"expenses"`
	Diary    []string `json:"diary"`
}

// Empty reports whether no id is set.
func (s IDSet) Empty() bool {
	return len(s.Contacts) == 0 && len(s.Schedule) == 0 && len(s.Expenses) == 0 && len(s.Diary) == 0
}

// Batch is a set of new records proposed for insertion.
type Batch struct {
	Contacts []Contact      `json:"contacts"`
	Schedule []ScheduleItem `json:"schedule"`
	Expenses []Expense      `json:"expenses"`
	Diary    []DiaryEntry   `json:"diary"`
	// Categories created for schedule items of this batch on commit.
	Categories []Category `json:"categories,omitempty"`
}

// Len is the number of proposed records, categories excluded.
func (b Batch) Len() int {
	return len(b.Contacts) + len(b.Schedule) + len(b.Expenses) + len(b.Diary)
}

// ChatSession is a conversation with the assistant.
type ChatSession struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Messages     []ChatMessage `json:"messages"`
	PendingBatch *Batch        `json:"pendingBatch,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
