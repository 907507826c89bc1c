// Package store is the in-memory application state: the four entity
// collections plus categories, trash, chat sessions and notification settings.
// Every mutation goes through a single RWMutex and reports the storage keys it
// touched to the change hook.
package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/starford/lifeone/internal/calendar"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/storage"
)

// Data is the full serialisable state. It is what the persistence boundary
// saves, loads, exports and imports.
type Data struct {
	Contacts             []models.Contact            `json:"contacts"`
	Schedule             []models.ScheduleItem       `json:"schedule"`
	Categories           []models.Category           `json:"categories"`
	Expenses             []models.Expense            `json:"expenses"`
	Diary                []models.DiaryEntry         `json:"diary"`
	ChatSessions         []models.ChatSession        `json:"chatSessions"`
	NotificationSettings models.NotificationSettings `json:"notificationSettings"`
	Trash                []models.TrashItem          `json:"trash"`
}

// NewData returns an empty state holding only the reserved category and the
// default notification settings.
func NewData() Data {
	return Data{
		Contacts:             []models.Contact{},
		Schedule:             []models.ScheduleItem{},
		Categories:           []models.Category{models.Uncategorized()},
		Expenses:             []models.Expense{},
		Diary:                []models.DiaryEntry{},
		ChatSessions:         []models.ChatSession{},
		NotificationSettings: models.DefaultNotificationSettings(),
		Trash:                []models.TrashItem{},
	}
}

// ChangeFunc receives the storage keys touched by a mutation. It runs after
// the lock is released.
type ChangeFunc func(keys []string)

// State guards Data. The zero value is not usable; call New.
type State struct {
	mu       sync.RWMutex
	data     Data
	now      calendar.Clock
	newID    func() string
	onChange ChangeFunc
}

// Option configures a State.
type Option func(*State)

// WithClock overrides the time source.
func WithClock(c calendar.Clock) Option {
	return func(s *State) { s.now = c }
}

// WithIDs overrides id generation.
func WithIDs(fn func() string) Option {
	return func(s *State) { s.newID = fn }
}

// WithOnChange registers the change hook.
func WithOnChange(fn ChangeFunc) Option {
	return func(s *State) { s.onChange = fn }
}

// New creates a State holding d (normalised).
func New(d Data, opts ...Option) *State {
	s := &State{
		now:   calendar.SystemClock,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	s.data = normalize(d)
	return s
}

// SetOnChange replaces the change hook.
func (s *State) SetOnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Now returns the state's clock reading.
func (s *State) Now() calendar.Clock { return s.now }

// NewID returns a fresh record id.
func (s *State) NewID() string { return s.newID() }

// Snapshot returns a deep copy of the state.
func (s *State) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneData(s.data)
}

// Load replaces the whole state and reports every key as changed.
func (s *State) Load(d Data) {
	_ = s.write(func(w *writer) error {
		*w.d = normalize(d)
		w.touch(allKeys...)
		return nil
	})
}

// Replace swaps in the parts of d named by keys and leaves the rest of the
// state alone. Unknown keys are ignored.
func (s *State) Replace(d Data, keys []string) {
	src := normalize(d)
	_ = s.write(func(w *writer) error {
		for _, key := range keys {
			if copyKey(w.d, &src, key) {
				w.touch(key)
			}
		}
		return nil
	})
}

func copyKey(dst, src *Data, key string) bool {
	switch key {
	case storage.KeyContacts:
		dst.Contacts = src.Contacts
	case storage.KeySchedule:
		dst.Schedule = src.Schedule
	case storage.KeyCategories:
		dst.Categories = src.Categories
	case storage.KeyExpenses:
		dst.Expenses = src.Expenses
	case storage.KeyDiary:
		dst.Diary = src.Diary
	case storage.KeyChatSessions:
		dst.ChatSessions = src.ChatSessions
	case storage.KeyNotifications:
		dst.NotificationSettings = src.NotificationSettings
	case storage.KeyTrash:
		dst.Trash = src.Trash
	default:
		return false
	}
	return true
}

var allKeys = []string{
	storage.KeyContacts, storage.KeySchedule, storage.KeyCategories, storage.KeyExpenses,
	storage.KeyDiary, storage.KeyChatSessions, storage.KeyNotifications, storage.KeyTrash,
}

// writer is the handle a mutation gets while holding the lock.
type writer struct {
	d    *Data
	keys []string
}

func (w *writer) touch(keys ...string) {
	for _, k := range keys {
		if !contains(w.keys, k) {
			w.keys = append(w.keys, k)
		}
	}
}

func (s *State) write(fn func(w *writer) error) error {
	s.mu.Lock()
	w := &writer{d: &s.data}
	err := fn(w)
	hook := s.onChange
	s.mu.Unlock()
	if len(w.keys) > 0 && hook != nil {
		hook(w.keys)
	}
	return err
}

func normalize(d Data) Data {
	out := cloneData(d)
	if out.Contacts == nil {
		out.Contacts = []models.Contact{}
	}
	if out.Schedule == nil {
		out.Schedule = []models.ScheduleItem{}
	}
	if out.Expenses == nil {
		out.Expenses = []models.Expense{}
	}
	if out.Diary == nil {
		out.Diary = []models.DiaryEntry{}
	}
	if out.ChatSessions == nil {
		out.ChatSessions = []models.ChatSession{}
	}
	if out.Trash == nil {
		out.Trash = []models.TrashItem{}
	}
	// The reserved category is always first and always canonical.
	cats := []models.Category{models.Uncategorized()}
	for _, c := range out.Categories {
		if c.ID != models.UncategorizedID {
			cats = append(cats, c)
		}
	}
	out.Categories = cats
	return out
}

func cloneData(d Data) Data {
	out := Data{
		Contacts:             clone(d.Contacts),
		Schedule:             clone(d.Schedule),
		Categories:           clone(d.Categories),
		Expenses:             clone(d.Expenses),
		Diary:                make([]models.DiaryEntry, len(d.Diary)),
		ChatSessions:         make([]models.ChatSession, len(d.ChatSessions)),
		NotificationSettings: d.NotificationSettings,
		Trash:                clone(d.Trash),
	}
	if d.Diary == nil {
		out.Diary = nil
	}
	if d.ChatSessions == nil {
		out.ChatSessions = nil
	}
	for i, e := range d.Diary {
		e.ChecklistItems = clone(e.ChecklistItems)
		out.Diary[i] = e
	}
	for i, cs := range d.ChatSessions {
		out.ChatSessions[i] = cloneSession(cs)
	}
	return out
}

func cloneSession(cs models.ChatSession) models.ChatSession {
	cs.Messages = clone(cs.Messages)
	if cs.PendingBatch != nil {
		b := *cs.PendingBatch
		cs.PendingBatch = &b
	}
	return cs
}

func clone[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func indexOf[T any](list []T, match func(T) bool) int {
	for i, v := range list {
		if match(v) {
			return i
		}
	}
	return -1
}
