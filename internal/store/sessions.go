package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/lifeone/internal/apperr"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/storage"
)

// ImageSessionTitle names sessions that start with an image only.
const ImageSessionTitle = "이미지 대화"

const sessionTitleRunes = 30

// SessionTitle derives a session title from its first user message.
func SessionTitle(text string, hasImage bool) string {
	t := []rune(strings.Join(strings.Fields(text), " "))
	if len(t) == 0 {
		if hasImage {
			return ImageSessionTitle
		}
		return ""
	}
	if len(t) > sessionTitleRunes {
		t = t[:sessionTitleRunes]
	}
	return string(t)
}

// ListSessions returns sessions most recently updated first, without their
// messages. A query filters by title substring, case-insensitive.
func (s *State) ListSessions(query string) []models.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.ChatSession{}
	for _, cs := range s.data.ChatSessions {
		if q != "" && !strings.Contains(strings.ToLower(cs.Title), q) {
			continue
		}
		cs.Messages = nil
		cs.PendingBatch = nil
		out = append(out, cs)
	}
	slices.SortStableFunc(out, func(a, b models.ChatSession) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out
}

// GetSession returns a full session.
func (s *State) GetSession(id string) (models.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.data.ChatSessions, func(cs models.ChatSession) bool { return cs.ID == id })
	if i < 0 {
		return models.ChatSession{}, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	return cloneSession(s.data.ChatSessions[i]), nil
}

// CreateSession starts an empty session.
func (s *State) CreateSession(title string) models.ChatSession {
	now := s.now().UTC()
	cs := models.ChatSession{
		ID:        s.newID(),
		Title:     strings.TrimSpace(title),
		Messages:  []models.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	_ = s.write(func(w *writer) error {
		w.d.ChatSessions = append(w.d.ChatSessions, cs)
		w.touch(storage.KeyChatSessions)
		return nil
	})
	return cs
}

// RenameSession sets a session title.
func (s *State) RenameSession(id, title string) (models.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.ChatSession{}, fmt.Errorf("session title is required: %w", apperr.ErrInvalid)
	}
	var out models.ChatSession
	err := s.editSession(id, func(cs *models.ChatSession) {
		cs.Title = title
		out = cloneSession(*cs)
	})
	return out, err
}

// DeleteSession removes a session and its history.
func (s *State) DeleteSession(id string) error {
	return s.write(func(w *writer) error {
		i := indexOf(w.d.ChatSessions, func(cs models.ChatSession) bool { return cs.ID == id })
		if i < 0 {
			return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
		}
		w.d.ChatSessions = slices.Delete(w.d.ChatSessions, i, i+1)
		w.touch(storage.KeyChatSessions)
		return nil
	})
}

// AppendMessages adds messages to a session. An untitled session takes its
// title from the first user message.
func (s *State) AppendMessages(id string, msgs ...models.ChatMessage) (models.ChatSession, error) {
	var out models.ChatSession
	err := s.editSession(id, func(cs *models.ChatSession) {
		for _, m := range msgs {
			if cs.Title == "" && m.Role == models.RoleUser {
				cs.Title = SessionTitle(m.Text, m.Image != nil)
			}
			cs.Messages = append(cs.Messages, m)
		}
		out = cloneSession(*cs)
	})
	return out, err
}

// SetPendingBatch parks (or with nil clears) an extraction that waits for a
// conflict decision.
func (s *State) SetPendingBatch(id string, b *models.Batch) error {
	return s.editSession(id, func(cs *models.ChatSession) {
		cs.PendingBatch = b
	})
}

func (s *State) editSession(id string, fn func(cs *models.ChatSession)) error {
	return s.write(func(w *writer) error {
		i := indexOf(w.d.ChatSessions, func(cs models.ChatSession) bool { return cs.ID == id })
		if i < 0 {
			return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
		}
		cs := cloneSession(w.d.ChatSessions[i])
		fn(&cs)
		cs.UpdatedAt = s.now().UTC()
		w.d.ChatSessions[i] = cs
		w.touch(storage.KeyChatSessions)
		return nil
	})
}

// Settings returns the notification settings.
func (s *State) Settings() models.NotificationSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.NotificationSettings
}

// UpdateSettings replaces the notification settings. A negative budget limit
// is rejected.
func (s *State) UpdateSettings(ns models.NotificationSettings) (models.NotificationSettings, error) {
	if ns.Budget.MonthlyLimit.IsNegative() {
		return ns, fmt.Errorf("monthly limit must not be negative: %w", apperr.ErrInvalid)
	}
	err := s.write(func(w *writer) error {
		w.d.NotificationSettings = ns
		w.touch(storage.KeyNotifications)
		return nil
	})
	return ns, err
}
