package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lifeone/internal/chatservice"
	"github.com/starford/lifeone/internal/store"
)

// NewRouter creates a chi router with all API routes mounted.
// events, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(st *store.State, chat *chatservice.Service, authCfg AuthConfig, events http.Handler) chi.Router {
	h := NewHandler(st, chat)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authCfg))

	r.Route("/contacts", func(r chi.Router) {
		r.Get("/", h.ListContacts)
		r.Post("/", h.CreateContact)
		r.Get("/{id}", h.GetContact)
		r.Put("/{id}", h.UpdateContact)
		r.Delete("/{id}", h.DeleteContact)
	})

	r.Route("/schedule", func(r chi.Router) {
		r.Get("/", h.ListSchedule)
		r.Post("/", h.CreateSchedule)
		r.Get("/{id}", h.GetSchedule)
		r.Put("/{id}", h.UpdateSchedule)
		r.Delete("/{id}", h.DeleteSchedule)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Post("/", h.CreateCategory)
		r.Put("/{id}", h.UpdateCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})

	r.Route("/expenses", func(r chi.Router) {
		r.Get("/", h.ListExpenses)
		r.Post("/", h.CreateExpense)
		r.Get("/stats", h.ExpenseStats)
		r.Get("/{id}", h.GetExpense)
		r.Put("/{id}", h.UpdateExpense)
		r.Delete("/{id}", h.DeleteExpense)
	})

	r.Route("/diary", func(r chi.Router) {
		r.Get("/", h.ListDiary)
		r.Post("/", h.CreateDiary)
		r.Post("/markdown", h.ImportDiaryMarkdown)
		r.Get("/{id}", h.GetDiary)
		r.Put("/{id}", h.UpdateDiary)
		r.Delete("/{id}", h.DeleteDiary)
		r.Get("/{id}/markdown", h.ExportDiaryMarkdown)
		r.Post("/{id}/checklist/{itemID}/toggle", h.ToggleChecklistItem)
	})

	r.Route("/trash", func(r chi.Router) {
		r.Get("/", h.ListTrash)
		r.Delete("/", h.EmptyTrash)
		r.Post("/{id}/restore", h.RestoreTrash)
		r.Delete("/{id}", h.DeleteTrash)
	})

	r.Route("/chat/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Post("/", h.CreateSession)
		r.Get("/{id}", h.GetSession)
		r.Patch("/{id}", h.RenameSession)
		r.Delete("/{id}", h.DeleteSession)
		r.Post("/{id}/messages", h.SendMessage)
		r.Post("/{id}/options", h.SelectOption)
		r.Get("/{id}/conflicts", h.GetConflicts)
		r.Post("/{id}/conflicts", h.ResolveConflicts)
	})

	r.Get("/calendar/holidays", h.Holidays)
	r.Get("/calendar/dday", h.Dday)

	r.Get("/notifications", h.Notifications)
	r.Get("/notifications/settings", h.GetSettings)
	r.Put("/notifications/settings", h.UpdateSettings)

	r.Get("/export", h.Export)
	r.Post("/import", h.Import)

	// SSE endpoint (protected by same auth middleware).
	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
