package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lifeone/internal/calendar"
	"github.com/starford/lifeone/internal/chatservice"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	st   *store.State
	chat *chatservice.Service
	now  calendar.Clock
}

// NewHandler creates a new Handler.
func NewHandler(st *store.State, chat *chatservice.Service) *Handler {
	return &Handler{st: st, chat: chat, now: st.Now()}
}

// decodePatch reads a partial update. Patches are checked by the store.
func decodePatch(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Contacts
// ---------------------------------------------------------------------------

// ListContacts handles GET /api/contacts?q=.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"contacts": h.st.ListContacts(r.URL.Query().Get("q")),
	})
}

// GetContact handles GET /api/contacts/{id}.
func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	c, err := h.st.GetContact(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get contact", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateContact handles POST /api/contacts.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.st.AddContact(req.model())
	if err != nil {
		writeError(w, "create contact", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateContact handles PUT /api/contacts/{id}.
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var p models.ContactPatch
	if !decodePatch(w, r, &p) {
		return
	}
	c, err := h.st.UpdateContact(chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, "update contact", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteContact handles DELETE /api/contacts/{id}. The contact moves to the trash.
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	item, err := h.st.DeleteContact(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete contact", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ---------------------------------------------------------------------------
// Schedule
// ---------------------------------------------------------------------------

// ListSchedule handles GET /api/schedule?month=YYYY-MM.
func (h *Handler) ListSchedule(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month != "" && !monthRe.MatchString(month) {
		writeJSON(w, http.StatusBadRequest, errorBody("month must be YYYY-MM"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schedule": h.st.ListSchedule(month),
	})
}

// GetSchedule handles GET /api/schedule/{id}.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	it, err := h.st.GetSchedule(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// CreateSchedule handles POST /api/schedule.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	it, err := h.st.AddSchedule(req.model())
	if err != nil {
		writeError(w, "create schedule", err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// UpdateSchedule handles PUT /api/schedule/{id}.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var p models.SchedulePatch
	if !decodePatch(w, r, &p) {
		return
	}
	it, err := h.st.UpdateSchedule(chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, "update schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// DeleteSchedule handles DELETE /api/schedule/{id}.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	item, err := h.st.DeleteSchedule(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": h.st.ListCategories()})
}

// CreateCategory handles POST /api/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.st.AddCategory(req.Name, req.Color)
	if err != nil {
		writeError(w, "create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCategory handles PUT /api/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.st.UpdateCategory(chi.URLParam(r, "id"), req.Name, req.Color)
	if err != nil {
		writeError(w, "update category", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/categories/{id}. Schedule items of the
// category become uncategorized.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	n, err := h.st.DeleteCategory(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete category", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"uncategorized": n})
}

// ---------------------------------------------------------------------------
// Expenses
// ---------------------------------------------------------------------------

// ListExpenses handles GET /api/expenses?from=&to=.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": h.st.ListExpenses(from, to)})
}

// ExpenseStats handles GET /api/expenses/stats?from=&to=.
func (h *Handler) ExpenseStats(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.st.ExpenseStats(from, to))
}

func dateRange(w http.ResponseWriter, r *http.Request) (from, to string, ok bool) {
	q := r.URL.Query()
	from, to = q.Get("from"), q.Get("to")
	for name, v := range map[string]string{"from": from, "to": to} {
		if v == "" {
			continue
		}
		if _, err := calendar.ParseDate(v); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(name+" must be YYYY-MM-DD"))
			return "", "", false
		}
	}
	return from, to, true
}

// GetExpense handles GET /api/expenses/{id}.
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.st.GetExpense(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get expense", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// CreateExpense handles POST /api/expenses.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.st.AddExpense(req.model())
	if err != nil {
		writeError(w, "create expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// UpdateExpense handles PUT /api/expenses/{id}.
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var p models.ExpensePatch
	if !decodePatch(w, r, &p) {
		return
	}
	e, err := h.st.UpdateExpense(chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, "update expense", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteExpense handles DELETE /api/expenses/{id}.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	item, err := h.st.DeleteExpense(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete expense", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ---------------------------------------------------------------------------
// Diary
// ---------------------------------------------------------------------------

// ListDiary handles GET /api/diary?date=.
func (h *Handler) ListDiary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"diary": h.st.ListDiary(r.URL.Query().Get("date"))})
}

// GetDiary handles GET /api/diary/{id}.
func (h *Handler) GetDiary(w http.ResponseWriter, r *http.Request) {
	d, err := h.st.GetDiary(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get diary", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CreateDiary handles POST /api/diary.
func (h *Handler) CreateDiary(w http.ResponseWriter, r *http.Request) {
	var req DiaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.st.AddDiary(req.model())
	if err != nil {
		writeError(w, "create diary", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// UpdateDiary handles PUT /api/diary/{id}.
func (h *Handler) UpdateDiary(w http.ResponseWriter, r *http.Request) {
	var p models.DiaryPatch
	if !decodePatch(w, r, &p) {
		return
	}
	d, err := h.st.UpdateDiary(chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, "update diary", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ToggleChecklistItem handles POST /api/diary/{id}/checklist/{itemID}/toggle.
func (h *Handler) ToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	d, err := h.st.ToggleChecklistItem(chi.URLParam(r, "id"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, "toggle checklist item", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteDiary handles DELETE /api/diary/{id}.
func (h *Handler) DeleteDiary(w http.ResponseWriter, r *http.Request) {
	item, err := h.st.DeleteDiary(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete diary", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
