package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lifeone/internal/calendar"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/notify"
	"github.com/starford/lifeone/internal/parser"
	"github.com/starford/lifeone/internal/store"
)

// ---------------------------------------------------------------------------
// Trash
// ---------------------------------------------------------------------------

// ListTrash handles GET /api/trash?type=.
func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("type")
	switch kind {
	case "", models.KindContact, models.KindSchedule, models.KindExpense, models.KindDiary:
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("unknown type "+strconv.Quote(kind)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":         h.st.ListTrash(kind),
		"retentionDays": int(models.TrashRetention / (24 * time.Hour)),
	})
}

// RestoreTrash handles POST /api/trash/{id}/restore.
func (h *Handler) RestoreTrash(w http.ResponseWriter, r *http.Request) {
	item, err := h.st.Restore(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "restore", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteTrash handles DELETE /api/trash/{id}.
func (h *Handler) DeleteTrash(w http.ResponseWriter, r *http.Request) {
	if err := h.st.DeleteForever(chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete forever", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EmptyTrash handles DELETE /api/trash.
func (h *Handler) EmptyTrash(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"deleted": h.st.EmptyTrash()})
}

// ---------------------------------------------------------------------------
// Calendar
// ---------------------------------------------------------------------------

// Holidays handles GET /api/calendar/holidays?year=&month=. Both default to
// the current month in Seoul.
func (h *Handler) Holidays(w http.ResponseWriter, r *http.Request) {
	now := calendar.InKST(h.now())
	year, month := now.Year(), int(now.Month())
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("year must be a number"))
			return
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("month must be a number"))
			return
		}
		month = n
	}
	list, err := calendar.MonthHolidays(year, time.Month(month))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "month": month, "holidays": list})
}

// Dday handles GET /api/calendar/dday?date=.
func (h *Handler) Dday(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	norm, ok := calendar.NormalizeDate(date, h.now())
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
		return
	}
	d, err := calendar.CountDday(norm, h.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": norm, "dday": d})
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

// GetSettings handles GET /api/notifications/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.st.Settings())
}

// UpdateSettings handles PUT /api/notifications/settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ns, err := h.st.UpdateSettings(models.NotificationSettings(req))
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

// Notifications handles GET /api/notifications.
func (h *Handler) Notifications(w http.ResponseWriter, _ *http.Request) {
	list := notify.Generate(h.st.Settings(), h.st.Snapshot(), h.now())
	writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

// ---------------------------------------------------------------------------
// Export / import
// ---------------------------------------------------------------------------

// Export handles GET /api/export.
func (h *Handler) Export(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="lifeone-export.json"`)
	writeJSON(w, http.StatusOK, h.st.Snapshot())
}

// Import handles POST /api/import. The body replaces the whole state.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var d store.Data
	if !decodePatch(w, r, &d) {
		return
	}
	h.st.Load(d)
	snap := h.st.Snapshot()
	writeJSON(w, http.StatusOK, map[string]int{
		"contacts": len(snap.Contacts),
		"schedule": len(snap.Schedule),
		"expenses": len(snap.Expenses),
		"diary":    len(snap.Diary),
		"sessions": len(snap.ChatSessions),
	})
}

// ---------------------------------------------------------------------------
// Diary Markdown
// ---------------------------------------------------------------------------

// ExportDiaryMarkdown handles GET /api/diary/{id}/markdown.
func (h *Handler) ExportDiaryMarkdown(w http.ResponseWriter, r *http.Request) {
	d, err := h.st.GetDiary(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "export diary", err)
		return
	}
	data, err := parser.Render(d)
	if err != nil {
		writeError(w, "export diary", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ImportDiaryMarkdown handles POST /api/diary/markdown. The document becomes
// a new entry.
func (h *Handler) ImportDiaryMarkdown(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	res, err := parser.Parse(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	entry := res.DiaryEntry()
	entry.ID = ""
	d, err := h.st.AddDiary(entry)
	if err != nil {
		writeError(w, "import diary", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}
