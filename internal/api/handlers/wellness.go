package handlers

import (
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/api/middleware"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/wellness"
)

// WellnessHandler handles habits and the mood journal.
type WellnessHandler struct {
	well *wellness.Services
}

// NewWellnessHandler creates a new wellness handler.
func NewWellnessHandler(well *wellness.Services) *WellnessHandler {
	return &WellnessHandler{well: well}
}

// ListHabits handles GET /api/habits
func (h *WellnessHandler) ListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := h.well.Habits.List(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list habits")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(habits))
}

// CreateHabit handles POST /api/habits
func (h *WellnessHandler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	var habit domain.Habit
	if !decode(w, r, &habit) {
		return
	}
	created, err := h.well.Habits.Add(r.Context(), userID(r), habit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create habit")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// UpdateHabit handles PUT /api/habits/{id}
func (h *WellnessHandler) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	var patch wellness.HabitPatch
	if !decode(w, r, &patch) {
		return
	}
	habit, err := h.well.Habits.Update(r.Context(), userID(r), r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update habit")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, habit)
}

// DeleteHabit handles DELETE /api/habits/{id}
func (h *WellnessHandler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	if err := h.well.Habits.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, "Failed to delete habit")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleHabit handles POST /api/habits/{id}/toggle?date=YYYY-MM-DD. The date
// defaults to today.
func (h *WellnessHandler) ToggleHabit(w http.ResponseWriter, r *http.Request) {
	day, err := queryDate(r, "date")
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	status, err := h.well.Habits.Toggle(r.Context(), userID(r), r.PathValue("id"), day)
	if err != nil {
		writeServiceError(w, r, err, "Failed to toggle habit")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, status)
}

// Gamification handles GET /api/gamification
func (h *WellnessHandler) Gamification(w http.ResponseWriter, r *http.Request) {
	g, err := h.well.Habits.Gamification(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load gamification")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, g)
}

func queryRange(r *http.Request) (wellness.Range, error) {
	from, err := queryDate(r, "from")
	if err != nil {
		return wellness.Range{}, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return wellness.Range{}, err
	}
	return wellness.Range{From: from, To: to}, nil
}

// ListLogs handles GET /api/logs?from=&to=, or GET /api/logs?date= for a
// single day.
func (h *WellnessHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	day, err := queryDate(r, "date")
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	if !day.IsZero() {
		l, err := h.well.Journal.Get(r.Context(), userID(r), day)
		if err != nil {
			writeServiceError(w, r, err, "Failed to load log")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, l)
		return
	}

	rng, err := queryRange(r)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	logs, err := h.well.Journal.List(r.Context(), userID(r), rng)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list logs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(logs))
}

// SaveLog handles PUT /api/logs. A log without a date is saved for today.
func (h *WellnessHandler) SaveLog(w http.ResponseWriter, r *http.Request) {
	var l domain.DailyLog
	if !decode(w, r, &l) {
		return
	}
	saved, err := h.well.Journal.Save(r.Context(), userID(r), l)
	if err != nil {
		writeServiceError(w, r, err, "Failed to save log")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, saved)
}

// DeleteLog handles DELETE /api/logs/{date}
func (h *WellnessHandler) DeleteLog(w http.ResponseWriter, r *http.Request) {
	day, err := civil.ParseDate(r.PathValue("date"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if err := h.well.Journal.Delete(r.Context(), userID(r), day); err != nil {
		writeServiceError(w, r, err, "Failed to delete log")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Timeline handles GET /api/logs/timeline?from=&to=
func (h *WellnessHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	rng, err := queryRange(r)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	points, err := h.well.Journal.Timeline(r.Context(), userID(r), rng)
	if err != nil {
		writeServiceError(w, r, err, "Failed to build timeline")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(points))
}

// Insights handles GET /api/logs/insights
func (h *WellnessHandler) Insights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.well.Journal.Insights(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to build insights")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(insights))
}
