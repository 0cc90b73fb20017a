package handlers

import (
	"net/http"

	"github.com/dvloznov/lifeledger/internal/api/middleware"
	"github.com/dvloznov/lifeledger/internal/jobs"
	"github.com/dvloznov/lifeledger/internal/logger"
)

// JobsHandler handles background job endpoints.
type JobsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(publisher jobs.Publisher, store jobs.JobStore) *JobsHandler {
	return &JobsHandler{publisher: publisher, store: store}
}

// Enqueue handles POST /api/jobs
func (h *JobsHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type jobs.JobType `json:"type"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !req.Type.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "unknown job type")
		return
	}

	job := &jobs.Job{Type: req.Type, UserID: userID(r)}
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		writeServiceError(w, r, err, "Failed to enqueue job")
		return
	}

	log := logger.FromContext(r.Context())
	log.Info().
		Str("job_id", job.ID).
		Str("job_type", string(job.Type)).
		Msg("Job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, job)
}

// Get handles GET /api/jobs/{id}. Another user's job is reported missing.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get job")
		return
	}
	if job.UserID != userID(r) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/jobs?type=&status=&limit=&offset=
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: userID(r),
		Type:   jobs.JobType(q.Get("type")),
		Status: jobs.JobStatus(q.Get("status")),
	}
	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	out, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(out))
}
