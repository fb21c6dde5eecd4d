package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sakamer71/owl-ocr/internal/jobstore"
	"github.com/sakamer71/owl-ocr/internal/observability"
	"github.com/sakamer71/owl-ocr/internal/service"
)

// JobsHandler handles job status, result, cleanup, and delete requests.
type JobsHandler struct {
	logger  *observability.Logger
	service *service.JobService
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(logger *observability.Logger, svc *service.JobService) *JobsHandler {
	return &JobsHandler{
		logger:  logger,
		service: svc,
	}
}

func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "jobID")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id", err.Error())
		return uuid.Nil, false
	}
	return id, true
}

// GetJob handles GET /api/jobs/{jobID}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}

	job, err := h.service.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found", fmt.Sprintf("Job %s not found", id))
			return
		}
		h.logger.Error().Err(err).Str("job_id", id.String()).Msg("Could not load job")
		writeError(w, http.StatusInternalServerError, "could not load job", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// GetResult handles GET /api/jobs/{jobID}/result.
func (h *JobsHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}

	result, err := h.service.Result(r.Context(), id)
	if err != nil {
		var failed *service.FailedError
		var inProgress *service.InProgressError

		switch {
		case errors.Is(err, jobstore.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found", fmt.Sprintf("Job %s not found", id))
		case errors.As(err, &failed):
			writeError(w, http.StatusBadRequest, "job failed", failed.Error())
		case errors.As(err, &inProgress):
			// Not 102: WriteHeader treats 1xx as informational and the
			// JSON body would ride on an implicit 200.
			writeError(w, http.StatusAccepted, "job not finished", inProgress.Error())
		case errors.Is(err, service.ErrResultUnavailable):
			writeError(w, http.StatusNotFound, "result not available",
				fmt.Sprintf("Result not available yet for job %s", id))
		default:
			h.logger.Error().Err(err).Str("job_id", id.String()).Msg("Could not load result")
			writeError(w, http.StatusInternalServerError, "could not load result", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DeleteJob handles DELETE /api/jobs/{jobID}.
func (h *JobsHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found", fmt.Sprintf("Job %s not found", id))
			return
		}
		h.logger.Error().Err(err).Str("job_id", id.String()).Msg("Could not delete job")
		writeError(w, http.StatusInternalServerError, "could not delete job", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Job %s deleted", id),
	})
}

// Cleanup handles POST /api/jobs/cleanup.
func (h *JobsHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Cleanup(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Cleanup failed")
		writeError(w, http.StatusInternalServerError, "cleanup failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Cleaned up %d old jobs", count),
	})
}
