package handlers

import (
	"net/http"

	"github.com/sakamer71/owl-ocr/internal/jobstore"
	"github.com/sakamer71/owl-ocr/internal/observability"
)

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	logger *observability.Logger
	store  jobstore.Store
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(logger *observability.Logger, store jobstore.Store) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		store:  store,
	}
}

// Root handles GET /.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Owl OCR API is running",
	})
}

// Health handles GET /api/health. The store is probed so load balancers
// stop routing to an instance that lost its backend.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Store ping failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "degraded",
			"message": "Job store unreachable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Service is healthy",
	})
}
