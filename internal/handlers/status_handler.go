package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/common"
	"github.com/ternarybob/buybox/internal/interfaces"
	"github.com/ternarybob/buybox/internal/models"
)

// StatusHandler handles health and version requests
type StatusHandler struct {
	storage   interfaces.StorageManager
	logger    arbor.ILogger
	startedAt time.Time
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(storage interfaces.StorageManager, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		storage:   storage,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// HealthHandler reports service health
// GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()

	status := "healthy"
	httpStatus := http.StatusOK

	jobCount, err := h.storage.JobStorage().CountJobs(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Health check storage probe failed")
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	running, err := h.storage.JobStorage().GetJobsByStatus(ctx, models.JobStatusRunning)
	runningCount := 0
	if err == nil {
		runningCount = len(running)
	}

	profileCount, _ := h.storage.CostProfileStorage().CountProfiles(ctx)

	WriteJSON(w, httpStatus, map[string]interface{}{
		"status":         status,
		"version":        common.GetVersion(),
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"jobs_total":     jobCount,
		"jobs_running":   runningCount,
		"cost_profiles":  profileCount,
	})
}

// VersionHandler reports build information
// GET /api/version
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// NotFoundHandler handles unmatched API routes
func (h *StatusHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "Not found: "+r.URL.Path)
}
