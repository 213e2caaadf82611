// -----------------------------------------------------------------------
// Scan API - create/retry scan jobs and read their results
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/common"
	"github.com/ternarybob/buybox/internal/interfaces"
	"github.com/ternarybob/buybox/internal/scanner"
)

// ScanHandler handles scan job API requests
type ScanHandler struct {
	engine   *scanner.Engine
	planner  *scanner.RetryPlanner
	storage  interfaces.StorageManager
	config   *common.Config
	logger   arbor.ILogger
	validate *validator.Validate
}

// NewScanHandler creates a new scan handler
func NewScanHandler(engine *scanner.Engine, planner *scanner.RetryPlanner, storage interfaces.StorageManager, config *common.Config, logger arbor.ILogger) *ScanHandler {
	return &ScanHandler{
		engine:   engine,
		planner:  planner,
		storage:  storage,
		config:   config,
		logger:   logger,
		validate: validator.New(),
	}
}

// CreateScanRequest is the POST /api/scans request body. Pacing fields are
// optional and fall back to the configured defaults.
type CreateScanRequest struct {
	Items         []scanner.ScanItem `json:"items" validate:"required,min=1,dive"`
	RatePerSecond float64            `json:"rate_per_second" validate:"omitempty,gt=0"`
	JitterMs      int                `json:"jitter_ms" validate:"omitempty,gte=0"`
	MaxRetries    int                `json:"max_retries" validate:"omitempty,gte=0"`
}

// RetryScanRequest is the POST /api/scans/{id}/retry request body. All
// fields optional; zero values inherit from the parent job.
type RetryScanRequest struct {
	RatePerSecond float64 `json:"rate_per_second" validate:"omitempty,gt=0"`
	JitterMs      int     `json:"jitter_ms" validate:"omitempty,gte=0"`
	MaxRetries    int     `json:"max_retries" validate:"omitempty,gte=0"`
}

// CreateScanHandler starts a manual scan and returns the job immediately.
// POST /api/scans
func (h *ScanHandler) CreateScanHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req CreateScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid scan request: "+err.Error())
		return
	}

	cfg := scanner.ScanConfig{
		RatePerSecond: h.config.Scan.RatePerSecond,
		JitterMs:      h.config.Scan.JitterMs,
		MaxRetries:    h.config.Scan.MaxRetries,
	}
	if req.RatePerSecond > 0 {
		cfg.RatePerSecond = req.RatePerSecond
	}
	if req.JitterMs > 0 {
		cfg.JitterMs = req.JitterMs
	}
	if req.MaxRetries > 0 {
		cfg.MaxRetries = req.MaxRetries
	}

	job, err := h.engine.StartScan(r.Context(), req.Items, cfg)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to start scan")
		WriteError(w, http.StatusInternalServerError, "Failed to start scan")
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// RetryScanHandler starts a follow-up scan over a job's failed items.
// POST /api/scans/{id}/retry
func (h *ScanHandler) RetryScanHandler(w http.ResponseWriter, r *http.Request, parentID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var overrides *scanner.RetryOverrides
	if r.ContentLength > 0 {
		var req RetryScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid retry request: "+err.Error())
			return
		}
		overrides = &scanner.RetryOverrides{
			RatePerSecond: req.RatePerSecond,
			JitterMs:      req.JitterMs,
			MaxRetries:    req.MaxRetries,
		}
	}

	job, err := h.planner.PlanRetry(r.Context(), parentID, overrides)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		if strings.Contains(err.Error(), "no failures") {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("parent_job_id", parentID).Msg("Failed to plan retry scan")
		WriteError(w, http.StatusInternalServerError, "Failed to plan retry scan")
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// ListScansHandler returns a paginated list of scan jobs, newest first
// GET /api/scans?limit=50&offset=0&status=completed
func (h *ScanHandler) ListScansHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()

	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	opts := &interfaces.JobListOptions{
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
		Offset: offset,
	}

	jobs, err := h.storage.JobStorage().ListJobs(ctx, opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list scan jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list scan jobs")
		return
	}

	totalCount, err := h.storage.JobStorage().CountJobs(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count scan jobs")
		totalCount = len(jobs)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":        jobs,
		"total_count": totalCount,
		"limit":       limit,
		"offset":      offset,
	})
}

// GetScanHandler returns a single scan job by ID
// GET /api/scans/{id}
func (h *ScanHandler) GetScanHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	job, err := h.storage.JobStorage().GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// ListSnapshotsHandler returns a scan job's price snapshots in scan order
// GET /api/scans/{id}/snapshots
func (h *ScanHandler) ListSnapshotsHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()

	if _, err := h.storage.JobStorage().GetJob(ctx, jobID); err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	snapshots, err := h.storage.SnapshotStorage().ListSnapshotsByJob(ctx, jobID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to list snapshots")
		WriteError(w, http.StatusInternalServerError, "Failed to list snapshots")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":    jobID,
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// ListOpportunitiesHandler returns a scan job's repricing opportunities,
// best margin first
// GET /api/scans/{id}/opportunities
func (h *ScanHandler) ListOpportunitiesHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()

	if _, err := h.storage.JobStorage().GetJob(ctx, jobID); err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	opportunities, err := h.storage.SnapshotStorage().ListOpportunitiesByJob(ctx, jobID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to list opportunities")
		WriteError(w, http.StatusInternalServerError, "Failed to list opportunities")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":        jobID,
		"opportunities": opportunities,
		"count":         len(opportunities),
	})
}

// ListFailuresHandler returns a scan job's per-item failures in scan order
// GET /api/scans/{id}/failures
func (h *ScanHandler) ListFailuresHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()

	if _, err := h.storage.JobStorage().GetJob(ctx, jobID); err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	failures, err := h.storage.FailureStorage().ListFailuresByJob(ctx, jobID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to list failures")
		WriteError(w, http.StatusInternalServerError, "Failed to list failures")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":   jobID,
		"failures": failures,
		"count":    len(failures),
	})
}

// DeleteScanHandler removes a scan job and its snapshots and failures
// DELETE /api/scans/{id}
func (h *ScanHandler) DeleteScanHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	ctx := r.Context()

	job, err := h.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if !job.IsTerminal() {
		WriteError(w, http.StatusConflict, "Cannot delete a running scan job")
		return
	}

	if err := h.storage.DeleteJob(ctx, jobID); err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to delete scan job")
		WriteError(w, http.StatusInternalServerError, "Failed to delete scan job")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"job_id": jobID,
	})
}
