// -----------------------------------------------------------------------
// WebSocket - live scan job progress stream
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/buybox/internal/interfaces"
	"github.com/ternarybob/buybox/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// Since counters are persisted after every scanned item, polling the job
// record gives item-level progress granularity without the engine knowing
// about connected clients.
const progressPollInterval = time.Second

// WebSocketHandler streams scan job progress to connected clients
type WebSocketHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(storage interfaces.StorageManager, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		storage: storage,
		logger:  logger,
	}
}

// progressMessage is one progress frame pushed to the client
type progressMessage struct {
	Type string          `json:"type"`
	Job  *models.ScanJob `json:"job"`
}

// HandleWebSocket upgrades the connection and pushes job progress until the
// job reaches a terminal state or the client disconnects.
// GET /ws?job_id=job_xxx
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		http.Error(w, "job_id query parameter is required", http.StatusBadRequest)
		return
	}
	h.StreamJob(w, r, jobID)
}

// StreamJob is the route-parameter variant used by /api/scans/{id}/ws
func (h *WebSocketHandler) StreamJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if _, err := h.storage.JobStorage().GetJob(r.Context(), jobID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.logger.Debug().
		Str("job_id", jobID).
		Str("remote", r.RemoteAddr).
		Msg("WebSocket client connected")

	// Reader goroutine: drain client frames so close/ping handling works,
	// and signal when the client goes away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	var lastSuccess, lastFailure = -1, -1

	for {
		select {
		case <-done:
			h.logger.Debug().Str("job_id", jobID).Msg("WebSocket client disconnected")
			return
		case <-ticker.C:
			job, err := h.storage.JobStorage().GetJob(r.Context(), jobID)
			if err != nil {
				h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Job vanished during progress stream")
				return
			}

			changed := job.SuccessCount != lastSuccess || job.FailureCount != lastFailure
			if changed || job.IsTerminal() {
				msgType := "progress"
				if job.IsTerminal() {
					msgType = "terminal"
				}

				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(progressMessage{Type: msgType, Job: job}); err != nil {
					h.logger.Debug().Err(err).Str("job_id", jobID).Msg("WebSocket write failed")
					return
				}

				lastSuccess = job.SuccessCount
				lastFailure = job.FailureCount
			}

			if job.IsTerminal() {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(job.Status)))
				return
			}
		}
	}
}
