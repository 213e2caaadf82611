package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (query-parameter form)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Scans
	mux.HandleFunc("/api/scans", s.handleScansRoute)   // GET (list), POST (create)
	mux.HandleFunc("/api/scans/", s.handleScanRoutes) // GET/DELETE /{id} and subpaths

	// API routes - Live pricing
	mux.HandleFunc("/api/pricing/preview", s.app.PricingHandler.PreviewHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.StatusHandler.NotFoundHandler)

	return mux
}

// handleScansRoute routes the scans collection endpoint
func (s *Server) handleScansRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.ScanHandler.ListScansHandler(w, r)
	case http.MethodPost:
		s.app.ScanHandler.CreateScanHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleScanRoutes routes /api/scans/{id} and its subpaths
func (s *Server) handleScanRoutes(w http.ResponseWriter, r *http.Request) {
	// Path shape: /api/scans/{id}[/subresource]
	rest := strings.TrimPrefix(r.URL.Path, "/api/scans/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	jobID := parts[0]
	if jobID == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.app.ScanHandler.GetScanHandler(w, r, jobID)
		case http.MethodDelete:
			s.app.ScanHandler.DeleteScanHandler(w, r, jobID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "retry":
		s.app.ScanHandler.RetryScanHandler(w, r, jobID)
	case "snapshots":
		s.app.ScanHandler.ListSnapshotsHandler(w, r, jobID)
	case "opportunities":
		s.app.ScanHandler.ListOpportunitiesHandler(w, r, jobID)
	case "failures":
		s.app.ScanHandler.ListFailuresHandler(w, r, jobID)
	case "ws":
		s.app.WSHandler.StreamJob(w, r, jobID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}
