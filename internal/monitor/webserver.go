// Package monitor provides the HTTP interface over extraction runs:
// health and progress endpoints, stored-run queries, chart rendering and
// a websocket stream of live progress.
package monitor

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/launchtrace/internal/db"
	"github.com/banshee-data/launchtrace/internal/version"
)

// WebServer handles the HTTP interface for monitoring extraction runs
type WebServer struct {
	address string
	stats   *RunStats
	server  *http.Server
	db      *db.DB
	hub     *Hub
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address string
	Stats   *RunStats
	DB      *db.DB
	Hub     *Hub
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		stats:   config.Stats,
		db:      config.DB,
		hub:     config.Hub,
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/progress", ws.handleProgress)
	mux.HandleFunc("/api/runs", ws.handleRuns)
	mux.HandleFunc("/api/run", ws.handleRun)
	mux.HandleFunc("/api/series", ws.handleSeries)
	mux.HandleFunc("/api/events", ws.handleEvents)
	mux.HandleFunc("/charts/flight", ws.handleFlightChart)
	if ws.hub != nil {
		mux.Handle("/ws", ws.hub)
	}

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := map[string]interface{}{
		"status":    "ok",
		"version":   version.Version,
		"timestamp": time.Now(),
	}
	if ws.hub != nil {
		status["ws_clients"] = ws.hub.ClientCount()
	}
	json.NewEncoder(w).Encode(status)
}

// handleProgress returns the latest extraction snapshot.
func (ws *WebServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if ws.stats == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no run in progress")
		return
	}
	snap := ws.stats.GetLatestSnapshot()
	if snap == nil {
		snap = ws.stats.Snapshot()
	}
	json.NewEncoder(w).Encode(snap)
}

// handleRuns returns recent runs.
// Query params:
//
//	limit (optional, default 100)
func (ws *WebServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no database configured")
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	runs, err := ws.db.ListRuns(limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	json.NewEncoder(w).Encode(runs)
}

// handleRun returns one run.
// Query params:
//
//	run_id (required)
func (ws *WebServer) handleRun(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no database configured")
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "run_id is required")
		return
	}

	run, err := ws.db.GetRun(runID)
	if err != nil {
		ws.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	json.NewEncoder(w).Encode(run)
}

// handleSeries returns one stored role series for a run.
// Query params:
//
//	run_id (required)
//	role (required)
func (ws *WebServer) handleSeries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no database configured")
		return
	}
	runID := r.URL.Query().Get("run_id")
	role := r.URL.Query().Get("role")
	if runID == "" || role == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "run_id and role are required")
		return
	}

	samples, err := ws.db.Samples(runID, role)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type point struct {
		Frame int     `json:"frame"`
		T     float64 `json:"t"`
		Value float64 `json:"value"`
		Valid bool    `json:"valid"`
		Flag  string  `json:"flag"`
	}
	out := make([]point, 0, len(samples))
	for _, s := range samples {
		out = append(out, point{Frame: s.Frame, T: s.Time, Value: s.Value, Valid: s.Valid, Flag: s.Flag.String()})
	}
	json.NewEncoder(w).Encode(out)
}

// handleEvents returns a run's engine transitions.
// Query params:
//
//	run_id (required)
func (ws *WebServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no database configured")
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "run_id is required")
		return
	}

	events, err := ws.db.EngineEvents(runID)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type event struct {
		Role   string  `json:"role"`
		Engine int     `json:"engine"`
		Frame  int     `json:"frame"`
		T      float64 `json:"t"`
		Lit    bool    `json:"lit"`
	}
	out := make([]event, 0, len(events))
	for _, ev := range events {
		out = append(out, event{Role: ev.Role, Engine: ev.Engine, Frame: ev.Frame, T: ev.Time, Lit: ev.Lit})
	}
	json.NewEncoder(w).Encode(out)
}
