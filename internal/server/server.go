// Package server exposes the triage engine over HTTP: newline-delimited
// JSON event streams, a websocket variant, and health/stats endpoints.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Rohitw3code/ticket-triage-agent/internal/checkpoint"
	"github.com/Rohitw3code/ticket-triage-agent/internal/engine"
	"github.com/Rohitw3code/ticket-triage-agent/internal/kb"
	"github.com/Rohitw3code/ticket-triage-agent/internal/metrics"
	"github.com/Rohitw3code/ticket-triage-agent/internal/models"
)

// Server wires the workflow engine to its HTTP surface.
type Server struct {
	engine    *engine.Engine
	index     *kb.Index
	collector *metrics.Collector
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// New creates a server around an engine and its knowledge-base index.
func New(eng *engine.Engine, index *kb.Index, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:    eng,
		index:     index,
		collector: collector,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the routed handler with logging middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("POST /triage/stream", s.handleTriage)
	mux.HandleFunc("POST /triage/resume", s.handleResume)
	mux.HandleFunc("GET /triage/ws", s.handleWebsocket)
	return LoggingMiddleware(s.logger)(mux)
}

// TriageRequest is the body of POST /triage/stream.
type TriageRequest struct {
	Description string `json:"description"`
}

// ResumeRequest is the body of POST /triage/resume.
type ResumeRequest struct {
	ThreadID          string `json:"thread_id"`
	AdditionalDetails string `json:"additional_details"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"name":   "Ticket Triage Agent",
		"status": "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"kb_loaded":  s.index != nil && s.index.Len() > 0,
		"kb_entries": s.index.Len(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Snapshot())
}

func (s *Server) handleTriage(w http.ResponseWriter, r *http.Request) {
	var req TriageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	events, err := s.engine.Triage(r.Context(), req.Description)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.streamNDJSON(w, r, events)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req ResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ThreadID == "" {
		writeError(w, http.StatusBadRequest, "thread_id is required")
		return
	}

	events, err := s.engine.Resume(r.Context(), req.ThreadID, req.AdditionalDetails)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.streamNDJSON(w, r, events)
}

// handleWebsocket serves the same event stream over a websocket. The client
// sends one request message ({description} or {thread_id,
// additional_details}) and receives JSON events until the stream ends.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var req struct {
		Description       string `json:"description"`
		ThreadID          string `json:"thread_id"`
		AdditionalDetails string `json:"additional_details"`
	}
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(engine.StreamEvent{Type: engine.EventError, Message: "invalid request message"})
		return
	}

	var events <-chan engine.StreamEvent
	if req.ThreadID != "" {
		events, err = s.engine.Resume(r.Context(), req.ThreadID, req.AdditionalDetails)
	} else {
		events, err = s.engine.Triage(r.Context(), req.Description)
	}
	if err != nil {
		_ = conn.WriteJSON(engine.StreamEvent{Type: engine.EventError, Message: err.Error()})
		return
	}

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			s.logger.Debug("websocket write failed, client gone", "error", err)
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// streamNDJSON relays events to the client one JSON object per line,
// flushing after each so the caller sees progress as it happens.
func (s *Server) streamNDJSON(w http.ResponseWriter, r *http.Request, events <-chan engine.StreamEvent) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			s.logger.Debug("stream write failed, client gone", "error", err)
			// Drain so the workflow goroutine can finish.
			for range events {
			}
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrEmptyDescription),
		errors.Is(err, models.ErrDescriptionTooLong),
		errors.Is(err, models.ErrEmptyDetails):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkpoint.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrSessionBusy):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
