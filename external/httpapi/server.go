package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/foxseedlab/jimaku/internal/repository"
	"github.com/foxseedlab/jimaku/internal/session"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
	maxBodyBytes     = 64 << 10
)

// SessionControl is the operator surface of the session controller.
type SessionControl interface {
	Start(streamURL string) error
	Stop()
	Status() session.Status
	RecentRuns(ctx context.Context, limit int) ([]repository.Run, error)
}

type Server struct {
	control  SessionControl
	listener http.Handler
	mux      *http.ServeMux
}

// NewServer routes the operator endpoints and mounts listener at /ws.
func NewServer(control SessionControl, listener http.Handler) *Server {
	s := &Server{control: control, listener: listener, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /start", s.handleStart)
	s.mux.HandleFunc("POST /stop", s.handleStop)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /runs", s.handleRuns)
	s.mux.Handle("GET /ws", s.listener)
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = recoverPanics(h)
	h = accessLog(h)
	return h
}

type startRequest struct {
	StreamURL string `json:"stream_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	streamURL, err := readStreamURL(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	switch err := s.control.Start(streamURL); {
	case err == nil:
		writeJSON(w, http.StatusAccepted, s.control.Status())
	case errors.Is(err, session.ErrAlreadyRunning):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrEmptyStreamURL):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		slog.Error("failed to start session", "stream_url", streamURL, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to start session"})
	}
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.control.Stop()
	writeJSON(w, http.StatusOK, s.control.Status())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.control.Status())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRunsLimit)
	}
	runs, err := s.control.RecentRuns(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list session runs", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list runs"})
		return
	}
	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, newRunResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}

type runResponse struct {
	ID           string     `json:"id"`
	StreamURL    string     `json:"stream_url"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Status       string     `json:"status"`
	StopReason   string     `json:"stop_reason,omitempty"`
	ChunksRead   int64      `json:"chunks_read"`
	ChunksSilent int64      `json:"chunks_silent"`
	Transcripts  int64      `json:"transcripts"`
	Deliveries   int64      `json:"deliveries"`
}

func newRunResponse(r repository.Run) runResponse {
	return runResponse{
		ID:           r.ID,
		StreamURL:    r.StreamURL,
		StartedAt:    r.StartedAt,
		EndedAt:      r.EndedAt,
		Status:       string(r.Status),
		StopReason:   r.StopReason,
		ChunksRead:   r.ChunksRead,
		ChunksSilent: r.ChunksSilent,
		Transcripts:  r.Transcripts,
		Deliveries:   r.Deliveries,
	}
}

// readStreamURL accepts either a JSON body or a form value.
func readStreamURL(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", errors.New("invalid json body")
		}
		return strings.TrimSpace(req.StreamURL), nil
	}
	if err := r.ParseForm(); err != nil {
		return "", errors.New("invalid form body")
	}
	return strings.TrimSpace(r.FormValue("stream_url")), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				slog.Error("panic in http handler", "panic", v, "path", r.URL.Path)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade take over the connection through the access log.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
