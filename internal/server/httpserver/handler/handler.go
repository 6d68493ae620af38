package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yndnr/meshkv/internal/core/domain"
	"github.com/yndnr/meshkv/internal/storage/memory"
	"github.com/yndnr/meshkv/internal/telemetry/logger"
)

// Keyspace reports per-database key counts and expiration statistics.
type Keyspace interface {
	KeyCounts() []int
	Stats() memory.Stats
}

// Sessions reports the number of connected clients.
type Sessions interface {
	Count() int
}

// Config wires the handler to the running server.
type Config struct {
	Keyspace Keyspace
	Sessions Sessions

	// Settings returns the sanitized effective configuration.
	Settings func() any

	// Rewrite compacts the append-only file and returns the number of
	// records written. Nil disables the endpoint.
	Rewrite func() (int, error)

	Logger    logger.Logger
	StartedAt time.Time
}

// Handler serves the admin endpoints.
type Handler struct {
	cfg    Config
	ready  atomic.Bool
	logger logger.Logger
	mux    *http.ServeMux
}

// New creates a new Handler. It reports not ready until SetReady(true).
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.StartedAt.IsZero() {
		cfg.StartedAt = time.Now()
	}
	h := &Handler{
		cfg:    cfg,
		logger: cfg.Logger,
		mux:    http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// SetReady flips the readiness probe.
func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	h.mux.HandleFunc("GET /readyz", h.handleReady)

	h.mux.HandleFunc("GET /admin/v1/status/summary", h.handleStatus)
	h.mux.HandleFunc("GET /admin/v1/config", h.handleConfig)
	h.mux.HandleFunc("POST /admin/v1/aof/rewrite", h.handleRewrite)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	WriteError(w, getRequestID(r), status, code, message, details)
}

// WriteError writes an error envelope. It is shared with middleware.
func WriteError(w http.ResponseWriter, requestID string, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, details))
}

// handleServiceError converts domain errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		var details any
		if de.Details != "" {
			details = de.Details
		}
		if de.Cause != nil {
			h.logger.Warn("admin request failed", "code", de.Code, "error", de.Cause)
		}
		h.writeError(w, r, ErrorCodeToHTTPStatus(de.Code), de.Code, de.Message, details)
		return
	}

	h.logger.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternal.Code, domain.ErrInternal.Message, nil)
}

// ErrorCodeToHTTPStatus maps error codes to HTTP status codes by their
// numeric suffix.
func ErrorCodeToHTTPStatus(code string) int {
	idx := strings.LastIndex(code, "-")
	if idx < 0 || len(code)-idx-1 < 3 {
		return http.StatusInternalServerError
	}
	switch code[idx+1 : idx+4] {
	case "400":
		return http.StatusBadRequest
	case "401":
		return http.StatusUnauthorized
	case "403":
		return http.StatusForbidden
	case "404":
		return http.StatusNotFound
	case "409":
		return http.StatusConflict
	case "429":
		return http.StatusTooManyRequests
	case "503":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func getRequestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}
