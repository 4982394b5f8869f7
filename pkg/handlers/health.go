package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sublyime/ingestion/pkg/logging"
)

// healthTimestampFormat is RFC 3339 with milliseconds.
const healthTimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Pinger verifies the store answers a trivial query.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthHandler handles liveness and health check endpoints.
type HealthHandler struct {
	db      Pinger
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewHealthHandler creates a new HealthHandler. timeout bounds the store check.
func NewHealthHandler(db Pinger, timeout time.Duration, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, timeout: timeout, logger: logger, now: time.Now}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /health", h.Health)
}

// Root handles GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("API is up and running"))
}

// Health handles GET /health requests.
// Runs SELECT 1 on the shared pool; the pool is created here if no request has needed it yet.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	err := h.db.Ping(ctx)
	timestamp := h.now().UTC().Format(healthTimestampFormat)

	if err != nil {
		h.logger.Warn("Health check failed", errorField(err))
		response := HealthResponse{
			Status:    "degraded",
			Database:  "disconnected",
			Error:     logging.SanitizeError(err),
			Timestamp: timestamp,
		}
		if err := WriteJSON(w, http.StatusInternalServerError, response); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}

	response := HealthResponse{Status: "healthy", Database: "connected", Timestamp: timestamp}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
