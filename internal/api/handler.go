// Package api provides HTTP handlers for the status server.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
)

// Sessions reports how many activity logs are in progress.
type Sessions interface {
	Len() int
}

// Gateway reports whether the chat connection is up.
type Gateway interface {
	Ready() bool
}

// StatusHandler serves process status.
type StatusHandler struct {
	sessions Sessions
	gateway  Gateway
	targets  []string
	started  time.Time
}

// NewStatusHandler creates a status handler. gateway may be nil.
func NewStatusHandler(sessions Sessions, gateway Gateway, targets []string) *StatusHandler {
	return &StatusHandler{
		sessions: sessions,
		gateway:  gateway,
		targets:  targets,
		started:  time.Now(),
	}
}

// Status returns active sessions, delivery targets and gateway state.
func (h *StatusHandler) Status(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status":           "healthy",
		"checks":           checks,
		"active_sessions":  h.sessions.Len(),
		"delivery_targets": h.targets,
		"started":          humanize.Time(h.started),
	}
	statusCode := http.StatusOK

	if h.gateway != nil {
		if h.gateway.Ready() {
			checks["gateway"] = "ok"
		} else {
			checks["gateway"] = "connecting"
			status["status"] = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
	}

	JSON(w, statusCode, status)
}

// RegisterRoutes registers the status route.
func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.Status)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
