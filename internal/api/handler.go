// Package api provides the admin HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ashureev/gatekeeper/internal/domain"
)

// Ledger is the read side of the verification store.
type Ledger interface {
	ListVerifications(ctx context.Context, limit int) ([]*domain.Verification, error)
	CountVerifications(ctx context.Context, userID string) (int, error)
	Ping(ctx context.Context) error
}

// Sessions exposes in-flight verification sessions.
type Sessions interface {
	Sessions() []domain.Session
	ActiveSessions() int
	Progress(userID string) (domain.Session, error)
}

// Handler provides common handler utilities.
type Handler struct {
	ledger   Ledger
	sessions Sessions
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(ledger Ledger, sessions Sessions) *Handler {
	return &Handler{ledger: ledger, sessions: sessions}
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
