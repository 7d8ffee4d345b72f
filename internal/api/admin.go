package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/ashureev/gatekeeper/internal/middleware"
	"github.com/ashureev/gatekeeper/internal/verify"
	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AdminHandler serves session and verification inspection endpoints.
type AdminHandler struct {
	*Handler
	token string
}

// NewAdminHandler creates an admin handler. A non-empty token is required
// as a bearer credential on every route.
func NewAdminHandler(base *Handler, token string) *AdminHandler {
	return &AdminHandler{Handler: base, token: token}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.BearerToken(h.token))
		r.Get("/sessions", h.ListSessions)
		r.Get("/sessions/{userID}", h.GetSession)
		r.Get("/verifications", h.ListVerifications)
	})
}

// ListSessions returns every in-flight session.
func (h *AdminHandler) ListSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := h.sessions.Sessions()
	if sessions == nil {
		sessions = []domain.Session{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// GetSession returns one user's session and how often they completed before.
func (h *AdminHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sess, err := h.sessions.Progress(userID)
	if errors.Is(err, verify.ErrSessionMissing) {
		Error(w, http.StatusNotFound, "session_not_found")
		return
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, "session_lookup_failed")
		return
	}

	completed, err := h.ledger.CountVerifications(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to count verifications", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "ledger_unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"session":                sess,
		"previous_verifications": completed,
	})
}

// ListVerifications returns recent completed verifications.
func (h *AdminHandler) ListVerifications(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r.URL.Query().Get("limit"))
	if !ok {
		Error(w, http.StatusBadRequest, "invalid_limit")
		return
	}

	records, err := h.ledger.ListVerifications(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list verifications", "error", err)
		Error(w, http.StatusInternalServerError, "ledger_unavailable")
		return
	}
	if records == nil {
		records = []*domain.Verification{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"count":         len(records),
		"verifications": records,
	})
}

func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}
