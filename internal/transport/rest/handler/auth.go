package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"plantdoc/internal/service"
	"plantdoc/internal/session"
	"plantdoc/internal/transport/rest/middleware"
	"plantdoc/internal/wizard"
)

// AuthHandler reports who the caller is
type AuthHandler struct{}

// NewAuthHandler creates a new auth handler
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Me handles GET /v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac := middleware.GetAuthContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userId": ac.UserID,
		"role":   ac.Role.String(),
	})
}

// caller builds the service caller from the authenticated request,
// forwarding the Authorization header to the backend
func caller(r *http.Request) service.Caller {
	h := http.Header{}
	if v := r.Header.Get("Authorization"); v != "" {
		h.Set("Authorization", v)
	}
	return service.Caller{UserID: middleware.GetUserID(r.Context()), Header: h}
}

// statusFor maps service and wizard errors to HTTP status codes
func statusFor(err error) int {
	var werr *wizard.Error
	switch {
	case errors.As(err, &werr):
		if werr.Kind == wizard.KindRenderFailure {
			return http.StatusInternalServerError
		}
		return http.StatusBadGateway
	case errors.Is(err, service.ErrPlantNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrUnknownAnswer), errors.Is(err, session.ErrQuestionIndex):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrInvalidTransition),
		errors.Is(err, wizard.ErrTransitionPending),
		errors.Is(err, wizard.ErrExportInProgress),
		errors.Is(err, wizard.ErrNoDiscardPending),
		errors.Is(err, wizard.ErrUnanswered),
		errors.Is(err, wizard.ErrNoCurrentQuestion):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
