package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hawki-project/roomsync/internal/repositories"
	"github.com/hawki-project/roomsync/internal/services"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP statuses. Anything
// unmapped is a 500 and gets logged.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repositories.ErrVersionConflict):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		s.respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrNotMember):
		s.respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrEmailExists),
		errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrInvitationClosed),
		errors.Is(err, services.ErrInvitationExpired):
		s.respondError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
