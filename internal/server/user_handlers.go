package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hawki-project/roomsync/internal/services"
)

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetUser(r.Context(), currentUserID(r))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.UpdateProfile(r.Context(), currentUserID(r), req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.users.DeleteAccount(r.Context(), currentUserID(r)); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

type putPrivateDataRequest struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	Version    int64  `json:"version"`
}

func (s *Server) handlePutPrivateData(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req putPrivateDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Ciphertext) == 0 || len(req.Nonce) == 0 {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	data, err := s.users.PutPrivateData(r.Context(), currentUserID(r), services.PutPrivateDataRequest{
		Key:        key,
		Ciphertext: req.Ciphertext,
		Nonce:      req.Nonce,
		Version:    req.Version,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, data)
}

func (s *Server) handleDeletePrivateData(w http.ResponseWriter, r *http.Request) {
	if err := s.users.DeletePrivateData(r.Context(), currentUserID(r), chi.URLParam(r, "key")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

type putKeychainValueRequest struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
}

func (s *Server) handlePutKeychainValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req putKeychainValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Ciphertext) == 0 || len(req.Nonce) == 0 {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	value, err := s.users.PutKeychainValue(r.Context(), currentUserID(r), services.PutKeychainValueRequest{
		Key:        key,
		Ciphertext: req.Ciphertext,
		Nonce:      req.Nonce,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, value)
}

func (s *Server) handleDeleteKeychainValue(w http.ResponseWriter, r *http.Request) {
	if err := s.users.DeleteKeychainValue(r.Context(), currentUserID(r), chi.URLParam(r, "key")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}
