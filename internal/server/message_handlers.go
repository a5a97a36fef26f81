package server

import (
	"encoding/json"
	"net/http"

	"github.com/hawki-project/roomsync/internal/services"
)

type sendMessageRequest struct {
	RoomID     int64   `json:"room_id"`
	ThreadID   *int64  `json:"thread_id,omitempty"`
	Ciphertext []byte  `json:"ciphertext"`
	Nonce      []byte  `json:"nonce"`
	ModelLabel *string `json:"model_label,omitempty"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RoomID <= 0 || len(req.Ciphertext) == 0 || len(req.Nonce) == 0 {
		s.respondError(w, http.StatusBadRequest, "room_id, ciphertext and nonce are required")
		return
	}

	message, err := s.messages.SendMessage(r.Context(), currentUserID(r), services.SendMessageRequest{
		RoomID:     req.RoomID,
		ThreadID:   req.ThreadID,
		Ciphertext: req.Ciphertext,
		Nonce:      req.Nonce,
		ModelLabel: req.ModelLabel,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, message)
}

type updateMessageRequest struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
}

func (s *Server) handleUpdateMessage(w http.ResponseWriter, r *http.Request) {
	messageID, ok := pathID(r, "messageID")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var req updateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Ciphertext) == 0 || len(req.Nonce) == 0 {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := s.messages.UpdateMessage(r.Context(), currentUserID(r), messageID, req.Ciphertext, req.Nonce)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, message)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, ok := pathID(r, "messageID")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	if err := s.messages.DeleteMessage(r.Context(), currentUserID(r), messageID); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}
