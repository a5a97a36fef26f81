package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/services"
)

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

type createRoomRequest struct {
	Name           string  `json:"name"`
	Slug           string  `json:"slug"`
	Description    *string `json:"description,omitempty"`
	SystemPromptID *int64  `json:"system_prompt_id,omitempty"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Slug == "" {
		s.respondError(w, http.StatusBadRequest, "name and slug are required")
		return
	}

	room, err := s.rooms.CreateRoom(r.Context(), currentUserID(r), services.CreateRoomRequest{
		Name:           req.Name,
		Slug:           req.Slug,
		Description:    req.Description,
		SystemPromptID: req.SystemPromptID,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, room)
}

func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r, "roomID")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	var req services.UpdateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := s.rooms.UpdateRoom(r.Context(), currentUserID(r), roomID, req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, room)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r, "roomID")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	if err := s.rooms.DeleteRoom(r.Context(), currentUserID(r), roomID); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

type inviteRequest struct {
	UserID    int64      `json:"user_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r, "roomID")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	invitation, err := s.rooms.InviteUser(r.Context(), currentUserID(r), services.InviteRequest{
		RoomID:    roomID,
		InviteeID: req.UserID,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, invitation)
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	token, err := uuid.Parse(chi.URLParam(r, "token"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid invitation token")
		return
	}

	member, err := s.rooms.AcceptInvitation(r.Context(), currentUserID(r), token)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, member)
}

func (s *Server) handleRevokeInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, ok := pathID(r, "invitationID")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid invitation id")
		return
	}

	if err := s.rooms.RevokeInvitation(r.Context(), currentUserID(r), invitationID); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

type updateMemberRoleRequest struct {
	Role models.MemberRole `json:"role"`
}

func (s *Server) handleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r, "roomID")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateMemberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Role {
	case models.RoleAdmin, models.RoleMember:
	default:
		s.respondError(w, http.StatusBadRequest, "invalid role")
		return
	}

	member, err := s.rooms.UpdateMemberRole(r.Context(), currentUserID(r), roomID, userID, req.Role)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, member)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r, "roomID")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := s.rooms.RemoveMember(r.Context(), currentUserID(r), roomID, userID); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

type aiWritingRequest struct {
	ModelLabel string `json:"model_label"`
	Writing    bool   `json:"writing"`
}

func (s *Server) handleAiWriting(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(r, "roomID")
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	var req aiWritingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ModelLabel == "" {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.messages.SetAiWriting(r.Context(), currentUserID(r), roomID, req.ModelLabel, req.Writing); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, nil)
}
