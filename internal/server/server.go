// Package server exposes the sync service over HTTP: auth, the catch-up
// endpoint, and the domain mutations that feed the change log.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hawki-project/roomsync/internal/services"
	"github.com/hawki-project/roomsync/internal/synclog"
)

type Server struct {
	auth     *services.AuthService
	rooms    *services.RoomService
	messages *services.MessageService
	users    *services.UserService
	sync     *synclog.QueryService
	logger   *zap.Logger
}

func NewServer(
	auth *services.AuthService,
	rooms *services.RoomService,
	messages *services.MessageService,
	users *services.UserService,
	sync *synclog.QueryService,
	logger *zap.Logger,
) *Server {
	return &Server{
		auth:     auth,
		rooms:    rooms,
		messages: messages,
		users:    users,
		sync:     sync,
		logger:   logger,
	}
}

func (s *Server) Router() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(s.requestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Post("/auth/register", s.handleRegister)
	router.Post("/auth/login", s.handleLogin)

	router.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/sync", s.handleSync)

		r.Post("/rooms", s.handleCreateRoom)
		r.Patch("/rooms/{roomID}", s.handleUpdateRoom)
		r.Delete("/rooms/{roomID}", s.handleDeleteRoom)
		r.Post("/rooms/{roomID}/invitations", s.handleInvite)
		r.Patch("/rooms/{roomID}/members/{userID}", s.handleUpdateMemberRole)
		r.Delete("/rooms/{roomID}/members/{userID}", s.handleRemoveMember)
		r.Post("/rooms/{roomID}/ai-writing", s.handleAiWriting)

		r.Post("/invitations/{token}/accept", s.handleAcceptInvitation)
		r.Delete("/invitations/{invitationID}", s.handleRevokeInvitation)

		r.Post("/messages", s.handleSendMessage)
		r.Patch("/messages/{messageID}", s.handleUpdateMessage)
		r.Delete("/messages/{messageID}", s.handleDeleteMessage)

		r.Get("/me", s.handleGetMe)
		r.Patch("/me", s.handleUpdateProfile)
		r.Delete("/me", s.handleDeleteAccount)
		r.Put("/me/private-data/{key}", s.handlePutPrivateData)
		r.Delete("/me/private-data/{key}", s.handleDeletePrivateData)
		r.Put("/me/keychain/{key}", s.handlePutKeychainValue)
		r.Delete("/me/keychain/{key}", s.handleDeleteKeychainValue)
	})

	return router
}
