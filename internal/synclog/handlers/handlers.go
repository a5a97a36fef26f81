// Package handlers contains the per-entity-type sync log handlers. Each
// handler owns one entry type, declares the domain events it reacts to,
// computes the audience for each change at write time, and knows how to
// materialize its entities for full sync.
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/repositories"
	"github.com/hawki-project/roomsync/internal/synclog"
)

// Registry bundles the repositories the handler set draws on.
type Registry struct {
	Users        repositories.UserRepository
	Rooms        repositories.RoomRepository
	Members      repositories.MemberRepository
	Invitations  repositories.InvitationRepository
	Messages     repositories.MessageRepository
	PrivateData  repositories.PrivateUserDataRepository
	Keychain     repositories.KeychainRepository
	AiModels     repositories.AiModelRepository
	SystemPrompt repositories.SystemPromptRepository
}

// All returns the full handler set in registration order. The order is part
// of the sync contract: the query service merges responses by it, so rooms
// arrive before their members and members before their messages.
func (r Registry) All() []synclog.Handler {
	return []synclog.Handler{
		NewRoomHandler(r.Rooms, r.Members),
		NewUserHandler(r.Users, r.Members),
		NewMemberHandler(r.Members),
		NewInvitationHandler(r.Invitations, r.Users),
		NewMessageHandler(r.Messages, r.Members),
		NewPrivateUserDataHandler(r.PrivateData),
		NewKeychainHandler(r.Keychain),
		NewAiModelHandler(r.AiModels),
		NewSystemPromptHandler(r.SystemPrompt),
		NewAiWritingHandler(r.Members),
	}
}

// roomAudience resolves the room's current member users, appending any extra
// users that must see the change even though they are not (or no longer)
// members. Resolution happens at dispatch time, never cached: membership may
// have changed between the domain action and delivery.
func roomAudience(ctx context.Context, members repositories.MemberRepository, roomID int64, extra ...*models.User) ([]*models.User, error) {
	users, err := members.ListUsersForRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("resolving audience of room %d: %w", roomID, err)
	}
	return append(users, extra...), nil
}

// subjectOrMissing maps a repository lookup to the handler contract: a
// missing entity is a zero Subject, not an error.
func subjectOrMissing(entity any, err error) (synclog.Subject, error) {
	if errors.Is(err, repositories.ErrNotFound) {
		return synclog.Subject{}, nil
	}
	if err != nil {
		return synclog.Subject{}, err
	}
	return synclog.EntitySubject(entity), nil
}
