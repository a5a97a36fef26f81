package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/hawki-project/roomsync/internal/events"
	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/repositories"
	"github.com/hawki-project/roomsync/internal/synclog"
)

// userResource deliberately omits the email address: user entries fan out to
// everyone sharing a room with the user.
type userResource struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	Bio         *string    `json:"bio,omitempty"`
	PublicKey   *string    `json:"public_key,omitempty"`
	IsAI        bool       `json:"is_ai"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

type UserHandler struct {
	users   repositories.UserRepository
	members repositories.MemberRepository
}

func NewUserHandler(users repositories.UserRepository, members repositories.MemberRepository) *UserHandler {
	return &UserHandler{users: users, members: members}
}

func (h *UserHandler) Type() synclog.EntryType { return synclog.EntryTypeUser }

func (h *UserHandler) Kind() synclog.HandlerKind { return synclog.KindPersistent }

func (h *UserHandler) Listeners() []synclog.Listener {
	return []synclog.Listener{
		synclog.On(func(ctx context.Context, ev events.UserUpdated) (*synclog.Payload, error) {
			// Room member lists shown to others carry the updated
			// name and avatar, so everyone sharing a room is
			// entitled to the change.
			audience, err := h.users.ListPeers(ctx, ev.User.ID, nil, 0, math.MaxInt64)
			if err != nil {
				return nil, fmt.Errorf("resolving peers of user %d: %w", ev.User.ID, err)
			}
			return synclog.NewSetPayload(synclog.EntitySubject(ev.User), audience, nil), nil
		}),
		synclog.On(func(ctx context.Context, ev events.MemberAdded) (*synclog.Payload, error) {
			// Existing members need the joining user's profile.
			audience, err := roomAudience(ctx, h.members, ev.Room.ID, ev.User)
			if err != nil {
				return nil, err
			}
			return synclog.NewSetPayload(synclog.EntitySubject(ev.User), audience, ev.Room), nil
		}),
	}
}

func (h *UserHandler) Resource(ctx context.Context, subject synclog.Subject) (json.RawMessage, error) {
	user, ok := subject.Entity.(*models.User)
	if !ok {
		return nil, fmt.Errorf("unexpected subject %T for user resource", subject.Entity)
	}
	return json.Marshal(userResource{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Bio:         user.Bio,
		PublicKey:   user.PublicKey,
		IsAI:        user.IsAI,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	})
}

func (h *UserHandler) FindByID(ctx context.Context, id int64) (synclog.Subject, error) {
	user, err := h.users.GetByID(ctx, id)
	return subjectOrMissing(user, err)
}

func (h *UserHandler) IDOf(subject synclog.Subject) int64 {
	if user, ok := subject.Entity.(*models.User); ok {
		return user.ID
	}
	return synclog.TransientTargetID
}

func (h *UserHandler) CountForFullSync(ctx context.Context, c synclog.Constraints) (int64, error) {
	count, err := h.users.CountPeers(ctx, c.UserID, c.RoomID)
	if err != nil {
		return 0, err
	}
	if count < 1 {
		// The requesting user always sees at least themself.
		count = 1
	}
	return count, nil
}

func (h *UserHandler) ModelsForFullSync(ctx context.Context, c synclog.Constraints) ([]synclog.Subject, error) {
	users, err := h.users.ListPeers(ctx, c.UserID, c.RoomID, c.Offset, c.Limit)
	if err != nil {
		return nil, err
	}
	subjects := make([]synclog.Subject, 0, len(users))
	for _, user := range users {
		subjects = append(subjects, synclog.EntitySubject(user))
	}
	return subjects, nil
}
