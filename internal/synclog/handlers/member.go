package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hawki-project/roomsync/internal/events"
	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/repositories"
	"github.com/hawki-project/roomsync/internal/synclog"
)

type memberResource struct {
	ID        int64             `json:"id"`
	RoomID    int64             `json:"room_id"`
	UserID    int64             `json:"user_id"`
	Role      models.MemberRole `json:"role"`
	JoinedAt  time.Time         `json:"joined_at"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
}

type MemberHandler struct {
	members repositories.MemberRepository
}

func NewMemberHandler(members repositories.MemberRepository) *MemberHandler {
	return &MemberHandler{members: members}
}

func (h *MemberHandler) Type() synclog.EntryType { return synclog.EntryTypeMember }

func (h *MemberHandler) Kind() synclog.HandlerKind { return synclog.KindPersistent }

func (h *MemberHandler) Listeners() []synclog.Listener {
	return []synclog.Listener{
		synclog.On(func(ctx context.Context, ev events.MemberAdded) (*synclog.Payload, error) {
			return h.setPayload(ctx, ev)
		}),
		synclog.On(func(ctx context.Context, ev events.MemberUpdated) (*synclog.Payload, error) {
			return h.setPayload(ctx, events.MemberAdded(ev))
		}),
		synclog.On(func(ctx context.Context, ev events.MemberRemoved) (*synclog.Payload, error) {
			// The removed user's membership row is already gone, yet
			// they must learn about their own removal; the remaining
			// members must learn the member left.
			audience, err := roomAudience(ctx, h.members, ev.Room.ID, ev.User)
			if err != nil {
				return nil, err
			}
			return synclog.NewRemovePayload(synclog.EntitySubject(ev.Member), audience, ev.Room), nil
		}),
	}
}

func (h *MemberHandler) setPayload(ctx context.Context, ev events.MemberAdded) (*synclog.Payload, error) {
	audience, err := roomAudience(ctx, h.members, ev.Room.ID, ev.User)
	if err != nil {
		return nil, err
	}
	return synclog.NewSetPayload(synclog.EntitySubject(ev.Member), audience, ev.Room), nil
}

func (h *MemberHandler) Resource(ctx context.Context, subject synclog.Subject) (json.RawMessage, error) {
	member, ok := subject.Entity.(*models.Member)
	if !ok {
		return nil, fmt.Errorf("unexpected subject %T for member resource", subject.Entity)
	}
	return json.Marshal(memberResource{
		ID:        member.ID,
		RoomID:    member.RoomID,
		UserID:    member.UserID,
		Role:      member.Role,
		JoinedAt:  member.JoinedAt,
		UpdatedAt: member.UpdatedAt,
	})
}

func (h *MemberHandler) FindByID(ctx context.Context, id int64) (synclog.Subject, error) {
	member, err := h.members.GetByID(ctx, id)
	return subjectOrMissing(member, err)
}

func (h *MemberHandler) IDOf(subject synclog.Subject) int64 {
	if member, ok := subject.Entity.(*models.Member); ok {
		return member.ID
	}
	return synclog.TransientTargetID
}

func (h *MemberHandler) CountForFullSync(ctx context.Context, c synclog.Constraints) (int64, error) {
	return h.members.CountForUserRooms(ctx, c.UserID, c.RoomID)
}

func (h *MemberHandler) ModelsForFullSync(ctx context.Context, c synclog.Constraints) ([]synclog.Subject, error) {
	members, err := h.members.ListForUserRooms(ctx, c.UserID, c.RoomID, c.Offset, c.Limit)
	if err != nil {
		return nil, err
	}
	subjects := make([]synclog.Subject, 0, len(members))
	for _, member := range members {
		subjects = append(subjects, synclog.EntitySubject(member))
	}
	return subjects, nil
}
