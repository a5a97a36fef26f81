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

type roomResource struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	Description    *string    `json:"description,omitempty"`
	SystemPromptID *int64     `json:"system_prompt_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

type RoomHandler struct {
	rooms   repositories.RoomRepository
	members repositories.MemberRepository
}

func NewRoomHandler(rooms repositories.RoomRepository, members repositories.MemberRepository) *RoomHandler {
	return &RoomHandler{rooms: rooms, members: members}
}

func (h *RoomHandler) Type() synclog.EntryType { return synclog.EntryTypeRoom }

func (h *RoomHandler) Kind() synclog.HandlerKind { return synclog.KindPersistent }

func (h *RoomHandler) Listeners() []synclog.Listener {
	return []synclog.Listener{
		synclog.On(func(ctx context.Context, ev events.RoomCreated) (*synclog.Payload, error) {
			return h.setPayload(ctx, ev.Room, ev.Creator)
		}),
		synclog.On(func(ctx context.Context, ev events.RoomUpdated) (*synclog.Payload, error) {
			return h.setPayload(ctx, ev.Room)
		}),
		synclog.On(func(ctx context.Context, ev events.MemberAdded) (*synclog.Payload, error) {
			// A freshly added member needs the room resource itself;
			// everyone else already has it.
			return synclog.NewSetPayload(synclog.EntitySubject(ev.Room), []*models.User{ev.User}, ev.Room), nil
		}),
		synclog.On(func(ctx context.Context, ev events.RoomDeleting) (*synclog.Payload, error) {
			audience, err := roomAudience(ctx, h.members, ev.Room.ID)
			if err != nil {
				return nil, err
			}
			return synclog.NewRemovePayload(synclog.EntitySubject(ev.Room), audience, ev.Room), nil
		}),
	}
}

func (h *RoomHandler) setPayload(ctx context.Context, room *models.Room, extra ...*models.User) (*synclog.Payload, error) {
	audience, err := roomAudience(ctx, h.members, room.ID, extra...)
	if err != nil {
		return nil, err
	}
	return synclog.NewSetPayload(synclog.EntitySubject(room), audience, room), nil
}

func (h *RoomHandler) Resource(ctx context.Context, subject synclog.Subject) (json.RawMessage, error) {
	room, ok := subject.Entity.(*models.Room)
	if !ok {
		return nil, fmt.Errorf("unexpected subject %T for room resource", subject.Entity)
	}
	return json.Marshal(roomResource{
		ID:             room.ID,
		Name:           room.Name,
		Slug:           room.Slug,
		Description:    room.Description,
		SystemPromptID: room.SystemPromptID,
		CreatedAt:      room.CreatedAt,
		UpdatedAt:      room.UpdatedAt,
	})
}

func (h *RoomHandler) FindByID(ctx context.Context, id int64) (synclog.Subject, error) {
	room, err := h.rooms.GetByID(ctx, id)
	return subjectOrMissing(room, err)
}

func (h *RoomHandler) IDOf(subject synclog.Subject) int64 {
	if room, ok := subject.Entity.(*models.Room); ok {
		return room.ID
	}
	return synclog.TransientTargetID
}

func (h *RoomHandler) CountForFullSync(ctx context.Context, c synclog.Constraints) (int64, error) {
	return h.rooms.CountForUser(ctx, c.UserID, c.RoomID)
}

func (h *RoomHandler) ModelsForFullSync(ctx context.Context, c synclog.Constraints) ([]synclog.Subject, error) {
	rooms, err := h.rooms.ListForUser(ctx, c.UserID, c.RoomID, c.Offset, c.Limit)
	if err != nil {
		return nil, err
	}
	subjects := make([]synclog.Subject, 0, len(rooms))
	for _, room := range rooms {
		subjects = append(subjects, synclog.EntitySubject(room))
	}
	return subjects, nil
}
