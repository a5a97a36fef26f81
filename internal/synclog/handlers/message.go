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

type messageResource struct {
	ID         int64      `json:"id"`
	RoomID     int64      `json:"room_id"`
	MemberID   int64      `json:"member_id"`
	UserID     int64      `json:"user_id"`
	ThreadID   *int64     `json:"thread_id,omitempty"`
	Ciphertext []byte     `json:"ciphertext"`
	Nonce      []byte     `json:"nonce"`
	ModelLabel *string    `json:"model_label,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

type MessageHandler struct {
	messages repositories.MessageRepository
	members  repositories.MemberRepository
}

func NewMessageHandler(messages repositories.MessageRepository, members repositories.MemberRepository) *MessageHandler {
	return &MessageHandler{messages: messages, members: members}
}

func (h *MessageHandler) Type() synclog.EntryType { return synclog.EntryTypeMessage }

func (h *MessageHandler) Kind() synclog.HandlerKind { return synclog.KindPersistent }

func (h *MessageHandler) Listeners() []synclog.Listener {
	return []synclog.Listener{
		synclog.On(func(ctx context.Context, ev events.MessageSent) (*synclog.Payload, error) {
			return h.setPayload(ctx, ev.Message, ev.Room)
		}),
		synclog.On(func(ctx context.Context, ev events.MessageUpdated) (*synclog.Payload, error) {
			return h.setPayload(ctx, ev.Message, ev.Room)
		}),
		synclog.On(func(ctx context.Context, ev events.MessageDeleting) (*synclog.Payload, error) {
			audience, err := roomAudience(ctx, h.members, ev.Room.ID)
			if err != nil {
				return nil, err
			}
			return synclog.NewRemovePayload(synclog.EntitySubject(ev.Message), audience, ev.Room), nil
		}),
	}
}

func (h *MessageHandler) setPayload(ctx context.Context, message *models.Message, room *models.Room) (*synclog.Payload, error) {
	audience, err := roomAudience(ctx, h.members, room.ID)
	if err != nil {
		return nil, err
	}
	return synclog.NewSetPayload(synclog.EntitySubject(message), audience, room), nil
}

func (h *MessageHandler) Resource(ctx context.Context, subject synclog.Subject) (json.RawMessage, error) {
	message, ok := subject.Entity.(*models.Message)
	if !ok {
		return nil, fmt.Errorf("unexpected subject %T for message resource", subject.Entity)
	}
	return json.Marshal(messageResource{
		ID:         message.ID,
		RoomID:     message.RoomID,
		MemberID:   message.MemberID,
		UserID:     message.UserID,
		ThreadID:   message.ThreadID,
		Ciphertext: message.Ciphertext,
		Nonce:      message.Nonce,
		ModelLabel: message.ModelLabel,
		CreatedAt:  message.CreatedAt,
		UpdatedAt:  message.UpdatedAt,
	})
}

func (h *MessageHandler) FindByID(ctx context.Context, id int64) (synclog.Subject, error) {
	message, err := h.messages.GetByID(ctx, id)
	return subjectOrMissing(message, err)
}

func (h *MessageHandler) IDOf(subject synclog.Subject) int64 {
	if message, ok := subject.Entity.(*models.Message); ok {
		return message.ID
	}
	return synclog.TransientTargetID
}

func (h *MessageHandler) CountForFullSync(ctx context.Context, c synclog.Constraints) (int64, error) {
	return h.messages.CountForUserRooms(ctx, c.UserID, c.RoomID)
}

func (h *MessageHandler) ModelsForFullSync(ctx context.Context, c synclog.Constraints) ([]synclog.Subject, error) {
	messages, err := h.messages.ListForUserRooms(ctx, c.UserID, c.RoomID, c.Offset, c.Limit)
	if err != nil {
		return nil, err
	}
	subjects := make([]synclog.Subject, 0, len(messages))
	for _, message := range messages {
		subjects = append(subjects, synclog.EntitySubject(message))
	}
	return subjects, nil
}
