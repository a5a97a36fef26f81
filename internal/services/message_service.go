package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hawki-project/roomsync/internal/events"
	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/repositories"
	"github.com/hawki-project/roomsync/internal/synclog"
)

type MessageService struct {
	pool     *pgxpool.Pool
	messages repositories.MessageRepository
	rooms    repositories.RoomRepository
	members  repositories.MemberRepository
	tracker  *synclog.Tracker
}

func NewMessageService(
	pool *pgxpool.Pool,
	messages repositories.MessageRepository,
	rooms repositories.RoomRepository,
	members repositories.MemberRepository,
	tracker *synclog.Tracker,
) *MessageService {
	return &MessageService{
		pool:     pool,
		messages: messages,
		rooms:    rooms,
		members:  members,
		tracker:  tracker,
	}
}

type SendMessageRequest struct {
	RoomID     int64
	ThreadID   *int64
	Ciphertext []byte
	Nonce      []byte
	ModelLabel *string
}

func (s *MessageService) SendMessage(ctx context.Context, senderID int64, req SendMessageRequest) (*models.Message, error) {
	member, err := s.membership(ctx, req.RoomID, senderID)
	if err != nil {
		return nil, err
	}
	room, err := s.rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	message := &models.Message{
		RoomID:     req.RoomID,
		MemberID:   member.ID,
		UserID:     senderID,
		ThreadID:   req.ThreadID,
		Ciphertext: req.Ciphertext,
		Nonce:      req.Nonce,
		ModelLabel: req.ModelLabel,
	}
	if err := s.messages.WithTx(tx).Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	if err := s.tracker.Dispatch(ctx, tx, events.MessageSent{Message: message, Room: room}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return message, nil
}

func (s *MessageService) UpdateMessage(ctx context.Context, actorID, messageID int64, ciphertext, nonce []byte) (*models.Message, error) {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if message.UserID != actorID {
		return nil, ErrForbidden
	}
	room, err := s.rooms.GetByID(ctx, message.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	message.Ciphertext = ciphertext
	message.Nonce = nonce
	if err := s.messages.WithTx(tx).Update(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}
	if err := s.tracker.Dispatch(ctx, tx, events.MessageUpdated{Message: message, Room: room}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return message, nil
}

// DeleteMessage removes a message. Authors delete their own; owners and
// admins may delete any message in their room.
func (s *MessageService) DeleteMessage(ctx context.Context, actorID, messageID int64) error {
	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to get message: %w", err)
	}
	if message.UserID != actorID {
		member, err := s.membership(ctx, message.RoomID, actorID)
		if err != nil {
			return err
		}
		if member.Role != models.RoleOwner && member.Role != models.RoleAdmin {
			return ErrForbidden
		}
	}
	room, err := s.rooms.GetByID(ctx, message.RoomID)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.tracker.Dispatch(ctx, tx, events.MessageDeleting{Message: message, Room: room}); err != nil {
		return err
	}
	if err := s.messages.WithTx(tx).Delete(ctx, messageID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetAiWriting emits the transient writing signal to the room's current
// members. Nothing is stored; the dispatch runs directly on the pool.
func (s *MessageService) SetAiWriting(ctx context.Context, actorID, roomID int64, modelLabel string, writing bool) error {
	if _, err := s.membership(ctx, roomID, actorID); err != nil {
		return err
	}
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	if writing {
		return s.tracker.Dispatch(ctx, s.pool, events.AiWritingStarted{Room: room, ModelLabel: modelLabel})
	}
	return s.tracker.Dispatch(ctx, s.pool, events.AiWritingEnded{Room: room, ModelLabel: modelLabel})
}

func (s *MessageService) membership(ctx context.Context, roomID, userID int64) (*models.Member, error) {
	member, err := s.members.GetByRoomAndUser(ctx, roomID, userID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}
