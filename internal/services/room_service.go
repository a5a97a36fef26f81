package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hawki-project/roomsync/internal/events"
	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/repositories"
	"github.com/hawki-project/roomsync/internal/synclog"
)

var (
	ErrForbidden         = errors.New("not allowed")
	ErrNotMember         = errors.New("not a member of this room")
	ErrAlreadyMember     = errors.New("already a member of this room")
	ErrInvitationClosed  = errors.New("invitation is no longer open")
	ErrInvitationExpired = errors.New("invitation has expired")
)

// RoomService owns the room lifecycle: creation, membership, invitations.
// Every mutation runs in one transaction together with the sync log entries
// it produces, so clients never observe a change without its feed entry.
type RoomService struct {
	pool        *pgxpool.Pool
	rooms       repositories.RoomRepository
	members     repositories.MemberRepository
	invitations repositories.InvitationRepository
	users       repositories.UserRepository
	tracker     *synclog.Tracker
}

func NewRoomService(
	pool *pgxpool.Pool,
	rooms repositories.RoomRepository,
	members repositories.MemberRepository,
	invitations repositories.InvitationRepository,
	users repositories.UserRepository,
	tracker *synclog.Tracker,
) *RoomService {
	return &RoomService{
		pool:        pool,
		rooms:       rooms,
		members:     members,
		invitations: invitations,
		users:       users,
		tracker:     tracker,
	}
}

type CreateRoomRequest struct {
	Name           string
	Slug           string
	Description    *string
	SystemPromptID *int64
}

func (s *RoomService) CreateRoom(ctx context.Context, creatorID int64, req CreateRoomRequest) (*models.Room, error) {
	creator, err := s.users.GetByID(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get creator: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	room := &models.Room{
		Name:           req.Name,
		Slug:           req.Slug,
		Description:    req.Description,
		SystemPromptID: req.SystemPromptID,
	}
	if err := s.rooms.WithTx(tx).Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	member := &models.Member{
		RoomID:   room.ID,
		UserID:   creatorID,
		Role:     models.RoleOwner,
		JoinedAt: time.Now(),
	}
	if err := s.members.WithTx(tx).Create(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	if err := s.tracker.Dispatch(ctx, tx, events.RoomCreated{Room: room, Creator: creator}); err != nil {
		return nil, err
	}
	if err := s.tracker.Dispatch(ctx, tx, events.MemberAdded{Member: member, Room: room, User: creator}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return room, nil
}

type UpdateRoomRequest struct {
	Name           *string
	Description    *string
	SystemPromptID *int64
}

func (s *RoomService) UpdateRoom(ctx context.Context, actorID, roomID int64, req UpdateRoomRequest) (*models.Room, error) {
	if err := s.requireRole(ctx, roomID, actorID, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Description != nil {
		room.Description = req.Description
	}
	if req.SystemPromptID != nil {
		room.SystemPromptID = req.SystemPromptID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.rooms.WithTx(tx).Update(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}
	if err := s.tracker.Dispatch(ctx, tx, events.RoomUpdated{Room: room}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return room, nil
}

// DeleteRoom removes the room with its members and messages. The removal
// entries are dispatched before the rows go away so the audience can still
// be resolved from the membership table.
func (s *RoomService) DeleteRoom(ctx context.Context, actorID, roomID int64) error {
	if err := s.requireRole(ctx, roomID, actorID, models.RoleOwner); err != nil {
		return err
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.tracker.Dispatch(ctx, tx, events.RoomDeleting{Room: room}); err != nil {
		return err
	}
	if err := s.rooms.WithTx(tx).Delete(ctx, roomID); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type InviteRequest struct {
	RoomID    int64
	InviteeID int64
	ExpiresAt *time.Time
}

func (s *RoomService) InviteUser(ctx context.Context, inviterID int64, req InviteRequest) (*models.Invitation, error) {
	if err := s.requireRole(ctx, req.RoomID, inviterID, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}

	if _, err := s.members.GetByRoomAndUser(ctx, req.RoomID, req.InviteeID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	invitation := &models.Invitation{
		RoomID:    req.RoomID,
		UserID:    req.InviteeID,
		InviterID: inviterID,
		Token:     uuid.New(),
		Status:    models.InvitationOpen,
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.invitations.WithTx(tx).Create(ctx, invitation); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	if err := s.tracker.Dispatch(ctx, tx, events.InvitationCreated{Invitation: invitation}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return invitation, nil
}

// AcceptInvitation turns an open invitation into a membership. The invited
// user receives the invitation update, the room, its member list update and
// the joining user's profile through the dispatched events.
func (s *RoomService) AcceptInvitation(ctx context.Context, userID int64, token uuid.UUID) (*models.Member, error) {
	invitation, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if invitation.UserID != userID {
		return nil, ErrForbidden
	}
	if invitation.Status != models.InvitationOpen {
		return nil, ErrInvitationClosed
	}
	if invitation.ExpiresAt != nil && invitation.ExpiresAt.Before(time.Now()) {
		return nil, ErrInvitationExpired
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	room, err := s.rooms.GetByID(ctx, invitation.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	invitation.Status = models.InvitationAccepted
	if err := s.invitations.WithTx(tx).Update(ctx, invitation); err != nil {
		return nil, fmt.Errorf("failed to update invitation: %w", err)
	}

	member := &models.Member{
		RoomID:    invitation.RoomID,
		UserID:    userID,
		Role:      models.RoleMember,
		InvitedBy: &invitation.InviterID,
		JoinedAt:  time.Now(),
	}
	if err := s.members.WithTx(tx).Create(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	if err := s.tracker.Dispatch(ctx, tx, events.InvitationUpdated{Invitation: invitation}); err != nil {
		return nil, err
	}
	if err := s.tracker.Dispatch(ctx, tx, events.MemberAdded{Member: member, Room: room, User: user}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return member, nil
}

func (s *RoomService) RevokeInvitation(ctx context.Context, actorID, invitationID int64) error {
	invitation, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		return fmt.Errorf("failed to get invitation: %w", err)
	}
	if invitation.InviterID != actorID {
		if err := s.requireRole(ctx, invitation.RoomID, actorID, models.RoleOwner, models.RoleAdmin); err != nil {
			return err
		}
	}
	if invitation.Status != models.InvitationOpen {
		return ErrInvitationClosed
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	invitation.Status = models.InvitationRevoked
	if err := s.invitations.WithTx(tx).Update(ctx, invitation); err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	if err := s.tracker.Dispatch(ctx, tx, events.InvitationUpdated{Invitation: invitation}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *RoomService) UpdateMemberRole(ctx context.Context, actorID, roomID, memberUserID int64, role models.MemberRole) (*models.Member, error) {
	if err := s.requireRole(ctx, roomID, actorID, models.RoleOwner); err != nil {
		return nil, err
	}

	member, err := s.members.GetByRoomAndUser(ctx, roomID, memberUserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	user, err := s.users.GetByID(ctx, memberUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	member.Role = role
	if err := s.members.WithTx(tx).Update(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	if err := s.tracker.Dispatch(ctx, tx, events.MemberUpdated{Member: member, Room: room, User: user}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return member, nil
}

// RemoveMember drops a membership. A member may remove themself; removing
// someone else takes owner or admin role. The removed user stays in the
// audience of the removal entry even though their row is gone.
func (s *RoomService) RemoveMember(ctx context.Context, actorID, roomID, memberUserID int64) error {
	if actorID != memberUserID {
		if err := s.requireRole(ctx, roomID, actorID, models.RoleOwner, models.RoleAdmin); err != nil {
			return err
		}
	}

	member, err := s.members.GetByRoomAndUser(ctx, roomID, memberUserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotMember
	}
	if err != nil {
		return fmt.Errorf("failed to get member: %w", err)
	}
	if member.Role == models.RoleOwner {
		return ErrForbidden
	}

	user, err := s.users.GetByID(ctx, memberUserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.members.WithTx(tx).Delete(ctx, member.ID); err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if err := s.tracker.Dispatch(ctx, tx, events.MemberRemoved{Member: member, Room: room, User: user}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Membership reports the caller's membership in a room, ErrNotMember if none.
func (s *RoomService) Membership(ctx context.Context, roomID, userID int64) (*models.Member, error) {
	member, err := s.members.GetByRoomAndUser(ctx, roomID, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

func (s *RoomService) requireRole(ctx context.Context, roomID, userID int64, roles ...models.MemberRole) error {
	member, err := s.Membership(ctx, roomID, userID)
	if err != nil {
		return err
	}
	for _, role := range roles {
		if member.Role == role {
			return nil
		}
	}
	return ErrForbidden
}
