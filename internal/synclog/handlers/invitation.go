package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hawki-project/roomsync/internal/events"
	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/repositories"
	"github.com/hawki-project/roomsync/internal/synclog"
)

type invitationResource struct {
	ID        int64                   `json:"id"`
	RoomID    int64                   `json:"room_id"`
	InviterID int64                   `json:"inviter_id"`
	Token     uuid.UUID               `json:"token"`
	Status    models.InvitationStatus `json:"status"`
	ExpiresAt *time.Time              `json:"expires_at,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

type InvitationHandler struct {
	invitations repositories.InvitationRepository
	users       repositories.UserRepository
}

func NewInvitationHandler(invitations repositories.InvitationRepository, users repositories.UserRepository) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, users: users}
}

func (h *InvitationHandler) Type() synclog.EntryType { return synclog.EntryTypeRoomInvitation }

func (h *InvitationHandler) Kind() synclog.HandlerKind { return synclog.KindPersistent }

func (h *InvitationHandler) Listeners() []synclog.Listener {
	return []synclog.Listener{
		synclog.On(func(ctx context.Context, ev events.InvitationCreated) (*synclog.Payload, error) {
			return h.payload(ctx, ev.Invitation)
		}),
		synclog.On(func(ctx context.Context, ev events.InvitationUpdated) (*synclog.Payload, error) {
			return h.payload(ctx, ev.Invitation)
		}),
	}
}

// payload addresses the invited user only; other room members learn about
// the outcome through member entries. A revoked invitation is a REMOVE.
func (h *InvitationHandler) payload(ctx context.Context, invitation *models.Invitation) (*synclog.Payload, error) {
	invited, err := h.users.GetByID(ctx, invitation.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolving invited user %d: %w", invitation.UserID, err)
	}
	audience := []*models.User{invited}

	if invitation.Status == models.InvitationRevoked {
		return synclog.NewRemovePayload(synclog.EntitySubject(invitation), audience, nil), nil
	}
	return synclog.NewSetPayload(synclog.EntitySubject(invitation), audience, nil), nil
}

func (h *InvitationHandler) Resource(ctx context.Context, subject synclog.Subject) (json.RawMessage, error) {
	invitation, ok := subject.Entity.(*models.Invitation)
	if !ok {
		return nil, fmt.Errorf("unexpected subject %T for invitation resource", subject.Entity)
	}
	return json.Marshal(invitationResource{
		ID:        invitation.ID,
		RoomID:    invitation.RoomID,
		InviterID: invitation.InviterID,
		Token:     invitation.Token,
		Status:    invitation.Status,
		ExpiresAt: invitation.ExpiresAt,
		CreatedAt: invitation.CreatedAt,
	})
}

func (h *InvitationHandler) FindByID(ctx context.Context, id int64) (synclog.Subject, error) {
	invitation, err := h.invitations.GetByID(ctx, id)
	return subjectOrMissing(invitation, err)
}

func (h *InvitationHandler) IDOf(subject synclog.Subject) int64 {
	if invitation, ok := subject.Entity.(*models.Invitation); ok {
		return invitation.ID
	}
	return synclog.TransientTargetID
}

func (h *InvitationHandler) CountForFullSync(ctx context.Context, c synclog.Constraints) (int64, error) {
	return h.invitations.CountOpenForUser(ctx, c.UserID)
}

func (h *InvitationHandler) ModelsForFullSync(ctx context.Context, c synclog.Constraints) ([]synclog.Subject, error) {
	invitations, err := h.invitations.ListOpenForUser(ctx, c.UserID, c.Offset, c.Limit)
	if err != nil {
		return nil, err
	}
	subjects := make([]synclog.Subject, 0, len(invitations))
	for _, invitation := range invitations {
		subjects = append(subjects, synclog.EntitySubject(invitation))
	}
	return subjects, nil
}
