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

type privateDataResource struct {
	ID         int64      `json:"id"`
	Key        string     `json:"key"`
	Ciphertext []byte     `json:"ciphertext"`
	Nonce      []byte     `json:"nonce"`
	Version    int64      `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// PrivateUserDataHandler syncs a user's encrypted settings blobs. The
// audience is always exactly the owner.
type PrivateUserDataHandler struct {
	data repositories.PrivateUserDataRepository
}

func NewPrivateUserDataHandler(data repositories.PrivateUserDataRepository) *PrivateUserDataHandler {
	return &PrivateUserDataHandler{data: data}
}

func (h *PrivateUserDataHandler) Type() synclog.EntryType { return synclog.EntryTypePrivateUserData }

func (h *PrivateUserDataHandler) Kind() synclog.HandlerKind { return synclog.KindPersistent }

func (h *PrivateUserDataHandler) Listeners() []synclog.Listener {
	return []synclog.Listener{
		synclog.On(func(ctx context.Context, ev events.PrivateUserDataSaved) (*synclog.Payload, error) {
			return synclog.NewSetPayload(synclog.EntitySubject(ev.Data), []*models.User{ev.User}, nil), nil
		}),
		synclog.On(func(ctx context.Context, ev events.PrivateUserDataDeleting) (*synclog.Payload, error) {
			return synclog.NewRemovePayload(synclog.EntitySubject(ev.Data), []*models.User{ev.User}, nil), nil
		}),
	}
}

func (h *PrivateUserDataHandler) Resource(ctx context.Context, subject synclog.Subject) (json.RawMessage, error) {
	data, ok := subject.Entity.(*models.PrivateUserData)
	if !ok {
		return nil, fmt.Errorf("unexpected subject %T for private data resource", subject.Entity)
	}
	return json.Marshal(privateDataResource{
		ID:         data.ID,
		Key:        data.Key,
		Ciphertext: data.Ciphertext,
		Nonce:      data.Nonce,
		Version:    data.Version,
		CreatedAt:  data.CreatedAt,
		UpdatedAt:  data.UpdatedAt,
	})
}

func (h *PrivateUserDataHandler) FindByID(ctx context.Context, id int64) (synclog.Subject, error) {
	data, err := h.data.GetByID(ctx, id)
	return subjectOrMissing(data, err)
}

func (h *PrivateUserDataHandler) IDOf(subject synclog.Subject) int64 {
	if data, ok := subject.Entity.(*models.PrivateUserData); ok {
		return data.ID
	}
	return synclog.TransientTargetID
}

func (h *PrivateUserDataHandler) CountForFullSync(ctx context.Context, c synclog.Constraints) (int64, error) {
	return h.data.CountForUser(ctx, c.UserID)
}

func (h *PrivateUserDataHandler) ModelsForFullSync(ctx context.Context, c synclog.Constraints) ([]synclog.Subject, error) {
	list, err := h.data.ListForUser(ctx, c.UserID, c.Offset, c.Limit)
	if err != nil {
		return nil, err
	}
	subjects := make([]synclog.Subject, 0, len(list))
	for _, data := range list {
		subjects = append(subjects, synclog.EntitySubject(data))
	}
	return subjects, nil
}
