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

type keychainResource struct {
	ID         int64      `json:"id"`
	Key        string     `json:"key"`
	Ciphertext []byte     `json:"ciphertext"`
	Nonce      []byte     `json:"nonce"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

type KeychainHandler struct {
	keychain repositories.KeychainRepository
}

func NewKeychainHandler(keychain repositories.KeychainRepository) *KeychainHandler {
	return &KeychainHandler{keychain: keychain}
}

func (h *KeychainHandler) Type() synclog.EntryType { return synclog.EntryTypeKeychainValue }

func (h *KeychainHandler) Kind() synclog.HandlerKind { return synclog.KindPersistent }

func (h *KeychainHandler) Listeners() []synclog.Listener {
	return []synclog.Listener{
		synclog.On(func(ctx context.Context, ev events.KeychainValueSaved) (*synclog.Payload, error) {
			return synclog.NewSetPayload(synclog.EntitySubject(ev.Value), []*models.User{ev.User}, nil), nil
		}),
		synclog.On(func(ctx context.Context, ev events.KeychainValueDeleting) (*synclog.Payload, error) {
			return synclog.NewRemovePayload(synclog.EntitySubject(ev.Value), []*models.User{ev.User}, nil), nil
		}),
	}
}

func (h *KeychainHandler) Resource(ctx context.Context, subject synclog.Subject) (json.RawMessage, error) {
	value, ok := subject.Entity.(*models.UserKeychainValue)
	if !ok {
		return nil, fmt.Errorf("unexpected subject %T for keychain resource", subject.Entity)
	}
	return json.Marshal(keychainResource{
		ID:         value.ID,
		Key:        value.Key,
		Ciphertext: value.Ciphertext,
		Nonce:      value.Nonce,
		CreatedAt:  value.CreatedAt,
		UpdatedAt:  value.UpdatedAt,
	})
}

func (h *KeychainHandler) FindByID(ctx context.Context, id int64) (synclog.Subject, error) {
	value, err := h.keychain.GetByID(ctx, id)
	return subjectOrMissing(value, err)
}

func (h *KeychainHandler) IDOf(subject synclog.Subject) int64 {
	if value, ok := subject.Entity.(*models.UserKeychainValue); ok {
		return value.ID
	}
	return synclog.TransientTargetID
}

func (h *KeychainHandler) CountForFullSync(ctx context.Context, c synclog.Constraints) (int64, error) {
	return h.keychain.CountForUser(ctx, c.UserID)
}

func (h *KeychainHandler) ModelsForFullSync(ctx context.Context, c synclog.Constraints) ([]synclog.Subject, error) {
	values, err := h.keychain.ListForUser(ctx, c.UserID, c.Offset, c.Limit)
	if err != nil {
		return nil, err
	}
	subjects := make([]synclog.Subject, 0, len(values))
	for _, value := range values {
		subjects = append(subjects, synclog.EntitySubject(value))
	}
	return subjects, nil
}
