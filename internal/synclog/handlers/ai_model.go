package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/repositories"
	"github.com/hawki-project/roomsync/internal/synclog"
)

type aiModelResource struct {
	ID         int64  `json:"id"`
	Provider   string `json:"provider"`
	ModelID    string `json:"model_id"`
	Label      string `json:"label"`
	Streamable bool   `json:"streamable"`
}

// AiModelHandler is a static handler: the model catalog is admin-maintained
// and only materialized during full sync.
type AiModelHandler struct {
	synclog.StaticHandler
	aiModels repositories.AiModelRepository
}

func NewAiModelHandler(aiModels repositories.AiModelRepository) *AiModelHandler {
	return &AiModelHandler{aiModels: aiModels}
}

func (h *AiModelHandler) Type() synclog.EntryType { return synclog.EntryTypeAiModel }

func (h *AiModelHandler) Resource(ctx context.Context, subject synclog.Subject) (json.RawMessage, error) {
	model, ok := subject.Entity.(*models.AiModel)
	if !ok {
		return nil, fmt.Errorf("unexpected subject %T for ai model resource", subject.Entity)
	}
	return json.Marshal(aiModelResource{
		ID:         model.ID,
		Provider:   model.Provider,
		ModelID:    model.ModelID,
		Label:      model.Label,
		Streamable: model.Streamable,
	})
}

func (h *AiModelHandler) FindByID(ctx context.Context, id int64) (synclog.Subject, error) {
	model, err := h.aiModels.GetByID(ctx, id)
	return subjectOrMissing(model, err)
}

func (h *AiModelHandler) IDOf(subject synclog.Subject) int64 {
	if model, ok := subject.Entity.(*models.AiModel); ok {
		return model.ID
	}
	return synclog.TransientTargetID
}

func (h *AiModelHandler) CountForFullSync(ctx context.Context, c synclog.Constraints) (int64, error) {
	return h.aiModels.CountActive(ctx)
}

func (h *AiModelHandler) ModelsForFullSync(ctx context.Context, c synclog.Constraints) ([]synclog.Subject, error) {
	list, err := h.aiModels.ListActive(ctx, c.Offset, c.Limit)
	if err != nil {
		return nil, err
	}
	subjects := make([]synclog.Subject, 0, len(list))
	for _, model := range list {
		subjects = append(subjects, synclog.EntitySubject(model))
	}
	return subjects, nil
}
