package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/repositories"
	"github.com/hawki-project/roomsync/internal/synclog"
)

type systemPromptResource struct {
	ID       int64  `json:"id"`
	Key      string `json:"key"`
	Title    string `json:"title"`
	Prompt   string `json:"prompt"`
	Language string `json:"language"`
}

// SystemPromptHandler is static like the model catalog.
type SystemPromptHandler struct {
	synclog.StaticHandler
	prompts repositories.SystemPromptRepository
}

func NewSystemPromptHandler(prompts repositories.SystemPromptRepository) *SystemPromptHandler {
	return &SystemPromptHandler{prompts: prompts}
}

func (h *SystemPromptHandler) Type() synclog.EntryType { return synclog.EntryTypeSystemPrompt }

func (h *SystemPromptHandler) Resource(ctx context.Context, subject synclog.Subject) (json.RawMessage, error) {
	prompt, ok := subject.Entity.(*models.SystemPrompt)
	if !ok {
		return nil, fmt.Errorf("unexpected subject %T for system prompt resource", subject.Entity)
	}
	return json.Marshal(systemPromptResource{
		ID:       prompt.ID,
		Key:      prompt.Key,
		Title:    prompt.Title,
		Prompt:   prompt.Prompt,
		Language: prompt.Language,
	})
}

func (h *SystemPromptHandler) FindByID(ctx context.Context, id int64) (synclog.Subject, error) {
	prompt, err := h.prompts.GetByID(ctx, id)
	return subjectOrMissing(prompt, err)
}

func (h *SystemPromptHandler) IDOf(subject synclog.Subject) int64 {
	if prompt, ok := subject.Entity.(*models.SystemPrompt); ok {
		return prompt.ID
	}
	return synclog.TransientTargetID
}

func (h *SystemPromptHandler) CountForFullSync(ctx context.Context, c synclog.Constraints) (int64, error) {
	return h.prompts.Count(ctx)
}

func (h *SystemPromptHandler) ModelsForFullSync(ctx context.Context, c synclog.Constraints) ([]synclog.Subject, error) {
	list, err := h.prompts.List(ctx, c.Offset, c.Limit)
	if err != nil {
		return nil, err
	}
	subjects := make([]synclog.Subject, 0, len(list))
	for _, prompt := range list {
		subjects = append(subjects, synclog.EntitySubject(prompt))
	}
	return subjects, nil
}
