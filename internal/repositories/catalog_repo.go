package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/models"
)

// Catalog repositories back the static sync handlers: AI models and system
// prompts are admin-maintained and read-only from the sync service's point
// of view.

type PostgresAiModelRepository struct {
	db database.Querier
}

func NewPostgresAiModelRepository(db database.Querier) *PostgresAiModelRepository {
	return &PostgresAiModelRepository{db: db}
}

func (r *PostgresAiModelRepository) GetByID(ctx context.Context, id int64) (*models.AiModel, error) {
	query := `SELECT id, provider, model_id, label, active, streamable, created_at, updated_at
	          FROM ai_models WHERE id = $1`

	var m models.AiModel
	err := r.db.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.Provider,
		&m.ModelID,
		&m.Label,
		&m.Active,
		&m.Streamable,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ai model: %w", err)
	}
	return &m, nil
}

func (r *PostgresAiModelRepository) ListActive(ctx context.Context, offset, limit int64) ([]*models.AiModel, error) {
	query := `SELECT id, provider, model_id, label, active, streamable, created_at, updated_at
	          FROM ai_models WHERE active ORDER BY id OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ai models: %w", err)
	}
	defer rows.Close()

	var list []*models.AiModel
	for rows.Next() {
		var m models.AiModel
		err := rows.Scan(
			&m.ID,
			&m.Provider,
			&m.ModelID,
			&m.Label,
			&m.Active,
			&m.Streamable,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ai model: %w", err)
		}
		list = append(list, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ai models: %w", err)
	}
	return list, nil
}

func (r *PostgresAiModelRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ai_models WHERE active`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ai models: %w", err)
	}
	return count, nil
}

type PostgresSystemPromptRepository struct {
	db database.Querier
}

func NewPostgresSystemPromptRepository(db database.Querier) *PostgresSystemPromptRepository {
	return &PostgresSystemPromptRepository{db: db}
}

func (r *PostgresSystemPromptRepository) GetByID(ctx context.Context, id int64) (*models.SystemPrompt, error) {
	query := `SELECT id, key, title, prompt, language, created_at, updated_at
	          FROM system_prompts WHERE id = $1`

	var p models.SystemPrompt
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Key,
		&p.Title,
		&p.Prompt,
		&p.Language,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get system prompt: %w", err)
	}
	return &p, nil
}

func (r *PostgresSystemPromptRepository) List(ctx context.Context, offset, limit int64) ([]*models.SystemPrompt, error) {
	query := `SELECT id, key, title, prompt, language, created_at, updated_at
	          FROM system_prompts ORDER BY id OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query system prompts: %w", err)
	}
	defer rows.Close()

	var list []*models.SystemPrompt
	for rows.Next() {
		var p models.SystemPrompt
		err := rows.Scan(
			&p.ID,
			&p.Key,
			&p.Title,
			&p.Prompt,
			&p.Language,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan system prompt: %w", err)
		}
		list = append(list, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating system prompts: %w", err)
	}
	return list, nil
}

func (r *PostgresSystemPromptRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM system_prompts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count system prompts: %w", err)
	}
	return count, nil
}
