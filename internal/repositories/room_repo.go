package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/models"
)

const roomColumns = `id, name, slug, description, system_prompt_id, created_at, updated_at, deleted_at`

type PostgresRoomRepository struct {
	db database.Querier
}

func NewPostgresRoomRepository(db database.Querier) *PostgresRoomRepository {
	return &PostgresRoomRepository{db: db}
}

func (r *PostgresRoomRepository) WithTx(q database.Querier) RoomRepository {
	return &PostgresRoomRepository{db: q}
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var room models.Room
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Slug,
		&room.Description,
		&room.SystemPromptID,
		&room.CreatedAt,
		&room.UpdatedAt,
		&room.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan room: %w", err)
	}
	return &room, nil
}

func (r *PostgresRoomRepository) Create(ctx context.Context, room *models.Room) error {
	query := `INSERT INTO rooms (name, slug, description, system_prompt_id)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		room.Name,
		room.Slug,
		room.Description,
		room.SystemPromptID,
	).Scan(&room.ID, &room.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (r *PostgresRoomRepository) GetByID(ctx context.Context, id int64) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1 AND deleted_at IS NULL`
	return scanRoom(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRoomRepository) Update(ctx context.Context, room *models.Room) error {
	query := `UPDATE rooms
	          SET name = $1, description = $2, system_prompt_id = $3, updated_at = NOW()
	          WHERE id = $4 AND deleted_at IS NULL
	          RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		room.Name,
		room.Description,
		room.SystemPromptID,
		room.ID,
	).Scan(&room.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	return nil
}

func (r *PostgresRoomRepository) Delete(ctx context.Context, id int64) error {
	query := `UPDATE rooms SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRoomRepository) ListForUser(ctx context.Context, userID int64, roomID *int64, offset, limit int64) ([]*models.Room, error) {
	query := `SELECT r.id, r.name, r.slug, r.description, r.system_prompt_id, r.created_at, r.updated_at, r.deleted_at
	          FROM rooms r
	          JOIN members m ON m.room_id = r.id
	          WHERE m.user_id = $1 AND r.deleted_at IS NULL
	            AND ($2::bigint IS NULL OR r.id = $2)
	          ORDER BY r.id
	          OFFSET $3 LIMIT $4`

	rows, err := r.db.Query(ctx, query, userID, roomID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		var room models.Room
		err := rows.Scan(
			&room.ID,
			&room.Name,
			&room.Slug,
			&room.Description,
			&room.SystemPromptID,
			&room.CreatedAt,
			&room.UpdatedAt,
			&room.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rooms: %w", err)
	}
	return rooms, nil
}

func (r *PostgresRoomRepository) CountForUser(ctx context.Context, userID int64, roomID *int64) (int64, error) {
	query := `SELECT COUNT(*)
	          FROM rooms r
	          JOIN members m ON m.room_id = r.id
	          WHERE m.user_id = $1 AND r.deleted_at IS NULL
	            AND ($2::bigint IS NULL OR r.id = $2)`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rooms: %w", err)
	}
	return count, nil
}
