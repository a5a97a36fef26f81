package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/models"
)

const messageColumns = `id, room_id, member_id, user_id, thread_id, ciphertext, nonce, model_label, created_at, updated_at, deleted_at`

type PostgresMessageRepository struct {
	db database.Querier
}

func NewPostgresMessageRepository(db database.Querier) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) WithTx(q database.Querier) MessageRepository {
	return &PostgresMessageRepository{db: q}
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var message models.Message
	err := row.Scan(
		&message.ID,
		&message.RoomID,
		&message.MemberID,
		&message.UserID,
		&message.ThreadID,
		&message.Ciphertext,
		&message.Nonce,
		&message.ModelLabel,
		&message.CreatedAt,
		&message.UpdatedAt,
		&message.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}
	return &message, nil
}

func (r *PostgresMessageRepository) Create(ctx context.Context, message *models.Message) error {
	query := `INSERT INTO messages (room_id, member_id, user_id, thread_id, ciphertext, nonce, model_label)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		message.RoomID,
		message.MemberID,
		message.UserID,
		message.ThreadID,
		message.Ciphertext,
		message.Nonce,
		message.ModelLabel,
	).Scan(&message.ID, &message.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1 AND deleted_at IS NULL`
	return scanMessage(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresMessageRepository) Update(ctx context.Context, message *models.Message) error {
	query := `UPDATE messages
	          SET ciphertext = $1, nonce = $2, updated_at = NOW()
	          WHERE id = $3 AND deleted_at IS NULL
	          RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		message.Ciphertext,
		message.Nonce,
		message.ID,
	).Scan(&message.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return nil
}

func (r *PostgresMessageRepository) Delete(ctx context.Context, id int64) error {
	query := `UPDATE messages SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUserRooms pages through the messages of every room the user belongs
// to, ordered by room then message id so offsets are stable.
func (r *PostgresMessageRepository) ListForUserRooms(ctx context.Context, userID int64, roomID *int64, offset, limit int64) ([]*models.Message, error) {
	query := `SELECT msg.id, msg.room_id, msg.member_id, msg.user_id, msg.thread_id, msg.ciphertext, msg.nonce, msg.model_label, msg.created_at, msg.updated_at, msg.deleted_at
	          FROM messages msg
	          WHERE msg.deleted_at IS NULL
	            AND msg.room_id IN (SELECT room_id FROM members WHERE user_id = $1)
	            AND ($2::bigint IS NULL OR msg.room_id = $2)
	          ORDER BY msg.room_id, msg.id
	          OFFSET $3 LIMIT $4`

	rows, err := r.db.Query(ctx, query, userID, roomID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var message models.Message
		err := rows.Scan(
			&message.ID,
			&message.RoomID,
			&message.MemberID,
			&message.UserID,
			&message.ThreadID,
			&message.Ciphertext,
			&message.Nonce,
			&message.ModelLabel,
			&message.CreatedAt,
			&message.UpdatedAt,
			&message.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

func (r *PostgresMessageRepository) CountForUserRooms(ctx context.Context, userID int64, roomID *int64) (int64, error) {
	query := `SELECT COUNT(*)
	          FROM messages msg
	          WHERE msg.deleted_at IS NULL
	            AND msg.room_id IN (SELECT room_id FROM members WHERE user_id = $1)
	            AND ($2::bigint IS NULL OR msg.room_id = $2)`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
