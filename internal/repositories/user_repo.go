package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/models"
)

const userColumns = `id, username, display_name, email, password_hash, avatar_url, bio, public_key, is_ai, created_at, updated_at, deleted_at`

type PostgresUserRepository struct {
	db database.Querier
}

func NewPostgresUserRepository(db database.Querier) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) WithTx(q database.Querier) UserRepository {
	return &PostgresUserRepository{db: q}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.Email,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.Bio,
		&user.PublicKey,
		&user.IsAI,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (username, display_name, email, password_hash, avatar_url, bio, public_key, is_ai)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		user.Username,
		user.DisplayName,
		user.Email,
		user.PasswordHash,
		user.AvatarURL,
		user.Bio,
		user.PublicKey,
		user.IsAI,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users
	          SET display_name = $1, avatar_url = $2, bio = $3, public_key = $4, updated_at = NOW()
	          WHERE id = $5 AND deleted_at IS NULL
	          RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		user.DisplayName,
		user.AvatarURL,
		user.Bio,
		user.PublicKey,
		user.ID,
	).Scan(&user.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id int64) error {
	query := `UPDATE users SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPeers returns the user plus everyone they share a room with, ordered
// by id. The user themself is always part of the result, even without any
// membership.
func (r *PostgresUserRepository) ListPeers(ctx context.Context, userID int64, roomID *int64, offset, limit int64) ([]*models.User, error) {
	query := `SELECT DISTINCT u.id, u.username, u.display_name, u.email, u.password_hash, u.avatar_url, u.bio, u.public_key, u.is_ai, u.created_at, u.updated_at, u.deleted_at
	          FROM users u
	          WHERE u.deleted_at IS NULL
	            AND (u.id = $1 OR u.id IN (
	                SELECT m2.user_id FROM members m
	                JOIN members m2 ON m2.room_id = m.room_id
	                WHERE m.user_id = $1 AND ($2::bigint IS NULL OR m.room_id = $2)
	            ))
	          ORDER BY u.id
	          OFFSET $3 LIMIT $4`

	rows, err := r.db.Query(ctx, query, userID, roomID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query peers: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.DisplayName,
			&user.Email,
			&user.PasswordHash,
			&user.AvatarURL,
			&user.Bio,
			&user.PublicKey,
			&user.IsAI,
			&user.CreatedAt,
			&user.UpdatedAt,
			&user.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepository) CountPeers(ctx context.Context, userID int64, roomID *int64) (int64, error) {
	query := `SELECT COUNT(DISTINCT u.id)
	          FROM users u
	          WHERE u.deleted_at IS NULL
	            AND (u.id = $1 OR u.id IN (
	                SELECT m2.user_id FROM members m
	                JOIN members m2 ON m2.room_id = m.room_id
	                WHERE m.user_id = $1 AND ($2::bigint IS NULL OR m.room_id = $2)
	            ))`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count peers: %w", err)
	}
	return count, nil
}
