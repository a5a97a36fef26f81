package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/models"
)

const privateDataColumns = `id, user_id, key, ciphertext, nonce, version, created_at, updated_at, deleted_at`

type PostgresPrivateUserDataRepository struct {
	db database.Querier
}

func NewPostgresPrivateUserDataRepository(db database.Querier) *PostgresPrivateUserDataRepository {
	return &PostgresPrivateUserDataRepository{db: db}
}

func (r *PostgresPrivateUserDataRepository) WithTx(q database.Querier) PrivateUserDataRepository {
	return &PostgresPrivateUserDataRepository{db: q}
}

func scanPrivateData(row pgx.Row) (*models.PrivateUserData, error) {
	var data models.PrivateUserData
	err := row.Scan(
		&data.ID,
		&data.UserID,
		&data.Key,
		&data.Ciphertext,
		&data.Nonce,
		&data.Version,
		&data.CreatedAt,
		&data.UpdatedAt,
		&data.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan private data: %w", err)
	}
	return &data, nil
}

func (r *PostgresPrivateUserDataRepository) GetByID(ctx context.Context, id int64) (*models.PrivateUserData, error) {
	query := `SELECT ` + privateDataColumns + ` FROM private_user_data WHERE id = $1 AND deleted_at IS NULL`
	return scanPrivateData(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresPrivateUserDataRepository) GetByKey(ctx context.Context, userID int64, key string) (*models.PrivateUserData, error) {
	query := `SELECT ` + privateDataColumns + ` FROM private_user_data WHERE user_id = $1 AND key = $2 AND deleted_at IS NULL`
	return scanPrivateData(r.db.QueryRow(ctx, query, userID, key))
}

// Upsert creates or updates an encrypted blob with optimistic locking.
// A new key starts at version 1; an update only succeeds if the provided
// version matches the stored one, otherwise ErrVersionConflict.
func (r *PostgresPrivateUserDataRepository) Upsert(ctx context.Context, data *models.PrivateUserData) error {
	existing, err := r.GetByKey(ctx, data.UserID, data.Key)
	if errors.Is(err, ErrNotFound) {
		return r.create(ctx, data)
	}
	if err != nil {
		return fmt.Errorf("failed to check existing private data: %w", err)
	}
	return r.update(ctx, data, existing.ID)
}

func (r *PostgresPrivateUserDataRepository) create(ctx context.Context, data *models.PrivateUserData) error {
	query := `INSERT INTO private_user_data (user_id, key, ciphertext, nonce, version)
	          VALUES ($1, $2, $3, $4, 1)
	          RETURNING id, version, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		data.UserID,
		data.Key,
		data.Ciphertext,
		data.Nonce,
	).Scan(&data.ID, &data.Version, &data.CreatedAt, &data.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create private data: %w", err)
	}
	return nil
}

func (r *PostgresPrivateUserDataRepository) update(ctx context.Context, data *models.PrivateUserData, existingID int64) error {
	// The WHERE clause includes the version check for optimistic locking.
	query := `UPDATE private_user_data
	          SET ciphertext = $1, nonce = $2, version = version + 1, updated_at = NOW()
	          WHERE id = $3 AND version = $4 AND deleted_at IS NULL
	          RETURNING version, updated_at`

	var newVersion int64
	err := r.db.QueryRow(ctx, query,
		data.Ciphertext,
		data.Nonce,
		existingID,
		data.Version,
	).Scan(&newVersion, &data.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update private data: %w", err)
	}

	data.ID = existingID
	data.Version = newVersion
	return nil
}

func (r *PostgresPrivateUserDataRepository) Delete(ctx context.Context, id int64) error {
	query := `UPDATE private_user_data SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete private data: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresPrivateUserDataRepository) ListForUser(ctx context.Context, userID int64, offset, limit int64) ([]*models.PrivateUserData, error) {
	query := `SELECT ` + privateDataColumns + `
	          FROM private_user_data
	          WHERE user_id = $1 AND deleted_at IS NULL
	          ORDER BY id
	          OFFSET $2 LIMIT $3`

	rows, err := r.db.Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query private data: %w", err)
	}
	defer rows.Close()

	var list []*models.PrivateUserData
	for rows.Next() {
		var data models.PrivateUserData
		err := rows.Scan(
			&data.ID,
			&data.UserID,
			&data.Key,
			&data.Ciphertext,
			&data.Nonce,
			&data.Version,
			&data.CreatedAt,
			&data.UpdatedAt,
			&data.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan private data: %w", err)
		}
		list = append(list, &data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating private data: %w", err)
	}
	return list, nil
}

func (r *PostgresPrivateUserDataRepository) CountForUser(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM private_user_data WHERE user_id = $1 AND deleted_at IS NULL`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count private data: %w", err)
	}
	return count, nil
}
