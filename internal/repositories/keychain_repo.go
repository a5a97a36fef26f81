package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/models"
)

const keychainColumns = `id, user_id, key, ciphertext, nonce, created_at, updated_at`

type PostgresKeychainRepository struct {
	db database.Querier
}

func NewPostgresKeychainRepository(db database.Querier) *PostgresKeychainRepository {
	return &PostgresKeychainRepository{db: db}
}

func (r *PostgresKeychainRepository) WithTx(q database.Querier) KeychainRepository {
	return &PostgresKeychainRepository{db: q}
}

func scanKeychainValue(row pgx.Row) (*models.UserKeychainValue, error) {
	var value models.UserKeychainValue
	err := row.Scan(
		&value.ID,
		&value.UserID,
		&value.Key,
		&value.Ciphertext,
		&value.Nonce,
		&value.CreatedAt,
		&value.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan keychain value: %w", err)
	}
	return &value, nil
}

func (r *PostgresKeychainRepository) GetByID(ctx context.Context, id int64) (*models.UserKeychainValue, error) {
	query := `SELECT ` + keychainColumns + ` FROM user_keychain_values WHERE id = $1`
	return scanKeychainValue(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresKeychainRepository) GetByKey(ctx context.Context, userID int64, key string) (*models.UserKeychainValue, error) {
	query := `SELECT ` + keychainColumns + ` FROM user_keychain_values WHERE user_id = $1 AND key = $2`
	return scanKeychainValue(r.db.QueryRow(ctx, query, userID, key))
}

func (r *PostgresKeychainRepository) Upsert(ctx context.Context, value *models.UserKeychainValue) error {
	query := `INSERT INTO user_keychain_values (user_id, key, ciphertext, nonce)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (user_id, key)
	          DO UPDATE SET ciphertext = EXCLUDED.ciphertext, nonce = EXCLUDED.nonce, updated_at = NOW()
	          RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		value.UserID,
		value.Key,
		value.Ciphertext,
		value.Nonce,
	).Scan(&value.ID, &value.CreatedAt, &value.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert keychain value: %w", err)
	}
	return nil
}

func (r *PostgresKeychainRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM user_keychain_values WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete keychain value: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresKeychainRepository) ListForUser(ctx context.Context, userID int64, offset, limit int64) ([]*models.UserKeychainValue, error) {
	query := `SELECT ` + keychainColumns + `
	          FROM user_keychain_values
	          WHERE user_id = $1
	          ORDER BY id
	          OFFSET $2 LIMIT $3`

	rows, err := r.db.Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query keychain values: %w", err)
	}
	defer rows.Close()

	var values []*models.UserKeychainValue
	for rows.Next() {
		var value models.UserKeychainValue
		err := rows.Scan(
			&value.ID,
			&value.UserID,
			&value.Key,
			&value.Ciphertext,
			&value.Nonce,
			&value.CreatedAt,
			&value.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan keychain value: %w", err)
		}
		values = append(values, &value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keychain values: %w", err)
	}
	return values, nil
}

func (r *PostgresKeychainRepository) CountForUser(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM user_keychain_values WHERE user_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count keychain values: %w", err)
	}
	return count, nil
}
