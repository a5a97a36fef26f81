package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/models"
)

const invitationColumns = `id, room_id, user_id, inviter_id, token, status, expires_at, created_at, updated_at`

type PostgresInvitationRepository struct {
	db database.Querier
}

func NewPostgresInvitationRepository(db database.Querier) *PostgresInvitationRepository {
	return &PostgresInvitationRepository{db: db}
}

func (r *PostgresInvitationRepository) WithTx(q database.Querier) InvitationRepository {
	return &PostgresInvitationRepository{db: q}
}

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var invitation models.Invitation
	err := row.Scan(
		&invitation.ID,
		&invitation.RoomID,
		&invitation.UserID,
		&invitation.InviterID,
		&invitation.Token,
		&invitation.Status,
		&invitation.ExpiresAt,
		&invitation.CreatedAt,
		&invitation.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invitation: %w", err)
	}
	return &invitation, nil
}

func (r *PostgresInvitationRepository) Create(ctx context.Context, invitation *models.Invitation) error {
	query := `INSERT INTO invitations (room_id, user_id, inviter_id, token, status, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		invitation.RoomID,
		invitation.UserID,
		invitation.InviterID,
		invitation.Token,
		invitation.Status,
		invitation.ExpiresAt,
	).Scan(&invitation.ID, &invitation.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

func (r *PostgresInvitationRepository) GetByID(ctx context.Context, id int64) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`
	return scanInvitation(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresInvitationRepository) GetByToken(ctx context.Context, token uuid.UUID) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE token = $1`
	return scanInvitation(r.db.QueryRow(ctx, query, token))
}

func (r *PostgresInvitationRepository) Update(ctx context.Context, invitation *models.Invitation) error {
	query := `UPDATE invitations SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, invitation.Status, invitation.ID).Scan(&invitation.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	return nil
}

func (r *PostgresInvitationRepository) ListOpenForUser(ctx context.Context, userID int64, offset, limit int64) ([]*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + `
	          FROM invitations
	          WHERE user_id = $1 AND status = $2
	          ORDER BY id
	          OFFSET $3 LIMIT $4`

	rows, err := r.db.Query(ctx, query, userID, models.InvitationOpen, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*models.Invitation
	for rows.Next() {
		var invitation models.Invitation
		err := rows.Scan(
			&invitation.ID,
			&invitation.RoomID,
			&invitation.UserID,
			&invitation.InviterID,
			&invitation.Token,
			&invitation.Status,
			&invitation.ExpiresAt,
			&invitation.CreatedAt,
			&invitation.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, &invitation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}
	return invitations, nil
}

func (r *PostgresInvitationRepository) CountOpenForUser(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM invitations WHERE user_id = $1 AND status = $2`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID, models.InvitationOpen).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count invitations: %w", err)
	}
	return count, nil
}
