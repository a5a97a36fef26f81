package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/models"
)

const memberColumns = `id, room_id, user_id, role, invited_by, joined_at, created_at, updated_at`

type PostgresMemberRepository struct {
	db database.Querier
}

func NewPostgresMemberRepository(db database.Querier) *PostgresMemberRepository {
	return &PostgresMemberRepository{db: db}
}

func (r *PostgresMemberRepository) WithTx(q database.Querier) MemberRepository {
	return &PostgresMemberRepository{db: q}
}

func scanMember(row pgx.Row) (*models.Member, error) {
	var member models.Member
	err := row.Scan(
		&member.ID,
		&member.RoomID,
		&member.UserID,
		&member.Role,
		&member.InvitedBy,
		&member.JoinedAt,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan member: %w", err)
	}
	return &member, nil
}

func collectMembers(rows pgx.Rows) ([]*models.Member, error) {
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		var member models.Member
		err := rows.Scan(
			&member.ID,
			&member.RoomID,
			&member.UserID,
			&member.Role,
			&member.InvitedBy,
			&member.JoinedAt,
			&member.CreatedAt,
			&member.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

func (r *PostgresMemberRepository) Create(ctx context.Context, member *models.Member) error {
	query := `INSERT INTO members (room_id, user_id, role, invited_by, joined_at)
	          VALUES ($1, $2, $3, $4, NOW())
	          RETURNING id, joined_at, created_at`

	err := r.db.QueryRow(ctx, query,
		member.RoomID,
		member.UserID,
		member.Role,
		member.InvitedBy,
	).Scan(&member.ID, &member.JoinedAt, &member.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

func (r *PostgresMemberRepository) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	return scanMember(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresMemberRepository) GetByRoomAndUser(ctx context.Context, roomID, userID int64) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE room_id = $1 AND user_id = $2`
	return scanMember(r.db.QueryRow(ctx, query, roomID, userID))
}

func (r *PostgresMemberRepository) Update(ctx context.Context, member *models.Member) error {
	query := `UPDATE members SET role = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, member.Role, member.ID).Scan(&member.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return nil
}

func (r *PostgresMemberRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresMemberRepository) ListForRoom(ctx context.Context, roomID int64) ([]*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE room_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	return collectMembers(rows)
}

func (r *PostgresMemberRepository) ListUsersForRoom(ctx context.Context, roomID int64) ([]*models.User, error) {
	query := `SELECT u.id, u.username, u.display_name, u.email, u.password_hash, u.avatar_url, u.bio, u.public_key, u.is_ai, u.created_at, u.updated_at, u.deleted_at
	          FROM users u
	          JOIN members m ON m.user_id = u.id
	          WHERE m.room_id = $1 AND u.deleted_at IS NULL
	          ORDER BY m.id`

	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query room users: %w", err)
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
		return nil, fmt.Errorf("error iterating room users: %w", err)
	}
	return users, nil
}

// ListForUserRooms pages through the memberships of every room the user
// belongs to, ordered by room then member id so offsets are stable.
func (r *PostgresMemberRepository) ListForUserRooms(ctx context.Context, userID int64, roomID *int64, offset, limit int64) ([]*models.Member, error) {
	query := `SELECT m.id, m.room_id, m.user_id, m.role, m.invited_by, m.joined_at, m.created_at, m.updated_at
	          FROM members m
	          WHERE m.room_id IN (SELECT room_id FROM members WHERE user_id = $1)
	            AND ($2::bigint IS NULL OR m.room_id = $2)
	          ORDER BY m.room_id, m.id
	          OFFSET $3 LIMIT $4`

	rows, err := r.db.Query(ctx, query, userID, roomID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	return collectMembers(rows)
}

func (r *PostgresMemberRepository) CountForUserRooms(ctx context.Context, userID int64, roomID *int64) (int64, error) {
	query := `SELECT COUNT(*)
	          FROM members m
	          WHERE m.room_id IN (SELECT room_id FROM members WHERE user_id = $1)
	            AND ($2::bigint IS NULL OR m.room_id = $2)`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}
