package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/synclog"
)

// PostgresSyncLogRepository implements synclog.Store. Entries are partitioned
// by user; the per-user counter row in sync_user_seq serializes sequence
// allocation, and because allocation happens on the caller's transaction a
// rolled-back domain write takes its sequence number with it, keeping the
// stream gapless.
type PostgresSyncLogRepository struct {
	db database.Querier
}

func NewPostgresSyncLogRepository(db database.Querier) *PostgresSyncLogRepository {
	return &PostgresSyncLogRepository{db: db}
}

func (r *PostgresSyncLogRepository) Append(ctx context.Context, q database.Querier, entry *models.SyncLogEntry) error {
	if q == nil {
		q = r.db
	}

	seqQuery := `INSERT INTO sync_user_seq (user_id, seq) VALUES ($1, 1)
	             ON CONFLICT (user_id) DO UPDATE SET seq = sync_user_seq.seq + 1
	             RETURNING seq`

	if err := q.QueryRow(ctx, seqQuery, entry.UserID).Scan(&entry.Seq); err != nil {
		return fmt.Errorf("failed to allocate sequence number: %w", err)
	}

	insertQuery := `INSERT INTO sync_log_entries (user_id, seq, type, target_id, action, room_id)
	                VALUES ($1, $2, $3, $4, $5, $6)
	                RETURNING id, created_at`

	err := q.QueryRow(ctx, insertQuery,
		entry.UserID,
		entry.Seq,
		entry.Type,
		entry.TargetID,
		entry.Action,
		entry.RoomID,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to append sync log entry: %w", err)
	}
	return nil
}

func (r *PostgresSyncLogRepository) EntriesSince(ctx context.Context, userID int64, typ synclog.EntryType, sinceSeq int64, roomID *int64, limit int64) ([]*models.SyncLogEntry, error) {
	query := `SELECT id, user_id, seq, type, target_id, action, room_id, created_at
	          FROM sync_log_entries
	          WHERE user_id = $1 AND type = $2 AND seq > $3
	            AND ($4::bigint IS NULL OR room_id = $4)
	          ORDER BY seq
	          LIMIT $5`

	rows, err := r.db.Query(ctx, query, userID, string(typ), sinceSeq, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync log entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.SyncLogEntry
	for rows.Next() {
		var entry models.SyncLogEntry
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Seq,
			&entry.Type,
			&entry.TargetID,
			&entry.Action,
			&entry.RoomID,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync log entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync log entries: %w", err)
	}
	return entries, nil
}

func (r *PostgresSyncLogRepository) MaxSeq(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COALESCE(MAX(seq), 0) FROM sync_user_seq WHERE user_id = $1`

	var seq int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to get max sequence: %w", err)
	}
	return seq, nil
}

// HorizonSeq is the newest sequence number no longer replayable. While the
// full history is retained the oldest stored entry has seq 1, so the horizon
// is 0; once garbage collection has pruned entries, everything below the
// oldest surviving seq is lost and clients behind it need a full sync. A
// user whose entries were all pruned has a horizon equal to their counter.
func (r *PostgresSyncLogRepository) HorizonSeq(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COALESCE(MIN(seq), 0) FROM sync_log_entries WHERE user_id = $1`

	var oldest int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&oldest); err != nil {
		return 0, fmt.Errorf("failed to get oldest sequence: %w", err)
	}
	if oldest == 0 {
		return r.MaxSeq(ctx, userID)
	}
	return oldest - 1, nil
}

func (r *PostgresSyncLogRepository) DeleteOutdated(ctx context.Context, olderThan time.Time) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sync_log_entries WHERE created_at < $1`, olderThan); err != nil {
		return fmt.Errorf("failed to delete outdated sync log entries: %w", err)
	}
	return nil
}

// DeleteAllForUser wipes the user's own feed plus every entry telling other
// users about them. The sequence counter survives so a re-created account
// never reuses sequence numbers.
func (r *PostgresSyncLogRepository) DeleteAllForUser(ctx context.Context, q database.Querier, userID int64) error {
	if q == nil {
		q = r.db
	}

	query := `DELETE FROM sync_log_entries
	          WHERE user_id = $1 OR (type = $2 AND target_id = $1)`

	if _, err := q.Exec(ctx, query, userID, string(synclog.EntryTypeUser)); err != nil {
		return fmt.Errorf("failed to delete sync log entries for user: %w", err)
	}
	return nil
}
