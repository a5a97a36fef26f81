package repositories

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/synclog"
)

func newSyncLogRepo(t *testing.T) (*PostgresSyncLogRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewPostgresSyncLogRepository(mock), mock
}

func TestSyncLogRepository_Append_AssignsSequence(t *testing.T) {
	repo, mock := newSyncLogRepo(t)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO sync_user_seq`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(42)))
	mock.ExpectQuery(`INSERT INTO sync_log_entries`).
		WithArgs(int64(7), int64(42), "room", int64(3), "set", (*int64)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(100), now))

	entry := &models.SyncLogEntry{UserID: 7, Type: "room", TargetID: 3, Action: "set"}
	err := repo.Append(context.Background(), nil, entry)

	require.NoError(t, err)
	assert.Equal(t, int64(42), entry.Seq)
	assert.Equal(t, int64(100), entry.ID)
	assert.Equal(t, now, entry.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLogRepository_Append_UsesCallerQuerier(t *testing.T) {
	repo, mock := newSyncLogRepo(t)
	defer mock.Close()

	// The pool-level mock must see nothing; the tx-level mock sees both
	// statements, proving the entry shares the caller's transaction.
	txMock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer txMock.Close()

	txMock.ExpectQuery(`INSERT INTO sync_user_seq`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(1)))
	txMock.ExpectQuery(`INSERT INTO sync_log_entries`).
		WithArgs(int64(7), int64(1), "message", int64(9), "set", (*int64)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	entry := &models.SyncLogEntry{UserID: 7, Type: "message", TargetID: 9, Action: "set"}
	err = repo.Append(context.Background(), txMock, entry)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.NoError(t, txMock.ExpectationsWereMet())
}

func TestSyncLogRepository_EntriesSince(t *testing.T) {
	repo, mock := newSyncLogRepo(t)
	defer mock.Close()

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "user_id", "seq", "type", "target_id", "action", "room_id", "created_at"}).
		AddRow(int64(1), int64(7), int64(5), "message", int64(11), "set", (*int64)(nil), now).
		AddRow(int64(2), int64(7), int64(6), "message", int64(12), "remove", (*int64)(nil), now)

	mock.ExpectQuery(`FROM sync_log_entries`).
		WithArgs(int64(7), "message", int64(4), (*int64)(nil), int64(100)).
		WillReturnRows(rows)

	entries, err := repo.EntriesSince(context.Background(), 7, synclog.EntryTypeMessage, 4, nil, 100)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(5), entries[0].Seq)
	assert.Equal(t, int64(6), entries[1].Seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLogRepository_HorizonSeq_FullHistoryRetained(t *testing.T) {
	repo, mock := newSyncLogRepo(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COALESCE\(MIN\(seq\), 0\) FROM sync_log_entries`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"min"}).AddRow(int64(1)))

	horizon, err := repo.HorizonSeq(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, int64(0), horizon)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLogRepository_HorizonSeq_AfterPruning(t *testing.T) {
	repo, mock := newSyncLogRepo(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COALESCE\(MIN\(seq\), 0\) FROM sync_log_entries`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"min"}).AddRow(int64(40)))

	horizon, err := repo.HorizonSeq(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, int64(39), horizon)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLogRepository_HorizonSeq_AllEntriesPruned(t *testing.T) {
	repo, mock := newSyncLogRepo(t)
	defer mock.Close()

	// No surviving entries: the horizon falls back to the persistent
	// counter, so every baseline is behind it.
	mock.ExpectQuery(`SELECT COALESCE\(MIN\(seq\), 0\) FROM sync_log_entries`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"min"}).AddRow(int64(0)))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(seq\), 0\) FROM sync_user_seq`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(int64(55)))

	horizon, err := repo.HorizonSeq(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, int64(55), horizon)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLogRepository_DeleteAllForUser(t *testing.T) {
	repo, mock := newSyncLogRepo(t)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM sync_log_entries`).
		WithArgs(int64(7), "user").
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	err := repo.DeleteAllForUser(context.Background(), nil, 7)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
