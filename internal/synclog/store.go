package synclog

import (
	"context"
	"time"

	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/models"
)

// Store is the append-only log of sync entries, partitioned by user.
// Appends run on the caller's Querier so entry creation shares the
// transaction of the domain write that caused it: if either fails, both
// roll back.
type Store interface {
	// Append persists one entry and assigns the owning user's next
	// sequence number. Allocation is serialized per user; the assigned
	// Seq, ID and CreatedAt are written back into the entry.
	Append(ctx context.Context, q database.Querier, entry *models.SyncLogEntry) error

	// EntriesSince returns the user's entries of one type with seq >
	// sinceSeq, strictly increasing by seq. A roomID narrows the scan to
	// room-scoped entries.
	EntriesSince(ctx context.Context, userID int64, typ EntryType, sinceSeq int64, roomID *int64, limit int64) ([]*models.SyncLogEntry, error)

	// MaxSeq reports the user's current sequence counter, 0 if the user
	// never received an entry.
	MaxSeq(ctx context.Context, userID int64) (int64, error)

	// HorizonSeq reports the newest sequence number that is NO LONGER
	// replayable: clients whose baseline is below it must fall back to a
	// full sync. It is 0 while the user's full history is retained.
	HorizonSeq(ctx context.Context, userID int64) (int64, error)

	// DeleteOutdated prunes entries older than the retention cutoff.
	DeleteOutdated(ctx context.Context, olderThan time.Time) error

	// DeleteAllForUser wipes a user's feed plus every entry targeting
	// them, used on account removal.
	DeleteAllForUser(ctx context.Context, q database.Querier, userID int64) error
}
