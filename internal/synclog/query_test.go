package synclog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hawki-project/roomsync/internal/models"
)

// pagedHandler serves an ordered subject list honoring offset/limit, the way
// the real repositories page full syncs.
type pagedHandler struct {
	stubHandler
	ordered []Subject
}

func newPagedHandler(typ EntryType, rooms ...*models.Room) *pagedHandler {
	h := &pagedHandler{}
	h.typ = typ
	h.kind = KindPersistent
	h.subjects = make(map[int64]Subject)
	for _, room := range rooms {
		subject := EntitySubject(room)
		h.ordered = append(h.ordered, subject)
		h.subjects[room.ID] = subject
	}
	return h
}

func (h *pagedHandler) CountForFullSync(ctx context.Context, c Constraints) (int64, error) {
	return int64(len(h.ordered)), nil
}

func (h *pagedHandler) ModelsForFullSync(ctx context.Context, c Constraints) ([]Subject, error) {
	if c.Offset >= int64(len(h.ordered)) {
		return nil, nil
	}
	end := c.Offset + c.Limit
	if end > int64(len(h.ordered)) {
		end = int64(len(h.ordered))
	}
	return h.ordered[c.Offset:end], nil
}

func room(id int64) *models.Room {
	return &models.Room{ID: id, Name: "room"}
}

func newQueryFixture(t *testing.T, store Store, pageSize int64, handlers ...Handler) *QueryService {
	t.Helper()
	tracker, err := NewTracker(store, nil, zap.NewNop(), time.Hour, handlers...)
	require.NoError(t, err)
	return NewQueryService(tracker, store, pageSize)
}

func TestSync_FullWhenNoBaseline(t *testing.T) {
	store := newMemStore()
	store.seqs[1] = 9
	h := newPagedHandler(EntryTypeRoom, room(1), room(2), room(3))
	qs := newQueryFixture(t, store, 100, h)

	resp, err := qs.Sync(context.Background(), Request{UserID: 1})

	require.NoError(t, err)
	assert.Equal(t, []EntryType{EntryTypeRoom}, resp.Full)
	assert.True(t, resp.Complete)
	require.Len(t, resp.Entries, 3)
	for _, e := range resp.Entries {
		assert.Equal(t, ActionSet, e.Action)
		assert.Equal(t, int64(9), e.Seq, "full sync entries carry the current max seq")
		assert.NotEmpty(t, e.Resource)
	}
	assert.Equal(t, int64(9), resp.Baselines[EntryTypeRoom])
}

func TestSync_IncrementalReplaysStoredEntries(t *testing.T) {
	store := newMemStore()
	h := newPagedHandler(EntryTypeRoom, room(1), room(2))
	store.seqs[1] = 2
	store.entries = []*models.SyncLogEntry{
		{UserID: 1, Seq: 1, Type: string(EntryTypeRoom), TargetID: 1, Action: string(ActionSet)},
		{UserID: 1, Seq: 2, Type: string(EntryTypeRoom), TargetID: 2, Action: string(ActionSet)},
	}
	qs := newQueryFixture(t, store, 100, h)

	resp, err := qs.Sync(context.Background(), Request{
		UserID: 1,
		Since:  map[EntryType]int64{EntryTypeRoom: 1},
	})

	require.NoError(t, err)
	assert.Empty(t, resp.Full)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, int64(2), resp.Entries[0].Seq)
	assert.Equal(t, int64(2), resp.Baselines[EntryTypeRoom], "baseline advances to the newest replayed seq")
}

func TestSync_IncrementalIsIdempotent(t *testing.T) {
	store := newMemStore()
	h := newPagedHandler(EntryTypeRoom, room(1))
	store.seqs[1] = 1
	store.entries = []*models.SyncLogEntry{
		{UserID: 1, Seq: 1, Type: string(EntryTypeRoom), TargetID: 1, Action: string(ActionSet)},
	}
	qs := newQueryFixture(t, store, 100, h)

	req := Request{UserID: 1, Since: map[EntryType]int64{EntryTypeRoom: 0}}
	first, err := qs.Sync(context.Background(), req)
	require.NoError(t, err)
	second, err := qs.Sync(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second, "replaying with the same baseline yields the same response")
}

func TestSync_StaleSetDegradesToRemove(t *testing.T) {
	store := newMemStore()
	h := newPagedHandler(EntryTypeRoom, room(1))
	store.seqs[1] = 2
	store.entries = []*models.SyncLogEntry{
		{UserID: 1, Seq: 1, Type: string(EntryTypeRoom), TargetID: 1, Action: string(ActionSet)},
		// Target 99 was deleted after this entry was written.
		{UserID: 1, Seq: 2, Type: string(EntryTypeRoom), TargetID: 99, Action: string(ActionSet)},
	}
	qs := newQueryFixture(t, store, 100, h)

	resp, err := qs.Sync(context.Background(), Request{
		UserID: 1,
		Since:  map[EntryType]int64{EntryTypeRoom: 0},
	})

	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, ActionSet, resp.Entries[0].Action)
	assert.Equal(t, ActionRemove, resp.Entries[1].Action, "a dead target is never delivered as an upsert")
	assert.Empty(t, resp.Entries[1].Resource)
}

func TestSync_FullWhenBaselineBehindHorizon(t *testing.T) {
	store := newMemStore()
	h := newPagedHandler(EntryTypeRoom, room(1))
	store.seqs[1] = 50
	store.horizon[1] = 30
	qs := newQueryFixture(t, store, 100, h)

	resp, err := qs.Sync(context.Background(), Request{
		UserID: 1,
		Since:  map[EntryType]int64{EntryTypeRoom: 10},
	})

	require.NoError(t, err)
	assert.Equal(t, []EntryType{EntryTypeRoom}, resp.Full, "a baseline behind the pruned horizon forces a full sync")
	assert.Equal(t, int64(50), resp.Baselines[EntryTypeRoom])
}

func TestSync_BaselineAtHorizonStaysIncremental(t *testing.T) {
	store := newMemStore()
	h := newPagedHandler(EntryTypeRoom, room(1))
	store.seqs[1] = 50
	store.horizon[1] = 30
	qs := newQueryFixture(t, store, 100, h)

	resp, err := qs.Sync(context.Background(), Request{
		UserID: 1,
		Since:  map[EntryType]int64{EntryTypeRoom: 30},
	})

	require.NoError(t, err)
	assert.Empty(t, resp.Full, "everything after seq 30 is still replayable")
}

func TestSync_TransientHandlersAreSkipped(t *testing.T) {
	store := newMemStore()
	transient := &stubHandler{typ: EntryTypeRoomAiWriting, kind: KindTransient}
	persistent := newPagedHandler(EntryTypeRoom, room(1))
	qs := newQueryFixture(t, store, 100, transient, persistent)

	resp, err := qs.Sync(context.Background(), Request{UserID: 1})

	require.NoError(t, err)
	assert.NotContains(t, resp.Full, EntryTypeRoomAiWriting)
	_, ok := resp.Baselines[EntryTypeRoomAiWriting]
	assert.False(t, ok, "transient types never get a baseline")
}

func TestSync_OffsetSpansHandlers(t *testing.T) {
	store := newMemStore()
	store.seqs[1] = 5
	rooms := newPagedHandler(EntryTypeRoom, room(1), room(2))
	messages := newPagedHandler(EntryTypeMessage, room(10), room(11), room(12))
	qs := newQueryFixture(t, store, 100, rooms, messages)

	// Offset 3 skips both rooms and the first message.
	resp, err := qs.Sync(context.Background(), Request{UserID: 1, Offset: 3})

	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)
	for _, e := range resp.Entries {
		assert.Equal(t, EntryTypeMessage, e.Type)
	}
	assert.Equal(t, int64(11), resp.Entries[0].TargetID)
	assert.Equal(t, int64(12), resp.Entries[1].TargetID)
}

func TestSync_LimitCutsResponseShort(t *testing.T) {
	store := newMemStore()
	store.seqs[1] = 5
	rooms := newPagedHandler(EntryTypeRoom, room(1), room(2), room(3))
	messages := newPagedHandler(EntryTypeMessage, room(10))
	qs := newQueryFixture(t, store, 100, rooms, messages)

	resp, err := qs.Sync(context.Background(), Request{UserID: 1, Limit: 2})

	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)
	assert.False(t, resp.Complete, "a truncated window is flagged so the client pages on")

	// The next window resumes where the first stopped.
	next, err := qs.Sync(context.Background(), Request{UserID: 1, Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, next.Entries, 2)
	assert.Equal(t, EntryTypeRoom, next.Entries[0].Type)
	assert.Equal(t, int64(3), next.Entries[0].TargetID)
	assert.Equal(t, EntryTypeMessage, next.Entries[1].Type)
}

func TestSync_ExactLimitIsComplete(t *testing.T) {
	store := newMemStore()
	store.seqs[1] = 5
	rooms := newPagedHandler(EntryTypeRoom, room(1), room(2))
	qs := newQueryFixture(t, store, 100, rooms)

	resp, err := qs.Sync(context.Background(), Request{UserID: 1, Limit: 2})

	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)
	assert.True(t, resp.Complete, "a limit that exactly covers the snapshot needs no further page")
}

func TestSync_ExactLimitIncrementalIsComplete(t *testing.T) {
	store := newMemStore()
	h := newPagedHandler(EntryTypeRoom, room(1), room(2))
	store.seqs[1] = 2
	store.entries = []*models.SyncLogEntry{
		{UserID: 1, Seq: 1, Type: string(EntryTypeRoom), TargetID: 1, Action: string(ActionSet)},
		{UserID: 1, Seq: 2, Type: string(EntryTypeRoom), TargetID: 2, Action: string(ActionSet)},
	}
	qs := newQueryFixture(t, store, 100, h)

	resp, err := qs.Sync(context.Background(), Request{
		UserID: 1,
		Since:  map[EntryType]int64{EntryTypeRoom: 0},
		Limit:  2,
	})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)
	assert.True(t, resp.Complete)

	// One entry short, and the cut is reported.
	short, err := qs.Sync(context.Background(), Request{
		UserID: 1,
		Since:  map[EntryType]int64{EntryTypeRoom: 0},
		Limit:  1,
	})
	require.NoError(t, err)
	require.Len(t, short.Entries, 1)
	assert.False(t, short.Complete)
}

func TestSync_FullChunksThroughPageSize(t *testing.T) {
	store := newMemStore()
	store.seqs[1] = 1
	var rooms []*models.Room
	for i := int64(1); i <= 7; i++ {
		rooms = append(rooms, room(i))
	}
	h := newPagedHandler(EntryTypeRoom, rooms...)
	qs := newQueryFixture(t, store, 3, h)

	resp, err := qs.Sync(context.Background(), Request{UserID: 1})

	require.NoError(t, err)
	require.Len(t, resp.Entries, 7, "page size bounds fetch chunks, not the response")
	assert.True(t, resp.Complete)
}

func TestSync_EmptyStateFullSync(t *testing.T) {
	store := newMemStore()
	h := newPagedHandler(EntryTypeRoom)
	qs := newQueryFixture(t, store, 100, h)

	resp, err := qs.Sync(context.Background(), Request{UserID: 1})

	require.NoError(t, err)
	assert.Empty(t, resp.Entries)
	assert.True(t, resp.Complete)
	assert.Equal(t, int64(0), resp.Baselines[EntryTypeRoom])
}
