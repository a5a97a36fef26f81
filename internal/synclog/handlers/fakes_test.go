package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/repositories"
	"github.com/hawki-project/roomsync/internal/synclog"
)

// world is a tiny in-memory domain shared by the fake repositories.
type world struct {
	users       map[int64]*models.User
	rooms       map[int64]*models.Room
	members     map[int64]*models.Member
	invitations map[int64]*models.Invitation
	messages    map[int64]*models.Message
	nextID      int64
}

func newWorld() *world {
	return &world{
		users:       make(map[int64]*models.User),
		rooms:       make(map[int64]*models.Room),
		members:     make(map[int64]*models.Member),
		invitations: make(map[int64]*models.Invitation),
		messages:    make(map[int64]*models.Message),
	}
}

func (w *world) id() int64 {
	w.nextID++
	return w.nextID
}

func (w *world) addUser(username string, isAI bool) *models.User {
	u := &models.User{ID: w.id(), Username: username, DisplayName: username, IsAI: isAI, CreatedAt: time.Now()}
	w.users[u.ID] = u
	return u
}

func (w *world) addRoom(name string) *models.Room {
	r := &models.Room{ID: w.id(), Name: name, Slug: name, CreatedAt: time.Now()}
	w.rooms[r.ID] = r
	return r
}

func (w *world) addMember(room *models.Room, user *models.User, role models.MemberRole) *models.Member {
	m := &models.Member{ID: w.id(), RoomID: room.ID, UserID: user.ID, Role: role, JoinedAt: time.Now()}
	w.members[m.ID] = m
	return m
}

func (w *world) addMessage(room *models.Room, member *models.Member) *models.Message {
	msg := &models.Message{
		ID:         w.id(),
		RoomID:     room.ID,
		MemberID:   member.ID,
		UserID:     member.UserID,
		Ciphertext: []byte("ct"),
		Nonce:      []byte("n"),
		CreatedAt:  time.Now(),
	}
	w.messages[msg.ID] = msg
	return msg
}

func (w *world) roomUsers(roomID int64) []*models.User {
	var ids []int64
	for _, m := range w.members {
		if m.RoomID == roomID {
			ids = append(ids, m.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []*models.User
	for _, id := range ids {
		if u, ok := w.users[id]; ok {
			out = append(out, u)
		}
	}
	return out
}

type fakeUserRepo struct{ w *world }

func (f *fakeUserRepo) WithTx(q database.Querier) repositories.UserRepository { return f }
func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error   { return nil }
func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := f.w.users[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, repositories.ErrNotFound
}
func (f *fakeUserRepo) Update(ctx context.Context, user *models.User) error { return nil }
func (f *fakeUserRepo) Delete(ctx context.Context, id int64) error          { return nil }
func (f *fakeUserRepo) ListPeers(ctx context.Context, userID int64, roomID *int64, offset, limit int64) ([]*models.User, error) {
	seen := map[int64]struct{}{userID: {}}
	out := []*models.User{f.w.users[userID]}
	for _, m := range f.w.members {
		if m.UserID != userID {
			continue
		}
		for _, u := range f.w.roomUsers(m.RoomID) {
			if _, ok := seen[u.ID]; ok {
				continue
			}
			seen[u.ID] = struct{}{}
			out = append(out, u)
		}
	}
	return out, nil
}
func (f *fakeUserRepo) CountPeers(ctx context.Context, userID int64, roomID *int64) (int64, error) {
	peers, _ := f.ListPeers(ctx, userID, roomID, 0, 0)
	return int64(len(peers)), nil
}

type fakeMemberRepo struct{ w *world }

func (f *fakeMemberRepo) WithTx(q database.Querier) repositories.MemberRepository { return f }
func (f *fakeMemberRepo) Create(ctx context.Context, member *models.Member) error { return nil }
func (f *fakeMemberRepo) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	if m, ok := f.w.members[id]; ok {
		return m, nil
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeMemberRepo) GetByRoomAndUser(ctx context.Context, roomID, userID int64) (*models.Member, error) {
	for _, m := range f.w.members {
		if m.RoomID == roomID && m.UserID == userID {
			return m, nil
		}
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeMemberRepo) Update(ctx context.Context, member *models.Member) error { return nil }
func (f *fakeMemberRepo) Delete(ctx context.Context, id int64) error {
	delete(f.w.members, id)
	return nil
}
func (f *fakeMemberRepo) ListForRoom(ctx context.Context, roomID int64) ([]*models.Member, error) {
	var out []*models.Member
	for _, m := range f.w.members {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}
func (f *fakeMemberRepo) ListUsersForRoom(ctx context.Context, roomID int64) ([]*models.User, error) {
	return f.w.roomUsers(roomID), nil
}
func (f *fakeMemberRepo) ListForUserRooms(ctx context.Context, userID int64, roomID *int64, offset, limit int64) ([]*models.Member, error) {
	var out []*models.Member
	for _, own := range f.w.members {
		if own.UserID != userID {
			continue
		}
		for _, m := range f.w.members {
			if m.RoomID == own.RoomID {
				out = append(out, m)
			}
		}
	}
	return out, nil
}
func (f *fakeMemberRepo) CountForUserRooms(ctx context.Context, userID int64, roomID *int64) (int64, error) {
	members, _ := f.ListForUserRooms(ctx, userID, roomID, 0, 0)
	return int64(len(members)), nil
}

type fakeRoomRepo struct{ w *world }

func (f *fakeRoomRepo) WithTx(q database.Querier) repositories.RoomRepository { return f }
func (f *fakeRoomRepo) Create(ctx context.Context, room *models.Room) error   { return nil }
func (f *fakeRoomRepo) GetByID(ctx context.Context, id int64) (*models.Room, error) {
	if r, ok := f.w.rooms[id]; ok {
		return r, nil
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeRoomRepo) Update(ctx context.Context, room *models.Room) error { return nil }
func (f *fakeRoomRepo) Delete(ctx context.Context, id int64) error {
	delete(f.w.rooms, id)
	return nil
}
func (f *fakeRoomRepo) ListForUser(ctx context.Context, userID int64, roomID *int64, offset, limit int64) ([]*models.Room, error) {
	var out []*models.Room
	for _, m := range f.w.members {
		if m.UserID == userID {
			if r, ok := f.w.rooms[m.RoomID]; ok {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
func (f *fakeRoomRepo) CountForUser(ctx context.Context, userID int64, roomID *int64) (int64, error) {
	rooms, _ := f.ListForUser(ctx, userID, roomID, 0, 0)
	return int64(len(rooms)), nil
}

type fakeInvitationRepo struct{ w *world }

func (f *fakeInvitationRepo) WithTx(q database.Querier) repositories.InvitationRepository { return f }
func (f *fakeInvitationRepo) Create(ctx context.Context, invitation *models.Invitation) error {
	return nil
}
func (f *fakeInvitationRepo) GetByID(ctx context.Context, id int64) (*models.Invitation, error) {
	if inv, ok := f.w.invitations[id]; ok {
		return inv, nil
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeInvitationRepo) GetByToken(ctx context.Context, token uuid.UUID) (*models.Invitation, error) {
	for _, inv := range f.w.invitations {
		if inv.Token == token {
			return inv, nil
		}
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeInvitationRepo) Update(ctx context.Context, invitation *models.Invitation) error {
	return nil
}
func (f *fakeInvitationRepo) ListOpenForUser(ctx context.Context, userID int64, offset, limit int64) ([]*models.Invitation, error) {
	var out []*models.Invitation
	for _, inv := range f.w.invitations {
		if inv.UserID == userID && inv.Status == models.InvitationOpen {
			out = append(out, inv)
		}
	}
	return out, nil
}
func (f *fakeInvitationRepo) CountOpenForUser(ctx context.Context, userID int64) (int64, error) {
	list, _ := f.ListOpenForUser(ctx, userID, 0, 0)
	return int64(len(list)), nil
}

type fakeMessageRepo struct{ w *world }

func (f *fakeMessageRepo) WithTx(q database.Querier) repositories.MessageRepository { return f }
func (f *fakeMessageRepo) Create(ctx context.Context, message *models.Message) error {
	return nil
}
func (f *fakeMessageRepo) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	if msg, ok := f.w.messages[id]; ok {
		return msg, nil
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeMessageRepo) Update(ctx context.Context, message *models.Message) error { return nil }
func (f *fakeMessageRepo) Delete(ctx context.Context, id int64) error {
	delete(f.w.messages, id)
	return nil
}
func (f *fakeMessageRepo) ListForUserRooms(ctx context.Context, userID int64, roomID *int64, offset, limit int64) ([]*models.Message, error) {
	memberOf := make(map[int64]struct{})
	for _, m := range f.w.members {
		if m.UserID == userID {
			memberOf[m.RoomID] = struct{}{}
		}
	}
	var out []*models.Message
	for _, msg := range f.w.messages {
		if _, ok := memberOf[msg.RoomID]; !ok {
			continue
		}
		if roomID != nil && msg.RoomID != *roomID {
			continue
		}
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= int64(len(out)) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < int64(len(out)) {
		out = out[:limit]
	}
	return out, nil
}
func (f *fakeMessageRepo) CountForUserRooms(ctx context.Context, userID int64, roomID *int64) (int64, error) {
	messages, _ := f.ListForUserRooms(ctx, userID, roomID, 0, 0)
	return int64(len(messages)), nil
}

type fakePrivateDataRepo struct{ w *world }

func (f *fakePrivateDataRepo) WithTx(q database.Querier) repositories.PrivateUserDataRepository {
	return f
}
func (f *fakePrivateDataRepo) GetByID(ctx context.Context, id int64) (*models.PrivateUserData, error) {
	return nil, repositories.ErrNotFound
}
func (f *fakePrivateDataRepo) GetByKey(ctx context.Context, userID int64, key string) (*models.PrivateUserData, error) {
	return nil, repositories.ErrNotFound
}
func (f *fakePrivateDataRepo) Upsert(ctx context.Context, data *models.PrivateUserData) error {
	return nil
}
func (f *fakePrivateDataRepo) Delete(ctx context.Context, id int64) error { return nil }
func (f *fakePrivateDataRepo) ListForUser(ctx context.Context, userID int64, offset, limit int64) ([]*models.PrivateUserData, error) {
	return nil, nil
}
func (f *fakePrivateDataRepo) CountForUser(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

type fakeKeychainRepo struct{ w *world }

func (f *fakeKeychainRepo) WithTx(q database.Querier) repositories.KeychainRepository { return f }
func (f *fakeKeychainRepo) GetByID(ctx context.Context, id int64) (*models.UserKeychainValue, error) {
	return nil, repositories.ErrNotFound
}
func (f *fakeKeychainRepo) GetByKey(ctx context.Context, userID int64, key string) (*models.UserKeychainValue, error) {
	return nil, repositories.ErrNotFound
}
func (f *fakeKeychainRepo) Upsert(ctx context.Context, value *models.UserKeychainValue) error {
	return nil
}
func (f *fakeKeychainRepo) Delete(ctx context.Context, id int64) error { return nil }
func (f *fakeKeychainRepo) ListForUser(ctx context.Context, userID int64, offset, limit int64) ([]*models.UserKeychainValue, error) {
	return nil, nil
}
func (f *fakeKeychainRepo) CountForUser(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

type fakeAiModelRepo struct{ catalog []*models.AiModel }

func (f *fakeAiModelRepo) GetByID(ctx context.Context, id int64) (*models.AiModel, error) {
	for _, m := range f.catalog {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeAiModelRepo) ListActive(ctx context.Context, offset, limit int64) ([]*models.AiModel, error) {
	return f.catalog, nil
}
func (f *fakeAiModelRepo) CountActive(ctx context.Context) (int64, error) {
	return int64(len(f.catalog)), nil
}

type fakeSystemPromptRepo struct{ prompts []*models.SystemPrompt }

func (f *fakeSystemPromptRepo) GetByID(ctx context.Context, id int64) (*models.SystemPrompt, error) {
	for _, p := range f.prompts {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeSystemPromptRepo) List(ctx context.Context, offset, limit int64) ([]*models.SystemPrompt, error) {
	return f.prompts, nil
}
func (f *fakeSystemPromptRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.prompts)), nil
}

// memLog is an in-memory synclog.Store capturing appended entries.
type memLog struct {
	seqs    map[int64]int64
	entries []*models.SyncLogEntry
}

func newMemLog() *memLog {
	return &memLog{seqs: make(map[int64]int64)}
}

func (s *memLog) Append(ctx context.Context, q database.Querier, entry *models.SyncLogEntry) error {
	s.seqs[entry.UserID]++
	entry.Seq = s.seqs[entry.UserID]
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memLog) EntriesSince(ctx context.Context, userID int64, typ synclog.EntryType, sinceSeq int64, roomID *int64, limit int64) ([]*models.SyncLogEntry, error) {
	var out []*models.SyncLogEntry
	for _, e := range s.entries {
		if e.UserID == userID && e.Type == string(typ) && e.Seq > sinceSeq {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memLog) MaxSeq(ctx context.Context, userID int64) (int64, error) {
	return s.seqs[userID], nil
}

func (s *memLog) HorizonSeq(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

func (s *memLog) DeleteOutdated(ctx context.Context, olderThan time.Time) error { return nil }

func (s *memLog) DeleteAllForUser(ctx context.Context, q database.Querier, userID int64) error {
	return nil
}

func (s *memLog) forUser(userID int64, typ synclog.EntryType) []*models.SyncLogEntry {
	var out []*models.SyncLogEntry
	for _, e := range s.entries {
		if e.UserID == userID && e.Type == string(typ) {
			out = append(out, e)
		}
	}
	return out
}

type capturedPush struct {
	userID   int64
	resource *synclog.Resource
}

type fakePublisher struct {
	pushes []capturedPush
}

func (p *fakePublisher) Publish(ctx context.Context, userID int64, resource *synclog.Resource) error {
	p.pushes = append(p.pushes, capturedPush{userID: userID, resource: resource})
	return nil
}
