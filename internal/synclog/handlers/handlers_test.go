package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hawki-project/roomsync/internal/events"
	"github.com/hawki-project/roomsync/internal/models"
	"github.com/hawki-project/roomsync/internal/synclog"
)

type fixture struct {
	world     *world
	tracker   *synclog.Tracker
	log       *memLog
	publisher *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	w := newWorld()
	registry := Registry{
		Users:        &fakeUserRepo{w: w},
		Rooms:        &fakeRoomRepo{w: w},
		Members:      &fakeMemberRepo{w: w},
		Invitations:  &fakeInvitationRepo{w: w},
		Messages:     &fakeMessageRepo{w: w},
		PrivateData:  &fakePrivateDataRepo{w: w},
		Keychain:     &fakeKeychainRepo{w: w},
		AiModels:     &fakeAiModelRepo{},
		SystemPrompt: &fakeSystemPromptRepo{},
	}

	log := newMemLog()
	publisher := &fakePublisher{}
	tracker, err := synclog.NewTracker(log, publisher, zap.NewNop(), time.Hour, registry.All()...)
	require.NoError(t, err)

	return &fixture{world: w, tracker: tracker, log: log, publisher: publisher}
}

func TestRegistryBuildsValidTracker(t *testing.T) {
	f := newFixture(t)

	seen := make(map[synclog.EntryType]synclog.HandlerKind)
	for _, h := range f.tracker.Handlers() {
		seen[h.Type()] = h.Kind()
	}

	assert.Len(t, seen, 10)
	assert.Equal(t, synclog.KindTransient, seen[synclog.EntryTypeRoomAiWriting])
	assert.Equal(t, synclog.KindStatic, seen[synclog.EntryTypeAiModel])
	assert.Equal(t, synclog.KindStatic, seen[synclog.EntryTypeSystemPrompt])
	assert.Equal(t, synclog.KindPersistent, seen[synclog.EntryTypeRoom])
}

func TestMessageSentFansOutToRoomMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.world.addUser("alice", false)
	bob := f.world.addUser("bob", false)
	room := f.world.addRoom("research")
	aliceM := f.world.addMember(room, alice, models.RoleOwner)
	f.world.addMember(room, bob, models.RoleMember)
	msg := f.world.addMessage(room, aliceM)

	err := f.tracker.Dispatch(ctx, nil, events.MessageSent{Message: msg, Room: room})
	require.NoError(t, err)

	aliceEntries := f.log.forUser(alice.ID, synclog.EntryTypeMessage)
	bobEntries := f.log.forUser(bob.ID, synclog.EntryTypeMessage)
	require.Len(t, aliceEntries, 1)
	require.Len(t, bobEntries, 1)

	assert.Equal(t, int64(1), aliceEntries[0].Seq)
	assert.Equal(t, int64(1), bobEntries[0].Seq)
	assert.Equal(t, msg.ID, aliceEntries[0].TargetID)
	assert.Equal(t, string(synclog.ActionSet), aliceEntries[0].Action)
	require.NotNil(t, aliceEntries[0].RoomID)
	assert.Equal(t, room.ID, *aliceEntries[0].RoomID)

	// Both members receive the identical serialized resource.
	require.Len(t, f.publisher.pushes, 2)
	assert.JSONEq(t, string(f.publisher.pushes[0].resource.Resource), string(f.publisher.pushes[1].resource.Resource))
}

func TestRoomCreationReachesTheCreatorBeforeMembershipExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.world.addUser("alice", false)
	room := f.world.addRoom("drafts")

	// The creator's membership row is not written yet; the event carries
	// the creator so the audience is still correct.
	err := f.tracker.Dispatch(ctx, nil, events.RoomCreated{Room: room, Creator: creator})
	require.NoError(t, err)

	entries := f.log.forUser(creator.ID, synclog.EntryTypeRoom)
	require.Len(t, entries, 1)
	assert.Equal(t, room.ID, entries[0].TargetID)
	assert.Equal(t, string(synclog.ActionSet), entries[0].Action)
}

func TestMemberAddedSendsRoomOnlyToTheNewcomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.world.addUser("alice", false)
	bob := f.world.addUser("bob", false)
	room := f.world.addRoom("research")
	f.world.addMember(room, alice, models.RoleOwner)
	bobM := f.world.addMember(room, bob, models.RoleMember)

	err := f.tracker.Dispatch(ctx, nil, events.MemberAdded{Member: bobM, Room: room, User: bob})
	require.NoError(t, err)

	// The newcomer gets the room resource plus the member entry; existing
	// members only see the new member.
	assert.Len(t, f.log.forUser(bob.ID, synclog.EntryTypeRoom), 1)
	assert.Len(t, f.log.forUser(bob.ID, synclog.EntryTypeMember), 1)
	assert.Empty(t, f.log.forUser(alice.ID, synclog.EntryTypeRoom))
	assert.Len(t, f.log.forUser(alice.ID, synclog.EntryTypeMember), 1)
}

func TestMemberRemovedStillReachesTheRemovedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.world.addUser("alice", false)
	bob := f.world.addUser("bob", false)
	room := f.world.addRoom("research")
	f.world.addMember(room, alice, models.RoleOwner)
	bobM := f.world.addMember(room, bob, models.RoleMember)

	// The domain layer deletes the row first, then dispatches.
	delete(f.world.members, bobM.ID)
	err := f.tracker.Dispatch(ctx, nil, events.MemberRemoved{Member: bobM, Room: room, User: bob})
	require.NoError(t, err)

	aliceEntries := f.log.forUser(alice.ID, synclog.EntryTypeMember)
	bobEntries := f.log.forUser(bob.ID, synclog.EntryTypeMember)
	require.Len(t, aliceEntries, 1)
	require.Len(t, bobEntries, 1)
	assert.Equal(t, string(synclog.ActionRemove), bobEntries[0].Action)
	assert.Equal(t, bobM.ID, bobEntries[0].TargetID)
}

func TestRevokedInvitationTombstonesForInvitedUserOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.world.addUser("alice", false)
	bob := f.world.addUser("bob", false)
	room := f.world.addRoom("research")
	f.world.addMember(room, alice, models.RoleOwner)

	invitation := &models.Invitation{
		ID:        f.world.id(),
		RoomID:    room.ID,
		UserID:    bob.ID,
		InviterID: alice.ID,
		Status:    models.InvitationRevoked,
		CreatedAt: time.Now(),
	}
	f.world.invitations[invitation.ID] = invitation

	err := f.tracker.Dispatch(ctx, nil, events.InvitationUpdated{Invitation: invitation})
	require.NoError(t, err)

	bobEntries := f.log.forUser(bob.ID, synclog.EntryTypeRoomInvitation)
	require.Len(t, bobEntries, 1)
	assert.Equal(t, string(synclog.ActionRemove), bobEntries[0].Action)
	assert.Empty(t, f.log.forUser(alice.ID, synclog.EntryTypeRoomInvitation))

	// Tombstones carry no resource body.
	require.Len(t, f.publisher.pushes, 1)
	assert.Nil(t, f.publisher.pushes[0].resource.Resource)
}

func TestAIMembersNeverReceiveEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.world.addUser("alice", false)
	assistant := f.world.addUser("assistant", true)
	room := f.world.addRoom("research")
	aliceM := f.world.addMember(room, alice, models.RoleOwner)
	f.world.addMember(room, assistant, models.RoleMember)
	msg := f.world.addMessage(room, aliceM)

	err := f.tracker.Dispatch(ctx, nil, events.MessageSent{Message: msg, Room: room})
	require.NoError(t, err)

	assert.Len(t, f.log.forUser(alice.ID, synclog.EntryTypeMessage), 1)
	assert.Empty(t, f.log.forUser(assistant.ID, synclog.EntryTypeMessage))
}

func TestAiWritingIsDeliveredLiveOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.world.addUser("alice", false)
	room := f.world.addRoom("research")
	f.world.addMember(room, alice, models.RoleOwner)

	err := f.tracker.Dispatch(ctx, nil, events.AiWritingStarted{Room: room, ModelLabel: "gpt-4o"})
	require.NoError(t, err)

	assert.Empty(t, f.log.entries)
	require.Len(t, f.publisher.pushes, 1)

	push := f.publisher.pushes[0]
	assert.Equal(t, alice.ID, push.userID)
	assert.Equal(t, synclog.EntryTypeRoomAiWriting, push.resource.Type)
	assert.Equal(t, synclog.TransientTargetID, push.resource.TargetID)

	var signal struct {
		RoomID  int64  `json:"room_id"`
		Model   string `json:"model"`
		Writing bool   `json:"writing"`
	}
	require.NoError(t, json.Unmarshal(push.resource.Resource, &signal))
	assert.Equal(t, room.ID, signal.RoomID)
	assert.Equal(t, "gpt-4o", signal.Model)
	assert.True(t, signal.Writing)

	err = f.tracker.Dispatch(ctx, nil, events.AiWritingEnded{Room: room, ModelLabel: "gpt-4o"})
	require.NoError(t, err)
	require.Len(t, f.publisher.pushes, 2)
	require.NoError(t, json.Unmarshal(f.publisher.pushes[1].resource.Resource, &signal))
	assert.False(t, signal.Writing)
}

// TestFullAndIncrementalSyncConverge drives one shared history through the
// tracker and checks that a client replaying every entry since its last
// snapshot ends up with the same state as a client syncing from scratch.
func TestFullAndIncrementalSyncConverge(t *testing.T) {
	f := newFixture(t)
	qs := synclog.NewQueryService(f.tracker, f.log, 100)
	ctx := context.Background()

	alice := f.world.addUser("alice", false)
	bob := f.world.addUser("bob", false)
	carol := f.world.addUser("carol", false)

	room := f.world.addRoom("research")
	require.NoError(t, f.tracker.Dispatch(ctx, nil, events.RoomCreated{Room: room, Creator: alice}))
	aliceM := f.world.addMember(room, alice, models.RoleOwner)
	require.NoError(t, f.tracker.Dispatch(ctx, nil, events.MemberAdded{Member: aliceM, Room: room, User: alice}))
	bobM := f.world.addMember(room, bob, models.RoleMember)
	require.NoError(t, f.tracker.Dispatch(ctx, nil, events.MemberAdded{Member: bobM, Room: room, User: bob}))

	// Every client takes a snapshot before the activity below.
	clients := []*models.User{alice, bob, carol}
	states := make(map[int64]map[string]string)
	baselines := make(map[int64]map[synclog.EntryType]int64)
	for _, u := range clients {
		resp, err := qs.Sync(ctx, synclog.Request{UserID: u.ID})
		require.NoError(t, err)
		require.True(t, resp.Complete)
		states[u.ID] = applyFeed(make(map[string]string), resp.Entries)
		baselines[u.ID] = resp.Baselines
	}

	msg1 := f.world.addMessage(room, aliceM)
	require.NoError(t, f.tracker.Dispatch(ctx, nil, events.MessageSent{Message: msg1, Room: room}))
	msg2 := f.world.addMessage(room, bobM)
	require.NoError(t, f.tracker.Dispatch(ctx, nil, events.MessageSent{Message: msg2, Room: room}))
	require.NoError(t, f.tracker.Dispatch(ctx, nil, events.MessageDeleting{Message: msg2, Room: room}))
	delete(f.world.messages, msg2.ID)

	room.Name = "renamed"
	require.NoError(t, f.tracker.Dispatch(ctx, nil, events.RoomUpdated{Room: room}))
	alice.DisplayName = "Alice A."
	require.NoError(t, f.tracker.Dispatch(ctx, nil, events.UserUpdated{User: alice}))

	open := &models.Invitation{
		ID:        f.world.id(),
		RoomID:    room.ID,
		UserID:    carol.ID,
		InviterID: alice.ID,
		Status:    models.InvitationOpen,
		CreatedAt: time.Now(),
	}
	f.world.invitations[open.ID] = open
	require.NoError(t, f.tracker.Dispatch(ctx, nil, events.InvitationCreated{Invitation: open}))

	revoked := &models.Invitation{
		ID:        f.world.id(),
		RoomID:    room.ID,
		UserID:    carol.ID,
		InviterID: alice.ID,
		Status:    models.InvitationOpen,
		CreatedAt: time.Now(),
	}
	f.world.invitations[revoked.ID] = revoked
	require.NoError(t, f.tracker.Dispatch(ctx, nil, events.InvitationCreated{Invitation: revoked}))
	revoked.Status = models.InvitationRevoked
	require.NoError(t, f.tracker.Dispatch(ctx, nil, events.InvitationUpdated{Invitation: revoked}))

	for _, u := range clients {
		inc, err := qs.Sync(ctx, synclog.Request{UserID: u.ID, Since: baselines[u.ID]})
		require.NoError(t, err)
		assert.Empty(t, inc.Full, "user %s should be answered incrementally", u.Username)
		replayed := applyFeed(states[u.ID], inc.Entries)

		fresh, err := qs.Sync(ctx, synclog.Request{UserID: u.ID})
		require.NoError(t, err)
		fromScratch := applyFeed(make(map[string]string), fresh.Entries)

		assert.Equal(t, fromScratch, replayed, "user %s", u.Username)
	}
}

// applyFeed folds a feed into client state the way a client would: SET
// upserts the resource, REMOVE evicts it.
func applyFeed(state map[string]string, entries []*synclog.Resource) map[string]string {
	for _, e := range entries {
		key := fmt.Sprintf("%s/%d", e.Type, e.TargetID)
		if e.Action == synclog.ActionRemove {
			delete(state, key)
			continue
		}
		state[key] = string(e.Resource)
	}
	return state
}

func TestRoomDeletionTombstonesForEveryMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.world.addUser("alice", false)
	bob := f.world.addUser("bob", false)
	room := f.world.addRoom("research")
	f.world.addMember(room, alice, models.RoleOwner)
	f.world.addMember(room, bob, models.RoleMember)

	err := f.tracker.Dispatch(ctx, nil, events.RoomDeleting{Room: room})
	require.NoError(t, err)

	for _, userID := range []int64{alice.ID, bob.ID} {
		entries := f.log.forUser(userID, synclog.EntryTypeRoom)
		require.Len(t, entries, 1)
		assert.Equal(t, string(synclog.ActionRemove), entries[0].Action)
		assert.Equal(t, room.ID, entries[0].TargetID)
	}
}
