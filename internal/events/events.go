// Package events defines the closed set of domain events the sync log reacts
// to. Events are plain structs dispatched synchronously inside the domain
// transaction that produced them; the tracker builds its dispatch table from
// this set at startup, so a listener bound to a type outside KnownTypes is a
// configuration error, not a silent no-op.
package events

import (
	"reflect"

	"github.com/hawki-project/roomsync/internal/models"
)

// RoomCreated fires inside the creating transaction, before the creator's
// membership is visible to other connections, so it carries the creator
// explicitly.
type RoomCreated struct {
	Room    *models.Room
	Creator *models.User
}

type RoomUpdated struct {
	Room *models.Room
}

// RoomDeleting fires before the room and its members are removed, while the
// member list can still be resolved for the audience.
type RoomDeleting struct {
	Room *models.Room
}

type MemberAdded struct {
	Member *models.Member
	Room   *models.Room
	User   *models.User
}

type MemberUpdated struct {
	Member *models.Member
	Room   *models.Room
	User   *models.User
}

// MemberRemoved carries the removed membership after its row is gone; the
// removed user must still be part of the audience.
type MemberRemoved struct {
	Member *models.Member
	Room   *models.Room
	User   *models.User
}

type InvitationCreated struct {
	Invitation *models.Invitation
}

type InvitationUpdated struct {
	Invitation *models.Invitation
}

type MessageSent struct {
	Message *models.Message
	Room    *models.Room
}

type MessageUpdated struct {
	Message *models.Message
	Room    *models.Room
}

type MessageDeleting struct {
	Message *models.Message
	Room    *models.Room
}

type UserUpdated struct {
	User *models.User
}

type PrivateUserDataSaved struct {
	Data *models.PrivateUserData
	User *models.User
}

type PrivateUserDataDeleting struct {
	Data *models.PrivateUserData
	User *models.User
}

type KeychainValueSaved struct {
	Value *models.UserKeychainValue
	User  *models.User
}

type KeychainValueDeleting struct {
	Value *models.UserKeychainValue
	User  *models.User
}

// AiWritingStarted and AiWritingEnded are ephemeral signals; they never
// produce persisted log entries.
type AiWritingStarted struct {
	Room       *models.Room
	ModelLabel string
}

type AiWritingEnded struct {
	Room       *models.Room
	ModelLabel string
}

// KnownTypes enumerates every dispatchable event type.
func KnownTypes() []reflect.Type {
	return []reflect.Type{
		reflect.TypeOf(RoomCreated{}),
		reflect.TypeOf(RoomUpdated{}),
		reflect.TypeOf(RoomDeleting{}),
		reflect.TypeOf(MemberAdded{}),
		reflect.TypeOf(MemberUpdated{}),
		reflect.TypeOf(MemberRemoved{}),
		reflect.TypeOf(InvitationCreated{}),
		reflect.TypeOf(InvitationUpdated{}),
		reflect.TypeOf(MessageSent{}),
		reflect.TypeOf(MessageUpdated{}),
		reflect.TypeOf(MessageDeleting{}),
		reflect.TypeOf(UserUpdated{}),
		reflect.TypeOf(PrivateUserDataSaved{}),
		reflect.TypeOf(PrivateUserDataDeleting{}),
		reflect.TypeOf(KeychainValueSaved{}),
		reflect.TypeOf(KeychainValueDeleting{}),
		reflect.TypeOf(AiWritingStarted{}),
		reflect.TypeOf(AiWritingEnded{}),
	}
}
