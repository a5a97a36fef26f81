// Package synclog implements the per-user, per-audience change feed that lets
// clients catch up on room/message/member/user state after a disconnect. A
// handler per entity family turns domain events into payloads, the tracker
// fans payloads out into per-user log entries (or straight onto the real-time
// channel for transient data), and the query service replays the feed as
// either a full snapshot or an incremental delta.
package synclog

// EntryType identifies the entity family a log entry belongs to. Each value
// maps to exactly one handler; registering two handlers for one type fails
// at startup.
type EntryType string

const (
	EntryTypeRoom            EntryType = "room"
	EntryTypeUser            EntryType = "user"
	EntryTypeMember          EntryType = "member"
	EntryTypeRoomInvitation  EntryType = "room_invitation"
	EntryTypeMessage         EntryType = "message"
	EntryTypePrivateUserData EntryType = "private_user_data"
	EntryTypeRoomAiWriting   EntryType = "room_ai_writing"
	EntryTypeAiModel         EntryType = "ai_model"
	EntryTypeSystemPrompt    EntryType = "system_prompt"
	EntryTypeKeychainValue   EntryType = "user_keychain_value"
)

// EntryAction is binary: every SET carries the complete current resource and
// the client upserts it; REMOVE is a tombstone and the client evicts.
type EntryAction string

const (
	ActionSet    EntryAction = "set"
	ActionRemove EntryAction = "remove"
)

// HandlerKind distinguishes the three handler specializations.
type HandlerKind int

const (
	// KindPersistent handlers write durable log entries and support both
	// full and incremental sync.
	KindPersistent HandlerKind = iota
	// KindTransient handlers deliver live-only signals; nothing is stored
	// and nothing is eligible for full sync.
	KindTransient
	// KindStatic handlers cover rarely-changing catalogs that are only
	// materialized during full sync.
	KindStatic
)
