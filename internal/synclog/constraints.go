package synclog

// Constraints is the request-scoped value object a handler needs to perform
// a full sync for one user: whose state, optionally narrowed to one room,
// and which page of it.
type Constraints struct {
	UserID int64
	RoomID *int64
	Offset int64
	Limit  int64
}
