package synclog

import (
	"github.com/hawki-project/roomsync/internal/models"
)

// Payload is the in-memory unit of work a listener produces for one domain
// event. It is never persisted itself; the tracker turns it into one log
// entry per audience member. An empty audience is not an error, it simply
// produces no entries.
type Payload struct {
	Subject  Subject
	Action   EntryAction
	Audience []*models.User
	// Room scopes the change to a room, if any. Clients use it to group
	// room-local deltas.
	Room *models.Room
}

// NewSetPayload builds a SET payload for the given subject and audience.
func NewSetPayload(subject Subject, audience []*models.User, room *models.Room) *Payload {
	return &Payload{
		Subject:  subject,
		Action:   ActionSet,
		Audience: audience,
		Room:     room,
	}
}

// NewRemovePayload builds a REMOVE payload for the given subject and audience.
func NewRemovePayload(subject Subject, audience []*models.User, room *models.Room) *Payload {
	return &Payload{
		Subject:  subject,
		Action:   ActionRemove,
		Audience: audience,
		Room:     room,
	}
}

// recipients collapses the audience by user identity and drops AI assistant
// users, which never consume the sync feed.
func (p *Payload) recipients() []*models.User {
	seen := make(map[int64]struct{}, len(p.Audience))
	out := make([]*models.User, 0, len(p.Audience))
	for _, user := range p.Audience {
		if user == nil || user.IsAI {
			continue
		}
		if _, ok := seen[user.ID]; ok {
			continue
		}
		seen[user.ID] = struct{}{}
		out = append(out, user)
	}
	return out
}

func (p *Payload) roomID() *int64 {
	if p.Room == nil {
		return nil
	}
	id := p.Room.ID
	return &id
}
