package synclog

import (
	"context"
	"encoding/json"

	"github.com/hawki-project/roomsync/internal/models"
)

// Resource is one client-consumable element of the sync feed.
type Resource struct {
	Type     EntryType       `json:"type"`
	Action   EntryAction     `json:"action"`
	TargetID int64           `json:"target_id"`
	RoomID   *int64          `json:"room_id,omitempty"`
	Seq      int64           `json:"seq"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// resourceForEntry rebuilds the wire resource for a stored entry during
// incremental replay. SET targets are re-fetched fresh via the handler; a
// target that no longer exists degrades to a REMOVE tombstone so the client
// is never told to upsert a dead entity.
func resourceForEntry(ctx context.Context, handler Handler, entry *models.SyncLogEntry) (*Resource, error) {
	res := &Resource{
		Type:     EntryType(entry.Type),
		Action:   EntryAction(entry.Action),
		TargetID: entry.TargetID,
		RoomID:   entry.RoomID,
		Seq:      entry.Seq,
	}

	if res.Action != ActionSet {
		return res, nil
	}

	subject, err := handler.FindByID(ctx, entry.TargetID)
	if err != nil {
		return nil, err
	}
	if subject.IsZero() {
		res.Action = ActionRemove
		return res, nil
	}

	raw, err := handler.Resource(ctx, subject)
	if err != nil {
		return nil, err
	}
	res.Resource = raw
	return res, nil
}
