package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hawki-project/roomsync/internal/events"
	"github.com/hawki-project/roomsync/internal/repositories"
	"github.com/hawki-project/roomsync/internal/synclog"
)

// AiWritingHandler broadcasts typing-style signals while an AI assistant is
// generating into a room. The signal is delivered live to current members and
// never persisted; a client that reconnects mid-generation simply misses it.
type AiWritingHandler struct {
	synclog.TransientHandler
	members repositories.MemberRepository
}

func NewAiWritingHandler(members repositories.MemberRepository) *AiWritingHandler {
	return &AiWritingHandler{members: members}
}

func (h *AiWritingHandler) Type() synclog.EntryType { return synclog.EntryTypeRoomAiWriting }

func (h *AiWritingHandler) Listeners() []synclog.Listener {
	return []synclog.Listener{
		synclog.On(func(ctx context.Context, ev events.AiWritingStarted) (*synclog.Payload, error) {
			audience, err := roomAudience(ctx, h.members, ev.Room.ID)
			if err != nil {
				return nil, err
			}
			subject := synclog.TransientSubject(map[string]any{
				"room_id": ev.Room.ID,
				"model":   ev.ModelLabel,
				"writing": true,
			})
			return synclog.NewSetPayload(subject, audience, ev.Room), nil
		}),
		synclog.On(func(ctx context.Context, ev events.AiWritingEnded) (*synclog.Payload, error) {
			audience, err := roomAudience(ctx, h.members, ev.Room.ID)
			if err != nil {
				return nil, err
			}
			subject := synclog.TransientSubject(map[string]any{
				"room_id": ev.Room.ID,
				"model":   ev.ModelLabel,
				"writing": false,
			})
			return synclog.NewRemovePayload(subject, audience, ev.Room), nil
		}),
	}
}

func (h *AiWritingHandler) Resource(ctx context.Context, subject synclog.Subject) (json.RawMessage, error) {
	if !subject.IsTransient() {
		return nil, fmt.Errorf("unexpected subject for ai writing resource")
	}
	return json.Marshal(subject.Transient)
}
