package synclog

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hawki-project/roomsync/internal/database"
	"github.com/hawki-project/roomsync/internal/events"
	"github.com/hawki-project/roomsync/internal/models"
)

// Publisher pushes a resource to one user over the real-time channel.
// Delivery is best-effort; the persisted log is the durable fallback.
type Publisher interface {
	Publish(ctx context.Context, userID int64, resource *Resource) error
}

// Tracker is the handler registry and dispatch point. It is built once at
// startup from the full handler set, validates the configuration, and turns
// every domain event into per-user log entries (persistent handlers) or
// direct pushes (transient handlers).
type Tracker struct {
	handlers  []Handler
	byType    map[EntryType]Handler
	listeners map[reflect.Type][]binding
	store     Store
	publisher Publisher
	logger    *zap.Logger
	retention time.Duration
	gcOnce    sync.Once
}

type binding struct {
	handler Handler
	handle  func(ctx context.Context, event any) (*Payload, error)
}

// NewTracker registers the given handlers and builds the dispatch table.
// Two handlers claiming one entry type, or a listener bound to an event
// outside the known set, fail here rather than silently dropping events.
func NewTracker(store Store, publisher Publisher, logger *zap.Logger, retention time.Duration, handlers ...Handler) (*Tracker, error) {
	known := make(map[reflect.Type]struct{})
	for _, t := range events.KnownTypes() {
		known[t] = struct{}{}
	}

	tracker := &Tracker{
		handlers:  handlers,
		byType:    make(map[EntryType]Handler, len(handlers)),
		listeners: make(map[reflect.Type][]binding),
		store:     store,
		publisher: publisher,
		logger:    logger,
		retention: retention,
	}

	for _, handler := range handlers {
		typ := handler.Type()
		if _, ok := tracker.byType[typ]; ok {
			return nil, fmt.Errorf("synclog: duplicate handler for entry type %q", typ)
		}
		tracker.byType[typ] = handler

		for _, listener := range handler.Listeners() {
			if listener.Event == nil || listener.Handle == nil {
				return nil, fmt.Errorf("synclog: handler %q declares an incomplete listener", typ)
			}
			if _, ok := known[listener.Event]; !ok {
				return nil, fmt.Errorf("synclog: handler %q listens for unknown event %s", typ, listener.Event)
			}
			tracker.listeners[listener.Event] = append(tracker.listeners[listener.Event], binding{
				handler: handler,
				handle:  listener.Handle,
			})
		}
	}

	return tracker, nil
}

// Handlers returns the registered handlers in registration order.
func (t *Tracker) Handlers() []Handler {
	return t.handlers
}

// HandlerFor returns the handler owning the given entry type.
func (t *Tracker) HandlerFor(typ EntryType) (Handler, bool) {
	h, ok := t.byType[typ]
	return h, ok
}

// Dispatch runs every listener bound to the event's type. The Querier is the
// transaction of the domain mutation that produced the event: log entries
// are written through it, so they commit or roll back together with the
// domain write. Listener errors propagate to the caller and abort that
// transaction.
func (t *Tracker) Dispatch(ctx context.Context, q database.Querier, event any) error {
	for _, b := range t.listeners[reflect.TypeOf(event)] {
		payload, err := b.handle(ctx, event)
		if err != nil {
			return fmt.Errorf("synclog: listener for %T (%s): %w", event, b.handler.Type(), err)
		}
		if payload == nil {
			continue
		}
		if err := t.track(ctx, q, payload, b.handler); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) track(ctx context.Context, q database.Querier, payload *Payload, handler Handler) error {
	recipients := payload.recipients()
	if len(recipients) == 0 {
		return nil
	}

	var raw []byte
	if payload.Action == ActionSet || payload.Subject.IsTransient() {
		var err error
		raw, err = handler.Resource(ctx, payload.Subject)
		if err != nil {
			return fmt.Errorf("synclog: serializing %s resource: %w", handler.Type(), err)
		}
	}

	targetID := handler.IDOf(payload.Subject)

	if handler.Kind() == KindTransient {
		for _, user := range recipients {
			t.publish(ctx, user.ID, &Resource{
				Type:     handler.Type(),
				Action:   payload.Action,
				TargetID: targetID,
				RoomID:   payload.roomID(),
				Resource: raw,
			})
		}
		return nil
	}

	t.collectGarbage(ctx)

	for _, user := range recipients {
		entry := &models.SyncLogEntry{
			UserID:   user.ID,
			Type:     string(handler.Type()),
			TargetID: targetID,
			Action:   string(payload.Action),
			RoomID:   payload.roomID(),
		}
		if err := t.store.Append(ctx, q, entry); err != nil {
			return fmt.Errorf("synclog: appending %s entry for user %d: %w", handler.Type(), user.ID, err)
		}

		t.publish(ctx, user.ID, &Resource{
			Type:     handler.Type(),
			Action:   payload.Action,
			TargetID: entry.TargetID,
			RoomID:   entry.RoomID,
			Seq:      entry.Seq,
			Resource: raw,
		})
	}
	return nil
}

// publish is fire-and-forget: a failed push is logged and the stored entry
// remains the authoritative copy.
func (t *Tracker) publish(ctx context.Context, userID int64, resource *Resource) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.Publish(ctx, userID, resource); err != nil {
		t.logger.Warn("realtime push failed",
			zap.Int64("user_id", userID),
			zap.String("type", string(resource.Type)),
			zap.Error(err),
		)
	}
}

// collectGarbage prunes entries past the retention window, once per process,
// lazily on the first tracked write.
func (t *Tracker) collectGarbage(ctx context.Context) {
	t.gcOnce.Do(func() {
		if t.retention <= 0 {
			return
		}
		if err := t.store.DeleteOutdated(ctx, time.Now().Add(-t.retention)); err != nil {
			t.logger.Warn("sync log garbage collection failed", zap.Error(err))
		}
	})
}
