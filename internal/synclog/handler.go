package synclog

import (
	"context"
	"encoding/json"
	"reflect"
)

// TransientTargetID is the sentinel target id for subjects that have no
// persistent identity.
const TransientTargetID int64 = -1

// Handler is the seven-method contract every entity family participating in
// sync implements. Handlers are stateless; one instance serves the whole
// process.
//
// The three specializations (persistent, transient, static) are concrete
// implementations of this one interface, discriminated by Kind, so the
// tracker and query service treat every family uniformly.
type Handler interface {
	// Type is the log entry discriminator, fixed per handler.
	Type() EntryType

	// Kind reports the handler's specialization.
	Kind() HandlerKind

	// Listeners declares the domain events this handler reacts to. A
	// listener may return a nil payload, meaning no sync entry results
	// from this particular invocation.
	Listeners() []Listener

	// Resource serializes the subject to the wire format clients expect.
	// Pure and deterministic.
	Resource(ctx context.Context, subject Subject) (json.RawMessage, error)

	// FindByID re-fetches the entity fresh during incremental replay, so
	// clients get current state rather than a snapshot captured at write
	// time. A missing entity is reported as a zero Subject with a nil
	// error; transient handlers always report missing.
	FindByID(ctx context.Context, id int64) (Subject, error)

	// IDOf extracts the canonical target id of a subject. Subjects without
	// a persistent identity yield TransientTargetID, never an error.
	IDOf(subject Subject) int64

	// CountForFullSync reports how many entities a full sync would emit
	// for the given constraints.
	CountForFullSync(ctx context.Context, c Constraints) (int64, error)

	// ModelsForFullSync returns one page of entities for a full sync.
	ModelsForFullSync(ctx context.Context, c Constraints) ([]Subject, error)
}

// Listener binds one event type to a handler function.
type Listener struct {
	Event  reflect.Type
	Handle func(ctx context.Context, event any) (*Payload, error)
}

// On adapts a typed listener function into a Listener. The type switch from
// the dispatch table back to E happens exactly once, here.
func On[E any](fn func(ctx context.Context, event E) (*Payload, error)) Listener {
	return Listener{
		Event: reflect.TypeOf(*new(E)),
		Handle: func(ctx context.Context, event any) (*Payload, error) {
			return fn(ctx, event.(E))
		},
	}
}

// TransientHandler supplies the no-op half of the contract for handlers of
// ephemeral data: nothing can be found by id, counted, or paged, and every
// subject resolves to the sentinel target id. Embed it and implement Type,
// Listeners and Resource.
type TransientHandler struct{}

func (TransientHandler) Kind() HandlerKind { return KindTransient }

func (TransientHandler) FindByID(ctx context.Context, id int64) (Subject, error) {
	return Subject{}, nil
}

func (TransientHandler) IDOf(subject Subject) int64 { return TransientTargetID }

func (TransientHandler) CountForFullSync(ctx context.Context, c Constraints) (int64, error) {
	return 0, nil
}

func (TransientHandler) ModelsForFullSync(ctx context.Context, c Constraints) ([]Subject, error) {
	return nil, nil
}

// StaticHandler marks catalog handlers that only surface during full sync.
// They declare no listeners and therefore never produce log entries.
type StaticHandler struct{}

func (StaticHandler) Kind() HandlerKind { return KindStatic }

func (StaticHandler) Listeners() []Listener { return nil }
