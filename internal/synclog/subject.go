package synclog

// Subject is what a payload or log entry refers to: either a persisted domain
// entity or a transient blob that never touches the store. Handlers pattern
// match on the variant instead of unwrapping a fake model.
type Subject struct {
	// Entity is a pointer to a domain model for persistent handlers, nil
	// for transient data.
	Entity any
	// Transient carries the raw signal payload for transient handlers. It
	// is sent to clients as-is.
	Transient map[string]any
}

// EntitySubject wraps a persisted domain entity.
func EntitySubject(entity any) Subject {
	return Subject{Entity: entity}
}

// TransientSubject wraps an ephemeral payload that is only ever delivered
// over the live channel.
func TransientSubject(data map[string]any) Subject {
	return Subject{Transient: data}
}

func (s Subject) IsTransient() bool {
	return s.Entity == nil && s.Transient != nil
}

func (s Subject) IsZero() bool {
	return s.Entity == nil && s.Transient == nil
}
