package synclog

import (
	"context"
	"fmt"
	"math"
)

// Request is one client catch-up call: the per-type baselines the client has
// seen (a type missing from Since forces a full sync for it), an optional
// room filter, and an offset/limit window so a cut-off request can resume
// without re-deriving state.
type Request struct {
	UserID int64
	Since  map[EntryType]int64
	RoomID *int64
	Offset int64
	Limit  int64
}

// Response is the merged feed, ordered by handler registration order and by
// sequence number within each type, plus the new per-type baselines.
type Response struct {
	Entries   []*Resource         `json:"entries"`
	Baselines map[EntryType]int64 `json:"baselines"`
	// Full lists the types that were answered with a full snapshot; the
	// client must reset its local state for those before applying entries.
	Full []EntryType `json:"full,omitempty"`
	// Complete is false when entries beyond the offset/limit window
	// remain; the client should request the next page before adopting
	// the reported baselines.
	Complete bool `json:"complete"`
}

// QueryService answers client catch-up requests, deciding per entity type
// between a full snapshot and an incremental replay.
type QueryService struct {
	tracker  *Tracker
	store    Store
	pageSize int64
}

// NewQueryService builds a query service over the tracker's handler set.
// pageSize bounds the chunks full-sync results are fetched in.
func NewQueryService(tracker *Tracker, store Store, pageSize int64) *QueryService {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &QueryService{tracker: tracker, store: store, pageSize: pageSize}
}

// Sync serves one catch-up request. Reading has no side effects, so a client
// retrying with the same baselines gets an identical response.
func (s *QueryService) Sync(ctx context.Context, req Request) (*Response, error) {
	maxSeq, err := s.store.MaxSeq(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("synclog: resolving max sequence: %w", err)
	}
	horizon, err := s.store.HorizonSeq(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("synclog: resolving retention horizon: %w", err)
	}

	resp := &Response{
		Baselines: make(map[EntryType]int64),
		Complete:  true,
	}

	offset := req.Offset
	remaining := req.Limit
	if remaining <= 0 {
		remaining = math.MaxInt64
	}

	for _, handler := range s.tracker.Handlers() {
		if handler.Kind() == KindTransient {
			// Transient data is never stored and never eligible for
			// any kind of replay.
			continue
		}

		last, seen := req.Since[handler.Type()]
		if !seen || last < horizon {
			if err := s.fullSync(ctx, handler, req, maxSeq, &offset, &remaining, resp); err != nil {
				return nil, err
			}
		} else {
			if err := s.incrementalSync(ctx, handler, req, last, &remaining, resp); err != nil {
				return nil, err
			}
		}
	}

	return resp, nil
}

// fullSync reconstructs the user's entire visible state for one entity type
// via count + paginated fetch, bypassing the log. The shared offset spans
// handlers so one global offset/limit window pages through the whole
// snapshot.
func (s *QueryService) fullSync(ctx context.Context, handler Handler, req Request, maxSeq int64, offset, remaining *int64, resp *Response) error {
	typ := handler.Type()
	resp.Baselines[typ] = maxSeq
	resp.Full = append(resp.Full, typ)

	count, err := handler.CountForFullSync(ctx, Constraints{UserID: req.UserID, RoomID: req.RoomID, Limit: math.MaxInt64})
	if err != nil {
		return fmt.Errorf("synclog: counting %s for full sync: %w", typ, err)
	}
	if count <= 0 {
		return nil
	}
	if *offset >= count {
		// The window starts past this handler's share; consume it and
		// move on. Not an error.
		*offset -= count
		return nil
	}

	take := count - *offset
	if take > *remaining {
		// The window cannot hold this handler's remainder; the client
		// has to page on.
		take = *remaining
		resp.Complete = false
	}
	if take == 0 {
		*offset = 0
		return nil
	}

	var taken int64
	for taken < take {
		chunk := s.pageSize
		if rest := take - taken; rest < chunk {
			chunk = rest
		}
		subjects, err := handler.ModelsForFullSync(ctx, Constraints{
			UserID: req.UserID,
			RoomID: req.RoomID,
			Offset: *offset + taken,
			Limit:  chunk,
		})
		if err != nil {
			return fmt.Errorf("synclog: fetching %s for full sync: %w", typ, err)
		}
		for _, subject := range subjects {
			raw, err := handler.Resource(ctx, subject)
			if err != nil {
				return fmt.Errorf("synclog: serializing %s resource: %w", typ, err)
			}
			resp.Entries = append(resp.Entries, &Resource{
				Type:     typ,
				Action:   ActionSet,
				TargetID: handler.IDOf(subject),
				Seq:      maxSeq,
				Resource: raw,
			})
		}
		taken += int64(len(subjects))
		if int64(len(subjects)) < chunk {
			// Fewer rows than asked for: the data shrank under us.
			break
		}
	}

	*remaining -= taken
	*offset = 0
	return nil
}

// incrementalSync replays the user's stored entries newer than the client's
// baseline. SET targets are re-fetched fresh; missing targets degrade to
// REMOVE tombstones.
func (s *QueryService) incrementalSync(ctx context.Context, handler Handler, req Request, last int64, remaining *int64, resp *Response) error {
	typ := handler.Type()
	resp.Baselines[typ] = last

	// Fetch one entry past the window so an exactly-consumed limit is
	// still reported complete.
	probe := *remaining
	if probe < math.MaxInt64 {
		probe++
	}
	entries, err := s.store.EntriesSince(ctx, req.UserID, typ, last, req.RoomID, probe)
	if err != nil {
		return fmt.Errorf("synclog: reading %s entries since %d: %w", typ, last, err)
	}
	if int64(len(entries)) > *remaining {
		entries = entries[:*remaining]
		resp.Complete = false
	}

	for _, entry := range entries {
		res, err := resourceForEntry(ctx, handler, entry)
		if err != nil {
			return fmt.Errorf("synclog: materializing %s entry %d: %w", typ, entry.Seq, err)
		}
		resp.Entries = append(resp.Entries, res)
		if entry.Seq > resp.Baselines[typ] {
			resp.Baselines[typ] = entry.Seq
		}
	}

	*remaining -= int64(len(entries))
	return nil
}
