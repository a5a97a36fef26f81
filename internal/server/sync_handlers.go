package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hawki-project/roomsync/internal/synclog"
)

// handleSync answers GET /sync. Baselines arrive as since[<type>]=<seq>
// query parameters; a type without a baseline is answered with a full
// snapshot. room_id narrows the response to one room, offset/limit page
// through large responses.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	req := synclog.Request{
		UserID: currentUserID(r),
		Since:  make(map[synclog.EntryType]int64),
	}

	for key, values := range r.URL.Query() {
		if !strings.HasPrefix(key, "since[") || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}
		typ := key[len("since[") : len(key)-1]
		seq, err := strconv.ParseInt(values[0], 10, 64)
		if err != nil || seq < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid baseline for "+typ)
			return
		}
		req.Since[synclog.EntryType(typ)] = seq
	}

	if raw := r.URL.Query().Get("room_id"); raw != "" {
		roomID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid room_id")
			return
		}
		req.RoomID = &roomID
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || offset < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		req.Offset = offset
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		req.Limit = limit
	}

	resp, err := s.sync.Sync(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}
