package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/sinric-link/internal/journal"
)

// maxQueryParamLen limits query parameter length.
const maxQueryParamLen = 100

// handleListJournal returns paginated journal entries, newest first.
//
// Query parameters:
//   - kind: request, event or state
//   - device_id: filter by device
//   - action: filter by action
//   - since: RFC 3339 timestamp
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeUnavailable(w, "journal not enabled")
		return
	}

	filter, err := parseJournalFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list journal", "error", err)
		writeInternalError(w, "failed to list journal")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseJournalFilter(r *http.Request) (journal.Filter, error) {
	q := r.URL.Query()
	var f journal.Filter

	for _, p := range []string{"kind", "device_id", "action", "since"} {
		if len(q.Get(p)) > maxQueryParamLen {
			return f, fmt.Errorf("%s exceeds maximum length", p)
		}
	}

	switch k := journal.Kind(q.Get("kind")); k {
	case "", journal.KindRequest, journal.KindEvent, journal.KindState:
		f.Kind = k
	default:
		return f, fmt.Errorf("invalid kind %q", k)
	}
	f.DeviceID = q.Get("device_id")
	f.Action = q.Get("action")

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("invalid since timestamp")
		}
		f.Since = since
	}

	var err error
	if f.Limit, err = parseNonNegative(q.Get("limit"), "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = parseNonNegative(q.Get("offset"), "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func parseNonNegative(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
