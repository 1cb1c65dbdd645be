package status

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/journal"
)

// getJournal serves GET /api/journal?start=&end=&vehicle_id=&type=&state=&limit=.
func (s *server) getJournal(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	records, err := s.Journal.Query(r.Context(), q)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []journal.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func parseQuery(v url.Values) (journal.Query, error) {
	q := journal.Query{
		VehicleID: v.Get("vehicle_id"),
		State:     v.Get("state"),
	}
	for name, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
		s := v.Get(name)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = t
	}
	switch typ := journal.RecordType(v.Get("type")); typ {
	case "", journal.TypeTransition, journal.TypeRequest, journal.TypeRun:
		q.Type = typ
	default:
		return q, fmt.Errorf("unknown record type %q", typ)
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid limit %q", s)
		}
		q.Limit = n
	}
	return q, nil
}
