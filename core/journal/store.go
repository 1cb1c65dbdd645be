package journal

import (
	"context"
	"time"
)

// RecordType tells which event produced a record.
type RecordType string

const (
	TypeTransition RecordType = "transition"
	TypeRequest    RecordType = "request"
	TypeRun        RecordType = "run"
)

// Record is one journal entry. Fields not relevant to the type are empty.
type Record struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Type      RecordType `json:"type"`
	VehicleID string     `json:"vehicle_id,omitempty"`
	From      string     `json:"from,omitempty"`
	To        string     `json:"to,omitempty"`
	Cause     string     `json:"cause,omitempty"`
	Requester string     `json:"requester,omitempty"`
	Seq       uint64     `json:"seq,omitempty"`
	Granted   bool       `json:"granted,omitempty"`
	Error     string     `json:"error,omitempty"`
	WaitMS    float64    `json:"wait_ms,omitempty"`
	RunID     string     `json:"run_id,omitempty"`
	Phase     string     `json:"phase,omitempty"`
	Forced    bool       `json:"forced,omitempty"`
}

// Query defines filters for retrieving records. Zero fields match anything.
type Query struct {
	Start     time.Time
	End       time.Time
	VehicleID string
	Type      RecordType
	// State matches the state entered by transition records.
	State string
	// Limit keeps only the most recent matches.
	Limit int
}

// Match reports whether r passes every filter except Limit.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.VehicleID != "" && r.VehicleID != q.VehicleID {
		return false
	}
	if q.Type != "" && r.Type != q.Type {
		return false
	}
	if q.State != "" && r.To != q.State {
		return false
	}
	return true
}

func (q Query) trim(res []Record) []Record {
	if q.Limit > 0 && len(res) > q.Limit {
		return res[len(res)-q.Limit:]
	}
	return res
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
