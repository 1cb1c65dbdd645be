// Package journal persists the ambulance activity seen on the event bus:
// every state transition, every request outcome and the boundaries of
// simulation runs. Records go to a JSONL file, optionally rotated, or to a
// SQLite database, and can be queried back by time range, vehicle, type and
// state.
package journal
