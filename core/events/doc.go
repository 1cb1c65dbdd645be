// Package events defines the dispatch related events emitted on the event bus.
//
// Available event types:
//   - StateChangeEvent: the ambulance entered a new state
//   - RequestEvent: a blocking request was granted or cancelled
//   - RunEvent: a simulation run started or stopped
//   - AssociatesChanged: the associate registry was modified
package events
