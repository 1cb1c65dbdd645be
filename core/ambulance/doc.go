// Package ambulance implements the monitor that owns the ambulance state.
//
// A Machine serializes every read and transition behind one mutex. Requests
// for a home visit, a transport or maintenance block until the current state
// accepts them, then apply the transition and wake every other waiter so each
// can re-check its own predicate. Waiting is cancellable through the caller's
// context and a cancelled wait never mutates the state.
//
// Trip legs (the job itself and the drive back to the clinic) can be timed by
// the machine: entering a state with a configured dwell range schedules a
// return signal that is discarded if the state changed in the meantime.
package ambulance
