// Package triage decides who occupies the private waiting room. Priorities
// form a cycle: a child beats a youth, a youth beats a senior and a senior
// beats a child. Whoever loses waits in the yard in arrival order.
package triage

import (
	"fmt"
	"strings"
	"sync"
)

// Priority is the age category of a patient.
type Priority int

const (
	Child Priority = iota
	Youth
	Senior
)

func (p Priority) String() string {
	switch p {
	case Child:
		return "child"
	case Youth:
		return "youth"
	case Senior:
		return "senior"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// ParsePriority accepts the category name in any case.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "child":
		return Child, nil
	case "youth":
		return Youth, nil
	case "senior":
		return Senior, nil
	}
	return 0, fmt.Errorf("triage: unknown priority %q", s)
}

// PriorityForAge maps an age in years to its category.
func PriorityForAge(age int) Priority {
	switch {
	case age <= 15:
		return Child
	case age <= 40:
		return Youth
	default:
		return Senior
	}
}

// Outcome of comparing a newcomer against the occupant.
type Outcome int

const (
	Tie Outcome = iota
	Wins
	Loses
)

func (o Outcome) String() string {
	switch o {
	case Wins:
		return "wins"
	case Loses:
		return "loses"
	default:
		return "tie"
	}
}

// beats[p] is the priority p wins against.
var beats = map[Priority]Priority{Child: Youth, Youth: Senior, Senior: Child}

// Resolve reports how a fares against b.
func Resolve(a, b Priority) Outcome {
	switch {
	case a == b:
		return Tie
	case beats[a] == b:
		return Wins
	default:
		return Loses
	}
}

// Patient waiting to be seen.
type Patient struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Priority Priority `json:"priority"`
}

// Yard is the FIFO queue of patients not in the waiting room.
type Yard struct {
	queue []Patient
}

func (y *Yard) push(p Patient) { y.queue = append(y.queue, p) }

func (y *Yard) pop() (Patient, bool) {
	if len(y.queue) == 0 {
		return Patient{}, false
	}
	p := y.queue[0]
	y.queue[0] = Patient{}
	y.queue = y.queue[1:]
	return p, true
}

// WaitingRoom holds at most one patient; everyone else is in the yard.
type WaitingRoom struct {
	mu       sync.Mutex
	occupant *Patient
	yard     Yard
}

// Admit places p in the room if it is empty or p beats the occupant, moving
// the displaced occupant to the yard. Otherwise p goes to the yard. It
// returns true when p ends up in the room.
func (w *WaitingRoom) Admit(p Patient) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.occupant == nil {
		w.occupant = &p
		return true
	}
	if Resolve(p.Priority, w.occupant.Priority) == Wins {
		w.yard.push(*w.occupant)
		w.occupant = &p
		return true
	}
	w.yard.push(p)
	return false
}

// Release empties the room if id is the current occupant.
func (w *WaitingRoom) Release(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.occupant == nil || w.occupant.ID != id {
		return false
	}
	w.occupant = nil
	return true
}

// Occupant returns the patient in the room.
func (w *WaitingRoom) Occupant() (Patient, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.occupant == nil {
		return Patient{}, false
	}
	return *w.occupant, true
}

// NextFromYard removes the longest-waiting patient from the yard.
func (w *WaitingRoom) NextFromYard() (Patient, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.yard.pop()
}

// YardLen returns the number of patients in the yard.
func (w *WaitingRoom) YardLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.yard.queue)
}

// Yard returns the patients in the yard in arrival order.
func (w *WaitingRoom) Yard() []Patient {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Patient(nil), w.yard.queue...)
}
