package billing

import (
	"fmt"
	"math"
	"strings"
)

// RoomKind identifies the room pricing formula.
type RoomKind string

const (
	Shared        RoomKind = "shared"
	Private       RoomKind = "private"
	IntensiveCare RoomKind = "icu"
)

// Room prices a stay of a number of days.
type Room interface {
	ID() string
	Kind() RoomKind
	Cost(days int, c Catalog) float64
}

// SharedRoom charges assignment plus a flat daily cost.
type SharedRoom struct{ RoomID string }

func (r SharedRoom) ID() string     { return r.RoomID }
func (r SharedRoom) Kind() RoomKind { return Shared }

func (r SharedRoom) Cost(days int, c Catalog) float64 {
	return c.AssignmentCost + c.SharedDayCost*float64(days)
}

// PrivateRoom scales the daily cost by a factor that grows with the stay.
type PrivateRoom struct{ RoomID string }

func (r PrivateRoom) ID() string     { return r.RoomID }
func (r PrivateRoom) Kind() RoomKind { return Private }

func (r PrivateRoom) Cost(days int, c Catalog) float64 {
	factor := c.PrivateFactorLonger
	switch {
	case days == 1:
		factor = c.PrivateFactorFirstDay
	case days <= 5:
		factor = c.PrivateFactorUpTo5Days
	}
	return c.AssignmentCost + c.PrivateDayCost*float64(days)*factor
}

// ICURoom charges the daily cost times days raised to the catalog exponent.
type ICURoom struct{ RoomID string }

func (r ICURoom) ID() string     { return r.RoomID }
func (r ICURoom) Kind() RoomKind { return IntensiveCare }

func (r ICURoom) Cost(days int, c Catalog) float64 {
	return c.AssignmentCost + c.ICUDayCost*math.Pow(float64(days), float64(c.ICUExponent))
}

// NewRoom builds the room of the given kind.
func NewRoom(kind, id string) (Room, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: room id is required", ErrInvalid)
	}
	switch RoomKind(strings.ToLower(strings.TrimSpace(kind))) {
	case Shared:
		return SharedRoom{RoomID: id}, nil
	case Private:
		return PrivateRoom{RoomID: id}, nil
	case IntensiveCare:
		return ICURoom{RoomID: id}, nil
	default:
		return nil, fmt.Errorf("%w: unknown room kind %q", ErrInvalid, kind)
	}
}

// StayCost prices days in room r.
func (c Catalog) StayCost(r Room, days int) (float64, error) {
	if r == nil {
		return 0, fmt.Errorf("%w: room is required", ErrInvalid)
	}
	if days < 0 {
		return 0, fmt.Errorf("%w: negative stay of %d days", ErrInvalid, days)
	}
	return r.Cost(days, c), nil
}
