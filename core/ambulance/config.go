package ambulance

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
)

// DwellRange bounds a randomized duration in milliseconds. A zero range is
// disabled.
type DwellRange struct {
	MinMS int `json:"min_ms" yaml:"min_ms"`
	MaxMS int `json:"max_ms" yaml:"max_ms"`
}

// Enabled reports whether the range produces a timer.
func (r DwellRange) Enabled() bool { return r.MaxMS > 0 }

// Validate checks the bounds.
func (r DwellRange) Validate() error {
	if r.MinMS < 0 || r.MaxMS < 0 {
		return fmt.Errorf("dwell range must not be negative")
	}
	if r.MaxMS < r.MinMS {
		return fmt.Errorf("dwell range max %dms below min %dms", r.MaxMS, r.MinMS)
	}
	return nil
}

// Pick draws a duration uniformly from [min, max].
func (r DwellRange) Pick(rng *rand.Rand) time.Duration {
	ms := r.MinMS
	if span := r.MaxMS - r.MinMS; span > 0 {
		ms += rng.Intn(span + 1)
	}
	return time.Duration(ms) * time.Millisecond
}

// Config defines the ambulance identity and trip timings.
type Config struct {
	ID string `json:"id"`
	// HomeVisit, Transport and Maintenance time the job legs.
	HomeVisit   DwellRange `json:"home_visit"`
	Transport   DwellRange `json:"transport"`
	Maintenance DwellRange `json:"maintenance"`
	// ReturnTrip times the drive back to the clinic from either transit state.
	ReturnTrip DwellRange `json:"return_trip"`
	// Seed makes the dwell draws reproducible. Zero seeds from the clock.
	Seed int64 `json:"seed"`
	// Manual disables every trip timer; legs end only on SignalReturn.
	Manual bool `json:"manual"`
}

// DefaultTimings returns the trip timings used by the interactive service.
func DefaultTimings() Config {
	return Config{
		HomeVisit:   DwellRange{MinMS: 2000, MaxMS: 5000},
		Transport:   DwellRange{MinMS: 2000, MaxMS: 5000},
		Maintenance: DwellRange{MinMS: 5000, MaxMS: 10000},
		ReturnTrip:  DwellRange{MinMS: 1000, MaxMS: 3000},
	}
}

// FillTimings copies DefaultTimings into every disabled range. Manual
// configs are left untouched.
func (c *Config) FillTimings() {
	if c.Manual {
		return
	}
	d := DefaultTimings()
	for _, p := range []struct{ dst, def *DwellRange }{
		{&c.HomeVisit, &d.HomeVisit},
		{&c.Transport, &d.Transport},
		{&c.Maintenance, &d.Maintenance},
		{&c.ReturnTrip, &d.ReturnTrip},
	} {
		if !p.dst.Enabled() {
			*p.dst = *p.def
		}
	}
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ID == "" {
		c.ID = "ambulance-1"
	}
}

// Validate checks every dwell range.
func (c Config) Validate() error {
	for name, r := range map[string]DwellRange{
		"home_visit":  c.HomeVisit,
		"transport":   c.Transport,
		"maintenance": c.Maintenance,
		"return_trip": c.ReturnTrip,
	} {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("ambulance.%s: %w", name, err)
		}
	}
	return nil
}

func (c Config) dwellFor(s model.VehicleState) DwellRange {
	if c.Manual {
		return DwellRange{}
	}
	switch s {
	case model.StateOnHomeVisit:
		return c.HomeVisit
	case model.StateTransporting:
		return c.Transport
	case model.StateInMaintenance:
		return c.Maintenance
	case model.StateReturningEmpty, model.StateReturningFromMaintenance:
		return c.ReturnTrip
	default:
		return DwellRange{}
	}
}
