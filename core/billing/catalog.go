// Package billing computes consultation fees, hospitalization costs and
// invoice totals. Everything here is pure and safe for concurrent use.
package billing

import (
	"errors"
	"fmt"
)

// ErrInvalid wraps every validation failure of this package.
var ErrInvalid = errors.New("billing: invalid input")

// Catalog holds the clinic cost table.
type Catalog struct {
	// AssignmentCost is charged once per consultation fee and per stay.
	AssignmentCost float64 `json:"assignment_cost" yaml:"assignment_cost"`
	SharedDayCost  float64 `json:"shared_day_cost" yaml:"shared_day_cost"`
	PrivateDayCost float64 `json:"private_day_cost" yaml:"private_day_cost"`
	ICUDayCost     float64 `json:"icu_day_cost" yaml:"icu_day_cost"`

	PrivateFactorFirstDay  float64 `json:"private_factor_first_day" yaml:"private_factor_first_day"`
	PrivateFactorUpTo5Days float64 `json:"private_factor_up_to_5_days" yaml:"private_factor_up_to_5_days"`
	PrivateFactorLonger    float64 `json:"private_factor_longer" yaml:"private_factor_longer"`

	// ICUExponent is the power applied to the number of days in intensive care.
	ICUExponent int `json:"icu_exponent" yaml:"icu_exponent"`
}

// DefaultCatalog returns the catalog used when no configuration is given.
func DefaultCatalog() Catalog {
	var c Catalog
	c.SetDefaults()
	return c
}

// SetDefaults fills the unset fields.
func (c *Catalog) SetDefaults() {
	if c.AssignmentCost == 0 {
		c.AssignmentCost = 1000
	}
	if c.SharedDayCost == 0 {
		c.SharedDayCost = 2000
	}
	if c.PrivateDayCost == 0 {
		c.PrivateDayCost = 3500
	}
	if c.ICUDayCost == 0 {
		c.ICUDayCost = 6000
	}
	if c.PrivateFactorFirstDay == 0 {
		c.PrivateFactorFirstDay = 1.0
	}
	if c.PrivateFactorUpTo5Days == 0 {
		c.PrivateFactorUpTo5Days = 1.3
	}
	if c.PrivateFactorLonger == 0 {
		c.PrivateFactorLonger = 2.0
	}
	if c.ICUExponent == 0 {
		c.ICUExponent = 2
	}
}

// Validate rejects negative costs and factors.
func (c Catalog) Validate() error {
	values := map[string]float64{
		"assignment_cost":             c.AssignmentCost,
		"shared_day_cost":             c.SharedDayCost,
		"private_day_cost":            c.PrivateDayCost,
		"icu_day_cost":                c.ICUDayCost,
		"private_factor_first_day":    c.PrivateFactorFirstDay,
		"private_factor_up_to_5_days": c.PrivateFactorUpTo5Days,
		"private_factor_longer":       c.PrivateFactorLonger,
	}
	for name, v := range values {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalid, name)
		}
	}
	if c.ICUExponent < 1 {
		return fmt.Errorf("%w: icu_exponent must be at least 1", ErrInvalid)
	}
	return nil
}
