package billing

import (
	"fmt"
	"strings"
)

// Specialty of a doctor.
type Specialty string

const (
	Clinical   Specialty = "clinical"
	Surgery    Specialty = "surgery"
	Pediatrics Specialty = "pediatrics"
)

// Postgrad is the highest postgraduate degree of a doctor.
type Postgrad string

const (
	NoPostgrad Postgrad = "none"
	Master     Postgrad = "master"
	Doctorate  Postgrad = "doctor"
)

// Contract is how the doctor is hired by the clinic.
type Contract string

const (
	Permanent Contract = "permanent"
	Resident  Contract = "resident"
)

var (
	specialtyRates = map[Specialty]float64{Clinical: 0.05, Surgery: 0.10, Pediatrics: 0.07}
	postgradRates  = map[Postgrad]float64{NoPostgrad: 0, Master: 0.05, Doctorate: 0.10}
	contractRates  = map[Contract]float64{Permanent: 0.10, Resident: 0.05}
)

// ParseSpecialty accepts the specialty name in any case.
func ParseSpecialty(s string) (Specialty, error) {
	v := Specialty(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := specialtyRates[v]; !ok {
		return "", fmt.Errorf("%w: unknown specialty %q", ErrInvalid, s)
	}
	return v, nil
}

// ParsePostgrad accepts the degree name in any case; empty means none.
func ParsePostgrad(s string) (Postgrad, error) {
	v := Postgrad(strings.ToLower(strings.TrimSpace(s)))
	if v == "" {
		return NoPostgrad, nil
	}
	if _, ok := postgradRates[v]; !ok {
		return "", fmt.Errorf("%w: unknown postgrad %q", ErrInvalid, s)
	}
	return v, nil
}

// ParseContract accepts the contract name in any case.
func ParseContract(s string) (Contract, error) {
	v := Contract(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := contractRates[v]; !ok {
		return "", fmt.Errorf("%w: unknown contract %q", ErrInvalid, s)
	}
	return v, nil
}

// Doctor carries the attributes that drive the fee.
type Doctor struct {
	License   string    `json:"license"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Specialty Specialty `json:"specialty"`
	Postgrad  Postgrad  `json:"postgrad"`
	Contract  Contract  `json:"contract"`
}

// Validate checks that every category is known.
func (d Doctor) Validate() error {
	if _, ok := specialtyRates[d.Specialty]; !ok {
		return fmt.Errorf("%w: unknown specialty %q", ErrInvalid, d.Specialty)
	}
	if _, ok := postgradRates[d.Postgrad]; !ok && d.Postgrad != "" {
		return fmt.Errorf("%w: unknown postgrad %q", ErrInvalid, d.Postgrad)
	}
	if _, ok := contractRates[d.Contract]; !ok {
		return fmt.Errorf("%w: unknown contract %q", ErrInvalid, d.Contract)
	}
	return nil
}

// Fee is a doctor's fee. Surcharges wrap another Fee.
type Fee interface {
	Amount() float64
}

// BaseFee is the undecorated fee.
type BaseFee float64

// Amount implements Fee.
func (b BaseFee) Amount() float64 { return float64(b) }

// SpecialtySurcharge adds the specialty percentage to the inner fee.
type SpecialtySurcharge struct {
	Inner     Fee
	Specialty Specialty
}

// Amount implements Fee.
func (s SpecialtySurcharge) Amount() float64 {
	return surcharge(s.Inner.Amount(), specialtyRates[s.Specialty])
}

// PostgradSurcharge adds the postgraduate percentage to the inner fee.
type PostgradSurcharge struct {
	Inner    Fee
	Postgrad Postgrad
}

// Amount implements Fee.
func (p PostgradSurcharge) Amount() float64 {
	return surcharge(p.Inner.Amount(), postgradRates[p.Postgrad])
}

// ContractSurcharge adds the contract percentage to the inner fee.
type ContractSurcharge struct {
	Inner    Fee
	Contract Contract
}

// Amount implements Fee.
func (c ContractSurcharge) Amount() float64 {
	return surcharge(c.Inner.Amount(), contractRates[c.Contract])
}

func surcharge(base, rate float64) float64 { return base + base*rate }

// NewFee builds the full chain for d: base, then specialty, postgrad and
// contract surcharges, each applied on the previous amount.
func NewFee(base float64, d Doctor) Fee {
	var f Fee = BaseFee(base)
	f = SpecialtySurcharge{Inner: f, Specialty: d.Specialty}
	f = PostgradSurcharge{Inner: f, Postgrad: d.Postgrad}
	f = ContractSurcharge{Inner: f, Contract: d.Contract}
	return f
}

// FeeFor uses the catalog assignment cost as base.
func (c Catalog) FeeFor(d Doctor) (float64, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	return NewFee(c.AssignmentCost, d).Amount(), nil
}
