// Package associates manages the clinic's registered associates: the people
// allowed to request the ambulance.
package associates

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no associate has the given DNI.
	ErrNotFound = errors.New("associate not found")
	// ErrDuplicate is returned when the DNI is already registered.
	ErrDuplicate = errors.New("associate already registered")
	// ErrInvalid wraps validation failures.
	ErrInvalid = errors.New("invalid associate")
)

// Associate is a registered clinic associate identified by DNI.
type Associate struct {
	DNI       string `json:"dni"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	City      string `json:"city,omitempty"`
}

// Normalize trims every field.
func (a Associate) Normalize() Associate {
	a.DNI = strings.TrimSpace(a.DNI)
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Address = strings.TrimSpace(a.Address)
	a.Phone = strings.TrimSpace(a.Phone)
	a.City = strings.TrimSpace(a.City)
	return a
}

// Validate checks the mandatory fields of a normalized associate.
func (a Associate) Validate() error {
	if a.DNI == "" {
		return fmt.Errorf("%w: dni is required", ErrInvalid)
	}
	if len(a.DNI) > 10 {
		return fmt.Errorf("%w: dni %q longer than 10 characters", ErrInvalid, a.DNI)
	}
	for _, r := range a.DNI {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: dni %q must be numeric", ErrInvalid, a.DNI)
		}
	}
	if a.FirstName == "" || a.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalid)
	}
	return nil
}

// FullName returns "First Last".
func (a Associate) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// less orders by last name, then first name, then DNI.
func less(a, b Associate) bool {
	if a.LastName != b.LastName {
		return a.LastName < b.LastName
	}
	if a.FirstName != b.FirstName {
		return a.FirstName < b.FirstName
	}
	return a.DNI < b.DNI
}

// Seed returns the example associates inserted by Store.Reset.
func Seed() []Associate {
	return []Associate{
		{DNI: "12345678", FirstName: "Juan", LastName: "Perez", Address: "Calle Falsa 123", Phone: "2235001122", City: "Mar del Plata"},
		{DNI: "87654321", FirstName: "Maria", LastName: "Gomez", Address: "Av. Siempre Viva 742", Phone: "2235112233", City: "Springfield"},
	}
}
