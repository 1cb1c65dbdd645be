// Package clinic runs the patient flow of the clinic: registration, triage
// into the private waiting room, attention by doctors, hospitalization and
// discharge with its invoice.
package clinic

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/billing"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/logger"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/triage"
)

var (
	ErrInvalid              = errors.New("clinic: invalid input")
	ErrDoctorNotRegistered  = errors.New("clinic: doctor not registered")
	ErrPatientNotRegistered = errors.New("clinic: patient not registered")
)

// Patient is a person treated at the clinic.
type Patient struct {
	DNI       string `json:"dni"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
	City      string `json:"city,omitempty"`
}

// FullName returns "First Last".
func (p Patient) FullName() string { return p.FirstName + " " + p.LastName }

// Validate checks the mandatory fields.
func (p Patient) Validate() error {
	if strings.TrimSpace(p.DNI) == "" {
		return fmt.Errorf("%w: dni is required", ErrInvalid)
	}
	if p.Age < 0 {
		return fmt.Errorf("%w: negative age %d", ErrInvalid, p.Age)
	}
	return nil
}

type stay struct {
	room billing.Room
	days int
}

// Clinic is safe for concurrent use.
type Clinic struct {
	mu        sync.Mutex
	catalog   billing.Catalog
	doctors   map[string]billing.Doctor
	patients  map[string]Patient
	room      triage.WaitingRoom
	attending map[string][]string
	stays     map[string]stay
	invoices  []billing.Invoice
	seq       int64
	now       func() time.Time
	log       logger.Logger
}

// New returns an empty clinic priced with cat.
func New(cat billing.Catalog, log logger.Logger) *Clinic {
	return &Clinic{
		catalog:   cat,
		doctors:   make(map[string]billing.Doctor),
		patients:  make(map[string]Patient),
		attending: make(map[string][]string),
		stays:     make(map[string]stay),
		seq:       1,
		now:       time.Now,
		log:       logger.OrNop(log),
	}
}

// RegisterDoctor adds or replaces a doctor by license.
func (c *Clinic) RegisterDoctor(d billing.Doctor) error {
	d.License = strings.TrimSpace(d.License)
	if d.License == "" {
		return fmt.Errorf("%w: license is required", ErrInvalid)
	}
	if err := d.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.doctors[d.License] = d
	c.mu.Unlock()
	c.log.Debugf("doctor %s registered", d.License)
	return nil
}

// RegisterPatient adds or replaces a patient by DNI.
func (c *Clinic) RegisterPatient(p Patient) error {
	p.DNI = strings.TrimSpace(p.DNI)
	if err := p.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.patients[p.DNI] = p
	c.mu.Unlock()
	c.log.Debugf("patient %s registered", p.DNI)
	return nil
}

// Doctors lists the registered doctors sorted by license.
func (c *Clinic) Doctors() []billing.Doctor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]billing.Doctor, 0, len(c.doctors))
	for _, d := range c.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].License < out[j].License })
	return out
}

// Doctor returns the doctor registered under license.
func (c *Clinic) Doctor(license string) (billing.Doctor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.doctors[license]
	if !ok {
		return billing.Doctor{}, fmt.Errorf("%w: %s", ErrDoctorNotRegistered, license)
	}
	return d, nil
}

func (c *Clinic) patient(dni string) (Patient, error) {
	p, ok := c.patients[dni]
	if !ok {
		return Patient{}, fmt.Errorf("%w: %s", ErrPatientNotRegistered, dni)
	}
	return p, nil
}

// Admit sends a registered patient through triage. It reports whether the
// patient took the private waiting room; otherwise they wait in the yard.
func (c *Clinic) Admit(dni string) (bool, error) {
	c.mu.Lock()
	p, err := c.patient(dni)
	c.mu.Unlock()
	if err != nil {
		return false, err
	}
	inRoom := c.room.Admit(triage.Patient{ID: p.DNI, Name: p.FullName(), Priority: triage.PriorityForAge(p.Age)})
	c.log.Infof("patient %s admitted (waiting room: %t)", p.DNI, inRoom)
	return inRoom, nil
}

// WaitingRoom is a snapshot of the private room and the yard.
type WaitingRoom struct {
	Occupant *triage.Patient  `json:"occupant,omitempty"`
	Yard     []triage.Patient `json:"yard"`
}

// WaitingRoom returns who is waiting.
func (c *Clinic) WaitingRoom() WaitingRoom {
	var wr WaitingRoom
	if p, ok := c.room.Occupant(); ok {
		wr.Occupant = &p
	}
	wr.Yard = c.room.Yard()
	return wr
}

// NextFromYard takes the longest-waiting patient out of the yard.
func (c *Clinic) NextFromYard() (triage.Patient, bool) {
	return c.room.NextFromYard()
}

// Attend records that the doctor saw the patient. A patient in the private
// waiting room leaves it.
func (c *Clinic) Attend(license, dni string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.patient(dni); err != nil {
		return err
	}
	if _, ok := c.doctors[license]; !ok {
		return fmt.Errorf("%w: %s", ErrDoctorNotRegistered, license)
	}
	c.attending[dni] = append(c.attending[dni], license)
	c.room.Release(dni)
	return nil
}

// Hospitalize books days in room for the patient, replacing a previous stay.
func (c *Clinic) Hospitalize(dni string, room billing.Room, days int) error {
	if room == nil {
		return fmt.Errorf("%w: room is required", ErrInvalid)
	}
	if days < 0 {
		return fmt.Errorf("%w: negative stay of %d days", ErrInvalid, days)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.patient(dni); err != nil {
		return err
	}
	c.stays[dni] = stay{room: room, days: days}
	return nil
}

// Discharge bills the patient: one consultation per attending doctor and the
// stay, if any. The admission date is days before now. Attention and stay
// are cleared afterwards.
func (c *Clinic) Discharge(dni string, days int) (billing.Invoice, error) {
	if days < 0 {
		return billing.Invoice{}, fmt.Errorf("%w: negative stay of %d days", ErrInvalid, days)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.patient(dni)
	if err != nil {
		return billing.Invoice{}, err
	}
	now := c.now()
	inv := billing.Invoice{
		Number:     c.seq,
		Patient:    p.FullName(),
		Admitted:   now.AddDate(0, 0, -days),
		Discharged: now,
	}
	for _, license := range c.attending[dni] {
		d := c.doctors[license]
		fee, err := c.catalog.FeeFor(d)
		if err != nil {
			return billing.Invoice{}, fmt.Errorf("fee for %s: %w", license, err)
		}
		inv.Add(billing.Consultation{Doctor: d, Date: now, Fee: fee})
	}
	if s, ok := c.stays[dni]; ok {
		h, err := billing.NewHospitalization(c.catalog, s.room, s.days)
		if err != nil {
			return billing.Invoice{}, err
		}
		inv.Add(h)
	}
	c.seq++
	c.invoices = append(c.invoices, inv)
	delete(c.attending, dni)
	delete(c.stays, dni)
	c.room.Release(dni)
	c.log.Infof("patient %s discharged, invoice %d total %.2f", dni, inv.Number, inv.Total())
	return inv, nil
}

// Invoices returns the issued invoices in issue order.
func (c *Clinic) Invoices() []billing.Invoice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]billing.Invoice(nil), c.invoices...)
}
