package billing

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// ConsultationMarkup is applied to the fee of every billed consultation.
const ConsultationMarkup = 1.20

// Item is a billable line.
type Item interface {
	Subtotal() float64
	Describe() string
}

// Consultation bills a doctor's fee.
type Consultation struct {
	Doctor Doctor
	Date   time.Time
	Fee    float64
}

// Subtotal implements Item.
func (c Consultation) Subtotal() float64 { return c.Fee * ConsultationMarkup }

// Describe implements Item.
func (c Consultation) Describe() string {
	return fmt.Sprintf("consultation %s %s (%s)", c.Doctor.FirstName, c.Doctor.LastName, c.Doctor.Specialty)
}

// Hospitalization bills a room stay at a precomputed cost.
type Hospitalization struct {
	Room Room
	Days int
	Cost float64
}

// NewHospitalization prices the stay with the catalog.
func NewHospitalization(c Catalog, r Room, days int) (Hospitalization, error) {
	cost, err := c.StayCost(r, days)
	if err != nil {
		return Hospitalization{}, err
	}
	return Hospitalization{Room: r, Days: days, Cost: cost}, nil
}

// Subtotal implements Item.
func (h Hospitalization) Subtotal() float64 { return h.Cost }

// Describe implements Item.
func (h Hospitalization) Describe() string {
	return fmt.Sprintf("%s room %s, %d days", h.Room.Kind(), h.Room.ID(), h.Days)
}

// Invoice groups the items billed to one patient stay.
type Invoice struct {
	Number     int64
	Patient    string
	Admitted   time.Time
	Discharged time.Time
	Items      []Item
}

// Add appends an item.
func (inv *Invoice) Add(it Item) { inv.Items = append(inv.Items, it) }

// Total sums every item subtotal.
func (inv *Invoice) Total() float64 {
	var total float64
	for _, it := range inv.Items {
		total += it.Subtotal()
	}
	return total
}

// Days is the number of whole days between admission and discharge.
func (inv *Invoice) Days() int {
	return int(inv.Discharged.Sub(inv.Admitted).Hours() / 24)
}

// Write prints the invoice as an aligned table.
func (inv *Invoice) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Invoice\t%d\n", inv.Number)
	fmt.Fprintf(tw, "Patient\t%s\n", inv.Patient)
	fmt.Fprintf(tw, "Admitted\t%s\n", inv.Admitted.Format("02/01/2006"))
	fmt.Fprintf(tw, "Discharged\t%s\n", inv.Discharged.Format("02/01/2006"))
	fmt.Fprintf(tw, "Days\t%d\n", inv.Days())
	hospitalized := false
	for _, it := range inv.Items {
		if _, ok := it.(Hospitalization); ok {
			hospitalized = true
		}
		fmt.Fprintf(tw, "%s\t$%.2f\n", it.Describe(), it.Subtotal())
	}
	if !hospitalized {
		fmt.Fprintln(tw, "(no hospitalization)\t")
	}
	fmt.Fprintf(tw, "Total\t$%.2f\n", inv.Total())
	return tw.Flush()
}
