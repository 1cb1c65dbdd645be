package clinic

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/billing"
)

// ActivityLine is one consultation in an activity report.
type ActivityLine struct {
	Patient string  `json:"patient"`
	Fee     float64 `json:"fee"`
}

// ActivityDay groups the consultations of one calendar day.
type ActivityDay struct {
	Date  time.Time      `json:"date"`
	Lines []ActivityLine `json:"lines"`
}

// ActivityReport summarizes the consultations a doctor billed in a period.
type ActivityReport struct {
	Doctor billing.Doctor `json:"doctor"`
	From   time.Time      `json:"from"`
	To     time.Time      `json:"to"`
	Days   []ActivityDay  `json:"days"`
	// Total sums the doctor's fees, without the consultation markup.
	Total float64 `json:"total"`
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ActivityReport collects the consultations of license on invoices
// discharged between from and to, both days inclusive.
func (c *Clinic) ActivityReport(license string, from, to time.Time) (ActivityReport, error) {
	from, to = day(from), day(to)
	if to.Before(from) {
		return ActivityReport{}, fmt.Errorf("%w: period ends before it starts", ErrInvalid)
	}
	doc, err := c.Doctor(license)
	if err != nil {
		return ActivityReport{}, err
	}
	rep := ActivityReport{Doctor: doc, From: from, To: to}
	byDay := make(map[time.Time]*ActivityDay)
	for _, inv := range c.Invoices() {
		d := day(inv.Discharged)
		if d.Before(from) || d.After(to) {
			continue
		}
		for _, it := range inv.Items {
			cons, ok := it.(billing.Consultation)
			if !ok || cons.Doctor.License != license {
				continue
			}
			key := day(cons.Date)
			ad, ok := byDay[key]
			if !ok {
				ad = &ActivityDay{Date: key}
				byDay[key] = ad
			}
			ad.Lines = append(ad.Lines, ActivityLine{Patient: inv.Patient, Fee: cons.Fee})
			rep.Total += cons.Fee
		}
	}
	for _, ad := range byDay {
		rep.Days = append(rep.Days, *ad)
	}
	sort.Slice(rep.Days, func(i, j int) bool { return rep.Days[i].Date.Before(rep.Days[j].Date) })
	return rep, nil
}

// Write prints the report as an aligned table.
func (r ActivityReport) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Doctor\t%s %s (%s)\n", r.Doctor.FirstName, r.Doctor.LastName, r.Doctor.Specialty)
	fmt.Fprintf(tw, "Period\t%s to %s\n", r.From.Format("02/01/2006"), r.To.Format("02/01/2006"))
	for _, d := range r.Days {
		fmt.Fprintf(tw, "%s\t\n", d.Date.Format("02/01/2006"))
		for _, l := range d.Lines {
			fmt.Fprintf(tw, "  %s\t$%.2f\n", l.Patient, l.Fee)
		}
	}
	fmt.Fprintf(tw, "Total fees\t$%.2f\n", r.Total)
	return tw.Flush()
}
