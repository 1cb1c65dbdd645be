package status

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/billing"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/clinic"
)

// Clinic is the patient flow served by the API.
type Clinic interface {
	RegisterDoctor(d billing.Doctor) error
	RegisterPatient(p clinic.Patient) error
	Doctors() []billing.Doctor
	Admit(dni string) (bool, error)
	Attend(license, dni string) error
	Hospitalize(dni string, room billing.Room, days int) error
	Discharge(dni string, days int) (billing.Invoice, error)
	Invoices() []billing.Invoice
	WaitingRoom() clinic.WaitingRoom
	ActivityReport(license string, from, to time.Time) (clinic.ActivityReport, error)
}

const dateLayout = "2006-01-02"

func (s *server) clinicRoutes(r chi.Router) {
	r.Get("/doctors", s.listDoctors)
	r.Post("/doctors", s.addDoctor)
	r.Get("/doctors/{license}/activity", s.getActivity)
	r.Post("/patients", s.addPatient)
	r.Post("/patients/{dni}/admit", s.admitPatient)
	r.Post("/patients/{dni}/attend", s.attendPatient)
	r.Post("/patients/{dni}/hospitalize", s.hospitalizePatient)
	r.Post("/patients/{dni}/discharge", s.dischargePatient)
	r.Get("/waiting-room", s.getWaitingRoom)
	r.Get("/invoices", s.listInvoices)
}

func (s *server) writeClinicError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrInvalid), errors.Is(err, billing.ErrInvalid):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, clinic.ErrDoctorNotRegistered), errors.Is(err, clinic.ErrPatientNotRegistered):
		s.writeError(w, http.StatusNotFound, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *server) listDoctors(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Clinic.Doctors())
}

func (s *server) addDoctor(w http.ResponseWriter, r *http.Request) {
	var d billing.Doctor
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.Clinic.RegisterDoctor(d); err != nil {
		s.writeClinicError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, d)
}

func (s *server) addPatient(w http.ResponseWriter, r *http.Request) {
	var p clinic.Patient
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.Clinic.RegisterPatient(p); err != nil {
		s.writeClinicError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

type admitResponse struct {
	InWaitingRoom bool               `json:"in_waiting_room"`
	WaitingRoom   clinic.WaitingRoom `json:"waiting_room"`
}

func (s *server) admitPatient(w http.ResponseWriter, r *http.Request) {
	in, err := s.Clinic.Admit(chi.URLParam(r, "dni"))
	if err != nil {
		s.writeClinicError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, admitResponse{InWaitingRoom: in, WaitingRoom: s.Clinic.WaitingRoom()})
}

type attendRequest struct {
	License string `json:"license"`
}

func (s *server) attendPatient(w http.ResponseWriter, r *http.Request) {
	var body attendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := s.Clinic.Attend(body.License, chi.URLParam(r, "dni")); err != nil {
		s.writeClinicError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type hospitalizeRequest struct {
	RoomKind string `json:"room_kind"`
	RoomID   string `json:"room_id"`
	Days     int    `json:"days"`
}

func (s *server) hospitalizePatient(w http.ResponseWriter, r *http.Request) {
	var body hospitalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	room, err := billing.NewRoom(body.RoomKind, body.RoomID)
	if err != nil {
		s.writeClinicError(w, err)
		return
	}
	if err := s.Clinic.Hospitalize(chi.URLParam(r, "dni"), room, body.Days); err != nil {
		s.writeClinicError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dischargeRequest defaults to a one day stay when Days is absent.
type dischargeRequest struct {
	Days *int `json:"days"`
}

type itemView struct {
	Description string  `json:"description"`
	Subtotal    float64 `json:"subtotal"`
}

type invoiceView struct {
	Number     int64      `json:"number"`
	Patient    string     `json:"patient"`
	Admitted   time.Time  `json:"admitted"`
	Discharged time.Time  `json:"discharged"`
	Days       int        `json:"days"`
	Items      []itemView `json:"items"`
	Total      float64    `json:"total"`
}

func newInvoiceView(inv billing.Invoice) invoiceView {
	v := invoiceView{
		Number:     inv.Number,
		Patient:    inv.Patient,
		Admitted:   inv.Admitted,
		Discharged: inv.Discharged,
		Days:       inv.Days(),
		Items:      make([]itemView, 0, len(inv.Items)),
		Total:      inv.Total(),
	}
	for _, it := range inv.Items {
		v.Items = append(v.Items, itemView{Description: it.Describe(), Subtotal: it.Subtotal()})
	}
	return v
}

func (s *server) dischargePatient(w http.ResponseWriter, r *http.Request) {
	var body dischargeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
	}
	days := 1
	if body.Days != nil {
		days = *body.Days
	}
	inv, err := s.Clinic.Discharge(chi.URLParam(r, "dni"), days)
	if err != nil {
		s.writeClinicError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newInvoiceView(inv))
}

func (s *server) getWaitingRoom(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Clinic.WaitingRoom())
}

func (s *server) listInvoices(w http.ResponseWriter, _ *http.Request) {
	invs := s.Clinic.Invoices()
	out := make([]invoiceView, 0, len(invs))
	for _, inv := range invs {
		out = append(out, newInvoiceView(inv))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// getActivity takes from and to as YYYY-MM-DD. Both default to today.
func (s *server) getActivity(w http.ResponseWriter, r *http.Request) {
	today := time.Now()
	parse := func(key string) (time.Time, bool) {
		v := r.URL.Query().Get(key)
		if v == "" {
			return today, true
		}
		t, err := time.ParseInLocation(dateLayout, v, time.Local)
		return t, err == nil
	}
	from, ok := parse("from")
	if !ok {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, ok := parse("to")
	if !ok {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}
	rep, err := s.Clinic.ActivityReport(chi.URLParam(r, "license"), from, to)
	if err != nil {
		s.writeClinicError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}
