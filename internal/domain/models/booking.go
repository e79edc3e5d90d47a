package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrDraftOutOfOrder is returned when a draft field is filled before the fields preceding it.
var ErrDraftOutOfOrder = errors.New("booking draft fields must be filled in order")

// DraftField names a BookingDraft field in fill order.
type DraftField int

const (
	FieldAppointment DraftField = iota
	FieldName
	FieldPhone
	FieldService
	fieldDone
)

func (f DraftField) String() string {
	switch f {
	case FieldAppointment:
		return "appointment"
	case FieldName:
		return "name"
	case FieldPhone:
		return "phone"
	case FieldService:
		return "service"
	default:
		return "complete"
	}
}

// BookingDraft is the partially-filled booking of one user. Fields are filled
// strictly appointment → name → phone → service.
type BookingDraft struct {
	Appointment string `json:"appointment,omitempty"`
	Name        string `json:"name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Service     string `json:"service,omitempty"`
}

// NewDraft starts a draft at the chosen appointment slot.
func NewDraft(appointment string) *BookingDraft {
	return &BookingDraft{Appointment: appointment}
}

// Next returns the first unset field.
func (d BookingDraft) Next() DraftField {
	switch {
	case d.Appointment == "":
		return FieldAppointment
	case d.Name == "":
		return FieldName
	case d.Phone == "":
		return FieldPhone
	case d.Service == "":
		return FieldService
	default:
		return fieldDone
	}
}

// Complete reports whether every field has been filled.
func (d BookingDraft) Complete() bool {
	return d.Next() == fieldDone
}

// Fill sets field to value. Only the next unset field may be filled.
func (d *BookingDraft) Fill(field DraftField, value string) error {
	if value == "" {
		return fmt.Errorf("%w: empty %s", ErrDraftOutOfOrder, field)
	}
	if next := d.Next(); next != field {
		return fmt.Errorf("%w: want %s, got %s", ErrDraftOutOfOrder, next, field)
	}
	switch field {
	case FieldAppointment:
		d.Appointment = value
	case FieldName:
		d.Name = value
	case FieldPhone:
		d.Phone = value
	case FieldService:
		d.Service = value
	}
	return nil
}

// BookingStatus is the lifecycle status stored with a booking.
type BookingStatus string

const (
	BookingStatusNew      BookingStatus = "new"
	BookingStatusCanceled BookingStatus = "canceled"
)

// Booking is a persisted appointment.
type Booking struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Phone       string        `json:"phone"`
	Service     string        `json:"service"`
	Appointment string        `json:"appointment"`
	Status      BookingStatus `json:"status"`
	Source      string        `json:"source,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// NewBookingFromDraft materializes a completed draft as a new booking.
func NewBookingFromDraft(d BookingDraft, source string, now time.Time) Booking {
	return Booking{
		Name:        d.Name,
		Phone:       d.Phone,
		Service:     d.Service,
		Appointment: d.Appointment,
		Status:      BookingStatusNew,
		Source:      source,
		CreatedAt:   now.UTC(),
	}
}

// ClinicSettings holds the clinic-editable bot settings.
type ClinicSettings struct {
	ClinicID     string   `bson:"clinic_id" json:"clinic_id"`
	ClinicName   string   `bson:"clinic_name" json:"clinic_name"`
	BookingTimes []string `bson:"booking_times" json:"booking_times"`
}
