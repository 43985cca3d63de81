package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrConflict signals the target provider already has an overlapping
// booked or confirmed appointment.
var ErrConflict = errors.New("booking: slot conflict")

// AppointmentStatus is the lifecycle state of a persisted appointment.
type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Appointment is a persisted calendar entry. Rows are never deleted, only
// status-transitioned.
type Appointment struct {
	ID         uuid.UUID
	TenantID   string
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	Start      time.Time
	End        time.Time
	Status     AppointmentStatus
	Source     string
	Reason     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
