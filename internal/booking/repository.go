package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the booking service needs.
type DB interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository holds the appointment queries that run inside the booking
// transaction.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// HasOverlap reports whether the provider already has a booked or confirmed
// appointment overlapping the half-open interval [start, end).
func (r *Repository) HasOverlap(ctx context.Context, tx pgx.Tx, providerID uuid.UUID, start, end time.Time) (bool, error) {
	var exists int
	err := tx.QueryRow(ctx, `
		SELECT 1 FROM appointments
		WHERE provider_id = $1
		  AND status IN ('booked', 'confirmed')
		  AND start_at < $3
		  AND $2 < end_at
		LIMIT 1
	`, providerID, start, end).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("booking: check overlap: %w", err)
	}
	return true, nil
}

// Insert writes the new appointment row.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, appt *Appointment) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments (id, tenant_id, patient_id, provider_id, start_at, end_at, status, source, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		appt.ID,
		appt.TenantID,
		appt.PatientID,
		appt.ProviderID,
		appt.Start,
		appt.End,
		string(appt.Status),
		appt.Source,
		appt.Reason,
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: insert appointment: %w", err)
	}
	return nil
}

// UpdateStatus transitions an appointment between statuses. Rows are never
// deleted; cancel and no-show are status transitions.
func (r *Repository) UpdateStatus(ctx context.Context, db DB, id uuid.UUID, from, to AppointmentStatus) error {
	ct, err := db.Exec(ctx, `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`, id, string(to), string(from))
	if err != nil {
		return fmt.Errorf("booking: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// ErrInvalidTransition signals a status update whose precondition no longer holds.
var ErrInvalidTransition = errors.New("booking: invalid status transition")
