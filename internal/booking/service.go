package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNoProvider signals the tenant has no default provider configured.
	ErrNoProvider = errors.New("booking: no provider configured")
	// ErrInvalidSlot signals a request whose interval is empty or inverted.
	ErrInvalidSlot = errors.New("booking: invalid slot interval")
)

// BookRequest is everything needed to persist a confirmed appointment.
type BookRequest struct {
	TenantID   string
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	Start      time.Time
	End        time.Time
	Source     string
	Reason     string
}

// Service owns the appointment calendar. Book is the only code path that
// writes to it, inside a serializable transaction, so two concurrent
// bookings for the same provider cannot both pass the conflict check.
type Service struct {
	db          DB
	repo        *Repository
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

func NewService(db DB, logger *slog.Logger, maxAttempts int, backoff time.Duration) *Service {
	if db == nil {
		panic("booking: db required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	return &Service{
		db:          db,
		repo:        NewRepository(),
		logger:      logger,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// Book persists the appointment, failing with ErrConflict when the provider
// already has an overlapping booked or confirmed appointment. Serialization
// failures are retried a bounded number of times; exhausting the retries
// means another writer kept winning the slot, so that also surfaces as
// ErrConflict.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if req.ProviderID == uuid.Nil {
		return nil, ErrNoProvider
	}
	if req.PatientID == uuid.Nil {
		return nil, errors.New("booking: patient id required")
	}
	if !req.End.After(req.Start) {
		return nil, ErrInvalidSlot
	}

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		appt, err := s.bookOnce(ctx, req)
		if err == nil {
			return appt, nil
		}
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		if !isSerializationFailure(err) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("booking transaction serialization conflict, retrying",
			"provider_id", req.ProviderID, "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.backoff * time.Duration(1<<attempt)):
		}
	}
	return nil, fmt.Errorf("booking: retries exhausted: %w: %w", ErrConflict, lastErr)
}

func (s *Service) bookOnce(ctx context.Context, req BookRequest) (*Appointment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("booking: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	overlap, err := s.repo.HasOverlap(ctx, tx, req.ProviderID, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, ErrConflict
	}

	now := time.Now().UTC()
	appt := &Appointment{
		ID:         uuid.New(),
		TenantID:   req.TenantID,
		PatientID:  req.PatientID,
		ProviderID: req.ProviderID,
		Start:      req.Start,
		End:        req.End,
		Status:     StatusBooked,
		Source:     req.Source,
		Reason:     req.Reason,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, tx, appt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("booking: commit: %w", err)
	}
	return appt, nil
}

// Cancel transitions a booked or confirmed appointment to cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	err := s.repo.UpdateStatus(ctx, s.db, id, StatusBooked, StatusCancelled)
	if errors.Is(err, ErrInvalidTransition) {
		return s.repo.UpdateStatus(ctx, s.db, id, StatusConfirmed, StatusCancelled)
	}
	return err
}

// Confirm transitions a booked appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) error {
	return s.repo.UpdateStatus(ctx, s.db, id, StatusBooked, StatusConfirmed)
}

// isSerializationFailure matches Postgres serialization or deadlock aborts,
// which are safe to retry.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
