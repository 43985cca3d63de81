package patients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orchestrall/patientflow/internal/messaging"
)

// Patient is a counterparty identity resolved from a phone number.
type Patient struct {
	ID          uuid.UUID
	TenantID    string
	Phone       string
	DisplayName string
	CreatedAt   time.Time
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store resolves or creates patients by phone number.
type Store struct {
	pool rowQuerier
}

func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &Store{pool: pool}
}

func newStoreWithQuerier(q rowQuerier) *Store {
	return &Store{pool: q}
}

// GetOrCreateByPhone resolves the patient for a (tenant, phone) pair,
// creating one on first contact. Safe to call repeatedly for the same
// address; the upsert always returns the same row.
func (s *Store) GetOrCreateByPhone(ctx context.Context, tenantID, phone, displayName string) (*Patient, error) {
	normalized := messaging.NormalizeE164(phone)
	if normalized == "" {
		return nil, errors.New("patients: phone required")
	}

	p := Patient{TenantID: tenantID, Phone: normalized}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO patients (id, tenant_id, phone, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (tenant_id, phone) DO UPDATE SET updated_at = now()
		RETURNING id, display_name, created_at
	`, uuid.New(), tenantID, normalized, displayName).Scan(&p.ID, &p.DisplayName, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("patients: get or create by phone: %w", err)
	}
	return &p, nil
}
