package tenants

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals no tenant owns the given channel number.
var ErrNotFound = errors.New("tenants: tenant not found")

// Tenant is one organization receiving messages on a dedicated channel number.
type Tenant struct {
	ID                string
	Name              string
	ChannelNumber     string
	DefaultProviderID uuid.UUID
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store resolves tenants from inbound webhook recipient addresses.
type Store struct {
	pool rowQuerier
}

func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("tenants: pgx pool required")
	}
	return &Store{pool: pool}
}

func newStoreWithQuerier(q rowQuerier) *Store {
	return &Store{pool: q}
}

// LookupByNumber finds the tenant that owns the recipient channel number.
func (s *Store) LookupByNumber(ctx context.Context, channelNumber string) (*Tenant, error) {
	var (
		t                 Tenant
		defaultProviderID *uuid.UUID
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, channel_number, default_provider_id
		FROM tenants
		WHERE channel_number = $1
	`, channelNumber).Scan(&t.ID, &t.Name, &t.ChannelNumber, &defaultProviderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tenants: lookup by number: %w", err)
	}
	if defaultProviderID != nil {
		t.DefaultProviderID = *defaultProviderID
	}
	return &t, nil
}
