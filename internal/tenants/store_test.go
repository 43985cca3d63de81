package tenants

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupByNumber(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	providerID := uuid.New()
	mock.ExpectQuery("SELECT id, name, channel_number, default_provider_id").
		WithArgs("+15559998888").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "channel_number", "default_provider_id"}).
			AddRow("tenant-1", "Downtown Clinic", "+15559998888", &providerID))

	store := newStoreWithQuerier(mock)
	tenant, err := store.LookupByNumber(context.Background(), "+15559998888")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", tenant.ID)
	assert.Equal(t, providerID, tenant.DefaultProviderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupByNumberMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, name, channel_number, default_provider_id").
		WithArgs("+15550000000").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "channel_number", "default_provider_id"}))

	store := newStoreWithQuerier(mock)
	_, err = store.LookupByNumber(context.Background(), "+15550000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupByNumberNoDefaultProvider(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, name, channel_number, default_provider_id").
		WithArgs("+15559998888").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "channel_number", "default_provider_id"}).
			AddRow("tenant-1", "Downtown Clinic", "+15559998888", (*uuid.UUID)(nil)))

	store := newStoreWithQuerier(mock)
	tenant, err := store.LookupByNumber(context.Background(), "+15559998888")
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, tenant.DefaultProviderID)
}
