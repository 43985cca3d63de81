package patients

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateByPhone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	created := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO patients").
		WithArgs(pgxmock.AnyArg(), "tenant-1", "+5551234567", "Jess").
		WillReturnRows(pgxmock.NewRows([]string{"id", "display_name", "created_at"}).
			AddRow(id, "Jess", created))

	store := newStoreWithQuerier(mock)
	patient, err := store.GetOrCreateByPhone(context.Background(), "tenant-1", "(555) 123-4567", "Jess")
	require.NoError(t, err)
	assert.Equal(t, id, patient.ID)
	assert.Equal(t, "+5551234567", patient.Phone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateByPhoneNormalizes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO patients").
		WithArgs(pgxmock.AnyArg(), "tenant-1", "+15551234567", "").
		WillReturnRows(pgxmock.NewRows([]string{"id", "display_name", "created_at"}).
			AddRow(uuid.New(), "", time.Now()))

	store := newStoreWithQuerier(mock)
	patient, err := store.GetOrCreateByPhone(context.Background(), "tenant-1", "+1 555 123 4567", "")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", patient.Phone)
}

func TestGetOrCreateByPhoneRequiresPhone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithQuerier(mock)
	_, err = store.GetOrCreateByPhone(context.Background(), "tenant-1", "n/a", "Jess")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
