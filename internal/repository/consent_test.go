package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHasSharingConsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewConsentRepository(db, zap.NewNop())
	ctx := context.Background()

	mock.ExpectQuery(`FROM consents`).WithArgs("granted", ConsentTypeDataSharing).
		WillReturnRows(sqlmock.NewRows([]string{"granted"}).AddRow(true))
	mock.ExpectQuery(`FROM consents`).WithArgs("revoked", ConsentTypeDataSharing).
		WillReturnRows(sqlmock.NewRows([]string{"granted"}).AddRow(false))
	mock.ExpectQuery(`FROM consents`).WithArgs("never", ConsentTypeDataSharing).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`FROM consents`).WithArgs("broken", ConsentTypeDataSharing).
		WillReturnError(errors.New("db down"))

	ok, err := repo.HasSharingConsent(ctx, "granted")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasSharingConsent(ctx, "revoked")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.HasSharingConsent(ctx, "never")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.HasSharingConsent(ctx, "broken")
	assert.Error(t, err)

	_, err = repo.HasSharingConsent(ctx, "")
	assert.Contains(t, err.Error(), "patient_id is required")

	require.NoError(t, mock.ExpectationsWereMet())
}
