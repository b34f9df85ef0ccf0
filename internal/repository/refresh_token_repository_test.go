package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aakarshsak/ecom-price-tracker/internal/models"
)

func TestRefreshTokenCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	rt := &models.RefreshToken{
		AccountID: "acc-1",
		TokenHash: models.HashRefreshToken("raw"),
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), rt))
	assert.NotEmpty(t, rt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenFindByHash(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "account_id", "token_hash", "device_info", "ip_address", "expires_at", "revoked", "revoked_at", "created_at"}).
		AddRow("rt-1", "acc-1", "hash", "", "127.0.0.1", now.Add(time.Hour), false, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, account_id, token_hash, device_info, ip_address, expires_at, revoked, revoked_at, created_at FROM refresh_tokens WHERE token_hash = $1 LIMIT 1")).
		WithArgs("hash").
		WillReturnRows(rows)

	rt, err := repo.FindByHash(context.Background(), "hash")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", rt.AccountID)
	assert.True(t, rt.Valid(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRevoke(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE token_hash = $1 AND revoked = FALSE")).
		WithArgs("hash", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Revoke(context.Background(), "hash", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRevokeAllForAccount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE account_id = $1 AND revoked = FALSE")).
		WithArgs("acc-1", at).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.RevokeAllForAccount(context.Background(), "acc-1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
