package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aakarshsak/ecom-price-tracker/internal/models"
)

const credentialColumns = `id, email, password_hash, email_verified, phone_verified, twofa_enabled, totp_secret, failed_attempts, locked_until, last_login, last_password_change, created_at, updated_at`

// CredentialRepository provides database access for auth credentials.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository creates a new instance of CredentialRepository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// FindByEmail returns a credential by (already normalized) email address.
func (r *CredentialRepository) FindByEmail(ctx context.Context, email string) (*models.AuthCredential, error) {
	query := fmt.Sprintf(`SELECT %s FROM auth_credentials WHERE email = $1 LIMIT 1`, credentialColumns)
	var cred models.AuthCredential
	if err := r.db.GetContext(ctx, &cred, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find credential by email: %w", err)
	}
	return &cred, nil
}

// FindByID returns a credential by identifier.
func (r *CredentialRepository) FindByID(ctx context.Context, id string) (*models.AuthCredential, error) {
	query := fmt.Sprintf(`SELECT %s FROM auth_credentials WHERE id = $1 LIMIT 1`, credentialColumns)
	var cred models.AuthCredential
	if err := r.db.GetContext(ctx, &cred, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find credential by id: %w", err)
	}
	return &cred, nil
}

// ExistsByEmail reports whether a credential with the email is registered.
func (r *CredentialRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM auth_credentials WHERE email = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return exists, nil
}

// Create inserts a new credential and fills in generated fields.
func (r *CredentialRepository) Create(ctx context.Context, cred *models.AuthCredential) error {
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now
	if cred.LastPasswordChange == nil {
		cred.LastPasswordChange = &now
	}

	const query = `INSERT INTO auth_credentials (id, email, password_hash, email_verified, phone_verified, twofa_enabled, totp_secret, failed_attempts, locked_until, last_password_change, created_at, updated_at) VALUES (:id, :email, :password_hash, :email_verified, :phone_verified, :twofa_enabled, :totp_secret, :failed_attempts, :locked_until, :last_password_change, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cred); err != nil {
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

// RecordLoginFailure bumps the failed-attempt counter and, when the lockout
// threshold was reached, stamps the lockout expiry in the same statement.
func (r *CredentialRepository) RecordLoginFailure(ctx context.Context, id string, attempts int, lockedUntil *time.Time) error {
	const query = `UPDATE auth_credentials SET failed_attempts = $2, locked_until = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, attempts, lockedUntil, time.Now().UTC()); err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}
	return nil
}

// RecordLoginSuccess atomically resets the failure counter, clears any
// lockout and stamps last_login.
func (r *CredentialRepository) RecordLoginSuccess(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE auth_credentials SET failed_attempts = 0, locked_until = NULL, last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return fmt.Errorf("record login success: %w", err)
	}
	return nil
}
