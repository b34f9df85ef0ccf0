package models

import "time"

// AuthCredential stores a registered identity's authentication material and
// account security state. It is owned by the auth service; the lockout
// fields are only ever mutated through its login path.
type AuthCredential struct {
	ID                 string     `db:"id" json:"id"`
	Email              string     `db:"email" json:"email"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	EmailVerified      bool       `db:"email_verified" json:"email_verified"`
	PhoneVerified      bool       `db:"phone_verified" json:"phone_verified"`
	TwoFAEnabled       bool       `db:"twofa_enabled" json:"twofa_enabled"`
	TOTPSecret         *string    `db:"totp_secret" json:"-"`
	FailedAttempts     int        `db:"failed_attempts" json:"-"`
	LockedUntil        *time.Time `db:"locked_until" json:"-"`
	LastLogin          *time.Time `db:"last_login" json:"last_login,omitempty"`
	LastPasswordChange *time.Time `db:"last_password_change" json:"-"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Locked reports whether the account is inside an active lockout window.
// Lockouts expire implicitly; no sweep clears locked_until.
func (c *AuthCredential) Locked(now time.Time) bool {
	return c.LockedUntil != nil && c.LockedUntil.After(now)
}
