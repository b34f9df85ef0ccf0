package models

import (
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// RefreshToken is the persisted record for an issued refresh token. Only
// the SHA-256 hash of the raw token is stored; the raw value never touches
// the database.
type RefreshToken struct {
	ID         string     `db:"id" json:"id"`
	AccountID  string     `db:"account_id" json:"account_id"`
	TokenHash  string     `db:"token_hash" json:"-"`
	DeviceInfo string     `db:"device_info" json:"device_info,omitempty"`
	IPAddress  string     `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	Revoked    bool       `db:"revoked" json:"revoked"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Valid reports whether the record may still be exchanged for access tokens.
func (t *RefreshToken) Valid(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// HashRefreshToken derives the storage key for a raw refresh token.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.StdEncoding.EncodeToString(sum[:])
}
