package models

import "time"

// AuditAction constants represent security events recorded in the trail.
const (
	AuditActionRegister      = "REGISTER"
	AuditActionLogin         = "LOGIN"
	AuditActionLoginFailed   = "LOGIN_FAILED"
	AuditActionAccountLocked = "ACCOUNT_LOCKED"
	AuditActionLogout        = "LOGOUT"
	AuditActionLogoutAll     = "LOGOUT_ALL"
	AuditActionRoleGranted   = "ROLE_GRANTED"
	AuditActionRoleRevoked   = "ROLE_REVOKED"
)

// AuditLog represents one security-trail record. Failed logins carry a nil
// AccountID when the email was unknown.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	AccountID *string   `db:"account_id" json:"account_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	Detail    string    `db:"detail" json:"detail,omitempty"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AuditFilter limits report queries to a window and optionally one account.
type AuditFilter struct {
	AccountID string
	From      time.Time
	To        time.Time
	Limit     int
}
