package models

import "time"

// RegisterRequest creates a new credential. Registration implicitly logs
// the user in, so the response carries a full token pair.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`

	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`

	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// AuthResponse returns the issued tokens and user info. When the account
// has 2FA enabled, Requires2FA is set, TempToken carries the hand-off token
// and the access/refresh fields stay empty.
type AuthResponse struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresIn    int64     `json:"expires_in,omitempty"`
	User         UserInfo  `json:"user"`
	Requires2FA  bool      `json:"requires_2fa"`
	TempToken    string    `json:"temp_token,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`

	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RefreshResponse returns the re-issued access token. The refresh token is
// echoed back unchanged; rotation is a hardening backlog item.
type RefreshResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ForgotPasswordRequest starts the password reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes the password reset flow.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// VerifyEmailRequest confirms ownership of a registered email address.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// UserInfo describes the authenticated account in responses.
type UserInfo struct {
	UserID        string     `json:"user_id"`
	Email         string     `json:"email"`
	Roles         []string   `json:"roles,omitempty"`
	Permissions   []string   `json:"permissions,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	PhoneVerified bool       `json:"phone_verified"`
	TwoFAEnabled  bool       `json:"twofa_enabled"`
	CreatedAt     time.Time  `json:"created_at,omitempty"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

// AssignRoleRequest grants a role to an account.
type AssignRoleRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	RoleName  string `json:"role_name" validate:"required"`
}

// RemoveRoleRequest revokes a role from an account.
type RemoveRoleRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	RoleName  string `json:"role_name" validate:"required"`
}
