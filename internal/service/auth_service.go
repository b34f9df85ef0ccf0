package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aakarshsak/ecom-price-tracker/internal/models"
	"github.com/aakarshsak/ecom-price-tracker/internal/token"
	"github.com/aakarshsak/ecom-price-tracker/pkg/config"
	appErrors "github.com/aakarshsak/ecom-price-tracker/pkg/errors"
	"github.com/aakarshsak/ecom-price-tracker/pkg/password"
)

type credentialRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.AuthCredential, error)
	FindByID(ctx context.Context, id string) (*models.AuthCredential, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, cred *models.AuthCredential) error
	RecordLoginFailure(ctx context.Context, id string, attempts int, lockedUntil *time.Time) error
	RecordLoginSuccess(ctx context.Context, id string, ts time.Time) error
}

type refreshTokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	RevokeAllForAccount(ctx context.Context, accountID string, revokedAt time.Time) error
}

type revocationStore interface {
	Blacklist(ctx context.Context, tokenID string, expiresAt time.Time) error
}

type authorizationResolver interface {
	Resolve(ctx context.Context, accountID string) ([]string, []string, error)
	AssignDefault(ctx context.Context, accountID string) error
}

type profileNotifier interface {
	CreateProfile(ctx context.Context, accountID, email string) error
}

// AuthService owns the session lifecycle: registration, login with lockout
// protection, token refresh and revocation.
type AuthService struct {
	creds     credentialRepository
	tokens    refreshTokenStore
	blacklist revocationStore
	roles     authorizationResolver
	audit     auditRecorder
	profile   profileNotifier
	hasher    password.Hasher
	codec     *token.Codec
	metrics   *MetricsService
	lockout   config.LockoutConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance. profile and metrics may
// be nil; both are optional collaborators.
func NewAuthService(
	creds credentialRepository,
	tokens refreshTokenStore,
	blacklist revocationStore,
	roles authorizationResolver,
	audit auditRecorder,
	profile profileNotifier,
	hasher password.Hasher,
	codec *token.Codec,
	metrics *MetricsService,
	lockout config.LockoutConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if lockout.MaxFailedAttempts <= 0 {
		lockout.MaxFailedAttempts = 5
	}
	if lockout.Duration <= 0 {
		lockout.Duration = 15 * time.Minute
	}
	return &AuthService{
		creds:     creds,
		tokens:    tokens,
		blacklist: blacklist,
		roles:     roles,
		audit:     audit,
		profile:   profile,
		hasher:    hasher,
		codec:     codec,
		metrics:   metrics,
		lockout:   lockout,
		validator: validate,
		logger:    logger,
	}
}

// Register creates a credential, attaches the default role and issues a
// session. A new registration is implicitly logged in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid register payload")
	}

	email := normalizeEmail(req.Email)

	exists, err := s.creds.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrEmailTaken, "")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	cred := &models.AuthCredential{Email: email, PasswordHash: hash}
	if err := s.creds.Create(ctx, cred); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create credential")
	}

	if err := s.roles.AssignDefault(ctx, cred.ID); err != nil {
		return nil, err
	}

	if s.profile != nil {
		if err := s.profile.CreateProfile(ctx, cred.ID, cred.Email); err != nil {
			s.logger.Warn("profile provisioning failed", zap.String("account_id", cred.ID), zap.Error(err))
		}
	}

	if err := s.audit.Create(ctx, &models.AuditLog{
		AccountID: &cred.ID,
		Action:    models.AuditActionRegister,
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record register audit log", zap.Error(err))
	}

	return s.issueSession(ctx, cred, req.IP, req.UserAgent)
}

// Login authenticates credentials under the lockout state machine. Unknown
// email and wrong password produce the same error; a locked account is
// rejected without touching the failure counter.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	email := normalizeEmail(req.Email)
	now := time.Now().UTC()

	cred, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordLoginFailure()
			s.recordAudit(ctx, nil, models.AuditActionLoginFailed, "unknown email", req.IP, req.UserAgent)
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch credential")
	}

	if cred.Locked(now) {
		s.recordAudit(ctx, &cred.ID, models.AuditActionLoginFailed, "account locked", req.IP, req.UserAgent)
		return nil, appErrors.Clone(appErrors.ErrAccountLocked, "")
	}

	if !s.hasher.Matches(req.Password, cred.PasswordHash) {
		attempts := cred.FailedAttempts + 1
		var lockedUntil *time.Time
		if attempts >= s.lockout.MaxFailedAttempts {
			until := now.Add(s.lockout.Duration)
			lockedUntil = &until
		}
		if err := s.creds.RecordLoginFailure(ctx, cred.ID, attempts, lockedUntil); err != nil {
			s.logger.Error("failed to record login failure", zap.String("account_id", cred.ID), zap.Error(err))
		}
		s.metrics.RecordLoginFailure()
		s.recordAudit(ctx, &cred.ID, models.AuditActionLoginFailed, "wrong password", req.IP, req.UserAgent)
		if lockedUntil != nil {
			s.metrics.RecordAccountLockout()
			s.recordAudit(ctx, &cred.ID, models.AuditActionAccountLocked, "", req.IP, req.UserAgent)
			s.logger.Warn("account locked", zap.String("account_id", cred.ID), zap.Time("locked_until", *lockedUntil))
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	if err := s.creds.RecordLoginSuccess(ctx, cred.ID, now); err != nil {
		s.logger.Warn("failed to reset lockout state", zap.String("account_id", cred.ID), zap.Error(err))
	}

	if cred.TwoFAEnabled {
		temp, err := randomToken()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create temp token")
		}
		return &models.AuthResponse{
			Requires2FA: true,
			TempToken:   temp,
			User:        userInfo(cred, nil, nil),
			IssuedAt:    now,
		}, nil
	}

	s.recordAudit(ctx, &cred.ID, models.AuditActionLogin, "", req.IP, req.UserAgent)
	return s.issueSession(ctx, cred, req.IP, req.UserAgent)
}

// Refresh exchanges a valid refresh token for a fresh access token. Roles
// and permissions are re-resolved so authorization changes propagate; the
// refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest) (*models.RefreshResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	claims, err := s.codec.Verify(req.RefreshToken)
	if err != nil {
		s.metrics.RecordTokenRejection("invalid")
		return nil, err
	}
	if claims.TokenType != token.TypeRefresh {
		s.metrics.RecordTokenRejection("wrong_type")
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "not a refresh token")
	}

	stored, err := s.tokens.FindByHash(ctx, models.HashRefreshToken(req.RefreshToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordTokenRejection("unknown")
			return nil, appErrors.Clone(appErrors.ErrTokenNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch refresh token")
	}

	now := time.Now().UTC()
	if !stored.Valid(now) {
		s.metrics.RecordTokenRejection("revoked")
		return nil, appErrors.Clone(appErrors.ErrTokenRevoked, "")
	}
	if stored.AccountID != claims.SubjectID() {
		s.metrics.RecordTokenRejection("owner_mismatch")
		return nil, appErrors.Clone(appErrors.ErrTokenOwnerMismatch, "")
	}

	cred, err := s.creds.FindByID(ctx, stored.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidToken, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load credential")
	}

	roles, permissions, err := s.roles.Resolve(ctx, cred.ID)
	if err != nil {
		return nil, err
	}

	accessToken, _, _, err := s.codec.IssueAccess(cred.ID, cred.Email, roles, permissions)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}

	return &models.RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: req.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.codec.AccessTTL().Seconds()),
		IssuedAt:     now,
	}, nil
}

// Logout ends the presented session: the access token id goes on the
// blacklist until its natural expiry and every refresh token the account
// holds is revoked. A logged-out session must not be refreshable.
func (s *AuthService) Logout(ctx context.Context, claims *token.Claims, ip, userAgent string) error {
	accountID := claims.SubjectID()

	if err := s.blacklist.Blacklist(ctx, claims.TokenID(), claims.Expiry()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to blacklist token")
	}

	if err := s.tokens.RevokeAllForAccount(ctx, accountID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh tokens")
	}

	s.recordAudit(ctx, &accountID, models.AuditActionLogout, "", ip, userAgent)
	return nil
}

// LogoutAll revokes every refresh token for the account. Outstanding access
// tokens stay valid until expiry; their ids are not known to the server.
func (s *AuthService) LogoutAll(ctx context.Context, accountID, ip, userAgent string) error {
	if err := s.tokens.RevokeAllForAccount(ctx, accountID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh tokens")
	}
	s.recordAudit(ctx, &accountID, models.AuditActionLogoutAll, "", ip, userAgent)
	return nil
}

// Me returns the authenticated account with freshly resolved authorization
// state.
func (s *AuthService) Me(ctx context.Context, accountID string) (*models.UserInfo, error) {
	cred, err := s.creds.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load credential")
	}

	roles, permissions, err := s.roles.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}
	info := userInfo(cred, roles, permissions)
	return &info, nil
}

// ForgotPassword initiates the reset flow. Delivery is handled out of band.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid forgot password payload")
	}
	s.logger.Info("password reset requested", zap.String("email", normalizeEmail(req.Email)))
	return nil
}

// ResetPassword completes the reset flow.
func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reset password payload")
	}
	s.logger.Info("reset password token consumed")
	return nil
}

// VerifyEmail confirms an email verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, req models.VerifyEmailRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verify email payload")
	}
	s.logger.Info("email verification token consumed")
	return nil
}

func (s *AuthService) issueSession(ctx context.Context, cred *models.AuthCredential, ip, userAgent string) (*models.AuthResponse, error) {
	roles, permissions, err := s.roles.Resolve(ctx, cred.ID)
	if err != nil {
		return nil, err
	}

	accessToken, _, _, err := s.codec.IssueAccess(cred.ID, cred.Email, roles, permissions)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}

	refreshToken, _, refreshExpiry, err := s.codec.IssueRefresh(cred.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign refresh token")
	}

	record := &models.RefreshToken{
		AccountID:  cred.ID,
		TokenHash:  models.HashRefreshToken(refreshToken),
		DeviceInfo: userAgent,
		IPAddress:  ip,
		ExpiresAt:  refreshExpiry,
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	return &models.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.codec.AccessTTL().Seconds()),
		User:         userInfo(cred, roles, permissions),
		IssuedAt:     time.Now().UTC(),
	}, nil
}

func (s *AuthService) recordAudit(ctx context.Context, accountID *string, action, detail, ip, userAgent string) {
	if err := s.audit.Create(ctx, &models.AuditLog{
		AccountID: accountID,
		Action:    action,
		Detail:    detail,
		IPAddress: ip,
		UserAgent: userAgent,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func userInfo(cred *models.AuthCredential, roles, permissions []string) models.UserInfo {
	return models.UserInfo{
		UserID:        cred.ID,
		Email:         cred.Email,
		Roles:         roles,
		Permissions:   permissions,
		EmailVerified: cred.EmailVerified,
		PhoneVerified: cred.PhoneVerified,
		TwoFAEnabled:  cred.TwoFAEnabled,
		CreatedAt:     cred.CreatedAt,
		LastLogin:     cred.LastLogin,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
