package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aakarshsak/ecom-price-tracker/internal/models"
	"github.com/aakarshsak/ecom-price-tracker/internal/token"
	"github.com/aakarshsak/ecom-price-tracker/pkg/config"
	appErrors "github.com/aakarshsak/ecom-price-tracker/pkg/errors"
	"github.com/aakarshsak/ecom-price-tracker/pkg/password"
)

type mockCredRepo struct {
	byEmail map[string]*models.AuthCredential

	failureCalls    int
	lastAttempts    int
	lastLockedUntil *time.Time
	successCalls    int
}

func (m *mockCredRepo) FindByEmail(ctx context.Context, email string) (*models.AuthCredential, error) {
	if cred, ok := m.byEmail[email]; ok {
		return cred, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCredRepo) FindByID(ctx context.Context, id string) (*models.AuthCredential, error) {
	for _, cred := range m.byEmail {
		if cred.ID == id {
			return cred, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCredRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *mockCredRepo) Create(ctx context.Context, cred *models.AuthCredential) error {
	if cred.ID == "" {
		cred.ID = "acc-" + cred.Email
	}
	cred.CreatedAt = time.Now().UTC()
	if m.byEmail == nil {
		m.byEmail = make(map[string]*models.AuthCredential)
	}
	m.byEmail[cred.Email] = cred
	return nil
}

func (m *mockCredRepo) RecordLoginFailure(ctx context.Context, id string, attempts int, lockedUntil *time.Time) error {
	m.failureCalls++
	m.lastAttempts = attempts
	m.lastLockedUntil = lockedUntil
	for _, cred := range m.byEmail {
		if cred.ID == id {
			cred.FailedAttempts = attempts
			cred.LockedUntil = lockedUntil
		}
	}
	return nil
}

func (m *mockCredRepo) RecordLoginSuccess(ctx context.Context, id string, ts time.Time) error {
	m.successCalls++
	for _, cred := range m.byEmail {
		if cred.ID == id {
			cred.FailedAttempts = 0
			cred.LockedUntil = nil
			cred.LastLogin = &ts
		}
	}
	return nil
}

type mockTokenStore struct {
	byHash map[string]*models.RefreshToken
}

func (m *mockTokenStore) Create(ctx context.Context, rt *models.RefreshToken) error {
	if rt.ID == "" {
		rt.ID = "rt-" + rt.TokenHash[:8]
	}
	if m.byHash == nil {
		m.byHash = make(map[string]*models.RefreshToken)
	}
	m.byHash[rt.TokenHash] = rt
	return nil
}

func (m *mockTokenStore) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	rt, ok := m.byHash[hash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockTokenStore) RevokeAllForAccount(ctx context.Context, accountID string, revokedAt time.Time) error {
	for _, rt := range m.byHash {
		if rt.AccountID == accountID && !rt.Revoked {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
		}
	}
	return nil
}

type mockBlacklist struct {
	entries map[string]time.Time
	err     error
}

func (m *mockBlacklist) Blacklist(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if m.err != nil {
		return m.err
	}
	if m.entries == nil {
		m.entries = make(map[string]time.Time)
	}
	m.entries[tokenID] = expiresAt
	return nil
}

type mockResolver struct {
	roles       []string
	permissions []string
	defaulted   []string
}

func (m *mockResolver) Resolve(ctx context.Context, accountID string) ([]string, []string, error) {
	return m.roles, m.permissions, nil
}

func (m *mockResolver) AssignDefault(ctx context.Context, accountID string) error {
	m.defaulted = append(m.defaulted, accountID)
	return nil
}

type mockAudit struct {
	logs []*models.AuditLog
}

func (m *mockAudit) Create(ctx context.Context, entry *models.AuditLog) error {
	m.logs = append(m.logs, entry)
	return nil
}

func (m *mockAudit) actions() []string {
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

type authFixture struct {
	svc       *AuthService
	creds     *mockCredRepo
	tokens    *mockTokenStore
	blacklist *mockBlacklist
	resolver  *mockResolver
	audit     *mockAudit
	codec     *token.Codec
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	creds := &mockCredRepo{byEmail: map[string]*models.AuthCredential{}}
	tokens := &mockTokenStore{}
	blacklist := &mockBlacklist{}
	resolver := &mockResolver{roles: []string{models.RoleTrader}, permissions: []string{models.PermissionTrade, models.PermissionAccessAPI}}
	audit := &mockAudit{}
	codec := token.NewCodec(config.JWTConfig{
		Secret:        "test-secret",
		Issuer:        "test",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
	})

	svc := NewAuthService(
		creds, tokens, blacklist, resolver, audit, nil,
		password.NewBcryptHasher(bcrypt.MinCost),
		codec,
		nil,
		config.LockoutConfig{MaxFailedAttempts: 3, Duration: 15 * time.Minute},
		nil, nil,
	)
	return &authFixture{svc: svc, creds: creds, tokens: tokens, blacklist: blacklist, resolver: resolver, audit: audit, codec: codec}
}

func (f *authFixture) seedCredential(t *testing.T, email, plaintext string) *models.AuthCredential {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	require.NoError(t, err)
	cred := &models.AuthCredential{ID: "acc-1", Email: email, PasswordHash: string(hash), CreatedAt: time.Now().UTC()}
	f.creds.byEmail[email] = cred
	return cred
}

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t)
	f.seedCredential(t, "trader@example.com", "correct horse")

	res, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "trader@example.com", Password: "correct horse"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.False(t, res.Requires2FA)
	assert.Equal(t, []string{models.RoleTrader}, res.User.Roles)
	assert.Equal(t, 1, f.creds.successCalls)
	assert.Len(t, f.tokens.byHash, 1)
	assert.Contains(t, f.audit.actions(), models.AuditActionLogin)
}

func TestLoginNormalizesEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.seedCredential(t, "trader@example.com", "correct horse")

	_, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "  Trader@Example.COM ", Password: "correct horse"})
	require.NoError(t, err)
}

func TestLoginUnknownEmailMatchesWrongPasswordError(t *testing.T) {
	f := newAuthFixture(t)
	f.seedCredential(t, "trader@example.com", "correct horse")

	_, errUnknown := f.svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	_, errWrongPass := f.svc.Login(context.Background(), models.LoginRequest{Email: "trader@example.com", Password: "nope"})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPass)
	assert.True(t, appErrors.Is(errUnknown, appErrors.ErrInvalidCredentials))
	assert.True(t, appErrors.Is(errWrongPass, appErrors.ErrInvalidCredentials))
	assert.Equal(t, appErrors.FromError(errUnknown).Message, appErrors.FromError(errWrongPass).Message)
}

func TestLoginFailureCountsUpToLockout(t *testing.T) {
	f := newAuthFixture(t)
	f.seedCredential(t, "trader@example.com", "correct horse")

	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "trader@example.com", Password: "nope"})
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
		assert.Nil(t, f.creds.lastLockedUntil)
	}

	_, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "trader@example.com", Password: "nope"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
	assert.Equal(t, 3, f.creds.lastAttempts)
	require.NotNil(t, f.creds.lastLockedUntil)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), *f.creds.lastLockedUntil, 2*time.Second)
	assert.Contains(t, f.audit.actions(), models.AuditActionAccountLocked)
}

func TestLoginLockedAccountRejectedWithoutCounterTouch(t *testing.T) {
	f := newAuthFixture(t)
	cred := f.seedCredential(t, "trader@example.com", "correct horse")
	until := time.Now().Add(10 * time.Minute)
	cred.LockedUntil = &until
	cred.FailedAttempts = 3

	_, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "trader@example.com", Password: "correct horse"})
	assert.True(t, appErrors.Is(err, appErrors.ErrAccountLocked))
	assert.Equal(t, 0, f.creds.failureCalls)
	assert.Equal(t, 0, f.creds.successCalls)
}

func TestLoginLockoutExpiresImplicitly(t *testing.T) {
	f := newAuthFixture(t)
	cred := f.seedCredential(t, "trader@example.com", "correct horse")
	past := time.Now().Add(-time.Minute)
	cred.LockedUntil = &past
	cred.FailedAttempts = 3

	res, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "trader@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, 0, cred.FailedAttempts)
	assert.Nil(t, cred.LockedUntil)
}

func TestLoginTwoFAShortCircuit(t *testing.T) {
	f := newAuthFixture(t)
	cred := f.seedCredential(t, "trader@example.com", "correct horse")
	cred.TwoFAEnabled = true

	res, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "trader@example.com", Password: "correct horse"})
	require.NoError(t, err)

	assert.True(t, res.Requires2FA)
	assert.NotEmpty(t, res.TempToken)
	assert.Empty(t, res.AccessToken)
	assert.Empty(t, res.RefreshToken)
	assert.Empty(t, f.tokens.byHash)
}

func TestRegisterIssuesSessionAndDefaultRole(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.Register(context.Background(), models.RegisterRequest{Email: "New@Example.com", Password: "longenough"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "new@example.com", res.User.Email)
	require.Len(t, f.resolver.defaulted, 1)
	assert.Contains(t, f.audit.actions(), models.AuditActionRegister)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.seedCredential(t, "taken@example.com", "whatever1")

	_, err := f.svc.Register(context.Background(), models.RegisterRequest{Email: "Taken@example.com", Password: "longenough"})
	assert.True(t, appErrors.Is(err, appErrors.ErrEmailTaken))
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedCredential(t, "trader@example.com", "correct horse")

	login, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "trader@example.com", Password: "correct horse"})
	require.NoError(t, err)

	f.resolver.roles = []string{models.RoleAdmin}
	f.resolver.permissions = []string{models.PermissionManageUsers}

	res, err := f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)

	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, login.RefreshToken, res.RefreshToken)

	claims, err := f.codec.Verify(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleAdmin}, claims.Roles)
	assert.Equal(t, []string{models.PermissionManageUsers}, claims.Permissions)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedCredential(t, "trader@example.com", "correct horse")

	login, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "trader@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.AccessToken})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidToken))
}

func TestRefreshUnknownToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedCredential(t, "trader@example.com", "correct horse")

	raw, _, _, err := f.codec.IssueRefresh("acc-1")
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: raw})
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenNotFound))
}

func TestRefreshRevokedToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedCredential(t, "trader@example.com", "correct horse")

	login, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "trader@example.com", Password: "correct horse"})
	require.NoError(t, err)

	require.NoError(t, f.tokens.RevokeAllForAccount(context.Background(), "acc-1", time.Now().UTC()))

	_, err = f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenRevoked))
}

func TestRefreshOwnerMismatch(t *testing.T) {
	f := newAuthFixture(t)
	f.seedCredential(t, "trader@example.com", "correct horse")

	raw, _, expiresAt, err := f.codec.IssueRefresh("acc-1")
	require.NoError(t, err)
	require.NoError(t, f.tokens.Create(context.Background(), &models.RefreshToken{
		AccountID: "someone-else",
		TokenHash: models.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
	}))

	_, err = f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: raw})
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenOwnerMismatch))
}

func TestLogoutBlacklistsAndRevokes(t *testing.T) {
	f := newAuthFixture(t)
	f.seedCredential(t, "trader@example.com", "correct horse")

	login, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "trader@example.com", Password: "correct horse"})
	require.NoError(t, err)

	claims, err := f.codec.Verify(login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), claims, "127.0.0.1", "test"))

	_, blacklisted := f.blacklist.entries[claims.TokenID()]
	assert.True(t, blacklisted)

	_, err = f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenRevoked))
	assert.Contains(t, f.audit.actions(), models.AuditActionLogout)
}

func TestLogoutAllRevokesRefreshOnly(t *testing.T) {
	f := newAuthFixture(t)
	f.seedCredential(t, "trader@example.com", "correct horse")

	login, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "trader@example.com", Password: "correct horse"})
	require.NoError(t, err)

	require.NoError(t, f.svc.LogoutAll(context.Background(), "acc-1", "127.0.0.1", "test"))

	assert.Empty(t, f.blacklist.entries)
	_, err = f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: login.RefreshToken})
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenRevoked))
	assert.Contains(t, f.audit.actions(), models.AuditActionLogoutAll)
}

func TestMeResolvesFreshAuthorization(t *testing.T) {
	f := newAuthFixture(t)
	f.seedCredential(t, "trader@example.com", "correct horse")

	info, err := f.svc.Me(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "trader@example.com", info.Email)
	assert.Equal(t, []string{models.RoleTrader}, info.Roles)
}
