package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRolePermissionsNames(t *testing.T) {
	perms := RolePermissions{CanTrade: true, CanViewReports: true}
	assert.ElementsMatch(t, []string{PermissionTrade, PermissionViewReports}, perms.Names())

	assert.Empty(t, RolePermissions{}.Names())

	all := RolePermissions{
		CanTrade:        true,
		CanWithdraw:     true,
		CanManageUsers:  true,
		CanViewReports:  true,
		CanModifyOrders: true,
		CanAccessAPI:    true,
	}
	assert.Len(t, all.Names(), 6)
}

func TestRolePermissionsHas(t *testing.T) {
	perms := RolePermissions{CanWithdraw: true}

	assert.True(t, perms.Has("WITHDRAW"))
	assert.True(t, perms.Has("withdraw"))
	assert.True(t, perms.Has("Withdraw"))
	assert.False(t, perms.Has("TRADE"))
	// Unknown permission names are false, never an error.
	assert.False(t, perms.Has("LAUNCH_ROCKETS"))
	assert.False(t, perms.Has(""))
}

func TestRolePermissionsScanValue(t *testing.T) {
	perms := RolePermissions{CanTrade: true, CanAccessAPI: true}
	raw, err := perms.Value()
	require.NoError(t, err)

	var decoded RolePermissions
	require.NoError(t, decoded.Scan(raw))
	assert.Equal(t, perms, decoded)

	var fromNil RolePermissions
	require.NoError(t, fromNil.Scan(nil))
	assert.Equal(t, RolePermissions{}, fromNil)
}

func TestRoleAssignmentValid(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, RoleAssignment{Active: true}.Valid(now))
	assert.True(t, RoleAssignment{Active: true, ExpiresAt: &future}.Valid(now))
	assert.False(t, RoleAssignment{Active: true, ExpiresAt: &past}.Valid(now))
	assert.False(t, RoleAssignment{Active: false}.Valid(now))
}

func TestSeedRoles(t *testing.T) {
	seeds := SeedRoles()
	require.Len(t, seeds, 3)

	byName := map[string]Role{}
	for _, r := range seeds {
		byName[r.Name] = r
	}

	admin := byName[RoleAdmin]
	assert.Len(t, admin.Permissions.Names(), 6)

	trader := byName[RoleTrader]
	assert.True(t, trader.Permissions.CanTrade)
	assert.False(t, trader.Permissions.CanManageUsers)

	user := byName[RoleUser]
	assert.Empty(t, user.Permissions.Names())
}

func TestCredentialLocked(t *testing.T) {
	now := time.Now()
	future := now.Add(10 * time.Minute)
	past := now.Add(-time.Minute)

	assert.False(t, (&AuthCredential{}).Locked(now))
	assert.True(t, (&AuthCredential{LockedUntil: &future}).Locked(now))
	// Lockouts expire implicitly once the window passes.
	assert.False(t, (&AuthCredential{LockedUntil: &past}).Locked(now))
}

func TestRefreshTokenValid(t *testing.T) {
	now := time.Now()

	live := &RefreshToken{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, live.Valid(now))

	expired := &RefreshToken{ExpiresAt: now.Add(-time.Second)}
	assert.False(t, expired.Valid(now))

	revoked := &RefreshToken{ExpiresAt: now.Add(time.Hour), Revoked: true}
	assert.False(t, revoked.Valid(now))
}

func TestHashRefreshTokenStable(t *testing.T) {
	first := HashRefreshToken("raw-token")
	second := HashRefreshToken("raw-token")
	other := HashRefreshToken("raw-token-2")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.NotContains(t, first, "raw-token")
}
