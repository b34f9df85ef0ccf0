package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aakarshsak/ecom-price-tracker/internal/models"
	appErrors "github.com/aakarshsak/ecom-price-tracker/pkg/errors"
)

type mockRoleRepo struct {
	roles       map[string]*models.Role
	assignments map[string][]models.AssignedRole

	created []string
	granted [][2]string
	removed [][2]string
}

func (m *mockRoleRepo) FindByName(ctx context.Context, name string) (*models.Role, error) {
	role, ok := m.roles[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return role, nil
}

func (m *mockRoleRepo) ListActive(ctx context.Context) ([]models.Role, error) {
	out := make([]models.Role, 0, len(m.roles))
	for _, role := range m.roles {
		if role.Active {
			out = append(out, *role)
		}
	}
	return out, nil
}

func (m *mockRoleRepo) Count(ctx context.Context) (int, error) {
	return len(m.roles), nil
}

func (m *mockRoleRepo) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = "role-" + role.Name
	}
	if m.roles == nil {
		m.roles = make(map[string]*models.Role)
	}
	m.roles[role.Name] = role
	m.created = append(m.created, role.Name)
	return nil
}

func (m *mockRoleRepo) AssignmentsForAccount(ctx context.Context, accountID string) ([]models.AssignedRole, error) {
	return m.assignments[accountID], nil
}

func (m *mockRoleRepo) Assign(ctx context.Context, accountID, roleID string, grantedBy *string) error {
	m.granted = append(m.granted, [2]string{accountID, roleID})
	return nil
}

func (m *mockRoleRepo) Remove(ctx context.Context, accountID, roleID string) error {
	m.removed = append(m.removed, [2]string{accountID, roleID})
	return nil
}

func TestResolveUnionsPermissionsAcrossRoles(t *testing.T) {
	repo := &mockRoleRepo{
		assignments: map[string][]models.AssignedRole{
			"acc-1": {
				{RoleName: models.RoleTrader, Permissions: models.RolePermissions{CanTrade: true, CanAccessAPI: true}, RoleActive: true, Active: true},
				{RoleName: models.RoleUser, Permissions: models.RolePermissions{}, RoleActive: true, Active: true},
				{RoleName: models.RoleAdmin, Permissions: models.RolePermissions{CanManageUsers: true, CanAccessAPI: true}, RoleActive: true, Active: true},
			},
		},
	}
	svc := NewRoleService(repo, &mockAudit{}, nil, nil)

	roles, permissions, err := svc.Resolve(context.Background(), "acc-1")
	require.NoError(t, err)

	assert.Equal(t, []string{models.RoleAdmin, models.RoleTrader, models.RoleUser}, roles)
	assert.Equal(t, []string{models.PermissionTrade, models.PermissionManageUsers, models.PermissionAccessAPI}, permissions)
}

func TestResolveSkipsExpiredAndInactiveEdges(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	repo := &mockRoleRepo{
		assignments: map[string][]models.AssignedRole{
			"acc-1": {
				{RoleName: models.RoleAdmin, Permissions: models.RolePermissions{CanManageUsers: true}, RoleActive: true, Active: true, ExpiresAt: &expired},
				{RoleName: models.RoleTrader, Permissions: models.RolePermissions{CanTrade: true}, RoleActive: true, Active: false},
				{RoleName: "ROLE_LEGACY", Permissions: models.RolePermissions{CanWithdraw: true}, RoleActive: false, Active: true},
				{RoleName: models.RoleUser, Permissions: models.RolePermissions{}, RoleActive: true, Active: true, ExpiresAt: &future},
			},
		},
	}
	svc := NewRoleService(repo, &mockAudit{}, nil, nil)

	roles, permissions, err := svc.Resolve(context.Background(), "acc-1")
	require.NoError(t, err)

	assert.Equal(t, []string{models.RoleUser}, roles)
	assert.Empty(t, permissions)
}

func TestResolveNoAssignments(t *testing.T) {
	svc := NewRoleService(&mockRoleRepo{}, &mockAudit{}, nil, nil)

	roles, permissions, err := svc.Resolve(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Empty(t, roles)
	assert.Empty(t, permissions)
}

func TestHasPermissionCaseInsensitiveAndUnknownFalse(t *testing.T) {
	repo := &mockRoleRepo{
		assignments: map[string][]models.AssignedRole{
			"acc-1": {
				{RoleName: models.RoleTrader, Permissions: models.RolePermissions{CanTrade: true}, RoleActive: true, Active: true},
			},
		},
	}
	svc := NewRoleService(repo, &mockAudit{}, nil, nil)

	ok, err := svc.HasPermission(context.Background(), "acc-1", "trade")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasPermission(context.Background(), "acc-1", "WITHDRAW")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasPermission(context.Background(), "acc-1", "LAUNCH_MISSILES")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSeedCreatesBootstrapRolesOnce(t *testing.T) {
	repo := &mockRoleRepo{roles: map[string]*models.Role{}}
	svc := NewRoleService(repo, &mockAudit{}, nil, nil)

	require.NoError(t, svc.Seed(context.Background()))
	assert.ElementsMatch(t, []string{models.RoleAdmin, models.RoleTrader, models.RoleUser}, repo.created)

	require.NoError(t, svc.Seed(context.Background()))
	assert.Len(t, repo.created, 3)
}

func TestSeedFailsWhenDefaultRoleMissing(t *testing.T) {
	repo := &mockRoleRepo{roles: map[string]*models.Role{
		models.RoleAdmin: {ID: "role-1", Name: models.RoleAdmin, Active: true},
	}}
	svc := NewRoleService(repo, &mockAudit{}, nil, nil)

	err := svc.Seed(context.Background())
	assert.True(t, appErrors.Is(err, appErrors.ErrDefaultRoleMissing))
}

func TestAssignUnknownRole(t *testing.T) {
	svc := NewRoleService(&mockRoleRepo{}, &mockAudit{}, nil, nil)

	err := svc.Assign(context.Background(), "admin-1", models.AssignRoleRequest{
		AccountID: "8b7f6f7e-0d5b-4a51-a52a-0dc9f0c3a111",
		RoleName:  "ROLE_GHOST",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrRoleNotFound))
}

func TestAssignRecordsAudit(t *testing.T) {
	repo := &mockRoleRepo{roles: map[string]*models.Role{
		models.RoleTrader: {ID: "role-trader", Name: models.RoleTrader, Active: true},
	}}
	audit := &mockAudit{}
	svc := NewRoleService(repo, audit, nil, nil)

	require.NoError(t, svc.Assign(context.Background(), "admin-1", models.AssignRoleRequest{
		AccountID: "8b7f6f7e-0d5b-4a51-a52a-0dc9f0c3a111",
		RoleName:  models.RoleTrader,
	}))
	require.Len(t, repo.granted, 1)
	assert.Contains(t, audit.actions(), models.AuditActionRoleGranted)
}

func TestAssignDefaultMissingRole(t *testing.T) {
	svc := NewRoleService(&mockRoleRepo{}, &mockAudit{}, nil, nil)

	err := svc.AssignDefault(context.Background(), "acc-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrDefaultRoleMissing))
}

func TestRemoveRecordsAudit(t *testing.T) {
	repo := &mockRoleRepo{roles: map[string]*models.Role{
		models.RoleTrader: {ID: "role-trader", Name: models.RoleTrader, Active: true},
	}}
	audit := &mockAudit{}
	svc := NewRoleService(repo, audit, nil, nil)

	require.NoError(t, svc.Remove(context.Background(), "admin-1", models.RemoveRoleRequest{
		AccountID: "8b7f6f7e-0d5b-4a51-a52a-0dc9f0c3a111",
		RoleName:  models.RoleTrader,
	}))
	require.Len(t, repo.removed, 1)
	assert.Contains(t, audit.actions(), models.AuditActionRoleRevoked)
}
