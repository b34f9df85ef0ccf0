package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aakarshsak/ecom-price-tracker/internal/models"
)

func permissionsJSON(t *testing.T, p models.RolePermissions) []byte {
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return raw
}

func TestRoleFindByName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	now := time.Now()
	perms := permissionsJSON(t, models.RolePermissions{CanTrade: true, CanWithdraw: true})
	rows := sqlmock.NewRows([]string{"id", "name", "description", "permissions", "active", "created_at", "updated_at"}).
		AddRow("role-1", models.RoleTrader, "Active Trader", perms, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, permissions, active, created_at, updated_at FROM roles WHERE name = $1 LIMIT 1")).
		WithArgs(models.RoleTrader).
		WillReturnRows(rows)

	role, err := repo.FindByName(context.Background(), models.RoleTrader)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTrader, role.Name)
	assert.True(t, role.Permissions.CanTrade)
	assert.True(t, role.Permissions.CanWithdraw)
	assert.False(t, role.Permissions.CanManageUsers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleAssignmentsForAccount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	expired := time.Now().Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"role_name", "permissions", "role_active", "active", "expires_at"}).
		AddRow(models.RoleTrader, permissionsJSON(t, models.RolePermissions{CanTrade: true}), true, true, nil).
		AddRow(models.RoleAdmin, permissionsJSON(t, models.RolePermissions{CanManageUsers: true}), true, true, &expired)
	mock.ExpectQuery("SELECT r.name AS role_name").
		WithArgs("acc-1").
		WillReturnRows(rows)

	assigned, err := repo.AssignmentsForAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	require.Len(t, assigned, 2)
	assert.Equal(t, models.RoleTrader, assigned[0].RoleName)
	require.NotNil(t, assigned[1].ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleAssign(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	granter := "admin-1"
	mock.ExpectExec("INSERT INTO role_assignments").
		WithArgs("acc-1", "role-1", sqlmock.AnyArg(), &granter).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Assign(context.Background(), "acc-1", "role-1", &granter))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleCreateSeedRoundTrip(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	for range models.SeedRoles() {
		mock.ExpectExec("INSERT INTO roles").WillReturnResult(sqlmock.NewResult(1, 1))
	}

	for _, seed := range models.SeedRoles() {
		role := seed
		require.NoError(t, repo.Create(context.Background(), &role))
		assert.NotEmpty(t, role.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
