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

// RoleRepository provides database access for roles and role assignments.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository creates a new instance of RoleRepository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindByName returns a role by its unique name.
func (r *RoleRepository) FindByName(ctx context.Context, name string) (*models.Role, error) {
	const query = `SELECT id, name, description, permissions, active, created_at, updated_at FROM roles WHERE name = $1 LIMIT 1`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find role by name: %w", err)
	}
	return &role, nil
}

// ListActive returns all active roles.
func (r *RoleRepository) ListActive(ctx context.Context) ([]models.Role, error) {
	const query = `SELECT id, name, description, permissions, active, created_at, updated_at FROM roles WHERE active = TRUE ORDER BY name`
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, fmt.Errorf("list active roles: %w", err)
	}
	return roles, nil
}

// Count returns the number of role rows; used to decide whether to seed.
func (r *RoleRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM roles`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count roles: %w", err)
	}
	return count, nil
}

// Create inserts a new role.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}
	role.UpdatedAt = now

	const query = `INSERT INTO roles (id, name, description, permissions, active, created_at, updated_at) VALUES (:id, :name, :description, :permissions, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, role); err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// AssignmentsForAccount returns every assignment edge for the account joined
// with its role. Validity (active flag, lazy expiry) is evaluated by the
// caller.
func (r *RoleRepository) AssignmentsForAccount(ctx context.Context, accountID string) ([]models.AssignedRole, error) {
	const query = `SELECT r.name AS role_name, r.permissions AS permissions, r.active AS role_active, ra.active AS active, ra.expires_at AS expires_at FROM role_assignments ra JOIN roles r ON r.id = ra.role_id WHERE ra.account_id = $1`
	var assigned []models.AssignedRole
	if err := r.db.SelectContext(ctx, &assigned, query, accountID); err != nil {
		return nil, fmt.Errorf("load role assignments: %w", err)
	}
	return assigned, nil
}

// Assign grants a role to an account, reactivating a previously revoked
// edge when one exists.
func (r *RoleRepository) Assign(ctx context.Context, accountID, roleID string, grantedBy *string) error {
	const query = `INSERT INTO role_assignments (account_id, role_id, granted_at, granted_by, active) VALUES ($1, $2, $3, $4, TRUE) ON CONFLICT (account_id, role_id) DO UPDATE SET active = TRUE, granted_at = $3, granted_by = $4, expires_at = NULL`
	if _, err := r.db.ExecContext(ctx, query, accountID, roleID, time.Now().UTC(), grantedBy); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// Remove revokes a role assignment.
func (r *RoleRepository) Remove(ctx context.Context, accountID, roleID string) error {
	const query = `UPDATE role_assignments SET active = FALSE WHERE account_id = $1 AND role_id = $2`
	if _, err := r.db.ExecContext(ctx, query, accountID, roleID); err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	return nil
}
