package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aakarshsak/ecom-price-tracker/internal/models"
	appErrors "github.com/aakarshsak/ecom-price-tracker/pkg/errors"
)

type roleRepository interface {
	FindByName(ctx context.Context, name string) (*models.Role, error)
	ListActive(ctx context.Context) ([]models.Role, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, role *models.Role) error
	AssignmentsForAccount(ctx context.Context, accountID string) ([]models.AssignedRole, error)
	Assign(ctx context.Context, accountID, roleID string, grantedBy *string) error
	Remove(ctx context.Context, accountID, roleID string) error
}

type auditRecorder interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// canonicalPermissionOrder fixes the order permissions appear in tokens and
// responses so repeated resolutions of the same account compare equal.
var canonicalPermissionOrder = []string{
	models.PermissionTrade,
	models.PermissionWithdraw,
	models.PermissionManageUsers,
	models.PermissionViewReports,
	models.PermissionModifyOrders,
	models.PermissionAccessAPI,
}

// RoleService resolves effective authorization state for accounts and
// administers role assignments.
type RoleService struct {
	repo      roleRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoleService constructs a RoleService instance.
func NewRoleService(repo roleRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RoleService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Seed creates the bootstrap role set when the roles table is empty, then
// verifies the default registration role exists. A missing default role is
// fatal; registration cannot function without it.
func (s *RoleService) Seed(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count roles")
	}

	if count == 0 {
		for _, seed := range models.SeedRoles() {
			role := seed
			if err := s.repo.Create(ctx, &role); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed role "+role.Name)
			}
			s.logger.Info("seeded role", zap.String("role", role.Name))
		}
	}

	if _, err := s.repo.FindByName(ctx, models.DefaultRole); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrDefaultRoleMissing, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify default role")
	}
	return nil
}

// Resolve computes the account's effective roles and the union of their
// permissions. Assignments that are inactive, expired, or point at a
// deactivated role contribute nothing. Output ordering is deterministic.
func (s *RoleService) Resolve(ctx context.Context, accountID string) ([]string, []string, error) {
	assigned, err := s.repo.AssignmentsForAccount(ctx, accountID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role assignments")
	}

	now := time.Now().UTC()
	roleSet := make(map[string]struct{})
	permSet := make(map[string]struct{})
	for _, a := range assigned {
		if !a.Active || !a.RoleActive {
			continue
		}
		if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
			continue
		}
		roleSet[a.RoleName] = struct{}{}
		for _, name := range a.Permissions.Names() {
			permSet[name] = struct{}{}
		}
	}

	roles := make([]string, 0, len(roleSet))
	for name := range roleSet {
		roles = append(roles, name)
	}
	sort.Strings(roles)

	permissions := make([]string, 0, len(permSet))
	for _, name := range canonicalPermissionOrder {
		if _, ok := permSet[name]; ok {
			permissions = append(permissions, name)
		}
	}
	return roles, permissions, nil
}

// HasPermission reports whether the account currently holds the named
// permission. Unknown permission names are false, never an error.
func (s *RoleService) HasPermission(ctx context.Context, accountID, permission string) (bool, error) {
	assigned, err := s.repo.AssignmentsForAccount(ctx, accountID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role assignments")
	}

	now := time.Now().UTC()
	for _, a := range assigned {
		if !a.Active || !a.RoleActive {
			continue
		}
		if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
			continue
		}
		if a.Permissions.Has(permission) {
			return true, nil
		}
	}
	return false, nil
}

// List returns all active roles for administration views.
func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	roles, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roles")
	}
	return roles, nil
}

// AssignDefault attaches the default registration role to a new account.
func (s *RoleService) AssignDefault(ctx context.Context, accountID string) error {
	role, err := s.repo.FindByName(ctx, models.DefaultRole)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrDefaultRoleMissing, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load default role")
	}
	if err := s.repo.Assign(ctx, accountID, role.ID, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign default role")
	}
	return nil
}

// Assign grants a role to an account on behalf of an administrator.
func (s *RoleService) Assign(ctx context.Context, actorID string, req models.AssignRoleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assign role payload")
	}

	role, err := s.repo.FindByName(ctx, req.RoleName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrRoleNotFound, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}

	grantedBy := &actorID
	if actorID == "" {
		grantedBy = nil
	}
	if err := s.repo.Assign(ctx, req.AccountID, role.ID, grantedBy); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
	}

	if err := s.audit.Create(ctx, &models.AuditLog{
		AccountID: &req.AccountID,
		Action:    models.AuditActionRoleGranted,
		Detail:    req.RoleName,
	}); err != nil {
		s.logger.Warn("failed to record role grant audit log", zap.Error(err))
	}
	return nil
}

// Remove revokes a role from an account.
func (s *RoleService) Remove(ctx context.Context, actorID string, req models.RemoveRoleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid remove role payload")
	}

	role, err := s.repo.FindByName(ctx, req.RoleName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrRoleNotFound, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}

	if err := s.repo.Remove(ctx, req.AccountID, role.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove role")
	}

	if err := s.audit.Create(ctx, &models.AuditLog{
		AccountID: &req.AccountID,
		Action:    models.AuditActionRoleRevoked,
		Detail:    req.RoleName,
	}); err != nil {
		s.logger.Warn("failed to record role revoke audit log", zap.Error(err))
	}
	return nil
}
