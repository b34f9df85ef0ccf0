package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Well-known role names seeded at bootstrap.
const (
	RoleAdmin  = "ROLE_ADMIN"
	RoleTrader = "ROLE_TRADER"
	RoleUser   = "ROLE_USER"

	// DefaultRole is attached to every new registration.
	DefaultRole = RoleUser
)

// Canonical permission names embedded into access tokens.
const (
	PermissionTrade        = "TRADE"
	PermissionWithdraw     = "WITHDRAW"
	PermissionManageUsers  = "MANAGE_USERS"
	PermissionViewReports  = "VIEW_REPORTS"
	PermissionModifyOrders = "MODIFY_ORDERS"
	PermissionAccessAPI    = "ACCESS_API"
)

// RolePermissions is the fixed-shape capability record stored as JSONB on a
// role. New capabilities are added as explicit fields, never as free-form
// map keys.
type RolePermissions struct {
	CanTrade        bool `json:"canTrade"`
	CanWithdraw     bool `json:"canWithdraw"`
	CanManageUsers  bool `json:"canManageUsers"`
	CanViewReports  bool `json:"canViewReports"`
	CanModifyOrders bool `json:"canModifyOrders"`
	CanAccessAPI    bool `json:"canAccessAPI"`
}

// Names maps the set capability flags to their canonical permission names.
func (p RolePermissions) Names() []string {
	names := make([]string, 0, 6)
	if p.CanTrade {
		names = append(names, PermissionTrade)
	}
	if p.CanWithdraw {
		names = append(names, PermissionWithdraw)
	}
	if p.CanManageUsers {
		names = append(names, PermissionManageUsers)
	}
	if p.CanViewReports {
		names = append(names, PermissionViewReports)
	}
	if p.CanModifyOrders {
		names = append(names, PermissionModifyOrders)
	}
	if p.CanAccessAPI {
		names = append(names, PermissionAccessAPI)
	}
	return names
}

// Has reports whether the record grants the named permission. The match is
// case-insensitive and unknown permission names are always false, so new
// capability names never break old callers.
func (p RolePermissions) Has(permission string) bool {
	switch strings.ToUpper(permission) {
	case PermissionTrade:
		return p.CanTrade
	case PermissionWithdraw:
		return p.CanWithdraw
	case PermissionManageUsers:
		return p.CanManageUsers
	case PermissionViewReports:
		return p.CanViewReports
	case PermissionModifyOrders:
		return p.CanModifyOrders
	case PermissionAccessAPI:
		return p.CanAccessAPI
	default:
		return false
	}
}

// Value serialises the record for the JSONB column.
func (p RolePermissions) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan deserialises the JSONB column into the record.
func (p *RolePermissions) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	case nil:
		*p = RolePermissions{}
		return nil
	default:
		return fmt.Errorf("unsupported permissions column type %T", src)
	}
}

// Role is process-wide reference data created at bootstrap.
type Role struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Permissions RolePermissions `db:"permissions" json:"permissions"`
	Active      bool            `db:"active" json:"active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// RoleAssignment is the many-to-many edge between an account and a role.
type RoleAssignment struct {
	AccountID string     `db:"account_id" json:"account_id"`
	RoleID    string     `db:"role_id" json:"role_id"`
	GrantedAt time.Time  `db:"granted_at" json:"granted_at"`
	GrantedBy *string    `db:"granted_by" json:"granted_by,omitempty"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	Active    bool       `db:"active" json:"active"`
}

// Valid reports whether the assignment currently grants its role. Expiry is
// evaluated lazily at read time; nothing sweeps expired rows.
func (a RoleAssignment) Valid(now time.Time) bool {
	if !a.Active {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}

// AssignedRole is the resolver's joined view of an assignment and its role.
type AssignedRole struct {
	RoleName    string          `db:"role_name"`
	Permissions RolePermissions `db:"permissions"`
	RoleActive  bool            `db:"role_active"`
	Active      bool            `db:"active"`
	ExpiresAt   *time.Time      `db:"expires_at"`
}

// SeedRoles returns the bootstrap role set. ROLE_ADMIN holds every
// capability, ROLE_TRADER everything except user management, ROLE_USER none.
func SeedRoles() []Role {
	return []Role{
		{
			Name:        RoleAdmin,
			Description: "System Administrator",
			Permissions: RolePermissions{
				CanTrade:        true,
				CanWithdraw:     true,
				CanManageUsers:  true,
				CanViewReports:  true,
				CanModifyOrders: true,
				CanAccessAPI:    true,
			},
			Active: true,
		},
		{
			Name:        RoleTrader,
			Description: "Active Trader",
			Permissions: RolePermissions{
				CanTrade:        true,
				CanWithdraw:     true,
				CanViewReports:  true,
				CanModifyOrders: true,
				CanAccessAPI:    true,
			},
			Active: true,
		},
		{
			Name:        RoleUser,
			Description: "Basic User",
			Permissions: RolePermissions{},
			Active:      true,
		},
	}
}
