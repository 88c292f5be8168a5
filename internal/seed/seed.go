// Package seed installs the system-defined permission catalog and roles.
// Idempotent: rerunning never duplicates or mutates existing rows.
package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"doctrack/api/internal/authz"
	"doctrack/api/internal/ids"
)

type permissionSeed struct {
	Code string
	Name string
}

var systemPermissions = []permissionSeed{
	{"users.view", "View users"},
	{"users.view.all", "View users across areas"},
	{"users.create", "Create users"},
	{"users.update", "Update users"},
	{"roles.view", "View roles"},
	{"roles.create", "Create roles"},
	{"roles.update", "Update roles"},
	{"roles.delete", "Delete roles"},
	{"permissions.view", "View permissions"},
	{"permissions.create", "Create permissions"},
	{"permissions.update", "Update permissions"},
	{"permissions.delete", "Delete permissions"},
	{"permissions.assign", "Assign permissions to roles"},
	{"documents.view", "View documents"},
	{"documents.view.all", "View documents across areas"},
	{"documents.create", "Create documents"},
	{"documents.update", "Update documents"},
	{"documents.forward", "Forward documents"},
	{"categories.view", "View categories"},
	{"categories.manage", "Manage categories"},
	{"reports.view", "View reports"},
	{"reports.export", "Export reports"},
	{"areas.view", "View areas"},
	{"areas.manage", "Manage areas"},
	{"audit.view", "View audit trail"},
	{"area_mgmt.documents.view", "View own-area documents"},
	{"area_mgmt.documents.create", "Create own-area documents"},
	{"area_mgmt.documents.forward", "Forward own-area documents"},
	{"area_mgmt.users.view", "View own-area users"},
	{"area_mgmt.reports.view", "View own-area reports"},
}

type roleSeed struct {
	Name                 string
	Description          string
	CanAssignPermissions bool
	Codes                []string // empty means every system permission
}

var systemRoles = []roleSeed{
	{
		Name:                 authz.AdminRoleName,
		Description:          "Platform administrator with the full permission set",
		CanAssignPermissions: true,
	},
	{
		Name:        "Area Manager",
		Description: "Manages documents and users within one area",
		Codes: []string{
			"area_mgmt.documents.view",
			"area_mgmt.documents.create",
			"area_mgmt.documents.forward",
			"area_mgmt.users.view",
			"area_mgmt.reports.view",
		},
	},
	{
		Name:        "Clerk",
		Description: "Registers and consults documents in their own area",
		Codes: []string{
			"area_mgmt.documents.view",
			"area_mgmt.documents.create",
		},
	},
}

// Run inserts system permissions and roles and wires the role-permission
// edges. Every row carries is_system so the normal mutation paths refuse it.
func Run(ctx context.Context, pool *pgxpool.Pool) error {
	for _, p := range systemPermissions {
		code, err := authz.ParseCode(p.Code)
		if err != nil {
			return fmt.Errorf("seed permission %q: %w", p.Code, err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO permissions (id, code, name, description, category, is_system)
			VALUES ($1, $2, $3, '', $4, TRUE)
			ON CONFLICT (code) DO NOTHING
		`, ids.New(), p.Code, p.Name, string(code.Category()))
		if err != nil {
			return fmt.Errorf("seed permission %q: %w", p.Code, err)
		}
	}

	for _, r := range systemRoles {
		_, err := pool.Exec(ctx, `
			INSERT INTO roles (id, name, description, is_system, can_assign_permissions, is_active)
			VALUES ($1, $2, $3, TRUE, $4, TRUE)
			ON CONFLICT (LOWER(name)) DO NOTHING
		`, ids.New(), r.Name, r.Description, r.CanAssignPermissions)
		if err != nil {
			return fmt.Errorf("seed role %q: %w", r.Name, err)
		}

		if len(r.Codes) == 0 {
			_, err = pool.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				SELECT r.id, p.id FROM roles r, permissions p
				WHERE LOWER(r.name) = LOWER($1)
				ON CONFLICT DO NOTHING
			`, r.Name)
		} else {
			_, err = pool.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				SELECT r.id, p.id FROM roles r, permissions p
				WHERE LOWER(r.name) = LOWER($1) AND p.code = ANY($2)
				ON CONFLICT DO NOTHING
			`, r.Name, r.Codes)
		}
		if err != nil {
			return fmt.Errorf("seed role %q permissions: %w", r.Name, err)
		}
	}

	return nil
}
