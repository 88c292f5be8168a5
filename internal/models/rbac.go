package models

import "time"

type Permission struct {
	ID          string
	Code        string
	Name        string
	Description string
	Category    string
	IsSystem    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Role struct {
	ID                   string
	Name                 string
	Description          string
	AreaID               *string
	IsSystem             bool
	CanAssignPermissions bool
	IsActive             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type RolePermission struct {
	RoleID       string
	PermissionID string
	AssignedBy   *string
	AssignedAt   time.Time
}
