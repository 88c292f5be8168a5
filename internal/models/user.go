package models

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	FullName     string
	RoleID       *string
	AreaID       *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Populated by joined lookups, nil otherwise.
	Role *Role
	Area *Area
}

type Area struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}
