package models

import "time"

type UserSession struct {
	ID             string
	UserID         string
	TokenID        string
	RefreshTokenID string
	IPAddress      string
	UserAgent      string
	IsActive       bool
	ExpiresAt      time.Time
	LastActivityAt time.Time
	CreatedAt      time.Time
}

type LoginAttempt struct {
	ID          string
	Email       string
	IPAddress   string
	UserAgent   string
	Succeeded   bool
	AttemptedAt time.Time
}
