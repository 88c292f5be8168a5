// Package autherr defines the error taxonomy shared by the auth services
// and mapped to HTTP statuses at the handler boundary.
package autherr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrInvalidCredentials is returned for both unknown email and wrong
	// password so that login failures never reveal whether an account exists.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrAccountDisabled     = errors.New("account is disabled")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExpired      = errors.New("session expired")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRoleDisabled        = errors.New("role is disabled")
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validation(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// RateLimitedError reports that login is temporarily blocked for an email.
type RateLimitedError struct {
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many failed login attempts, try again in %s", e.Window)
}

// AuthorizationError carries the attempted and missing permission codes for
// audit logging. Only codes the caller was actually checked against appear.
type AuthorizationError struct {
	Role      string
	Attempted []string
	Missing   []string
}

func (e *AuthorizationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing permissions: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("none of the required permissions held: %s", strings.Join(e.Attempted, ", "))
}

// ProtectedResourceError marks an attempt to mutate a system-defined
// permission or role through the normal update path.
type ProtectedResourceError struct {
	Kind string
	Name string
}

func (e *ProtectedResourceError) Error() string {
	return fmt.Sprintf("%s %q is system-defined and cannot be modified", e.Kind, e.Name)
}

type RoleInUseError struct {
	RoleID      string
	ActiveUsers int
}

func (e *RoleInUseError) Error() string {
	return fmt.Sprintf("role is assigned to %d active user(s)", e.ActiveUsers)
}

type PermissionInUseError struct {
	PermissionID string
	Roles        int
}

func (e *PermissionInUseError) Error() string {
	return fmt.Sprintf("permission is referenced by %d role(s)", e.Roles)
}

// PersistenceError wraps storage failures so callers can distinguish them
// from domain errors. Retry policy lives outside the core.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

func Persistence(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}
