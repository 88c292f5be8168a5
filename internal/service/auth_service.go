package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"doctrack/api/internal/autherr"
	"doctrack/api/internal/config"
	"doctrack/api/internal/ids"
	"doctrack/api/internal/models"
	"doctrack/api/internal/repository"
	"doctrack/api/internal/security"
)

// AuthService orchestrates login, registration and password changes over the
// rate limiter, the credential store and the session service.
type AuthService struct {
	users    UserStore
	sessions *SessionService
	limiter  *LoginRateLimiter
	roles    RoleStore
	dir      Directory
	cfg      config.AuthConfig
	log      zerolog.Logger
}

func NewAuthService(
	users UserStore,
	sessions *SessionService,
	limiter *LoginRateLimiter,
	roles RoleStore,
	dir Directory,
	cfg config.AuthConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		limiter:  limiter,
		roles:    roles,
		dir:      dir,
		cfg:      cfg,
		log:      log,
	}
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

type LoginResult struct {
	User         models.User
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// Login runs the credential check in a strict order: validation, rate gate,
// lookup, account state, password, session. Unknown email and wrong password
// produce the same error, and every outcome is recorded as an attempt.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Password == "" {
		return LoginResult{}, autherr.Validation("email and password are required")
	}

	blocked, retryAfter, err := s.limiter.Check(ctx, email)
	if err != nil {
		return LoginResult{}, autherr.Persistence("rate limit check", err)
	}
	if blocked {
		return LoginResult{}, &autherr.RateLimitedError{
			Window:     s.limiter.Window(),
			RetryAfter: retryAfter,
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.limiter.RecordAttempt(ctx, email, input.IPAddress, input.UserAgent, false)
			return LoginResult{}, autherr.ErrInvalidCredentials
		}
		return LoginResult{}, autherr.Persistence("find user", err)
	}

	if !user.IsActive {
		s.limiter.RecordAttempt(ctx, email, input.IPAddress, input.UserAgent, false)
		return LoginResult{}, autherr.ErrAccountDisabled
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		s.limiter.RecordAttempt(ctx, email, input.IPAddress, input.UserAgent, false)
		return LoginResult{}, autherr.ErrInvalidCredentials
	}

	s.limiter.RecordAttempt(ctx, email, input.IPAddress, input.UserAgent, true)

	tokens, err := s.sessions.Create(ctx, user, input.IPAddress, input.UserAgent)
	if err != nil {
		return LoginResult{}, err
	}

	user.PasswordHash = nil
	return LoginResult{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		SessionID:    tokens.Session.ID,
	}, nil
}

// Refresh validates the presented refresh token, resolves its user and
// rotates the session. Behaves exactly like a fresh login, including
// displacing other active sessions.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, ip string, userAgent string) (LoginResult, error) {
	claims, err := security.ParseRefreshToken(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return LoginResult{}, autherr.ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, autherr.ErrInvalidRefreshToken
		}
		return LoginResult{}, autherr.Persistence("find user", err)
	}
	if !user.IsActive {
		return LoginResult{}, autherr.ErrAccountDisabled
	}

	tokens, err := s.sessions.Rotate(ctx, user, claims.ID, ip, userAgent)
	if err != nil {
		return LoginResult{}, err
	}

	user.PasswordHash = nil
	return LoginResult{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		SessionID:    tokens.Session.ID,
	}, nil
}

type RegisterInput struct {
	Email    string
	Password string
	FullName string
	RoleID   string
	AreaID   *string
}

// Register creates a user. The calling handler guards it with the
// permission gate; this layer validates the payload.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, autherr.Validation("a valid email is required")
	}
	if len(input.Password) < s.cfg.MinPasswordLength {
		return models.User{}, autherr.Validation("password must be at least %d characters", s.cfg.MinPasswordLength)
	}

	taken, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return models.User{}, autherr.Persistence("check email", err)
	}
	if taken {
		return models.User{}, autherr.Validation("email %q is already registered", email)
	}

	role, err := s.roles.GetByID(ctx, input.RoleID)
	if err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return models.User{}, autherr.Validation("role %q does not exist", input.RoleID)
		}
		return models.User{}, autherr.Persistence("get role", err)
	}

	if input.AreaID != nil {
		active, err := s.dir.AreaActive(ctx, *input.AreaID)
		if err != nil {
			if errors.Is(err, repository.ErrAreaNotFound) {
				return models.User{}, autherr.Validation("area %q does not exist", *input.AreaID)
			}
			return models.User{}, autherr.Persistence("check area", err)
		}
		if !active {
			return models.User{}, autherr.Validation("area %q is not active", *input.AreaID)
		}
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     input.FullName,
		RoleID:       &role.ID,
		AreaID:       input.AreaID,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return models.User{}, autherr.Persistence("create user", err)
	}

	s.log.Info().Str("email", email).Str("role", role.Name).Msg("user registered")

	user.PasswordHash = nil
	user.Role = &role
	return user, nil
}

// ChangePassword re-verifies the current password before accepting a new
// one. Other sessions stay alive; callers wanting a clean slate call
// RevokeAllExceptCurrent explicitly.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, currentPassword string, newPassword string) error {
	if len(newPassword) < s.cfg.MinPasswordLength {
		return autherr.Validation("password must be at least %d characters", s.cfg.MinPasswordLength)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return autherr.ErrAuthenticationRequired
		}
		return autherr.Persistence("find user", err)
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil || !ok {
		return autherr.ErrInvalidCredentials
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return autherr.Persistence("update password", err)
	}

	s.log.Info().Str("user_id", userID).Msg("password changed")
	return nil
}
