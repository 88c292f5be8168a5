package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"doctrack/api/internal/autherr"
	"doctrack/api/internal/config"
	"doctrack/api/internal/ids"
	"doctrack/api/internal/models"
	"doctrack/api/internal/repository"
	"doctrack/api/internal/security"
)

// SessionService enforces the single-active-session policy: creating a
// session anywhere deactivates every other session of that user.
type SessionService struct {
	sessions SessionStore
	notifier InvalidationNotifier
	cfg      config.AuthConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewSessionService(sessions SessionStore, notifier InvalidationNotifier, cfg config.AuthConfig, log zerolog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type SessionTokens struct {
	AccessToken  string
	RefreshToken string
	Session      models.UserSession
}

// Create mints a fresh token pair and inserts the session, displacing any
// currently active ones. The invalidation push is best-effort.
func (s *SessionService) Create(ctx context.Context, user models.User, ip string, userAgent string) (SessionTokens, error) {
	roleName := ""
	if user.Role != nil {
		roleName = user.Role.Name
	}

	session := models.UserSession{
		ID:             ids.New(),
		UserID:         user.ID,
		TokenID:        ids.New(),
		RefreshTokenID: ids.New(),
		IPAddress:      ip,
		UserAgent:      userAgent,
		IsActive:       true,
		ExpiresAt:      s.now().Add(s.cfg.SessionTTL),
		LastActivityAt: s.now(),
	}

	accessToken, err := security.SignAccessToken(s.cfg.AccessSecret, user.ID, session.TokenID, roleName, s.cfg.AccessTTL)
	if err != nil {
		return SessionTokens{}, err
	}
	refreshToken, err := security.SignRefreshToken(s.cfg.RefreshSecret, user.ID, session.RefreshTokenID, s.cfg.SessionTTL)
	if err != nil {
		return SessionTokens{}, err
	}

	invalidated, err := s.sessions.CreateExclusive(ctx, session)
	if err != nil {
		return SessionTokens{}, autherr.Persistence("create session", err)
	}
	if invalidated > 0 {
		s.log.Info().Str("user_id", user.ID).Int("invalidated", invalidated).Msg("displaced previous sessions")
		s.notifier.SessionInvalidated(user.ID, "new-login")
	}

	return SessionTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Session:      session,
	}, nil
}

// Validate resolves an access token's jti to its active session. Expired
// sessions are deactivated on sight rather than waiting for the sweep.
func (s *SessionService) Validate(ctx context.Context, tokenID string) (models.UserSession, error) {
	session, err := s.sessions.FindActiveByTokenID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.UserSession{}, autherr.ErrSessionNotFound
		}
		return models.UserSession{}, autherr.Persistence("find session", err)
	}

	if s.now().After(session.ExpiresAt) {
		if err := s.sessions.Deactivate(ctx, session.ID); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("lazy expiry deactivation failed")
		}
		return models.UserSession{}, autherr.ErrSessionExpired
	}

	if err := s.sessions.Touch(ctx, session.ID); err != nil {
		s.log.Debug().Err(err).Str("session_id", session.ID).Msg("session touch failed")
	}
	return session, nil
}

// Rotate exchanges a refresh token for a new session. The old session dies
// first, and the create path displaces any other active session of the same
// user, so a replayed refresh token cannot coexist with the legitimate one.
func (s *SessionService) Rotate(ctx context.Context, user models.User, refreshTokenID string, ip string, userAgent string) (SessionTokens, error) {
	session, err := s.sessions.FindActiveByRefreshID(ctx, user.ID, refreshTokenID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return SessionTokens{}, autherr.ErrInvalidRefreshToken
		}
		return SessionTokens{}, autherr.Persistence("find session", err)
	}

	if s.now().After(session.ExpiresAt) {
		if err := s.sessions.Deactivate(ctx, session.ID); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("lazy expiry deactivation failed")
		}
		return SessionTokens{}, autherr.ErrInvalidRefreshToken
	}

	if err := s.sessions.Deactivate(ctx, session.ID); err != nil {
		return SessionTokens{}, autherr.Persistence("deactivate session", err)
	}

	return s.Create(ctx, user, ip, userAgent)
}

// Revoke deactivates one session; only its owner may do so.
func (s *SessionService) Revoke(ctx context.Context, sessionID string, requesterID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return autherr.ErrSessionNotFound
		}
		return autherr.Persistence("get session", err)
	}
	if session.UserID != requesterID {
		return autherr.ErrSessionNotFound
	}

	if err := s.sessions.Deactivate(ctx, sessionID); err != nil {
		return autherr.Persistence("deactivate session", err)
	}
	return nil
}

func (s *SessionService) RevokeAllExceptCurrent(ctx context.Context, userID string, currentSessionID string) (int, error) {
	revoked, err := s.sessions.DeactivateAllExcept(ctx, userID, currentSessionID)
	if err != nil {
		return 0, autherr.Persistence("revoke sessions", err)
	}
	if revoked > 0 {
		s.notifier.SessionInvalidated(userID, "revoked")
	}
	return revoked, nil
}

// Logout deactivates the session behind the presented access token.
func (s *SessionService) Logout(ctx context.Context, tokenID string) error {
	session, err := s.sessions.FindActiveByTokenID(ctx, tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return autherr.ErrSessionNotFound
		}
		return autherr.Persistence("find session", err)
	}
	if err := s.sessions.Deactivate(ctx, session.ID); err != nil {
		return autherr.Persistence("deactivate session", err)
	}
	return nil
}

func (s *SessionService) ListForUser(ctx context.Context, userID string) ([]models.UserSession, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// SweepExpired deactivates sessions past their expiry. Correctness does not
// depend on it; Validate already expires lazily.
func (s *SessionService) SweepExpired(ctx context.Context) (int, error) {
	return s.sessions.DeactivateExpired(ctx, s.now())
}

// PurgeRetired deletes inactive session rows past the retention horizon.
func (s *SessionService) PurgeRetired(ctx context.Context, age time.Duration) (int, error) {
	return s.sessions.DeleteOlderThan(ctx, s.now().Add(-age))
}
