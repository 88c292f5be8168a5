package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"doctrack/api/internal/config"
	"doctrack/api/internal/ids"
	"doctrack/api/internal/models"
)

// LoginRateLimiter gates credential guessing from persisted attempt history,
// so a restart does not reset the window.
type LoginRateLimiter struct {
	attempts AttemptStore
	cfg      config.RateLimitConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewLoginRateLimiter(attempts AttemptStore, cfg config.RateLimitConfig, log zerolog.Logger) *LoginRateLimiter {
	return &LoginRateLimiter{
		attempts: attempts,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Check reports whether the email has reached the failure threshold within
// the trailing window, and how long until the block lifts. The block lifts
// once the Kth most recent failure ages out of the window, so the wait is
// measured from that attempt, not the full window.
func (l *LoginRateLimiter) Check(ctx context.Context, email string) (bool, time.Duration, error) {
	now := l.now()
	times, err := l.attempts.RecentFailures(ctx, email, now.Add(-l.cfg.Window), l.cfg.MaxFailures)
	if err != nil {
		return false, 0, err
	}
	if len(times) < l.cfg.MaxFailures {
		return false, 0, nil
	}
	retryAfter := times[l.cfg.MaxFailures-1].Add(l.cfg.Window).Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return true, retryAfter, nil
}

func (l *LoginRateLimiter) Window() time.Duration { return l.cfg.Window }

// RecordAttempt appends to the attempt log. A persistence failure here must
// never abort the login flow, so it is logged and dropped.
func (l *LoginRateLimiter) RecordAttempt(ctx context.Context, email string, ip string, userAgent string, succeeded bool) {
	attempt := models.LoginAttempt{
		ID:          ids.New(),
		Email:       email,
		IPAddress:   ip,
		UserAgent:   userAgent,
		Succeeded:   succeeded,
		AttemptedAt: l.now(),
	}
	if err := l.attempts.Insert(ctx, attempt); err != nil {
		l.log.Warn().Err(err).Str("email", email).Msg("login attempt not recorded")
	}
}

// PurgeOlderThan drops attempts past the retention horizon.
func (l *LoginRateLimiter) PurgeOlderThan(ctx context.Context, age time.Duration) (int, error) {
	return l.attempts.DeleteOlderThan(ctx, l.now().Add(-age))
}
