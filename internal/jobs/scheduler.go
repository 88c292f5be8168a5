// Package jobs runs the retention sweeps: login attempts past the rate-limit
// horizon, sessions past their expiry, and retired session rows.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"doctrack/api/internal/config"
	"doctrack/api/internal/service"
)

type Scheduler struct {
	cron     *cron.Cron
	sessions *service.SessionService
	limiter  *service.LoginRateLimiter
	cfg      config.RetentionConfig
	log      zerolog.Logger
}

func NewScheduler(sessions *service.SessionService, limiter *service.LoginRateLimiter, cfg config.RetentionConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		sessions: sessions,
		limiter:  limiter,
		cfg:      cfg,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 * * * *", s.purgeLoginAttempts); err != nil { // hourly
		return err
	}
	if _, err := s.cron.AddFunc("0 */15 * * * *", s.sweepExpiredSessions); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.purgeRetiredSessions); err != nil { // daily
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) purgeLoginAttempts() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.limiter.PurgeOlderThan(ctx, s.cfg.LoginAttemptAge)
	if err != nil {
		s.log.Error().Err(err).Msg("login attempt purge failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("deleted", n).Msg("purged login attempts")
	}
}

func (s *Scheduler) sweepExpiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.sessions.SweepExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("expired session sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("deactivated", n).Msg("swept expired sessions")
	}
}

func (s *Scheduler) purgeRetiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.sessions.PurgeRetired(ctx, s.cfg.SessionAge)
	if err != nil {
		s.log.Error().Err(err).Msg("retired session purge failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("deleted", n).Msg("purged retired sessions")
	}
}
