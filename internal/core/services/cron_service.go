package services

import (
	"context"
	"time"

	"tupad-admin/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper removes expired rows
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CronService runs the periodic cleanup jobs
type CronService struct {
	cron       *cron.Cron
	sessions   repositories.SessionRepository
	accounts   repositories.AccountRepository
	rateLimits Sweeper
	log        *zap.Logger
	timeout    time.Duration
}

// NewCronService creates the scheduler; jobs are registered by Start
func NewCronService(
	sessions repositories.SessionRepository,
	accounts repositories.AccountRepository,
	rateLimits Sweeper,
	log *zap.Logger,
) *CronService {
	return &CronService{
		cron:       cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		sessions:   sessions,
		accounts:   accounts,
		rateLimits: rateLimits,
		log:        log.Named("cron"),
		timeout:    time.Minute,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	jobs := []struct {
		spec string
		name string
		fn   func(ctx context.Context) (int64, error)
	}{
		{"@hourly", "sessions", s.sweepSessions},
		{"@every 10m", "rate_limits", s.sweepRateLimits},
		{"@every 15m", "reset_codes", s.clearResetCodes},
	}

	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() { s.run(job.name, job.fn) }); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.log.Info("cron started", zap.Int("jobs", len(jobs)))
	return nil
}

// Stop waits for running jobs to finish
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}

// RunAll runs every job once
func (s *CronService) RunAll() {
	s.run("sessions", s.sweepSessions)
	s.run("rate_limits", s.sweepRateLimits)
	s.run("reset_codes", s.clearResetCodes)
}

func (s *CronService) run(name string, fn func(ctx context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := fn(ctx)
	if err != nil {
		s.log.Error("cleanup job failed", zap.String("job", name), zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("cleanup job", zap.String("job", name), zap.Int64("removed", n))
	}
}

func (s *CronService) sweepRateLimits(ctx context.Context) (int64, error) {
	return s.rateLimits.DeleteExpired(ctx, time.Now())
}

func (s *CronService) clearResetCodes(ctx context.Context) (int64, error) {
	return s.accounts.ClearExpiredResetOTPs(ctx, time.Now())
}

func (s *CronService) sweepSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, time.Now())
}
