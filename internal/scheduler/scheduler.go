// Package scheduler runs the periodic expiry sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/service"
)

// Cleaner is the part of the temporary access service the sweep needs.
type Cleaner interface {
	Cleanup(ctx context.Context) (service.CleanupResult, error)
}

// Scheduler wraps a cron instance running in UTC.
type Scheduler struct {
	cron    *cron.Cron
	cleaner Cleaner
	log     *zap.Logger
	timeout time.Duration
}

func New(cleaner Cleaner, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		cleaner: cleaner,
		log:     log.Named("scheduler"),
		timeout: time.Minute,
	}
}

// AddCleanup registers the expiry sweep on spec (standard five-field cron
// or a descriptor such as @hourly).
func (s *Scheduler) AddCleanup(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunCleanup); err != nil {
		return fmt.Errorf("schedule cleanup %q: %w", spec, err)
	}
	s.log.Info("cleanup scheduled", zap.String("spec", spec))
	return nil
}

// RunCleanup performs one sweep.  Failures are logged and retried on the
// next tick.
func (s *Scheduler) RunCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	res, err := s.cleaner.Cleanup(ctx)
	if err != nil {
		s.log.Error("cleanup failed", zap.Error(err))
		return
	}
	if res.CodesCleaned > 0 || res.EnrollmentsCleaned > 0 {
		s.log.Info("expired temporary access",
			zap.Int64("codes", res.CodesCleaned), zap.Int64("enrollments", res.EnrollmentsCleaned))
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for a running sweep to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
