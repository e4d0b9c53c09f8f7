package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService schedules background jobs
type CronService struct {
	cron     *cron.Cron
	sweeper  *SweepService
	schedule string
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewCronService creates a CronService. schedule uses the six-field format
// with seconds. A tick is skipped while the previous sweep is still running.
func NewCronService(sweeper *SweepService, schedule string, logger *logrus.Logger) *CronService {
	cronLogger := cron.PrintfLogger(logger)
	return &CronService{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  4 * time.Minute,
		logger:   logger,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweepJob); err != nil {
		return fmt.Errorf("failed to schedule pending order sweep: %w", err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs until ctx expires
func (s *CronService) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Cron service stopped")
	case <-ctx.Done():
		s.logger.Warn("Cron service stop timed out with jobs still running")
	}
}

func (s *CronService) sweepJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if _, err := s.sweeper.Run(ctx); err != nil {
		s.logger.WithError(err).Error("Pending order sweep failed")
		return
	}
	s.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Sweep job done")
}

// Entries reports the scheduled jobs and their next run
func (s *CronService) Entries() []map[string]interface{} {
	entries := s.cron.Entries()
	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       e.ID,
			"next_run": e.Next,
			"prev_run": e.Prev,
		})
	}
	return jobs
}
