package usecase

import (
	"context"
	"time"

	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

type SchedulerConfig struct {
	Tick       time.Duration
	BatchSize  int
	JobTimeout time.Duration
}

// Scheduler picks up due jobs on every tick and runs them one at a time.
type Scheduler struct {
	jobs         repository.IPublishJob
	orchestrator IPublishOrchestrator
	cfg          SchedulerConfig
	now          func() time.Time
}

func NewScheduler(jobs repository.IPublishJob, orchestrator IPublishOrchestrator, cfg SchedulerConfig) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	return &Scheduler{jobs: jobs, orchestrator: orchestrator, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	lg := logger.GetLogger()
	lg.WithField("tick", s.cfg.Tick.String()).Info("scheduler started")
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			lg.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunOnce(ctx, s.now())
		}
	}
}

// RunOnce processes the jobs due at now and returns how many were executed.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) int {
	lg := logger.GetLogger()
	due, err := s.jobs.FindDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		lg.WithField("error", err).Error("loading due jobs failed")
		return 0
	}
	ran := 0
	for _, job := range due {
		if ctx.Err() != nil {
			break
		}
		jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
		out, err := s.orchestrator.Execute(jobCtx, job)
		cancel()
		if err != nil {
			lg.WithField("job_id", job.ID).WithField("error", err).Warn("scheduled job failed")
			continue
		}
		ran++
		lg.WithField("job_id", job.ID).WithField("state", out.State).Debug("scheduled job done")
	}
	return ran
}
