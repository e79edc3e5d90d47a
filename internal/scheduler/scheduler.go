package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/smileclinic/whatsbot/internal/domain/models"
	"github.com/smileclinic/whatsbot/internal/service/reporting"
)

const (
	sweepSpec   = "@every 2m"
	refreshSpec = "@every 5m"
	jobTimeout  = 2 * time.Minute
)

// DigestSource computes the daily bookings digest.
type DigestSource interface {
	DailyDigest(ctx context.Context, at time.Time) (reporting.Digest, error)
}

// Sender delivers a text message.
type Sender interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Sweeper drops expired guard state.
type Sweeper interface {
	Sweep(now time.Time)
}

// Refresher reloads runtime settings.
type Refresher interface {
	Refresh(ctx context.Context) error
	ClinicName() string
}

// Jobs are the collaborators driven by the scheduler. Nil members disable
// their job.
type Jobs struct {
	Digest     DigestSource
	Sender     Sender
	DigestTo   string
	DigestSpec string
	Guard      Sweeper
	Settings   Refresher
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron   *cron.Cron
	jobs   Jobs
	logger *zap.Logger
	now    func() time.Time
}

// NewScheduler creates a new scheduler instance running in loc.
func NewScheduler(jobs Jobs, loc *time.Location, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		jobs:   jobs,
		logger: logger,
		now:    time.Now,
	}
}

// Register adds every enabled job. It fails on an invalid digest schedule.
func (s *Scheduler) Register() error {
	if s.jobs.Digest != nil && s.jobs.Sender != nil && s.jobs.DigestTo != "" {
		if _, err := s.cron.AddFunc(s.jobs.DigestSpec, s.sendDailyDigest); err != nil {
			return fmt.Errorf("schedule daily digest %q: %w", s.jobs.DigestSpec, err)
		}
	} else {
		s.logger.Info("daily digest disabled")
	}

	if s.jobs.Guard != nil {
		if _, err := s.cron.AddFunc(sweepSpec, s.sweepGuard); err != nil {
			return fmt.Errorf("schedule guard sweep: %w", err)
		}
	}

	if s.jobs.Settings != nil {
		if _, err := s.cron.AddFunc(refreshSpec, s.refreshSettings); err != nil {
			return fmt.Errorf("schedule settings refresh: %w", err)
		}
	}
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sendDailyDigest() {
	s.logger.Info("generating daily digest")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	digest, err := s.jobs.Digest.DailyDigest(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to generate daily digest", zap.Error(err))
		return
	}

	clinicName := ""
	if s.jobs.Settings != nil {
		clinicName = s.jobs.Settings.ClinicName()
	}

	req := models.OutboundMessageRequest{
		To:      s.jobs.DigestTo,
		Message: digest.Format(clinicName),
	}

	if err := s.jobs.Sender.SendOutbound(ctx, req); err != nil {
		s.logger.Error("failed to send daily digest", zap.Error(err))
	} else {
		s.logger.Info("daily digest sent successfully", zap.Int("bookings", digest.Total))
	}
}

func (s *Scheduler) sweepGuard() {
	s.jobs.Guard.Sweep(s.now())
}

func (s *Scheduler) refreshSettings() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.jobs.Settings.Refresh(ctx); err != nil {
		s.logger.Warn("failed to refresh clinic settings", zap.Error(err))
	}
}
