package scheduler

import (
	"context"
	"time"

	"github.com/nicegilbz/stuhouses-sub000/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Scheduler runs the optional daily counter audit
type Scheduler struct {
	cron      *cron.Cron
	db        *gorm.DB
	config    config.MaintenanceConfig
	logger    *zap.Logger
	isRunning bool
}

// NewScheduler creates a new scheduler
func NewScheduler(db *gorm.DB, cfg config.MaintenanceConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		db:     db,
		config: cfg,
		logger: logger.Named("scheduler"),
	}
}

// Start registers the audit job and starts the cron loop. It does nothing
// when the audit is disabled.
func (s *Scheduler) Start() error {
	if !s.config.CounterAuditEnabled {
		s.logger.Info("counter audit disabled")
		return nil
	}

	spec, err := s.config.CounterAuditCron()
	if err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunNow(context.Background()); err != nil {
			s.logger.Error("counter audit failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("counter audit scheduled",
		zap.String("time", s.config.CounterAuditTime),
		zap.String("cron", spec))
	return nil
}

// Stop stops the scheduler and waits for a running audit to finish
func (s *Scheduler) Stop() {
	if s.isRunning {
		<-s.cron.Stop().Done()
		s.isRunning = false
		s.logger.Info("scheduler stopped")
	}
}

// RunNow audits immediately and logs every drifted city
func (s *Scheduler) RunNow(ctx context.Context) (*AuditReport, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	report, err := AuditCityCounters(ctx, s.db)
	if err != nil {
		return nil, err
	}
	for _, c := range report.Drifted {
		s.logger.Warn("city property_count drift",
			zap.Uint("city_id", c.CityID),
			zap.String("city", c.Name),
			zap.Int("stored", c.Stored),
			zap.Int("live", c.Live))
	}
	s.logger.Info("counter audit completed",
		zap.Int("cities", len(report.Cities)),
		zap.Int("drifted", len(report.Drifted)))
	return report, nil
}
