// Package cleanup prunes the webhook event audit trail. Reconciliation never
// reads it, so old rows can be removed without affecting payment state.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles retention of webhook audit rows
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new cleanup service
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger.Named("cleanup"), now: time.Now}
}

// Config holds configuration for a prune run
type Config struct {
	RetentionDays    int  `json:"retention_days"`
	MaxDeletionCount int  `json:"max_deletion_count"`
	DryRun           bool `json:"dry_run"`
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		RetentionDays:    90,
		MaxDeletionCount: 10000,
		DryRun:           true,
	}
}

// Result holds the result of a prune run
type Result struct {
	Cutoff       time.Time `json:"cutoff"`
	TargetCount  int64     `json:"target_count"`
	DeletedCount int64     `json:"deleted_count"`
	DryRun       bool      `json:"dry_run"`
	ExecutedAt   time.Time `json:"executed_at"`
}

// PruneWebhookEvents deletes audit rows received before the retention
// cutoff. The run is refused when more rows qualify than MaxDeletionCount.
func (s *Service) PruneWebhookEvents(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.RetentionDays <= 0 {
		return nil, fmt.Errorf("retention_days must be positive")
	}

	now := s.now().UTC()
	result := &Result{
		Cutoff:     now.AddDate(0, 0, -cfg.RetentionDays),
		DryRun:     cfg.DryRun,
		ExecutedAt: now,
	}

	db := s.db.WithContext(ctx)
	expired := db.Model(&models.WebhookEvent{}).Where("received_at < ?", result.Cutoff)
	if err := expired.Count(&result.TargetCount).Error; err != nil {
		return nil, fmt.Errorf("count expired webhook events: %w", err)
	}

	if result.TargetCount == 0 {
		return result, nil
	}
	if cfg.MaxDeletionCount > 0 && result.TargetCount > int64(cfg.MaxDeletionCount) {
		return nil, fmt.Errorf("safety check failed: %d webhook events exceed max deletion limit of %d",
			result.TargetCount, cfg.MaxDeletionCount)
	}

	if cfg.DryRun {
		s.logger.Info("webhook event prune dry run",
			zap.Time("cutoff", result.Cutoff),
			zap.Int64("target", result.TargetCount))
		return result, nil
	}

	res := db.Where("received_at < ?", result.Cutoff).Delete(&models.WebhookEvent{})
	if res.Error != nil {
		return nil, fmt.Errorf("delete expired webhook events: %w", res.Error)
	}
	result.DeletedCount = res.RowsAffected

	s.logger.Info("webhook events pruned",
		zap.Time("cutoff", result.Cutoff),
		zap.Int64("target", result.TargetCount),
		zap.Int64("deleted", result.DeletedCount))
	return result, nil
}

// Stats summarises the audit trail
type Stats struct {
	Total       int64            `json:"total"`
	ByOutcome   map[string]int64 `json:"by_outcome"`
	LastDay     int64            `json:"received_last_24h"`
	OldestEvent *time.Time       `json:"oldest_event,omitempty"`
}

// GetStats returns counts over the audit trail
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	stats := &Stats{ByOutcome: make(map[string]int64)}

	if err := db.Model(&models.WebhookEvent{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	var outcomeCounts []struct {
		Outcome string
		Count   int64
	}
	if err := db.Model(&models.WebhookEvent{}).
		Select("outcome, count(*) as count").
		Group("outcome").
		Scan(&outcomeCounts).Error; err != nil {
		return nil, err
	}
	for _, oc := range outcomeCounts {
		stats.ByOutcome[oc.Outcome] = oc.Count
	}

	if err := db.Model(&models.WebhookEvent{}).
		Where("received_at >= ?", s.now().UTC().Add(-24*time.Hour)).
		Count(&stats.LastDay).Error; err != nil {
		return nil, err
	}

	if stats.Total > 0 {
		var oldest models.WebhookEvent
		if err := db.Order("received_at ASC").First(&oldest).Error; err != nil {
			return nil, err
		}
		stats.OldestEvent = &oldest.ReceivedAt
	}

	return stats, nil
}
