package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/nicegilbz/stuhouses-sub000/internal/activity"
	"github.com/nicegilbz/stuhouses-sub000/internal/cleanup"
	"github.com/nicegilbz/stuhouses-sub000/internal/models"
	"github.com/nicegilbz/stuhouses-sub000/internal/payments"
	"github.com/nicegilbz/stuhouses-sub000/internal/ratelimit"
	"github.com/nicegilbz/stuhouses-sub000/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Reindexer rebuilds the search index from the store
type Reindexer interface {
	Reindex(ctx context.Context, db *gorm.DB, batchSize int) (int, error)
}

// AdminHandler handles admin-related requests
type AdminHandler struct {
	db        *gorm.DB
	refunds   *payments.RefundService
	breaker   *payments.CircuitBreaker
	limiter   *ratelimit.RateLimiter
	reindexer Reindexer
	cleanup   *cleanup.Service
	logger    *zap.Logger
}

// NewAdminHandler creates a new admin handler. breaker, limiter and
// reindexer may be nil.
func NewAdminHandler(db *gorm.DB, refunds *payments.RefundService, breaker *payments.CircuitBreaker, limiter *ratelimit.RateLimiter, reindexer Reindexer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		db:        db,
		refunds:   refunds,
		breaker:   breaker,
		limiter:   limiter,
		reindexer: reindexer,
		cleanup:   cleanup.NewService(db, logger),
		logger:    logger.Named("admin"),
	}
}

type statusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// GetStats returns system statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	stats := make(map[string]interface{})

	for name, model := range map[string]interface{}{
		"properties": &models.Property{},
		"payments":   &models.Payment{},
		"bookings":   &models.Booking{},
	} {
		var counts []statusCount
		err := db.Model(model).
			Select("status, count(*) as count").
			Group("status").
			Order("status").
			Scan(&counts).Error
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		stats[name] = counts
	}

	var refundCount int64
	if err := db.Model(&models.Refund{}).Count(&refundCount).Error; err != nil {
		respondError(c, h.logger, err)
		return
	}
	stats["refunds"] = gin.H{"total": refundCount}

	if h.breaker != nil {
		stats["processor"] = h.breaker.GetStatus()
	}

	c.JSON(http.StatusOK, stats)
}

// GetRecentActivity returns the newest activity log entries
func (h *AdminHandler) GetRecentActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entityID, _ := strconv.ParseUint(c.Query("entity_id"), 10, 64)

	logs, err := activity.Recent(h.db.WithContext(c.Request.Context()), activity.Filter{
		EntityType: c.Query("entity_type"),
		EntityID:   uint(entityID),
		Limit:      limit,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity": logs,
		"count":    len(logs),
	})
}

// AuditCities compares every city's property_count with a live count. It never repairs.
func (h *AdminHandler) AuditCities(c *gin.Context) {
	report, err := scheduler.AuditCityCounters(c.Request.Context(), h.db)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type createRefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason" binding:"max=255"`
}

// CreateRefund refunds part or all of a completed payment. Omitting the
// amount, or sending no body at all, refunds everything still refundable.
func (h *AdminHandler) CreateRefund(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req createRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindingError(c, err)
		return
	}

	adminID, _ := currentUserID(c)
	outcome, err := h.refunds.CreateRefund(c.Request.Context(), payments.RefundRequest{
		PaymentID:   id,
		Amount:      req.Amount,
		Reason:      req.Reason,
		RequestedBy: adminID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

// ListRefunds returns every refund recorded against a payment
func (h *AdminHandler) ListRefunds(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	refunds, err := h.refunds.ListRefunds(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payment_id": id,
		"refunds":    refunds,
		"count":      len(refunds),
	})
}

// ReindexSearch rebuilds the property search index
func (h *AdminHandler) ReindexSearch(c *gin.Context) {
	if h.reindexer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not enabled"})
		return
	}

	h.logger.Info("search reindex requested")
	indexed, err := h.reindexer.Reindex(c.Request.Context(), h.db, 500)
	if err != nil {
		h.logger.Error("search reindex failed", zap.Int("indexed", indexed), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "search reindex failed", "indexed": indexed})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Reindex completed",
		"indexed": indexed,
	})
}

// GetRateLimitStats reports the limiter state for one client key
func (h *AdminHandler) GetRateLimitStats(c *gin.Context) {
	if h.limiter == nil {
		c.JSON(http.StatusOK, ratelimit.Stats{Enabled: false})
		return
	}
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	c.JSON(http.StatusOK, h.limiter.GetStats(key))
}

// GetWebhookEventStats summarises the webhook audit trail
func (h *AdminHandler) GetWebhookEventStats(c *gin.Context) {
	stats, err := h.cleanup.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// PruneWebhookEvents deletes audit rows older than the retention window.
// It is a dry run unless dry_run is explicitly false.
func (h *AdminHandler) PruneWebhookEvents(c *gin.Context) {
	var req struct {
		RetentionDays    int   `json:"retention_days" binding:"min=0"`
		MaxDeletionCount int   `json:"max_deletion_count" binding:"min=0"`
		DryRun           *bool `json:"dry_run"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	cfg := cleanup.DefaultConfig()
	if req.RetentionDays > 0 {
		cfg.RetentionDays = req.RetentionDays
	}
	if req.MaxDeletionCount > 0 {
		cfg.MaxDeletionCount = req.MaxDeletionCount
	}
	if req.DryRun != nil {
		cfg.DryRun = *req.DryRun
	}

	h.logger.Info("webhook event prune requested",
		zap.Int("retention_days", cfg.RetentionDays),
		zap.Int("max_deletion_count", cfg.MaxDeletionCount),
		zap.Bool("dry_run", cfg.DryRun))

	result, err := h.cleanup.PruneWebhookEvents(c.Request.Context(), cfg)
	if err != nil {
		h.logger.Warn("webhook event prune refused", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
