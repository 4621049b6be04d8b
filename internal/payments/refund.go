package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nicegilbz/stuhouses-sub000/internal/activity"
	"github.com/nicegilbz/stuhouses-sub000/internal/apperr"
	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefundRequest is an administrator's refund instruction. A nil Amount
// refunds whatever is still refundable.
type RefundRequest struct {
	PaymentID   uint
	Amount      *decimal.Decimal
	Reason      string
	RequestedBy uint
}

// RefundOutcome reports the refund and the payment state it produced
type RefundOutcome struct {
	Refund        models.Refund        `json:"refund"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Remaining     decimal.Decimal      `json:"remaining"`
}

// RefundService issues refunds against completed payments
type RefundService struct {
	db       *gorm.DB
	refunder Refunder
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRefundService creates a refund service. timeout bounds the processor call.
func NewRefundService(db *gorm.DB, refunder Refunder, timeout time.Duration, logger *zap.Logger) *RefundService {
	return &RefundService{
		db:       db,
		refunder: refunder,
		timeout:  timeout,
		logger:   logger.Named("refunds"),
	}
}

// CreateRefund checks the refundable balance, refunds upstream and records
// the result. The payment row stays locked from the balance check until
// commit so concurrent refunds cannot overshoot the payment amount. When
// the processor call fails the transaction rolls back with nothing written.
func (s *RefundService) CreateRefund(ctx context.Context, req RefundRequest) (*RefundOutcome, error) {
	if req.Amount != nil && !req.Amount.IsPositive() {
		return nil, apperr.Validation("amount", "must be greater than zero")
	}
	if req.Amount != nil {
		if err := checkAmount(*req.Amount); err != nil {
			return nil, err
		}
	}

	var (
		out      RefundOutcome
		upstream *RefundResult
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, req.PaymentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("payment", req.PaymentID)
		}
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		if !payment.IsRefundable() {
			return apperr.InvalidState("payment", string(payment.Status), "only completed payments can be refunded")
		}

		refunded, err := refundedTotal(tx, payment.ID)
		if err != nil {
			return err
		}
		remaining := payment.Amount.Sub(refunded)
		if !remaining.IsPositive() {
			return apperr.InvalidState("payment", string(payment.Status), "nothing left to refund")
		}

		amount := remaining
		if req.Amount != nil {
			minor, _ := ToMinorUnits(*req.Amount)
			amount = FromMinorUnits(minor)
		}
		if !amount.IsPositive() {
			return apperr.Validation("amount", "rounds to zero")
		}
		if amount.GreaterThan(remaining) {
			return apperr.Validation("amount", "exceeds remaining refundable amount %s", remaining.StringFixed(2))
		}

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		amountMinor, err := ToMinorUnits(amount)
		if err != nil {
			return apperr.Validation("amount", "must not exceed %s", MaxAmount.StringFixed(2))
		}
		upstream, err = s.refunder.CreateRefund(callCtx, RefundParams{
			IntentID:       payment.ExternalRef,
			AmountMinor:    amountMinor,
			IdempotencyKey: uuid.NewString(),
			Metadata: map[string]string{
				"payment_id":   strconv.FormatUint(uint64(payment.ID), 10),
				"requested_by": strconv.FormatUint(uint64(req.RequestedBy), 10),
			},
		})
		if err != nil {
			s.logger.Warn("create refund failed",
				zap.Uint("payment_id", payment.ID),
				zap.String("error", describe(err)))
			return apperr.Upstream("create refund", err)
		}

		refund := models.Refund{
			PaymentID:        payment.ID,
			Amount:           amount,
			Reason:           strings.TrimSpace(req.Reason),
			ExternalRefundID: upstream.ID,
			Status:           upstream.Status,
			CreatedBy:        req.RequestedBy,
		}
		if err := tx.Create(&refund).Error; err != nil {
			return fmt.Errorf("insert refund: %w", err)
		}

		next := models.PaymentStatusPartiallyRefunded
		if amount.Equal(remaining) {
			next = models.PaymentStatusRefunded
		}
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status IN ?", payment.ID, models.SourcesFor(next)).
			Update("status", next)
		if res.Error != nil {
			return fmt.Errorf("update payment status: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.InvalidState("payment", string(payment.Status), "status changed during refund")
		}

		err = activity.Record(tx, activity.Entry{
			UserID:     req.RequestedBy,
			Action:     models.ActionRefundCreated,
			EntityType: models.EntityPayment,
			EntityID:   payment.ID,
			Details: map[string]interface{}{
				"refund_id": upstream.ID,
				"amount":    amount.StringFixed(2),
				"reason":    refund.Reason,
				"status":    next,
			},
		})
		if err != nil {
			return err
		}

		out = RefundOutcome{
			Refund:        refund,
			PaymentStatus: next,
			Remaining:     remaining.Sub(amount),
		}
		return nil
	})
	if err != nil {
		if upstream != nil {
			s.logger.Error("refund issued upstream but not recorded locally",
				zap.Uint("payment_id", req.PaymentID),
				zap.String("refund_id", upstream.ID),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("refund created",
		zap.Uint("payment_id", req.PaymentID),
		zap.String("refund_id", out.Refund.ExternalRefundID),
		zap.String("amount", out.Refund.Amount.StringFixed(2)),
		zap.String("payment_status", string(out.PaymentStatus)))
	return &out, nil
}

// ListRefunds returns the refunds recorded for a payment, oldest first
func (s *RefundService) ListRefunds(ctx context.Context, paymentID uint) ([]models.Refund, error) {
	var refunds []models.Refund
	err := s.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC, id ASC").
		Find(&refunds).Error
	return refunds, err
}

func refundedTotal(tx *gorm.DB, paymentID uint) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := tx.Model(&models.Refund{}).Where("payment_id = ?", paymentID).Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, fmt.Errorf("sum refunds: %w", err)
	}
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total, nil
}
