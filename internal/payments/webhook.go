package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nicegilbz/stuhouses-sub000/internal/apperr"
	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Outcome describes what a webhook did to local state
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoop    Outcome = "noop"
	OutcomeMissing Outcome = "missing"
	OutcomeIgnored Outcome = "ignored"
)

// Reconciler applies verified processor events to payments, bookings and
// rent payments. Events may arrive duplicated or out of order; every
// transition is a guarded update so only legal moves ever match a row.
type Reconciler struct {
	db       *gorm.DB
	verifier EventVerifier
	logger   *zap.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(db *gorm.DB, verifier EventVerifier, logger *zap.Logger) *Reconciler {
	return &Reconciler{db: db, verifier: verifier, logger: logger.Named("webhook")}
}

// HandleWebhook verifies and applies one event. A SignatureError means the
// payload was rejected without touching state. Any other error is a local
// failure and the processor should retry.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	event, err := r.verifier.ConstructEvent(payload, signature)
	if err != nil {
		if apperr.IsSignature(err) {
			r.logger.Warn("webhook signature verification failed",
				zap.Int("payload_bytes", len(payload)),
				zap.Bool("signature_present", signature != ""),
				zap.NamedError("cause", errors.Unwrap(err)))
		}
		return "", err
	}

	log := r.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("intent_id", event.IntentID))

	var outcome Outcome
	switch event.Type {
	case EventIntentSucceeded:
		outcome, err = r.applySucceeded(ctx, event, log)
	case EventIntentFailed:
		outcome, err = r.applyFailed(ctx, event, log)
	default:
		outcome = OutcomeIgnored
		log.Debug("webhook event type not handled")
	}
	if err != nil {
		log.Error("webhook processing failed", zap.Error(err))
		return "", err
	}

	r.recordEvent(ctx, event, outcome, log)
	return outcome, nil
}

func (r *Reconciler) applySucceeded(ctx context.Context, event *Event, log *zap.Logger) (Outcome, error) {
	if event.IntentID == "" {
		log.Warn("succeeded event without payment intent id")
		return OutcomeIgnored, nil
	}

	outcome := OutcomeNoop
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		res := tx.Model(&models.Payment{}).
			Where("external_ref = ? AND status IN ?", event.IntentID, models.SourcesFor(models.PaymentStatusCompleted)).
			Updates(map[string]interface{}{
				"status":       models.PaymentStatusCompleted,
				"completed_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("complete payment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var err error
			outcome, err = classifyUnmatched(tx, event.IntentID, log)
			return err
		}

		var payment models.Payment
		if err := tx.Where("external_ref = ?", event.IntentID).First(&payment).Error; err != nil {
			return fmt.Errorf("reload payment: %w", err)
		}

		switch payment.PaymentType {
		case models.PaymentTypeDeposit:
			if err := settleDeposit(tx, &payment, log); err != nil {
				return err
			}
		case models.PaymentTypeRent:
			if err := recordRent(tx, &payment, event, now); err != nil {
				return err
			}
		}

		outcome = OutcomeApplied
		log.Info("payment completed",
			zap.Uint("payment_id", payment.ID),
			zap.String("payment_type", string(payment.PaymentType)))
		return nil
	})
	return outcome, err
}

func (r *Reconciler) applyFailed(ctx context.Context, event *Event, log *zap.Logger) (Outcome, error) {
	if event.IntentID == "" {
		log.Warn("failed event without payment intent id")
		return OutcomeIgnored, nil
	}

	outcome := OutcomeNoop
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("external_ref = ? AND status IN ?", event.IntentID, models.SourcesFor(models.PaymentStatusFailed)).
			Updates(map[string]interface{}{
				"status":    models.PaymentStatusFailed,
				"failed_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("fail payment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var err error
			outcome, err = classifyUnmatched(tx, event.IntentID, log)
			return err
		}
		outcome = OutcomeApplied
		log.Info("payment failed")
		return nil
	})
	return outcome, err
}

// classifyUnmatched explains why a guarded update matched nothing
func classifyUnmatched(tx *gorm.DB, intentID string, log *zap.Logger) (Outcome, error) {
	var payment models.Payment
	err := tx.Where("external_ref = ?", intentID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("webhook references unknown payment intent")
		return OutcomeMissing, nil
	}
	if err != nil {
		return "", fmt.Errorf("load payment: %w", err)
	}
	log.Info("webhook transition not applicable", zap.String("current_status", string(payment.Status)))
	return OutcomeNoop, nil
}

// settleDeposit moves the oldest pending booking for the payer and property to deposit_paid
func settleDeposit(tx *gorm.DB, payment *models.Payment, log *zap.Logger) error {
	var booking models.Booking
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("property_id = ? AND user_id = ? AND status = ?",
			payment.PropertyID, payment.UserID, models.BookingStatusPendingPayment).
		Order("created_at ASC, id ASC").
		First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("deposit completed without a pending booking",
			zap.Uint("payment_id", payment.ID),
			zap.Uint("property_id", payment.PropertyID),
			zap.Uint("user_id", payment.UserID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}

	res := tx.Model(&models.Booking{}).
		Where("id = ? AND status = ?", booking.ID, models.BookingStatusPendingPayment).
		Updates(map[string]interface{}{
			"status":     models.BookingStatusDepositPaid,
			"payment_id": payment.ID,
		})
	if res.Error != nil {
		return fmt.Errorf("update booking: %w", res.Error)
	}
	log.Info("booking deposit paid", zap.Uint("booking_id", booking.ID))
	return nil
}

func recordRent(tx *gorm.DB, payment *models.Payment, event *Event, paidAt time.Time) error {
	amount := payment.Amount
	if event.AmountMinor > 0 {
		amount = FromMinorUnits(event.AmountMinor)
	}
	currency := event.Currency
	if currency == "" {
		currency = payment.Currency
	}

	rent := models.RentPayment{
		PaymentID:  payment.ID,
		PropertyID: payment.PropertyID,
		UserID:     payment.UserID,
		Amount:     amount,
		Currency:   currency,
		PaidAt:     paidAt,
	}
	if err := tx.Create(&rent).Error; err != nil {
		return fmt.Errorf("insert rent payment: %w", err)
	}
	return nil
}

// recordEvent keeps the first outcome seen for each event id
func (r *Reconciler) recordEvent(ctx context.Context, event *Event, outcome Outcome, log *zap.Logger) {
	row := models.WebhookEvent{
		EventID:     event.ID,
		EventType:   event.Type,
		ExternalRef: event.IntentID,
		Outcome:     string(outcome),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		log.Warn("failed to record webhook event", zap.Error(err))
	}
}
