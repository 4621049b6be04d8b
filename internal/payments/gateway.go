package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nicegilbz/stuhouses-sub000/internal/apperr"
	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recordTimeout bounds the local insert that follows a successful intent
const recordTimeout = 5 * time.Second

// IntentRequest is a caller's request to start paying for a property
type IntentRequest struct {
	UserID      uint
	PropertyID  uint
	Amount      decimal.Decimal
	Currency    string
	PaymentType models.PaymentType
}

// IntentResult is handed back to the client to confirm the payment
type IntentResult struct {
	PaymentID    uint                 `json:"payment_id"`
	IntentID     string               `json:"intent_id"`
	ClientSecret string               `json:"client_secret"`
	Status       models.PaymentStatus `json:"status"`
	Amount       decimal.Decimal      `json:"amount"`
	Currency     string               `json:"currency"`
}

// Gateway creates payment intents and their local pending records
type Gateway struct {
	db              *gorm.DB
	processor       IntentCreator
	timeout         time.Duration
	defaultCurrency string
	logger          *zap.Logger
}

// NewGateway creates a gateway. timeout bounds every processor call.
func NewGateway(db *gorm.DB, processor IntentCreator, timeout time.Duration, defaultCurrency string, logger *zap.Logger) *Gateway {
	return &Gateway{
		db:              db,
		processor:       processor,
		timeout:         timeout,
		defaultCurrency: defaultCurrency,
		logger:          logger.Named("gateway"),
	}
}

// CreatePaymentIntent creates the intent upstream and records a pending
// payment before returning the client secret. If the processor call fails
// nothing is written.
func (g *Gateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*IntentResult, error) {
	if req.PropertyID == 0 {
		return nil, apperr.Validation("property_id", "is required")
	}
	if !req.PaymentType.Valid() {
		return nil, apperr.Validation("payment_type", "must be %q or %q", models.PaymentTypeDeposit, models.PaymentTypeRent)
	}
	if !req.Amount.IsPositive() {
		return nil, apperr.Validation("amount", "must be greater than zero")
	}
	if err := checkAmount(req.Amount); err != nil {
		return nil, err
	}
	minor, _ := ToMinorUnits(req.Amount)
	if minor <= 0 {
		return nil, apperr.Validation("amount", "rounds to zero")
	}
	currency, ok := normalizeCurrency(req.Currency, g.defaultCurrency)
	if !ok {
		return nil, apperr.Validation("currency", "must be a three letter code")
	}

	var exists int64
	if err := g.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", req.PropertyID).Count(&exists).Error; err != nil {
		return nil, fmt.Errorf("check property: %w", err)
	}
	if exists == 0 {
		return nil, apperr.NotFound("property", req.PropertyID)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	intent, err := g.processor.CreatePaymentIntent(callCtx, IntentParams{
		AmountMinor:    minor,
		Currency:       currency,
		IdempotencyKey: uuid.NewString(),
		Metadata: map[string]string{
			"user_id":      strconv.FormatUint(uint64(req.UserID), 10),
			"property_id":  strconv.FormatUint(uint64(req.PropertyID), 10),
			"payment_type": string(req.PaymentType),
		},
	})
	if err != nil {
		g.logger.Warn("create payment intent failed",
			zap.Uint("user_id", req.UserID),
			zap.Uint("property_id", req.PropertyID),
			zap.String("error", describe(err)))
		return nil, apperr.Upstream("create payment intent", err)
	}

	payment := models.Payment{
		UserID:      req.UserID,
		PropertyID:  req.PropertyID,
		PaymentType: req.PaymentType,
		Amount:      FromMinorUnits(minor),
		Currency:    currency,
		ExternalRef: intent.ID,
		Status:      models.PaymentStatusPending,
	}
	// The intent already exists upstream, so a disconnecting client must not
	// abort the insert that makes it reconcilable.
	recordCtx, cancelRecord := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancelRecord()
	if err := g.db.WithContext(recordCtx).Create(&payment).Error; err != nil {
		// The intent exists upstream but its secret is never returned, so it cannot be paid.
		g.logger.Error("payment intent not recorded locally",
			zap.String("intent_id", intent.ID),
			zap.Error(err))
		return nil, fmt.Errorf("record payment: %w", err)
	}

	g.logger.Info("payment intent created",
		zap.Uint("payment_id", payment.ID),
		zap.String("intent_id", intent.ID),
		zap.String("payment_type", string(payment.PaymentType)),
		zap.Int64("amount_minor", minor),
		zap.String("currency", currency))

	return &IntentResult{
		PaymentID:    payment.ID,
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       payment.Status,
		Amount:       payment.Amount,
		Currency:     currency,
	}, nil
}

// GetPayment loads a payment by id
func (g *Gateway) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	err := g.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("payment", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
