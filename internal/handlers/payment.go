package handlers

import (
	"net/http"

	"github.com/nicegilbz/stuhouses-sub000/internal/apperr"
	"github.com/nicegilbz/stuhouses-sub000/internal/models"
	"github.com/nicegilbz/stuhouses-sub000/internal/payments"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentHandler serves intent creation and payment lookups
type PaymentHandler struct {
	gateway *payments.Gateway
	logger  *zap.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(gateway *payments.Gateway, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{gateway: gateway, logger: logger.Named("payments")}
}

type createIntentRequest struct {
	PropertyID  uint               `json:"property_id" binding:"required"`
	Amount      *decimal.Decimal   `json:"amount" binding:"required"`
	Currency    string             `json:"currency"`
	PaymentType models.PaymentType `json:"payment_type" binding:"required"`
}

// CreateIntent starts a deposit or rent payment for the caller
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	result, err := h.gateway.CreatePaymentIntent(c.Request.Context(), payments.IntentRequest{
		UserID:      userID,
		PropertyID:  req.PropertyID,
		Amount:      *req.Amount,
		Currency:    req.Currency,
		PaymentType: req.PaymentType,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetPayment returns a payment to its owner or an admin. Other callers get
// a 404 so payment ids cannot be probed.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	payment, err := h.gateway.GetPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	userID, _ := currentUserID(c)
	if payment.UserID != userID && !isAdmin(c) {
		respondError(c, h.logger, apperr.NotFound("payment", id))
		return
	}
	c.JSON(http.StatusOK, payment)
}
