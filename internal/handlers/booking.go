package handlers

import (
	"errors"
	"net/http"

	"github.com/nicegilbz/stuhouses-sub000/internal/apperr"
	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BookingHandler opens bookings that wait for a deposit payment
type BookingHandler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(db *gorm.DB, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{db: db, logger: logger.Named("bookings")}
}

type createBookingRequest struct {
	PropertyID uint `json:"property_id" binding:"required"`
}

// CreateBooking creates a pending_payment booking for the caller. A caller
// holds at most one pending booking per property.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	userID, _ := currentUserID(c)

	var booking models.Booking
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var property models.Property
		err := tx.Select("id", "status").First(&property, req.PropertyID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("property", req.PropertyID)
		}
		if err != nil {
			return err
		}
		if !property.IsActive() {
			return apperr.InvalidState("property", string(property.Status), "only active properties can be booked")
		}

		var pending int64
		err = tx.Model(&models.Booking{}).
			Where("property_id = ? AND user_id = ? AND status = ?", req.PropertyID, userID, models.BookingStatusPendingPayment).
			Count(&pending).Error
		if err != nil {
			return err
		}
		if pending > 0 {
			return apperr.InvalidState("booking", string(models.BookingStatusPendingPayment), "a booking for this property is already awaiting payment")
		}

		booking = models.Booking{
			PropertyID: req.PropertyID,
			UserID:     userID,
			Status:     models.BookingStatusPendingPayment,
		}
		return tx.Create(&booking).Error
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("booking created",
		zap.Uint("booking_id", booking.ID),
		zap.Uint("property_id", booking.PropertyID),
		zap.Uint("user_id", userID))
	c.JSON(http.StatusCreated, booking)
}
