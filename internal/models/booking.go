package models

import "time"

// Booking reserves a property for a user until the deposit is paid
type Booking struct {
	ID         uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID uint          `gorm:"not null;index:idx_bookings_lookup" json:"property_id"`
	UserID     uint          `gorm:"not null;index:idx_bookings_lookup" json:"user_id"`
	Status     BookingStatus `gorm:"type:varchar(32);not null;default:'pending_payment';index:idx_bookings_lookup" json:"status"`
	PaymentID  *uint         `gorm:"index" json:"payment_id,omitempty"`
	CreatedAt  time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusDepositPaid    BookingStatus = "deposit_paid"
	BookingStatusCancelled      BookingStatus = "cancelled"
)

// TableName specifies the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}
