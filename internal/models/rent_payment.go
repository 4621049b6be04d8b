package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RentPayment is the ledger entry written when a rent payment completes.
// PaymentID is unique so a payment can settle rent at most once.
type RentPayment struct {
	ID         uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID  uint            `gorm:"not null;uniqueIndex" json:"payment_id"`
	PropertyID uint            `gorm:"not null;index" json:"property_id"`
	UserID     uint            `gorm:"not null;index" json:"user_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency   string          `gorm:"type:varchar(3);not null" json:"currency"`
	PaidAt     time.Time       `gorm:"not null" json:"paid_at"`
}

func (RentPayment) TableName() string {
	return "rent_payments"
}
