package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Refund records money returned against a payment. The sum of refunds
// for a payment never exceeds its amount.
type Refund struct {
	ID               uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID        uint            `gorm:"not null;index" json:"payment_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reason           string          `gorm:"type:varchar(255)" json:"reason,omitempty"`
	ExternalRefundID string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"external_refund_id"`
	Status           string          `gorm:"type:varchar(32);not null" json:"status"`
	CreatedBy        uint            `gorm:"not null" json:"created_by"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for Refund
func (Refund) TableName() string {
	return "refunds"
}
