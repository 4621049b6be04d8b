package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the local record of a processor payment intent.
// ExternalRef is written once at creation and never cleared.
type Payment struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	PropertyID  uint            `gorm:"not null;index" json:"property_id"`
	PaymentType PaymentType     `gorm:"type:varchar(20);not null" json:"payment_type"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'gbp'" json:"currency"`
	ExternalRef string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"external_ref"`
	Status      PaymentStatus   `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	FailedAt    *time.Time      `json:"failed_at,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// PaymentType distinguishes what a payment settles
type PaymentType string

const (
	PaymentTypeDeposit PaymentType = "deposit"
	PaymentTypeRent    PaymentType = "rent"
)

// Valid reports whether t is a known payment type
func (t PaymentType) Valid() bool {
	return t == PaymentTypeDeposit || t == PaymentTypeRent
}

// PaymentStatus is the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// paymentTransitions is the full set of legal moves. Anything absent is
// rejected, which keeps status monotonic under replayed or reordered events.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:           {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusFailed:            {PaymentStatusCompleted},
	PaymentStatusCompleted:         {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
	PaymentStatusPartiallyRefunded: {PaymentStatusPartiallyRefunded, PaymentStatusRefunded},
}

// CanTransitionTo reports whether moving from s to next is legal
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SourcesFor lists every status from which next can be reached. Guarded
// updates use it as their WHERE status IN (...) clause.
func SourcesFor(next PaymentStatus) []PaymentStatus {
	var sources []PaymentStatus
	for _, from := range []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusFailed,
		PaymentStatusCompleted,
		PaymentStatusPartiallyRefunded,
	} {
		if from.CanTransitionTo(next) {
			sources = append(sources, from)
		}
	}
	return sources
}

// IsRefundable reports whether money can still be returned on this payment
func (p *Payment) IsRefundable() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusPartiallyRefunded
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}
