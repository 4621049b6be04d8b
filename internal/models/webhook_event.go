package models

import "time"

// WebhookEvent is the audit trail of processor events received.
// Reconciliation never depends on it; the guarded status updates are
// what make replays harmless.
type WebhookEvent struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID     string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"event_id"`
	EventType   string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	ExternalRef string    `gorm:"type:varchar(255);index" json:"external_ref,omitempty"`
	Outcome     string    `gorm:"type:varchar(20);not null" json:"outcome"`
	ReceivedAt  time.Time `gorm:"not null;autoCreateTime" json:"received_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
