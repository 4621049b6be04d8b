package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is an append-only record of write operations
type ActivityLog struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string         `gorm:"type:varchar(50);not null;index:idx_activity_entity" json:"entity_type"`
	EntityID   uint           `gorm:"not null;index:idx_activity_entity" json:"entity_id"`
	Details    datatypes.JSON `json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name
func (ActivityLog) TableName() string {
	return "activity_logs"
}

// Activity action constants
const (
	ActionPropertyCreated = "property_created"
	ActionPropertyUpdated = "property_updated"
	ActionPropertyDeleted = "property_deleted"
	ActionRefundCreated   = "refund_created"
)

// Activity entity types
const (
	EntityProperty = "property"
	EntityPayment  = "payment"
)
