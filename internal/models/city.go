package models

import "time"

// City groups properties and carries a denormalized listing count.
// PropertyCount is only ever changed by in-store increments inside the
// transaction that creates or deletes a property.
type City struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Slug          string    `gorm:"type:varchar(120);not null;uniqueIndex" json:"slug"`
	PropertyCount int       `gorm:"not null;default:0" json:"property_count"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for City
func (City) TableName() string {
	return "cities"
}
