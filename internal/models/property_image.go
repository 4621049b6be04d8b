package models

import "time"

// PropertyImage represents an image associated with a property
type PropertyImage struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID   uint      `gorm:"not null;index" json:"property_id"`
	URL          string    `gorm:"type:text;not null" json:"url"`
	DisplayOrder int       `gorm:"not null;default:0;index" json:"display_order"`
	IsPrimary    bool      `gorm:"not null;default:false" json:"is_primary"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for PropertyImage
func (PropertyImage) TableName() string {
	return "property_images"
}
