package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Property struct {
	ID           uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string          `gorm:"type:varchar(255);not null" json:"title"`
	Slug         string          `gorm:"type:varchar(280);not null;uniqueIndex" json:"slug"`
	Description  string          `gorm:"type:text" json:"description,omitempty"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Bedrooms     int             `gorm:"not null;default:0" json:"bedrooms"`
	Bathrooms    int             `gorm:"not null;default:0" json:"bathrooms"`
	AddressLine1 string          `gorm:"type:varchar(255)" json:"address_line1,omitempty"`
	AddressLine2 string          `gorm:"type:varchar(255)" json:"address_line2,omitempty"`
	Postcode     string          `gorm:"type:varchar(16);index" json:"postcode,omitempty"`
	CityID       uint            `gorm:"not null;index" json:"city_id"`
	Status       PropertyStatus  `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	AvailableFrom *time.Time `json:"available_from,omitempty"`
	CreatedBy     uint       `gorm:"index" json:"created_by"`

	City     *City             `gorm:"foreignKey:CityID" json:"city,omitempty"`
	Images   []PropertyImage   `gorm:"foreignKey:PropertyID" json:"images"`
	Features []PropertyFeature `gorm:"foreignKey:PropertyID" json:"features"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_properties_created_at,sort:desc" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// PropertyStatus is the publication state of a listing
type PropertyStatus string

const (
	PropertyStatusActive   PropertyStatus = "active"
	PropertyStatusInactive PropertyStatus = "inactive"
	PropertyStatusDraft    PropertyStatus = "draft"
)

// TableName specifies the table name for Property
func (Property) TableName() string {
	return "properties"
}

// Valid reports whether s is a known status
func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyStatusActive, PropertyStatusInactive, PropertyStatusDraft:
		return true
	}
	return false
}

// IsActive reports whether the listing is publicly visible
func (p *Property) IsActive() bool {
	return p.Status == PropertyStatusActive
}

// PrimaryImage returns the image flagged primary, or nil when there are no images
func (p *Property) PrimaryImage() *PropertyImage {
	for i := range p.Images {
		if p.Images[i].IsPrimary {
			return &p.Images[i]
		}
	}
	return nil
}
