package database

import (
	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the services use
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.City{},
		&models.Feature{},
		&models.Property{},
		&models.PropertyImage{},
		&models.PropertyFeature{},
		&models.Payment{},
		&models.Refund{},
		&models.Booking{},
		&models.RentPayment{},
		&models.ActivityLog{},
		&models.WebhookEvent{},
	)
}
