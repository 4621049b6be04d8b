// Package activity writes and reads the append-only activity log.
package activity

import (
	"encoding/json"
	"fmt"

	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry is one activity log record before it is written
type Entry struct {
	UserID     uint
	Action     string
	EntityType string
	EntityID   uint
	Details    map[string]interface{}
}

// Record inserts the entry using tx, so it commits or rolls back with the
// write it describes.
func Record(tx *gorm.DB, e Entry) error {
	log := models.ActivityLog{
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
	}
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode activity details: %w", err)
		}
		log.Details = datatypes.JSON(raw)
	}
	if err := tx.Create(&log).Error; err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

// Filter narrows Recent
type Filter struct {
	EntityType string
	EntityID   uint
	Limit      int
}

// Recent returns the newest activity first
func Recent(db *gorm.DB, f Filter) ([]models.ActivityLog, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	q := db.Order("created_at DESC, id DESC").Limit(f.Limit)
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}

	var logs []models.ActivityLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
