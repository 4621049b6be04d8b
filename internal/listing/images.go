package listing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"gorm.io/gorm"
)

// buildImages assigns display order and the primary flag for a batch of new
// images. Images without an explicit order follow on from startOrder. Only
// the first image flagged primary keeps the flag.
func buildImages(propertyID uint, inputs []ImageInput, startOrder int) []models.PropertyImage {
	images := make([]models.PropertyImage, 0, len(inputs))
	primaryTaken := false
	for i, in := range inputs {
		order := startOrder + i
		if in.DisplayOrder != nil {
			order = *in.DisplayOrder
		}
		img := models.PropertyImage{
			PropertyID:   propertyID,
			URL:          strings.TrimSpace(in.URL),
			DisplayOrder: order,
		}
		if in.IsPrimary && !primaryTaken {
			img.IsPrimary = true
			primaryTaken = true
		}
		images = append(images, img)
	}
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].DisplayOrder < images[j].DisplayOrder
	})
	return images
}

func hasPrimary(images []models.PropertyImage) bool {
	for _, img := range images {
		if img.IsPrimary {
			return true
		}
	}
	return false
}

func insertImages(tx *gorm.DB, images []models.PropertyImage) error {
	if len(images) == 0 {
		return nil
	}
	if err := tx.Create(&images).Error; err != nil {
		return fmt.Errorf("insert property images: %w", err)
	}
	return nil
}

// replaceImages removes every image of the property and inserts the new set
func replaceImages(tx *gorm.DB, propertyID uint, inputs []ImageInput) error {
	if err := tx.Where("property_id = ?", propertyID).Delete(&models.PropertyImage{}).Error; err != nil {
		return fmt.Errorf("delete property images: %w", err)
	}
	return insertImages(tx, buildImages(propertyID, inputs, 0))
}

// appendImages adds images after the current highest display order. A new
// image flagged primary takes the flag from the existing primary.
func appendImages(tx *gorm.DB, propertyID uint, inputs []ImageInput) error {
	if len(inputs) == 0 {
		return nil
	}

	var maxOrder int
	row := tx.Model(&models.PropertyImage{}).
		Where("property_id = ?", propertyID).
		Select("COALESCE(MAX(display_order), -1)").
		Row()
	if err := row.Scan(&maxOrder); err != nil {
		return fmt.Errorf("read image order: %w", err)
	}

	images := buildImages(propertyID, inputs, maxOrder+1)
	if hasPrimary(images) {
		err := tx.Model(&models.PropertyImage{}).
			Where("property_id = ? AND is_primary = ?", propertyID, true).
			Update("is_primary", false).Error
		if err != nil {
			return fmt.Errorf("clear primary image: %w", err)
		}
	}
	return insertImages(tx, images)
}

// ensurePrimary promotes the first image by display order when the
// property has images but none is primary.
func ensurePrimary(tx *gorm.DB, propertyID uint) error {
	var primaries int64
	err := tx.Model(&models.PropertyImage{}).
		Where("property_id = ? AND is_primary = ?", propertyID, true).
		Count(&primaries).Error
	if err != nil {
		return fmt.Errorf("count primary images: %w", err)
	}
	if primaries > 0 {
		return nil
	}

	var first models.PropertyImage
	err = tx.Where("property_id = ?", propertyID).
		Order("display_order ASC, id ASC").
		First(&first).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load first image: %w", err)
	}
	return tx.Model(&first).Update("is_primary", true).Error
}
