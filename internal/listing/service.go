// Package listing implements the transactional write path for properties:
// the property row, its images, its feature tags and the owning city's
// property count change together or not at all.
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nicegilbz/stuhouses-sub000/internal/activity"
	"github.com/nicegilbz/stuhouses-sub000/internal/apperr"
	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Indexer receives committed listings for the search index
type Indexer interface {
	IndexProperty(ctx context.Context, p *models.Property) error
	RemoveProperty(ctx context.Context, id uint) error
}

// Service handles property writes
type Service struct {
	db      *gorm.DB
	indexer Indexer
	logger  *zap.Logger
}

// NewService creates a listing service. indexer may be nil.
func NewService(db *gorm.DB, indexer Indexer, logger *zap.Logger) *Service {
	return &Service{
		db:      db,
		indexer: indexer,
		logger:  logger.Named("listing"),
	}
}

// GetProperty returns a property with its city, ordered images and features
func (s *Service) GetProperty(ctx context.Context, id uint) (*models.Property, error) {
	var p models.Property
	if err := loadProperty(s.db.WithContext(ctx), id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProperty inserts a property with its images and features and
// increments the city's property count in one transaction.
func (s *Service) CreateProperty(ctx context.Context, actorID uint, in CreatePropertyInput) (*models.Property, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		created models.Property
		err     error
	)
	// A concurrent create can take the same slug between uniqueSlug and the
	// insert; the unique index rejects it and the whole transaction reruns.
	for attempt := 1; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := ensureCity(tx, in.CityID); err != nil {
				return err
			}

			slug, err := uniqueSlug(tx, in.Title)
			if err != nil {
				return err
			}

			status := in.Status
			if status == "" {
				status = models.PropertyStatusActive
			}

			property := models.Property{
				Title:         strings.TrimSpace(in.Title),
				Slug:          slug,
				Description:   in.Description,
				Price:         *in.Price,
				Bedrooms:      *in.Bedrooms,
				Bathrooms:     in.Bathrooms,
				AddressLine1:  in.AddressLine1,
				AddressLine2:  in.AddressLine2,
				Postcode:      in.Postcode,
				CityID:        in.CityID,
				Status:        status,
				AvailableFrom: in.AvailableFrom,
				CreatedBy:     actorID,
			}
			if err := tx.Omit(clause.Associations).Create(&property).Error; err != nil {
				return fmt.Errorf("insert property: %w", err)
			}

			if err := insertImages(tx, buildImages(property.ID, in.Images, 0)); err != nil {
				return err
			}
			if err := ensurePrimary(tx, property.ID); err != nil {
				return err
			}
			if err := insertFeatures(tx, property.ID, in.Features); err != nil {
				return err
			}
			if err := adjustCityCount(tx, property.CityID, 1); err != nil {
				return err
			}

			err = activity.Record(tx, activity.Entry{
				UserID:     actorID,
				Action:     models.ActionPropertyCreated,
				EntityType: models.EntityProperty,
				EntityID:   property.ID,
				Details: map[string]interface{}{
					"title":    property.Title,
					"city_id":  property.CityID,
					"images":   len(in.Images),
					"features": len(in.Features),
				},
			})
			if err != nil {
				return err
			}

			return loadProperty(tx, property.ID, &created)
		})
		if !isDuplicateKey(err) || attempt == maxCreateAttempts {
			break
		}
		s.logger.Warn("property slug taken concurrently, retrying",
			zap.String("title", in.Title),
			zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("property created",
		zap.Uint("property_id", created.ID),
		zap.Uint("city_id", created.CityID),
		zap.Uint("actor_id", actorID))
	s.indexProperty(ctx, &created)
	return &created, nil
}

// UpdateProperty applies a partial update. The row is locked for the
// duration of the transaction; overlapping updates are last-committed-wins.
func (s *Service) UpdateProperty(ctx context.Context, actorID, id uint, in UpdatePropertyInput) (*models.Property, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var updated models.Property
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockProperty(tx, id)
		if err != nil {
			return err
		}

		changes := in.columns()
		if in.CityID.Set && in.CityID.Value != existing.CityID {
			if err := ensureCity(tx, in.CityID.Value); err != nil {
				return err
			}
			if err := adjustCityCount(tx, existing.CityID, -1); err != nil {
				return err
			}
			if err := adjustCityCount(tx, in.CityID.Value, 1); err != nil {
				return err
			}
		}

		if len(changes) > 0 {
			if err := tx.Model(existing).Updates(changes).Error; err != nil {
				return fmt.Errorf("update property: %w", err)
			}
		}

		if in.Images.Set {
			if in.ReplaceImages {
				err = replaceImages(tx, id, in.Images.Value)
			} else {
				err = appendImages(tx, id, in.Images.Value)
			}
			if err != nil {
				return err
			}
			if err := ensurePrimary(tx, id); err != nil {
				return err
			}
		}

		if in.Features.Set {
			if err := tx.Where("property_id = ?", id).Delete(&models.PropertyFeature{}).Error; err != nil {
				return fmt.Errorf("delete property features: %w", err)
			}
			if err := insertFeatures(tx, id, in.Features.Value); err != nil {
				return err
			}
		}

		fields := make([]string, 0, len(changes)+2)
		for col := range changes {
			fields = append(fields, col)
		}
		if in.Images.Set {
			fields = append(fields, "images")
		}
		if in.Features.Set {
			fields = append(fields, "features")
		}
		err = activity.Record(tx, activity.Entry{
			UserID:     actorID,
			Action:     models.ActionPropertyUpdated,
			EntityType: models.EntityProperty,
			EntityID:   id,
			Details: map[string]interface{}{
				"fields":         fields,
				"replace_images": in.Images.Set && in.ReplaceImages,
			},
		})
		if err != nil {
			return err
		}

		return loadProperty(tx, id, &updated)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("property updated", zap.Uint("property_id", id), zap.Uint("actor_id", actorID))
	s.indexProperty(ctx, &updated)
	return &updated, nil
}

// DeleteProperty removes the property, its images and feature links and
// decrements the city's property count in one transaction. Child rows are
// deleted explicitly rather than through foreign key cascades.
func (s *Service) DeleteProperty(ctx context.Context, actorID, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockProperty(tx, id)
		if err != nil {
			return err
		}

		if err := tx.Where("property_id = ?", id).Delete(&models.PropertyImage{}).Error; err != nil {
			return fmt.Errorf("delete property images: %w", err)
		}
		if err := tx.Where("property_id = ?", id).Delete(&models.PropertyFeature{}).Error; err != nil {
			return fmt.Errorf("delete property features: %w", err)
		}

		res := tx.Delete(&models.Property{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete property: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.NotFound("property", id)
		}

		if err := adjustCityCount(tx, existing.CityID, -1); err != nil {
			return err
		}

		return activity.Record(tx, activity.Entry{
			UserID:     actorID,
			Action:     models.ActionPropertyDeleted,
			EntityType: models.EntityProperty,
			EntityID:   id,
			Details: map[string]interface{}{
				"title":   existing.Title,
				"slug":    existing.Slug,
				"city_id": existing.CityID,
			},
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("property deleted", zap.Uint("property_id", id), zap.Uint("actor_id", actorID))
	if s.indexer != nil {
		if err := s.indexer.RemoveProperty(ctx, id); err != nil {
			s.logger.Warn("failed to remove property from search index", zap.Uint("property_id", id), zap.Error(err))
		}
	}
	return nil
}

// indexProperty pushes a committed property to the search index. Failures
// only leave the index stale, so they are logged and not returned.
func (s *Service) indexProperty(ctx context.Context, p *models.Property) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexProperty(ctx, p); err != nil {
		s.logger.Warn("failed to index property", zap.Uint("property_id", p.ID), zap.Error(err))
	}
}

func lockProperty(tx *gorm.DB, id uint) (*models.Property, error) {
	var p models.Property
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("property", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load property: %w", err)
	}
	return &p, nil
}

func loadProperty(db *gorm.DB, id uint, dest *models.Property) error {
	err := db.
		Preload("City").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC, id ASC")
		}).
		Preload("Features", func(db *gorm.DB) *gorm.DB {
			return db.Order("feature_id ASC")
		}).
		Preload("Features.Feature").
		First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("property", id)
	}
	return err
}

func ensureCity(tx *gorm.DB, cityID uint) error {
	var count int64
	if err := tx.Model(&models.City{}).Where("id = ?", cityID).Count(&count).Error; err != nil {
		return fmt.Errorf("check city: %w", err)
	}
	if count == 0 {
		return apperr.Validation("city_id", "city %d does not exist", cityID)
	}
	return nil
}

// adjustCityCount moves the counter by delta inside the store so concurrent
// writers never overwrite each other's increments.
func adjustCityCount(tx *gorm.DB, cityID uint, delta int) error {
	res := tx.Model(&models.City{}).
		Where("id = ?", cityID).
		UpdateColumn("property_count", gorm.Expr("property_count + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("adjust city %d property count: %w", cityID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("adjust city %d property count: city row missing", cityID)
	}
	return nil
}

func insertFeatures(tx *gorm.DB, propertyID uint, ids []uint) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}

	var known int64
	if err := tx.Model(&models.Feature{}).Where("id IN ?", ids).Count(&known).Error; err != nil {
		return fmt.Errorf("check features: %w", err)
	}
	if int(known) != len(ids) {
		return apperr.Validation("features", "unknown feature id in %v", ids)
	}

	links := make([]models.PropertyFeature, 0, len(ids))
	for _, id := range ids {
		links = append(links, models.PropertyFeature{PropertyID: propertyID, FeatureID: id})
	}
	if err := tx.Omit(clause.Associations).Create(&links).Error; err != nil {
		return fmt.Errorf("insert property features: %w", err)
	}
	return nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
