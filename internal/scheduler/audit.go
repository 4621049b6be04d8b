package scheduler

import (
	"context"
	"fmt"

	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"gorm.io/gorm"
)

// CityCount compares a city's stored property_count with its live row count
type CityCount struct {
	CityID uint   `json:"city_id"`
	Name   string `json:"name"`
	Stored int    `json:"stored"`
	Live   int    `json:"live"`
}

// Drifted reports whether the stored counter disagrees with the live count
func (c CityCount) Drifted() bool {
	return c.Stored != c.Live
}

// AuditReport is the result of one counter audit
type AuditReport struct {
	Cities  []CityCount `json:"cities"`
	Drifted []CityCount `json:"drifted"`
}

// AuditCityCounters reads every city's counter next to a live count of its
// properties. It never writes.
func AuditCityCounters(ctx context.Context, db *gorm.DB) (*AuditReport, error) {
	var rows []CityCount
	err := db.WithContext(ctx).
		Model(&models.City{}).
		Select("cities.id AS city_id, cities.name AS name, cities.property_count AS stored, COUNT(properties.id) AS live").
		Joins("LEFT JOIN properties ON properties.city_id = cities.id").
		Group("cities.id, cities.name, cities.property_count").
		Order("cities.id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("audit city counters: %w", err)
	}

	report := &AuditReport{Cities: rows, Drifted: []CityCount{}}
	for _, r := range rows {
		if r.Drifted() {
			report.Drifted = append(report.Drifted, r)
		}
	}
	return report, nil
}
