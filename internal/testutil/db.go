// Package testutil provides an in-memory store and seed helpers for tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nicegilbz/stuhouses-sub000/internal/database"
	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database private to t.
// A single connection is used so every statement sees the same memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Logger returns a logger that discards output
func Logger() *zap.Logger {
	return zap.NewNop()
}

// SeedCity inserts a city with a zero property count
func SeedCity(t *testing.T, db *gorm.DB, name string) *models.City {
	t.Helper()
	city := &models.City{Name: name, Slug: strings.ToLower(name)}
	if err := db.Create(city).Error; err != nil {
		t.Fatalf("seed city: %v", err)
	}
	return city
}

// SeedFeature inserts a catalog feature
func SeedFeature(t *testing.T, db *gorm.DB, name string) *models.Feature {
	t.Helper()
	f := &models.Feature{Name: name}
	if err := db.Create(f).Error; err != nil {
		t.Fatalf("seed feature: %v", err)
	}
	return f
}

// SeedProperty inserts a bare property without touching the city counter
func SeedProperty(t *testing.T, db *gorm.DB, cityID uint, title string) *models.Property {
	t.Helper()
	p := &models.Property{
		Title:  title,
		Slug:   strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Price:  decimal.NewFromInt(500),
		CityID: cityID,
		Status: models.PropertyStatusActive,
	}
	if err := db.Omit("City", "Images", "Features").Create(p).Error; err != nil {
		t.Fatalf("seed property: %v", err)
	}
	return p
}

// SeedPayment inserts a payment row in the given status
func SeedPayment(t *testing.T, db *gorm.DB, p models.Payment) *models.Payment {
	t.Helper()
	if p.Currency == "" {
		p.Currency = "gbp"
	}
	if p.Status == "" {
		p.Status = models.PaymentStatusPending
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return &p
}

// ReloadPayment fetches the current row for id
func ReloadPayment(t *testing.T, db *gorm.DB, id uint) models.Payment {
	t.Helper()
	var p models.Payment
	if err := db.First(&p, id).Error; err != nil {
		t.Fatalf("reload payment %d: %v", id, err)
	}
	return p
}

// Count returns the number of rows in model's table matching the optional condition
func Count(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
