package listing

import (
	"strings"
	"time"

	"github.com/nicegilbz/stuhouses-sub000/internal/apperr"
	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"github.com/shopspring/decimal"
)

// ImageInput describes one image in a create or update request
type ImageInput struct {
	URL          string `json:"url" binding:"required"`
	IsPrimary    bool   `json:"is_primary"`
	DisplayOrder *int   `json:"display_order,omitempty" binding:"omitempty,min=0"`
}

// CreatePropertyInput is the payload for a new listing
type CreatePropertyInput struct {
	Title         string                `json:"title" binding:"required"`
	Description   string                `json:"description"`
	Price         *decimal.Decimal      `json:"price" binding:"required"`
	Bedrooms      *int                  `json:"bedrooms" binding:"required,min=0"`
	Bathrooms     int                   `json:"bathrooms" binding:"min=0"`
	AddressLine1  string                `json:"address_line1"`
	AddressLine2  string                `json:"address_line2"`
	Postcode      string                `json:"postcode" binding:"max=16"`
	CityID        uint                  `json:"city_id" binding:"required"`
	Status        models.PropertyStatus `json:"status"`
	AvailableFrom *time.Time            `json:"available_from"`
	Images        []ImageInput          `json:"images" binding:"dive"`
	Features      []uint                `json:"features"`
}

// UpdatePropertyInput is a partial update. Only fields marked Set are written.
// Images are appended unless ReplaceImages is true; a supplied feature list
// replaces the current one.
type UpdatePropertyInput struct {
	Title         Optional[string]                `json:"title"`
	Description   Optional[string]                `json:"description"`
	Price         Optional[decimal.Decimal]       `json:"price"`
	Bedrooms      Optional[int]                   `json:"bedrooms"`
	Bathrooms     Optional[int]                   `json:"bathrooms"`
	AddressLine1  Optional[string]                `json:"address_line1"`
	AddressLine2  Optional[string]                `json:"address_line2"`
	Postcode      Optional[string]                `json:"postcode"`
	CityID        Optional[uint]                  `json:"city_id"`
	Status        Optional[models.PropertyStatus] `json:"status"`
	AvailableFrom Optional[*time.Time]            `json:"available_from"`
	Images        Optional[[]ImageInput]          `json:"images"`
	ReplaceImages bool                            `json:"replace_images"`
	Features      Optional[[]uint]                `json:"features"`
}

func (in *CreatePropertyInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.Validation("title", "is required")
	}
	if in.Price == nil {
		return apperr.Validation("price", "is required")
	}
	if err := validatePrice(*in.Price); err != nil {
		return err
	}
	if in.Bedrooms == nil {
		return apperr.Validation("bedrooms", "is required")
	}
	if *in.Bedrooms < 0 {
		return apperr.Validation("bedrooms", "must not be negative")
	}
	if in.Bathrooms < 0 {
		return apperr.Validation("bathrooms", "must not be negative")
	}
	if in.CityID == 0 {
		return apperr.Validation("city_id", "is required")
	}
	if in.Status != "" && !in.Status.Valid() {
		return apperr.Validation("status", "unknown status %q", in.Status)
	}
	if err := validateImages(in.Images); err != nil {
		return err
	}
	return validateFeatureIDs(in.Features)
}

func (in *UpdatePropertyInput) validate() error {
	if !in.hasChanges() {
		return apperr.Validation("", "no fields supplied")
	}
	if in.Title.Set && strings.TrimSpace(in.Title.Value) == "" {
		return apperr.Validation("title", "must not be empty")
	}
	if in.Price.Set {
		if err := validatePrice(in.Price.Value); err != nil {
			return err
		}
	}
	if in.Bedrooms.Set && in.Bedrooms.Value < 0 {
		return apperr.Validation("bedrooms", "must not be negative")
	}
	if in.Bathrooms.Set && in.Bathrooms.Value < 0 {
		return apperr.Validation("bathrooms", "must not be negative")
	}
	if in.CityID.Set && in.CityID.Value == 0 {
		return apperr.Validation("city_id", "must reference a city")
	}
	if in.Status.Set && !in.Status.Value.Valid() {
		return apperr.Validation("status", "unknown status %q", in.Status.Value)
	}
	if in.Images.Set {
		if err := validateImages(in.Images.Value); err != nil {
			return err
		}
	}
	if in.Features.Set {
		return validateFeatureIDs(in.Features.Value)
	}
	return nil
}

func (in *UpdatePropertyInput) hasChanges() bool {
	return len(in.columns()) > 0 || in.Images.Set || in.Features.Set
}

// columns maps the supplied scalar fields onto their column names
func (in *UpdatePropertyInput) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if in.Title.Set {
		cols["title"] = strings.TrimSpace(in.Title.Value)
	}
	if in.Description.Set {
		cols["description"] = in.Description.Value
	}
	if in.Price.Set {
		cols["price"] = in.Price.Value
	}
	if in.Bedrooms.Set {
		cols["bedrooms"] = in.Bedrooms.Value
	}
	if in.Bathrooms.Set {
		cols["bathrooms"] = in.Bathrooms.Value
	}
	if in.AddressLine1.Set {
		cols["address_line1"] = in.AddressLine1.Value
	}
	if in.AddressLine2.Set {
		cols["address_line2"] = in.AddressLine2.Value
	}
	if in.Postcode.Set {
		cols["postcode"] = in.Postcode.Value
	}
	if in.CityID.Set {
		cols["city_id"] = in.CityID.Value
	}
	if in.Status.Set {
		cols["status"] = in.Status.Value
	}
	if in.AvailableFrom.Set {
		cols["available_from"] = in.AvailableFrom.Value
	}
	return cols
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return apperr.Validation("price", "must be greater than zero")
	}
	if !price.Equal(price.Round(2)) {
		return apperr.Validation("price", "must have at most 2 decimal places")
	}
	return nil
}

func validateImages(images []ImageInput) error {
	for i, img := range images {
		if strings.TrimSpace(img.URL) == "" {
			return apperr.Validation("images", "image %d has no url", i)
		}
		if img.DisplayOrder != nil && *img.DisplayOrder < 0 {
			return apperr.Validation("images", "image %d has a negative display_order", i)
		}
	}
	return nil
}

func validateFeatureIDs(ids []uint) error {
	for _, id := range ids {
		if id == 0 {
			return apperr.Validation("features", "feature id must be positive")
		}
	}
	return nil
}
