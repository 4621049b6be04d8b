package search

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"github.com/meilisearch/meilisearch-go"
	"gorm.io/gorm"
)

// SearchClient keeps the property index in step with committed listings
type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey, index string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if index == "" {
		index = "properties"
	}

	return &SearchClient{
		client: client,
		index:  index,
	}
}

// InitIndex creates the index and configures its attributes
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	idx := s.client.Index(s.index)
	if _, err := idx.UpdateSearchableAttributes(&[]string{
		"title",
		"description",
		"city",
		"postcode",
		"features",
	}); err != nil {
		return err
	}

	if _, err := idx.UpdateFilterableAttributes(&[]string{
		"city_id",
		"status",
		"bedrooms",
		"bathrooms",
		"price",
		"features",
	}); err != nil {
		return err
	}

	_, err = idx.UpdateSortableAttributes(&[]string{
		"price",
		"bedrooms",
		"created_at",
		"available_from",
	})
	return err
}

// IndexProperty upserts one property document
func (s *SearchClient) IndexProperty(ctx context.Context, property *models.Property) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.Index(s.index).AddDocuments([]Document{NewDocument(property)}, "id")
	return err
}

// IndexProperties upserts a batch of property documents
func (s *SearchClient) IndexProperties(properties []models.Property) error {
	if len(properties) == 0 {
		return nil
	}
	docs := make([]Document, 0, len(properties))
	for i := range properties {
		docs = append(docs, NewDocument(&properties[i]))
	}
	_, err := s.client.Index(s.index).AddDocuments(docs, "id")
	return err
}

// RemoveProperty deletes a property document
func (s *SearchClient) RemoveProperty(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.Index(s.index).DeleteDocument(strconv.FormatUint(uint64(id), 10))
	return err
}

// Reindex pushes every property to the index in batches and returns how many were sent
func (s *SearchClient) Reindex(ctx context.Context, db *gorm.DB, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 200
	}

	var (
		batch []models.Property
		total int
	)
	res := db.WithContext(ctx).
		Preload("City").
		Preload("Images").
		Preload("Features.Feature").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			if err := s.IndexProperties(batch); err != nil {
				return fmt.Errorf("index batch: %w", err)
			}
			total += len(batch)
			return nil
		})
	return total, res.Error
}
