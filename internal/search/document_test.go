package search

import (
	"testing"
	"time"

	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"github.com/shopspring/decimal"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Bright  double room\nnear campus", "Bright double room near campus"},
		{"<p>Two <strong>large</strong> bedrooms</p><p>Garden</p>", "Two large bedrooms Garden"},
		{"<div>Bills &amp; broadband</div><script>alert(1)</script>", "Bills & broadband"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := plainText(tt.in); got != tt.want {
			t.Errorf("plainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewDocument(t *testing.T) {
	avail := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	p := &models.Property{
		ID:            12,
		Title:         "Hyde Park terrace",
		Slug:          "hyde-park-terrace",
		Description:   "<p>Close to <em>campus</em></p>",
		Price:         decimal.RequireFromString("1250.50"),
		Bedrooms:      4,
		CityID:        3,
		City:          &models.City{ID: 3, Name: "Leeds"},
		Status:        models.PropertyStatusActive,
		AvailableFrom: &avail,
		Images: []models.PropertyImage{
			{URL: "a.jpg"},
			{URL: "b.jpg", IsPrimary: true},
		},
		Features: []models.PropertyFeature{
			{FeatureID: 1, Feature: &models.Feature{ID: 1, Name: "Garden"}},
		},
	}

	doc := NewDocument(p)
	if doc.Description != "Close to campus" {
		t.Errorf("description not stripped: %q", doc.Description)
	}
	if doc.Price != 1250.5 || doc.City != "Leeds" || doc.PrimaryImage != "b.jpg" {
		t.Errorf("unexpected document %+v", doc)
	}
	if len(doc.Features) != 1 || doc.Features[0] != "Garden" {
		t.Errorf("unexpected features %v", doc.Features)
	}
	if doc.AvailableFrom != avail.Unix() {
		t.Errorf("unexpected available_from %d", doc.AvailableFrom)
	}
}
