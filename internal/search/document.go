package search

import (
	"strings"

	"github.com/nicegilbz/stuhouses-sub000/internal/models"

	"github.com/PuerkitoBio/goquery"
)

// Document is the shape of a property in the search index
type Document struct {
	ID            uint     `json:"id"`
	Title         string   `json:"title"`
	Slug          string   `json:"slug"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	Bedrooms      int      `json:"bedrooms"`
	Bathrooms     int      `json:"bathrooms"`
	Postcode      string   `json:"postcode,omitempty"`
	CityID        uint     `json:"city_id"`
	City          string   `json:"city,omitempty"`
	Status        string   `json:"status"`
	Features      []string `json:"features"`
	PrimaryImage  string   `json:"primary_image,omitempty"`
	AvailableFrom int64    `json:"available_from,omitempty"`
	CreatedAt     int64    `json:"created_at"`
}

// NewDocument flattens a fully loaded property into an index document
func NewDocument(p *models.Property) Document {
	price, _ := p.Price.Float64()
	doc := Document{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Description: plainText(p.Description),
		Price:       price,
		Bedrooms:    p.Bedrooms,
		Bathrooms:   p.Bathrooms,
		Postcode:    p.Postcode,
		CityID:      p.CityID,
		Status:      string(p.Status),
		Features:    make([]string, 0, len(p.Features)),
		CreatedAt:   p.CreatedAt.Unix(),
	}
	if p.City != nil {
		doc.City = p.City.Name
	}
	for _, f := range p.Features {
		if f.Feature != nil {
			doc.Features = append(doc.Features, f.Feature.Name)
		}
	}
	if img := p.PrimaryImage(); img != nil {
		doc.PrimaryImage = img.URL
	}
	if p.AvailableFrom != nil {
		doc.AvailableFrom = p.AvailableFrom.Unix()
	}
	return doc
}

// plainText strips editor HTML from a description and collapses whitespace
func plainText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return strings.Join(strings.Fields(html), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	doc.Find("script, style").Remove()
	// block elements end words even when the markup has no whitespace between them
	doc.Find("p, div, br, li, h1, h2, h3, h4, h5, h6, tr, td").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}
