package handlers

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/nicegilbz/stuhouses-sub000/internal/auth"
	"github.com/nicegilbz/stuhouses-sub000/internal/models"
	"github.com/nicegilbz/stuhouses-sub000/internal/testutil"
)

func TestCreatePropertyRequiresToken(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/properties", "", map[string]interface{}{"title": "x"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/properties", "not-a-jwt", map[string]interface{}{"title": "x"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", w.Code)
	}
}

func TestCreateAndFetchProperty(t *testing.T) {
	s := newTestServer(t, nil)
	city := testutil.SeedCity(t, s.db, "Leeds")
	wifi := testutil.SeedFeature(t, s.db, "WiFi")
	landlord := s.token(t, 7, auth.RoleLandlord)

	var created models.Property
	w := s.do(t, http.MethodPost, "/api/properties", landlord, map[string]interface{}{
		"title":    "Three bed terrace",
		"price":    "650.00",
		"bedrooms": 3,
		"city_id":  city.ID,
		"images": []map[string]interface{}{
			{"url": "a.jpg"},
			{"url": "b.jpg", "is_primary": true},
		},
		"features": []uint{wifi.ID},
	}, &created)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if created.CreatedBy != 7 || created.Slug != "three-bed-terrace" {
		t.Errorf("unexpected property %+v", created)
	}
	if len(created.Images) != 2 || len(created.Features) != 1 {
		t.Errorf("expected 2 images and 1 feature, got %d and %d", len(created.Images), len(created.Features))
	}

	var fetched models.Property
	w = s.do(t, http.MethodGet, "/api/properties/"+strconv.Itoa(int(created.ID)), "", nil, &fetched)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if fetched.City == nil || fetched.City.PropertyCount != 1 {
		t.Errorf("expected city count 1, got %+v", fetched.City)
	}
}

func TestCreatePropertyRejectsBadInput(t *testing.T) {
	s := newTestServer(t, nil)
	city := testutil.SeedCity(t, s.db, "York")
	tok := s.token(t, 1, auth.RoleLandlord)

	tests := []struct {
		name  string
		body  interface{}
		field string
	}{
		{"missing title", map[string]interface{}{"price": "100", "bedrooms": 1, "city_id": city.ID}, "title"},
		{"sub-penny price", map[string]interface{}{"title": "Flat", "price": "100.001", "bedrooms": 1, "city_id": city.ID}, "price"},
		{"unknown city", map[string]interface{}{"title": "Flat", "price": "100", "bedrooms": 1, "city_id": 999}, "city_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]interface{}
			w := s.do(t, http.MethodPost, "/api/properties", tok, tt.body, &body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if fields, ok := body["fields"].(map[string]interface{}); ok {
				if _, ok := fields[tt.field]; !ok {
					t.Errorf("expected field %q in %v", tt.field, fields)
				}
			} else if body["field"] != tt.field {
				t.Errorf("expected field %q, got %v", tt.field, body)
			}
		})
	}

	if n := testutil.Count(t, s.db, &models.Property{}, ""); n != 0 {
		t.Errorf("no property should be written, got %d", n)
	}
}

func TestUpdatePropertyOwnership(t *testing.T) {
	s := newTestServer(t, nil)
	city := testutil.SeedCity(t, s.db, "Leeds")
	p := testutil.SeedProperty(t, s.db, city.ID, "Owned flat")
	s.db.Model(p).Update("created_by", 7)
	path := "/api/properties/" + strconv.Itoa(int(p.ID))

	w := s.do(t, http.MethodPatch, path, s.token(t, 8, auth.RoleLandlord), map[string]interface{}{"bedrooms": 4}, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another landlord, got %d", w.Code)
	}

	var updated models.Property
	w = s.do(t, http.MethodPatch, path, s.token(t, 7, auth.RoleLandlord), map[string]interface{}{"bedrooms": 4}, &updated)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if updated.Bedrooms != 4 || updated.Title != "Owned flat" {
		t.Errorf("partial update not applied: %+v", updated)
	}

	w = s.do(t, http.MethodPatch, path, s.token(t, 7, auth.RoleLandlord), map[string]interface{}{}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty update, got %d", w.Code)
	}

	w = s.do(t, http.MethodPatch, "/api/properties/abc", s.token(t, 7, auth.RoleLandlord), map[string]interface{}{"bedrooms": 1}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestDeletePropertyAsAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	city := testutil.SeedCity(t, s.db, "Hull")
	tok := s.token(t, 3, auth.RoleLandlord)

	var created models.Property
	w := s.do(t, http.MethodPost, "/api/properties", tok, map[string]interface{}{
		"title": "Studio", "price": "400", "bedrooms": 0, "city_id": city.ID,
	}, &created)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}

	path := "/api/properties/" + strconv.Itoa(int(created.ID))
	w = s.do(t, http.MethodDelete, path, s.token(t, 99, auth.RoleAdmin), nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, path, "", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}

	var c models.City
	s.db.First(&c, city.ID)
	if c.PropertyCount != 0 {
		t.Errorf("expected count back to 0, got %d", c.PropertyCount)
	}
}
