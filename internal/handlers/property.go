package handlers

import (
	"net/http"

	"github.com/nicegilbz/stuhouses-sub000/internal/listing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PropertyHandler serves the listing write API
type PropertyHandler struct {
	service *listing.Service
	logger  *zap.Logger
}

// NewPropertyHandler creates a new property handler
func NewPropertyHandler(service *listing.Service, logger *zap.Logger) *PropertyHandler {
	return &PropertyHandler{service: service, logger: logger.Named("properties")}
}

// GetProperty returns one property with its city, images and features
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	property, err := h.service.GetProperty(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

// CreateProperty creates a listing owned by the caller
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	var req listing.CreatePropertyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	property, err := h.service.CreateProperty(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, property)
}

// UpdateProperty applies a partial update. Only the creator or an admin may edit.
func (h *PropertyHandler) UpdateProperty(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if !h.authorize(c, id) {
		return
	}

	var req listing.UpdatePropertyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	userID, _ := currentUserID(c)
	property, err := h.service.UpdateProperty(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

// DeleteProperty removes a listing. Only the creator or an admin may delete.
func (h *PropertyHandler) DeleteProperty(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if !h.authorize(c, id) {
		return
	}

	userID, _ := currentUserID(c)
	if err := h.service.DeleteProperty(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PropertyHandler) authorize(c *gin.Context, id uint) bool {
	if isAdmin(c) {
		return true
	}
	property, err := h.service.GetProperty(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return false
	}
	userID, _ := currentUserID(c)
	if property.CreatedBy != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the owner of this property"})
		return false
	}
	return true
}
