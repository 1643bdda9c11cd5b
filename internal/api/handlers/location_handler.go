package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nearby/internal/api/middleware"
	"nearby/internal/services"
)

type LocationHandler struct {
	locationService *services.LocationService
}

func NewLocationHandler(locationService *services.LocationService) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
	}
}

// Pointers tell "absent" apart from 0, which is a valid coordinate.
type UpdateLocationRequest struct {
	Lat  *float64  `json:"lat" binding:"required"`
	Lng  *float64  `json:"lng" binding:"required"`
	Tags *[]string `json:"tags"`
}

type UpdateTagsRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

// UpdateLocation handles PUT /api/v1/location
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rec, err := h.locationService.UpdateLocation(c.Request.Context(), middleware.GetUserID(c), *req.Lat, *req.Lng, req.Tags)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// UpdateTags handles PUT /api/v1/tags
func (h *LocationHandler) UpdateTags(c *gin.Context) {
	var req UpdateTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rec, err := h.locationService.UpdateTags(c.Request.Context(), middleware.GetUserID(c), req.Tags)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetLocation handles GET /api/v1/location
func (h *LocationHandler) GetLocation(c *gin.Context) {
	rec, err := h.locationService.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
