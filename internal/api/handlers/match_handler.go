package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nearby/internal/api/middleware"
	"nearby/internal/domain/entities"
	"nearby/internal/services"
)

type MatchHandler struct {
	matchService *services.MatchService
}

func NewMatchHandler(matchService *services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

type NearbyRequest struct {
	Lat     *float64 `json:"lat" binding:"required"`
	Lng     *float64 `json:"lng" binding:"required"`
	RadiusM *float64 `json:"radius_m"`
	Tags    []string `json:"tags"`
}

type ExploreQuery struct {
	RadiusM float64 `form:"radius_m"`
}

// Nearby handles POST /api/v1/nearby. The caller is always excluded from
// their own results.
func (h *MatchHandler) Nearby(c *gin.Context) {
	var req NearbyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	radius := h.matchService.DefaultRadius()
	if req.RadiusM != nil {
		radius = *req.RadiusM
	}

	resp, err := h.matchService.FindNearby(c.Request.Context(), entities.QueryRequest{
		Origin:         entities.NewLocation(*req.Lat, *req.Lng),
		RadiusMeters:   radius,
		RequestingTags: req.Tags,
		ExcludedUserID: middleware.GetUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Explore handles GET /api/v1/explore?radius_m=
func (h *MatchHandler) Explore(c *gin.Context) {
	var q ExploreQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.matchService.Explore(c.Request.Context(), middleware.GetUserID(c), q.RadiusM)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
