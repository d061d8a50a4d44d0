package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/nwssu/gymdesk/backend/internal/services"
	"github.com/nwssu/gymdesk/backend/pkg/response"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboard}
}

// GetSummary returns the administrator dashboard
// GET /api/dashboard/summary
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	summary, err := h.dashboardService.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, summary)
}
