package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/nwssu/gymdesk/backend/internal/services"
	"github.com/nwssu/gymdesk/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StatisticsHandler struct {
	statsService *services.StatisticsService
	cal          *services.Calendar
}

func NewStatisticsHandler(stats *services.StatisticsService, cal *services.Calendar) *StatisticsHandler {
	return &StatisticsHandler{statsService: stats, cal: cal}
}

// GET /api/statistics/revenue
func (h *StatisticsHandler) Revenue(c *gin.Context) {
	report, err := h.statsService.Revenue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, report)
}

// Logs returns the membership log entries of the last seven days
// GET /api/statistics/logs
func (h *StatisticsHandler) Logs(c *gin.Context) {
	entries, err := h.statsService.RecentActivity(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, entries)
}

// GET /api/statistics/monthly
func (h *StatisticsHandler) Monthly(c *gin.Context) {
	report, err := h.statsService.MonthlyRegistrations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, report)
}

// Export downloads the revenue and registration reports as a workbook
// GET /api/statistics/export
func (h *StatisticsHandler) Export(c *gin.Context) {
	data, err := h.statsService.ExportWorkbook(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("gym-report-%s.xlsx", h.cal.Today().Format("20060102"))
	response.Attachment(c, filename, xlsxContentType, data)
}
