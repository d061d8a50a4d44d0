package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nwssu/gymdesk/backend/internal/services"
	"github.com/nwssu/gymdesk/backend/pkg/response"
)

const defaultHistoryLimit = 50

type PricingHandler struct {
	pricingService *services.PricingService
}

func NewPricingHandler(pricing *services.PricingService) *PricingHandler {
	return &PricingHandler{pricingService: pricing}
}

// GET /api/pricing
func (h *PricingHandler) List(c *gin.Context) {
	entries, err := h.pricingService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, entries)
}

// SetPrice records a new price effective today. Existing members keep what they paid.
// PUT /api/pricing
func (h *PricingHandler) SetPrice(c *gin.Context) {
	var req services.SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	record, err := h.pricingService.SetPrice(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, record)
}

// GET /api/pricing/history?limit=50
func (h *PricingHandler) History(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.pricingService.History(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, records)
}
