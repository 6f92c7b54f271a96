package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type StockAdjustmentHandler struct {
	adjustmentService service.StockAdjustmentService
}

func NewStockAdjustmentHandler(adjustmentService service.StockAdjustmentService) *StockAdjustmentHandler {
	return &StockAdjustmentHandler{adjustmentService: adjustmentService}
}

// RegisterRoutes exposes append and list only. The ledger has no update or
// delete endpoint.
func (h *StockAdjustmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	adjustments := router.Group("/api/stock-adjustments")
	{
		adjustments.GET("", middleware.RequireRole("admin", "pharmacist", "staff"), h.ListAdjustments)
		adjustments.POST("", middleware.RequireRole("admin", "pharmacist"), h.CreateAdjustment)
	}
}

// ListAdjustments returns the filtered stock ledger
// @Summary      List stock adjustments
// @Description  Retrieves paginated ledger entries filtered by medicine, batch, or date range
// @Tags         stock-adjustments
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Param        medicine_id  query     string  false  "Filter by medicine"
// @Param        batch_id     query     string  false  "Filter by batch"
// @Param        from         query     string  false  "Start date (YYYY-MM-DD, inclusive)"
// @Param        to           query     string  false  "End date (YYYY-MM-DD, exclusive)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Router       /api/stock-adjustments [get]
func (h *StockAdjustmentHandler) ListAdjustments(c *gin.Context) {
	params := pagination.Parse(c)

	entries, total, err := h.adjustmentService.ListAdjustments(c.Request.Context(), service.AdjustmentQuery{
		MedicineID: c.Query("medicine_id"),
		BatchID:    c.Query("batch_id"),
		From:       c.Query("from"),
		To:         c.Query("to"),
		Page:       params.Page,
		Limit:      params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"adjustments": entries,
		"total":       total,
		"page":        params.Page,
		"limit":       params.Limit,
	}))
}

// CreateAdjustment appends a manual ledger entry
// @Summary      Append stock adjustment
// @Description  Appends an immutable ledger entry; mistakes are corrected with new CORRECTION entries, never by editing history
// @Tags         stock-adjustments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateAdjustmentRequest  true  "Adjustment Payload"
// @Success      201  {object}  response.Response{data=service.AdjustmentResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/stock-adjustments [post]
func (h *StockAdjustmentHandler) CreateAdjustment(c *gin.Context) {
	var req service.CreateAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	entry, err := h.adjustmentService.Append(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entry))
}
