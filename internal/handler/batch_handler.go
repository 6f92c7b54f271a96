package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type BatchHandler struct {
	batchService service.BatchService
}

func NewBatchHandler(batchService service.BatchService) *BatchHandler {
	return &BatchHandler{batchService: batchService}
}

func (h *BatchHandler) RegisterRoutes(router *gin.RouterGroup) {
	batches := router.Group("/api/batches")
	{
		batches.GET("", middleware.RequireRole("admin", "pharmacist", "staff"), h.ListBatches)
		batches.POST("", middleware.RequireRole("admin", "pharmacist"), h.CreateBatch)
		batches.GET("/:id", middleware.RequireRole("admin", "pharmacist", "staff"), h.GetBatch)
		batches.POST("/:id/decrement", middleware.RequireRole("admin", "pharmacist"), h.DecrementBatch)
	}
}

// ListBatches returns paginated batches with expiry classification
// @Summary      List batches
// @Description  Retrieves paginated batches ordered by expiry date, each classified as SOLD_OUT, EXPIRED, CRITICAL, EXPIRING_SOON, or ACTIVE as of now
// @Tags         batches
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Param        medicine_id  query     string  false  "Filter by medicine"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/batches [get]
func (h *BatchHandler) ListBatches(c *gin.Context) {
	params := pagination.Parse(c)

	batches, total, err := h.batchService.ListBatches(c.Request.Context(), service.BatchFilter{
		MedicineID: c.Query("medicine_id"),
		Page:       params.Page,
		Limit:      params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"batches": batches,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// CreateBatch records a manually entered batch
// @Summary      Create batch
// @Description  Records a batch that arrived outside a purchase order, together with its ADDITION ledger entry
// @Tags         batches
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateBatchRequest  true  "Create Batch Payload"
// @Success      201  {object}  response.Response{data=service.BatchResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/batches [post]
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var req service.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	batch, err := h.batchService.CreateBatch(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, batch))
}

// GetBatch returns one batch with its expiry classification
// @Summary      Get batch
// @Tags         batches
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Batch ID"
// @Success      200  {object}  response.Response{data=service.BatchResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/batches/{id} [get]
func (h *BatchHandler) GetBatch(c *gin.Context) {
	batch, err := h.batchService.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}

// DecrementBatch reduces a batch's on-hand quantity
// @Summary      Decrement batch
// @Description  Reduces on-hand quantity for downstream consumption; a decrement below zero is rejected, never clamped
// @Tags         batches
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Batch ID"
// @Param        payload  body      service.DecrementBatchRequest  true  "Decrement Payload"
// @Success      200  {object}  response.Response{data=service.BatchResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/batches/{id}/decrement [post]
func (h *BatchHandler) DecrementBatch(c *gin.Context) {
	var req service.DecrementBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	batch, err := h.batchService.Decrement(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}
