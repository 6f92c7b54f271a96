package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PurchaseOrderHandler struct {
	orderService     service.PurchaseOrderService
	receivingService service.ReceivingService
}

func NewPurchaseOrderHandler(orderService service.PurchaseOrderService, receivingService service.ReceivingService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		orderService:     orderService,
		receivingService: receivingService,
	}
}

func (h *PurchaseOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/purchase-orders")
	{
		orders.GET("", middleware.RequireRole("admin", "pharmacist", "staff"), h.ListOrders)
		orders.POST("", middleware.RequireRole("admin", "pharmacist"), h.CreateOrder)
		orders.GET("/:id", middleware.RequireRole("admin", "pharmacist", "staff"), h.GetOrder)
		orders.POST("/:id/items", middleware.RequireRole("admin", "pharmacist"), h.AddItem)
		orders.POST("/:id/submit", middleware.RequireRole("admin", "pharmacist"), h.SubmitOrder)
		orders.POST("/:id/cancel", middleware.RequireRole("admin", "pharmacist"), h.CancelOrder)
		orders.POST("/:id/receive", middleware.RequireRole("admin", "pharmacist", "staff"), h.ReceiveStock)
	}
}

// ListOrders returns paginated purchase orders
// @Summary      List purchase orders
// @Description  Retrieves a paginated list of purchase orders, optionally filtered by status
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        status  query     string  false  "Filter by order status"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/purchase-orders [get]
func (h *PurchaseOrderHandler) ListOrders(c *gin.Context) {
	params := pagination.Parse(c)

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), service.OrderFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	}))
}

// CreateOrder creates a new draft purchase order
// @Summary      Create purchase order
// @Description  Creates a DRAFT purchase order with its line items
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePurchaseOrderRequest  true  "Create Purchase Order Payload"
// @Success      201  {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders [post]
func (h *PurchaseOrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	order, err := h.orderService.CreateOrder(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// GetOrder returns one purchase order with items and derived status
// @Summary      Get purchase order
// @Description  Retrieves an order header, its items with ordered/received quantities, and the derived status
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase Order ID"
// @Success      200  {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// AddItem appends a line item to a draft order
// @Summary      Add order item
// @Description  Adds a line item to a DRAFT purchase order; rejected once the order is submitted
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Purchase Order ID"
// @Param        payload  body      service.AddOrderItemRequest  true  "Add Item Payload"
// @Success      200  {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/items [post]
func (h *PurchaseOrderHandler) AddItem(c *gin.Context) {
	var req service.AddOrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	order, err := h.orderService.AddItem(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// SubmitOrder moves a draft order to ORDERED
// @Summary      Submit purchase order
// @Description  Transitions a DRAFT order to ORDERED, freezing its ordered quantities
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase Order ID"
// @Success      200  {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/submit [post]
func (h *PurchaseOrderHandler) SubmitOrder(c *gin.Context) {
	userID := c.GetString("userID")

	order, err := h.orderService.SubmitOrder(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// CancelOrder cancels a draft or ordered purchase order
// @Summary      Cancel purchase order
// @Description  Cancels an order that has not received any stock yet; rejected after any receipt
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Purchase Order ID"
// @Success      200  {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/cancel [post]
func (h *PurchaseOrderHandler) CancelOrder(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body) // reason is optional

	userID := c.GetString("userID")

	order, err := h.orderService.CancelOrder(c.Request.Context(), userID, c.Param("id"), body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ReceiveStock records arrived stock against a purchase order
// @Summary      Receive stock
// @Description  Validates and applies a receipt: increments received quantities, upserts batches, appends ledger entries, and recomputes the order status as one transaction
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Purchase Order ID"
// @Param        payload  body      service.ReceiveStockRequest  true  "Receive Stock Payload"
// @Success      200  {object}  response.Response{data=service.ReceiptResult}
// @Failure      409  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/purchase-orders/{id}/receive [post]
func (h *PurchaseOrderHandler) ReceiveStock(c *gin.Context) {
	var req service.ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	result, err := h.receivingService.Receive(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
