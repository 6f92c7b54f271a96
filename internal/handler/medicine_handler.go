package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type MedicineHandler struct {
	medicineService service.MedicineService
}

func NewMedicineHandler(medicineService service.MedicineService) *MedicineHandler {
	return &MedicineHandler{medicineService: medicineService}
}

func (h *MedicineHandler) RegisterRoutes(router *gin.RouterGroup) {
	medicines := router.Group("/api/medicines")
	{
		medicines.GET("", middleware.RequireRole("admin", "pharmacist", "staff"), h.GetMedicines)
		medicines.POST("", middleware.RequireRole("admin", "pharmacist"), h.CreateMedicine)
		medicines.PUT("/:id", middleware.RequireRole("admin", "pharmacist"), h.UpdateMedicine)
		medicines.DELETE("/:id", middleware.RequireRole("admin"), h.DeleteMedicine)
	}
}

// GetMedicines returns paginated medicine master data
// @Summary      Get medicines
// @Tags         medicines
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Search by medicine name"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/medicines [get]
func (h *MedicineHandler) GetMedicines(c *gin.Context) {
	params := pagination.Parse(c)
	search := c.Query("search")

	medicines, total, err := h.medicineService.GetMedicines(c.Request.Context(), params.Page, params.Limit, search)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"medicines": medicines,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}

// CreateMedicine creates a medicine master record
// @Summary      Create medicine
// @Tags         medicines
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateMedicineRequest  true  "Create Medicine Payload"
// @Success      201  {object}  response.Response{data=service.MedicineResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/medicines [post]
func (h *MedicineHandler) CreateMedicine(c *gin.Context) {
	var req service.CreateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	medicine, err := h.medicineService.CreateMedicine(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, medicine))
}

// UpdateMedicine updates a medicine master record
// @Summary      Update medicine
// @Tags         medicines
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Medicine ID"
// @Param        payload  body      service.UpdateMedicineRequest  true  "Update Medicine Payload"
// @Success      200  {object}  response.Response{data=service.MedicineResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/medicines/{id} [put]
func (h *MedicineHandler) UpdateMedicine(c *gin.Context) {
	var req service.UpdateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	medicine, err := h.medicineService.UpdateMedicine(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, medicine))
}

// DeleteMedicine soft deletes a medicine master record
// @Summary      Delete medicine
// @Tags         medicines
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Medicine ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/medicines/{id} [delete]
func (h *MedicineHandler) DeleteMedicine(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.medicineService.DeleteMedicine(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Medicine deleted successfully"))
}
