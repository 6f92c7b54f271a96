package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type OrderItemRequest struct {
	MedicineID      string `json:"medicine_id" binding:"required"`
	QuantityOrdered int    `json:"quantity_ordered" binding:"required,gt=0"`
	UnitCost        string `json:"unit_cost" binding:"required"`
}

type CreatePurchaseOrderRequest struct {
	OrderNo      string             `json:"order_no" binding:"required"`
	SupplierID   string             `json:"supplier_id" binding:"required"`
	OrderDate    string             `json:"order_date"`    // YYYY-MM-DD, defaults to today
	ExpectedDate string             `json:"expected_date"` // YYYY-MM-DD, optional
	Note         string             `json:"note"`
	Items        []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type AddOrderItemRequest struct {
	MedicineID      string `json:"medicine_id" binding:"required"`
	QuantityOrdered int    `json:"quantity_ordered" binding:"required,gt=0"`
	UnitCost        string `json:"unit_cost" binding:"required"`
}

type OrderItemResponse struct {
	ID               string `json:"id"`
	MedicineID       string `json:"medicine_id"`
	MedicineName     string `json:"medicine_name,omitempty"`
	LineNo           int    `json:"line_no"`
	QuantityOrdered  int    `json:"quantity_ordered"`
	QuantityReceived int    `json:"quantity_received"`
	QuantityPending  int    `json:"quantity_pending"`
	UnitCost         string `json:"unit_cost"`
}

type PurchaseOrderResponse struct {
	ID           string              `json:"id"`
	OrderNo      string              `json:"order_no"`
	SupplierID   string              `json:"supplier_id"`
	SupplierName string              `json:"supplier_name,omitempty"`
	Status       string              `json:"status"`
	OrderDate    string              `json:"order_date"`
	ExpectedDate string              `json:"expected_date,omitempty"`
	Note         string              `json:"note"`
	Version      int                 `json:"version"`
	TotalCost    string              `json:"total_cost"`
	Items        []OrderItemResponse `json:"items"`
	CreatedAt    string              `json:"created_at"`
}

type OrderFilter struct {
	Status string
	Page   int
	Limit  int
}

// --- Interface ---

type PurchaseOrderService interface {
	CreateOrder(ctx context.Context, userID string, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error)
	GetOrder(ctx context.Context, id string) (*PurchaseOrderResponse, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrderResponse, int64, error)
	AddItem(ctx context.Context, userID string, orderID string, req AddOrderItemRequest) (*PurchaseOrderResponse, error)
	SubmitOrder(ctx context.Context, userID string, orderID string) (*PurchaseOrderResponse, error)
	CancelOrder(ctx context.Context, userID string, orderID string, reason string) (*PurchaseOrderResponse, error)
}

type purchaseOrderService struct {
	orderRepo    repository.PurchaseOrderRepository
	medicineRepo repository.MedicineRepository
	supplierRepo repository.SupplierRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewPurchaseOrderService(
	orderRepo repository.PurchaseOrderRepository,
	medicineRepo repository.MedicineRepository,
	supplierRepo repository.SupplierRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) PurchaseOrderService {
	return &purchaseOrderService{
		orderRepo:    orderRepo,
		medicineRepo: medicineRepo,
		supplierRepo: supplierRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

func (s *purchaseOrderService) CreateOrder(ctx context.Context, userID string, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid supplier_id: %s", req.SupplierID)
	}

	orderDate := time.Now()
	if req.OrderDate != "" {
		parsed, parseErr := time.Parse("2006-01-02", req.OrderDate)
		if parseErr != nil {
			return nil, apperr.New(apperr.KindValidation, "order_date %q is not a valid date", req.OrderDate)
		}
		orderDate = parsed
	}

	var expectedDate *time.Time
	if req.ExpectedDate != "" {
		parsed, parseErr := time.Parse("2006-01-02", req.ExpectedDate)
		if parseErr != nil {
			return nil, apperr.New(apperr.KindValidation, "expected_date %q is not a valid date", req.ExpectedDate)
		}
		expectedDate = &parsed
	}

	var uid *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		uid = &parsed
	}

	order := model.PurchaseOrder{
		OrderNo:      req.OrderNo,
		SupplierID:   supplierID,
		Status:       model.OrderStatusDraft,
		OrderDate:    orderDate,
		ExpectedDate: expectedDate,
		Note:         req.Note,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, findErr := s.supplierRepo.FindByID(txCtx, supplierID); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "supplier not found: %s", req.SupplierID)
			}
			return fmt.Errorf("failed to find supplier: %w", findErr)
		}

		if createErr := s.orderRepo.Create(txCtx, &order); createErr != nil {
			return fmt.Errorf("failed to create purchase order: %w", createErr)
		}

		for i, itemReq := range req.Items {
			item, buildErr := s.buildItem(txCtx, order.ID, i+1, itemReq.MedicineID, itemReq.QuantityOrdered, itemReq.UnitCost)
			if buildErr != nil {
				return buildErr
			}
			if createErr := s.orderRepo.CreateItem(txCtx, item); createErr != nil {
				return fmt.Errorf("failed to create order item: %w", createErr)
			}
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionCreatePurchaseOrder,
			EntityID:   order.ID.String(),
			EntityName: order.OrderNo,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, order.ID.String())
}

func (s *purchaseOrderService) GetOrder(ctx context.Context, id string) (*PurchaseOrderResponse, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid order id: %s", id)
	}

	order, err := s.orderRepo.FindByIDWithItems(ctx, oid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "purchase order not found: %s", id)
		}
		return nil, fmt.Errorf("failed to load purchase order: %w", err)
	}

	return toOrderResponse(order), nil
}

func (s *purchaseOrderService) ListOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrderResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	orders, total, err := s.orderRepo.List(ctx, filter.Page, filter.Limit, filter.Status)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list purchase orders: %w", err)
	}

	res := make([]PurchaseOrderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, *toOrderResponse(&orders[i]))
	}
	return res, total, nil
}

// AddItem appends a line to a Draft order. Ordered quantities freeze once the
// order is submitted.
func (s *purchaseOrderService) AddItem(ctx context.Context, userID string, orderID string, req AddOrderItemRequest) (*PurchaseOrderResponse, error) {
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid order id: %s", orderID)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, findErr := s.orderRepo.FindByIDForUpdate(txCtx, oid)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "purchase order not found: %s", orderID)
			}
			return fmt.Errorf("failed to load purchase order: %w", findErr)
		}

		if order.Status != model.OrderStatusDraft {
			return apperr.New(apperr.KindInvalidOrderState,
				"purchase order %s is %s; items can only be added while DRAFT", order.OrderNo, order.Status)
		}

		item, buildErr := s.buildItem(txCtx, order.ID, len(order.Items)+1, req.MedicineID, req.QuantityOrdered, req.UnitCost)
		if buildErr != nil {
			return buildErr
		}
		if createErr := s.orderRepo.CreateItem(txCtx, item); createErr != nil {
			return fmt.Errorf("failed to create order item: %w", createErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, orderID)
}

// SubmitOrder moves a Draft order to Ordered, the one forward transition a
// client drives directly.
func (s *purchaseOrderService) SubmitOrder(ctx context.Context, userID string, orderID string) (*PurchaseOrderResponse, error) {
	return s.transition(ctx, userID, orderID, model.ActionSubmitPurchaseOrder, "",
		func(order *model.PurchaseOrder) (string, error) {
			if order.Status != model.OrderStatusDraft {
				return "", apperr.New(apperr.KindInvalidOrderState,
					"purchase order %s is %s; only DRAFT orders can be submitted", order.OrderNo, order.Status)
			}
			if len(order.Items) == 0 {
				return "", apperr.New(apperr.KindValidation,
					"purchase order %s has no items to submit", order.OrderNo)
			}
			return model.OrderStatusOrdered, nil
		})
}

// CancelOrder cancels a Draft or Ordered order. Once any line has received
// stock, cancellation is rejected.
func (s *purchaseOrderService) CancelOrder(ctx context.Context, userID string, orderID string, reason string) (*PurchaseOrderResponse, error) {
	return s.transition(ctx, userID, orderID, model.ActionCancelPurchaseOrder, reason,
		func(order *model.PurchaseOrder) (string, error) {
			if !order.Cancellable() {
				for _, item := range order.Items {
					if item.QuantityReceived > 0 {
						return "", apperr.New(apperr.KindCannotCancelAfterReceipt,
							"purchase order %s has received stock and cannot be cancelled", order.OrderNo)
					}
				}
				return "", apperr.New(apperr.KindInvalidOrderState,
					"purchase order %s is %s and cannot be cancelled", order.OrderNo, order.Status)
			}
			return model.OrderStatusCancelled, nil
		})
}

// transition applies a caller-driven status change under the order row lock.
func (s *purchaseOrderService) transition(
	ctx context.Context,
	userID string,
	orderID string,
	action string,
	reason string,
	next func(order *model.PurchaseOrder) (string, error),
) (*PurchaseOrderResponse, error) {
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid order id: %s", orderID)
	}

	var uid *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		uid = &parsed
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, findErr := s.orderRepo.FindByIDForUpdate(txCtx, oid)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "purchase order not found: %s", orderID)
			}
			return fmt.Errorf("failed to load purchase order: %w", findErr)
		}

		newStatus, nextErr := next(order)
		if nextErr != nil {
			return nextErr
		}

		ok, updateErr := s.orderRepo.UpdateStatusBumpVersion(txCtx, order.ID, newStatus, order.Version)
		if updateErr != nil {
			return fmt.Errorf("failed to update order status: %w", updateErr)
		}
		if !ok {
			return apperr.New(apperr.KindConcurrentModification,
				"purchase order %s was modified concurrently; re-fetch and retry", order.OrderNo)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"order_no": order.OrderNo,
			"from":     order.Status,
			"to":       newStatus,
			"reason":   reason,
		})
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     action,
			EntityID:   order.ID.String(),
			EntityName: order.OrderNo,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetOrder(ctx, orderID)
}

func (s *purchaseOrderService) buildItem(txCtx context.Context, orderID uuid.UUID, lineNo int, medicineID string, quantity int, unitCost string) (*model.PurchaseOrderItem, error) {
	mid, err := uuid.Parse(medicineID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid medicine_id: %s", medicineID)
	}
	if _, findErr := s.medicineRepo.FindByID(txCtx, mid); findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "medicine not found: %s", medicineID)
		}
		return nil, fmt.Errorf("failed to find medicine %s: %w", medicineID, findErr)
	}
	cost, err := decimal.NewFromString(unitCost)
	if err != nil || cost.IsNegative() {
		return nil, apperr.New(apperr.KindValidation, "unit_cost %q is not a valid non-negative amount", unitCost)
	}
	return &model.PurchaseOrderItem{
		OrderID:         orderID,
		MedicineID:      mid,
		LineNo:          lineNo,
		QuantityOrdered: quantity,
		UnitCost:        cost,
	}, nil
}

func toOrderResponse(order *model.PurchaseOrder) *PurchaseOrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	total := decimal.Zero
	for _, item := range order.Items {
		medicineName := ""
		if item.Medicine != nil {
			medicineName = item.Medicine.Name
		}
		items = append(items, OrderItemResponse{
			ID:               item.ID.String(),
			MedicineID:       item.MedicineID.String(),
			MedicineName:     medicineName,
			LineNo:           item.LineNo,
			QuantityOrdered:  item.QuantityOrdered,
			QuantityReceived: item.QuantityReceived,
			QuantityPending:  item.Pending(),
			UnitCost:         item.UnitCost.StringFixed(4),
		})
		total = total.Add(item.UnitCost.Mul(decimal.NewFromInt(int64(item.QuantityOrdered))))
	}

	supplierName := ""
	if order.Supplier != nil {
		supplierName = order.Supplier.Name
	}
	expected := ""
	if order.ExpectedDate != nil {
		expected = order.ExpectedDate.Format("2006-01-02")
	}

	return &PurchaseOrderResponse{
		ID:           order.ID.String(),
		OrderNo:      order.OrderNo,
		SupplierID:   order.SupplierID.String(),
		SupplierName: supplierName,
		Status:       order.Status,
		OrderDate:    order.OrderDate.Format("2006-01-02"),
		ExpectedDate: expected,
		Note:         order.Note,
		Version:      order.Version,
		TotalCost:    total.StringFixed(4),
		Items:        items,
		CreatedAt:    order.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
