package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"
	"backend/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type ReceiveItemRequest struct {
	ItemID           string `json:"item_id" binding:"required"`
	QuantityReceived int    `json:"quantity_received" binding:"min=0"`
	BatchNumber      string `json:"batch_number"`
	ExpiryDate       string `json:"expiry_date"` // YYYY-MM-DD
	Notes            string `json:"notes"`
}

type ReceiveStockRequest struct {
	Items []ReceiveItemRequest `json:"items" binding:"required,min=1,dive"`
	// ExpectedVersion lets a caller holding a previously fetched order reject
	// its own stale writes. Omitted means "apply against whatever is current".
	ExpectedVersion *int `json:"expected_version"`
}

// Warning codes carried on a committed receipt.
const (
	WarningExpiredOnArrival = "EXPIRED_ON_ARRIVAL"
	WarningExpiryMismatch   = "EXPIRY_MISMATCH"
)

type ReceiptWarning struct {
	Code        string `json:"code"`
	ItemID      string `json:"item_id,omitempty"`
	BatchNumber string `json:"batch_number,omitempty"`
	Message     string `json:"message"`
}

type ReceiptResult struct {
	OrderID        string           `json:"order_id"`
	OrderStatus    string           `json:"order_status"`
	OrderVersion   int              `json:"order_version"`
	BatchesTouched []string         `json:"batches_touched"`
	Warnings       []ReceiptWarning `json:"warnings"`
}

// --- Interface ---

// ReceivingService applies "N units of item X arrived" against one purchase
// order. A call is all-or-nothing: line-item increments, batch upsert, ledger
// append, and status recompute commit as a single transaction or not at all.
type ReceivingService interface {
	Receive(ctx context.Context, userID string, orderID string, req ReceiveStockRequest) (*ReceiptResult, error)
}

type receivingService struct {
	orderRepo      repository.PurchaseOrderRepository
	batchRepo      repository.BatchRepository
	adjustmentRepo repository.StockAdjustmentRepository
	supplierRepo   repository.SupplierRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	hub            *ws.Hub
}

func NewReceivingService(
	orderRepo repository.PurchaseOrderRepository,
	batchRepo repository.BatchRepository,
	adjustmentRepo repository.StockAdjustmentRepository,
	supplierRepo repository.SupplierRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) ReceivingService {
	return &receivingService{
		orderRepo:      orderRepo,
		batchRepo:      batchRepo,
		adjustmentRepo: adjustmentRepo,
		supplierRepo:   supplierRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		hub:            hub,
	}
}

// acceptedLine is a validated receive line pointing at the order item it
// mutates.
type acceptedLine struct {
	item        *model.PurchaseOrderItem
	quantity    int
	batchNumber string
	expiryDate  time.Time
	notes       string
}

func (s *receivingService) Receive(ctx context.Context, userID string, orderID string, req ReceiveStockRequest) (*ReceiptResult, error) {
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid order id: %s", orderID)
	}

	var uid *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		uid = &parsed
	}

	var result *ReceiptResult
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Lock the order header first; every concurrent receive/cancel against
		// this order queues behind this row lock.
		order, findErr := s.orderRepo.FindByIDForUpdate(txCtx, oid)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "purchase order not found: %s", orderID)
			}
			return fmt.Errorf("failed to load purchase order: %w", findErr)
		}

		if req.ExpectedVersion != nil && *req.ExpectedVersion != order.Version {
			return apperr.New(apperr.KindConcurrentModification,
				"purchase order %s changed since it was read (version %d, expected %d); re-fetch and retry",
				order.OrderNo, order.Version, *req.ExpectedVersion)
		}

		if !order.Receivable() {
			return apperr.New(apperr.KindInvalidOrderState,
				"purchase order %s is %s and cannot receive stock", order.OrderNo, order.Status)
		}

		itemsByID := make(map[string]*model.PurchaseOrderItem, len(order.Items))
		for i := range order.Items {
			itemsByID[order.Items[i].ID.String()] = &order.Items[i]
		}

		accepted, warnings, validateErr := s.validateLines(order, itemsByID, req.Items)
		if validateErr != nil {
			return validateErr
		}

		touched := make([]string, 0, len(accepted))
		for _, line := range accepted {
			batchID, batchWarnings, applyErr := s.applyLine(txCtx, order, line)
			if applyErr != nil {
				return applyErr
			}
			touched = appendUnique(touched, batchID.String())
			warnings = append(warnings, batchWarnings...)
		}

		// Status is always re-derived from the full item set, never patched.
		newStatus := model.DeriveStatus(order.Status, order.Items)
		ok, updateErr := s.orderRepo.UpdateStatusBumpVersion(txCtx, order.ID, newStatus, order.Version)
		if updateErr != nil {
			return fmt.Errorf("failed to update order status: %w", updateErr)
		}
		if !ok {
			return apperr.New(apperr.KindConcurrentModification,
				"purchase order %s was modified concurrently; re-fetch and retry", order.OrderNo)
		}

		auditItems := make([]map[string]interface{}, 0, len(accepted))
		for _, line := range accepted {
			auditItems = append(auditItems, map[string]interface{}{
				"item_id":      line.item.ID.String(),
				"medicine_id":  line.item.MedicineID.String(),
				"quantity":     line.quantity,
				"batch_number": line.batchNumber,
				"expiry_date":  line.expiryDate.Format("2006-01-02"),
			})
		}
		details, _ := json.Marshal(map[string]interface{}{
			"order_no": order.OrderNo,
			"status":   newStatus,
			"items":    auditItems,
		})
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionReceiveStock,
			EntityID:   order.ID.String(),
			EntityName: order.OrderNo,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		if warnings == nil {
			warnings = []ReceiptWarning{}
		}
		result = &ReceiptResult{
			OrderID:        order.ID.String(),
			OrderStatus:    newStatus,
			OrderVersion:   order.Version + 1,
			BatchesTouched: touched,
			Warnings:       warnings,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcastReceipt(result)
	return result, nil
}

// validateLines checks every line before anything is written; a single bad
// line rejects the whole call. Lines with quantity 0 are skipped, not errors.
// Each line is checked against the pending quantity left after the lines
// before it, so one item named twice cannot jointly overshoot.
func (s *receivingService) validateLines(
	order *model.PurchaseOrder,
	itemsByID map[string]*model.PurchaseOrderItem,
	lines []ReceiveItemRequest,
) ([]acceptedLine, []ReceiptWarning, error) {
	var accepted []acceptedLine
	var warnings []ReceiptWarning
	requested := make(map[string]int)

	today := time.Now()
	for _, line := range lines {
		if line.QuantityReceived == 0 {
			continue
		}
		if line.QuantityReceived < 0 {
			return nil, nil, apperr.New(apperr.KindValidation,
				"quantity_received must not be negative for item %s", line.ItemID)
		}

		item, ok := itemsByID[line.ItemID]
		if !ok {
			return nil, nil, apperr.New(apperr.KindUnknownLineItem,
				"item %s does not belong to purchase order %s", line.ItemID, order.OrderNo)
		}

		remaining := item.Pending() - requested[line.ItemID]
		if line.QuantityReceived > remaining {
			return nil, nil, apperr.QuantityExceedsPending(line.ItemID, line.QuantityReceived, remaining)
		}
		requested[line.ItemID] += line.QuantityReceived

		if line.BatchNumber == "" {
			return nil, nil, apperr.New(apperr.KindValidation,
				"batch_number is required for item %s", line.ItemID)
		}
		if line.ExpiryDate == "" {
			return nil, nil, apperr.New(apperr.KindValidation,
				"expiry_date is required for item %s", line.ItemID)
		}
		expiry, parseErr := time.Parse("2006-01-02", line.ExpiryDate)
		if parseErr != nil {
			return nil, nil, apperr.New(apperr.KindValidation,
				"expiry_date %q is not a valid date (want YYYY-MM-DD)", line.ExpiryDate)
		}

		// Already-expired stock is accepted but flagged: it still has to be
		// recorded for audit and disposal.
		if expiry.Before(today) {
			warnings = append(warnings, ReceiptWarning{
				Code:        WarningExpiredOnArrival,
				ItemID:      line.ItemID,
				BatchNumber: line.BatchNumber,
				Message:     fmt.Sprintf("batch %s expired on %s before arrival", line.BatchNumber, expiry.Format("2006-01-02")),
			})
		}

		accepted = append(accepted, acceptedLine{
			item:        item,
			quantity:    line.QuantityReceived,
			batchNumber: line.BatchNumber,
			expiryDate:  expiry,
			notes:       line.Notes,
		})
	}

	if len(accepted) == 0 {
		return nil, nil, apperr.New(apperr.KindValidation, "nothing to receive: all items have quantity 0")
	}
	return accepted, warnings, nil
}

// applyLine performs the per-line writes: item increment, batch upsert, and
// ledger append. Runs inside the call's transaction.
func (s *receivingService) applyLine(txCtx context.Context, order *model.PurchaseOrder, line acceptedLine) (uuid.UUID, []ReceiptWarning, error) {
	line.item.QuantityReceived += line.quantity
	if err := s.orderRepo.SaveItem(txCtx, line.item); err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to update order item %s: %w", line.item.ID, err)
	}

	var warnings []ReceiptWarning
	batch, err := s.batchRepo.FindByMedicineAndNumberForUpdate(txCtx, line.item.MedicineID, line.batchNumber)
	switch {
	case err == nil:
		// Re-receipt of a known batch: quantities aggregate, the first expiry
		// written wins. A differing expiry is flagged, not rejected.
		if !batch.ExpiryDate.Equal(line.expiryDate) {
			warnings = append(warnings, ReceiptWarning{
				Code:        WarningExpiryMismatch,
				ItemID:      line.item.ID.String(),
				BatchNumber: line.batchNumber,
				Message: fmt.Sprintf("batch %s already recorded with expiry %s; keeping it over %s",
					line.batchNumber, batch.ExpiryDate.Format("2006-01-02"), line.expiryDate.Format("2006-01-02")),
			})
		}
		if err := s.batchRepo.AddQuantity(txCtx, batch.ID, line.quantity); err != nil {
			return uuid.Nil, nil, fmt.Errorf("failed to increment batch %s: %w", line.batchNumber, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		supplierName := ""
		if supplier, supErr := s.supplierRepo.FindByID(txCtx, order.SupplierID); supErr == nil {
			supplierName = supplier.Name
		}
		batch = &model.Batch{
			MedicineID:    line.item.MedicineID,
			BatchNumber:   line.batchNumber,
			Quantity:      line.quantity,
			ExpiryDate:    line.expiryDate,
			SourceOrderID: &order.ID,
			SupplierID:    &order.SupplierID,
			SupplierName:  supplierName,
		}
		if err := s.batchRepo.Create(txCtx, batch); err != nil {
			return uuid.Nil, nil, fmt.Errorf("failed to create batch %s: %w", line.batchNumber, err)
		}
	default:
		return uuid.Nil, nil, fmt.Errorf("failed to look up batch %s: %w", line.batchNumber, err)
	}

	reason := "purchase order receipt"
	if line.notes != "" {
		reason = line.notes
	}
	entry := &model.StockAdjustment{
		MedicineID:     line.item.MedicineID,
		BatchID:        batch.ID,
		AdjustmentType: model.AdjustmentTypeAddition,
		Quantity:       line.quantity,
		Reason:         reason,
		Reference:      fmt.Sprintf("%s/%s", order.OrderNo, line.batchNumber),
	}
	if err := s.adjustmentRepo.Append(txCtx, entry); err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to append stock adjustment: %w", err)
	}

	return batch.ID, warnings, nil
}

func (s *receivingService) broadcastReceipt(result *ReceiptResult) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"event": "stock.received",
		"data": map[string]interface{}{
			"order_id":        result.OrderID,
			"order_status":    result.OrderStatus,
			"batches_touched": result.BatchesTouched,
		},
	})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
