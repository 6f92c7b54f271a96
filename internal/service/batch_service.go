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
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateBatchRequest struct {
	MedicineID  string `json:"medicine_id" binding:"required"`
	BatchNumber string `json:"batch_number" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	ExpiryDate  string `json:"expiry_date" binding:"required"` // YYYY-MM-DD
	SupplierID  string `json:"supplier_id"`
	Reason      string `json:"reason"`
}

type DecrementBatchRequest struct {
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Reason   string `json:"reason"`
}

type BatchResponse struct {
	ID            string `json:"id"`
	MedicineID    string `json:"medicine_id"`
	MedicineName  string `json:"medicine_name,omitempty"`
	BatchNumber   string `json:"batch_number"`
	Quantity      int    `json:"quantity"`
	ExpiryDate    string `json:"expiry_date"`
	ExpiryStatus  string `json:"expiry_status"` // computed at read time, never stored
	SourceOrderID string `json:"source_order_id,omitempty"`
	SupplierName  string `json:"supplier_name,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type BatchFilter struct {
	MedicineID string
	Page       int
	Limit      int
}

// --- Interface ---

// BatchService owns physical batch records. Batches are never deleted;
// quantity moves up through receiving or manual entry and down through
// Decrement, which refuses to go below zero.
type BatchService interface {
	CreateBatch(ctx context.Context, userID string, req CreateBatchRequest) (*BatchResponse, error)
	GetBatch(ctx context.Context, id string) (*BatchResponse, error)
	ListBatches(ctx context.Context, filter BatchFilter) ([]BatchResponse, int64, error)
	Decrement(ctx context.Context, userID string, batchID string, req DecrementBatchRequest) (*BatchResponse, error)
}

type batchService struct {
	batchRepo      repository.BatchRepository
	medicineRepo   repository.MedicineRepository
	supplierRepo   repository.SupplierRepository
	adjustmentRepo repository.StockAdjustmentRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	now            func() time.Time
}

func NewBatchService(
	batchRepo repository.BatchRepository,
	medicineRepo repository.MedicineRepository,
	supplierRepo repository.SupplierRepository,
	adjustmentRepo repository.StockAdjustmentRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) BatchService {
	return &batchService{
		batchRepo:      batchRepo,
		medicineRepo:   medicineRepo,
		supplierRepo:   supplierRepo,
		adjustmentRepo: adjustmentRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		now:            time.Now,
	}
}

// CreateBatch records a manually entered batch (stock that arrived outside a
// purchase order). The batch row and its ADDITION ledger entry commit
// together.
func (s *batchService) CreateBatch(ctx context.Context, userID string, req CreateBatchRequest) (*BatchResponse, error) {
	mid, err := uuid.Parse(req.MedicineID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid medicine_id: %s", req.MedicineID)
	}
	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "expiry_date %q is not a valid date (want YYYY-MM-DD)", req.ExpiryDate)
	}

	var uid *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		uid = &parsed
	}

	batch := model.Batch{
		MedicineID:  mid,
		BatchNumber: req.BatchNumber,
		Quantity:    req.Quantity,
		ExpiryDate:  expiry,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, findErr := s.medicineRepo.FindByID(txCtx, mid); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "medicine not found: %s", req.MedicineID)
			}
			return fmt.Errorf("failed to find medicine: %w", findErr)
		}

		if existing, findErr := s.batchRepo.FindByMedicineAndNumberForUpdate(txCtx, mid, req.BatchNumber); findErr == nil {
			return apperr.New(apperr.KindConflict,
				"batch %s already exists for this medicine (id %s); receive against it instead", req.BatchNumber, existing.ID)
		} else if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up batch: %w", findErr)
		}

		if req.SupplierID != "" {
			sid, parseErr := uuid.Parse(req.SupplierID)
			if parseErr != nil {
				return apperr.New(apperr.KindValidation, "invalid supplier_id: %s", req.SupplierID)
			}
			supplier, findErr := s.supplierRepo.FindByID(txCtx, sid)
			if findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return apperr.New(apperr.KindNotFound, "supplier not found: %s", req.SupplierID)
				}
				return fmt.Errorf("failed to find supplier: %w", findErr)
			}
			batch.SupplierID = &sid
			batch.SupplierName = supplier.Name
		}

		if createErr := s.batchRepo.Create(txCtx, &batch); createErr != nil {
			return fmt.Errorf("failed to create batch: %w", createErr)
		}

		reason := req.Reason
		if reason == "" {
			reason = "manual batch entry"
		}
		entry := &model.StockAdjustment{
			MedicineID:     mid,
			BatchID:        batch.ID,
			AdjustmentType: model.AdjustmentTypeAddition,
			Quantity:       req.Quantity,
			Reason:         reason,
			Reference:      req.BatchNumber,
			CreatedBy:      uid,
		}
		if appendErr := s.adjustmentRepo.Append(txCtx, entry); appendErr != nil {
			return fmt.Errorf("failed to append stock adjustment: %w", appendErr)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionCreateBatch,
			EntityID:   batch.ID.String(),
			EntityName: req.BatchNumber,
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

	return s.GetBatch(ctx, batch.ID.String())
}

func (s *batchService) GetBatch(ctx context.Context, id string) (*BatchResponse, error) {
	bid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid batch id: %s", id)
	}

	batch, err := s.batchRepo.FindByID(ctx, bid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "batch not found: %s", id)
		}
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	return s.toBatchResponse(batch), nil
}

func (s *batchService) ListBatches(ctx context.Context, filter BatchFilter) ([]BatchResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	var medicineID *uuid.UUID
	if filter.MedicineID != "" {
		parsed, err := uuid.Parse(filter.MedicineID)
		if err != nil {
			return nil, 0, apperr.New(apperr.KindValidation, "invalid medicine_id: %s", filter.MedicineID)
		}
		medicineID = &parsed
	}

	batches, total, err := s.batchRepo.List(ctx, filter.Page, filter.Limit, medicineID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list batches: %w", err)
	}

	res := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		res = append(res, *s.toBatchResponse(&batches[i]))
	}
	return res, total, nil
}

// Decrement reduces a batch's on-hand quantity for downstream consumption.
// Going below zero is a fatal invariant violation, never clamped.
func (s *batchService) Decrement(ctx context.Context, userID string, batchID string, req DecrementBatchRequest) (*BatchResponse, error) {
	bid, err := uuid.Parse(batchID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid batch id: %s", batchID)
	}

	var uid *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		uid = &parsed
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		batch, findErr := s.batchRepo.FindByIDForUpdate(txCtx, bid)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "batch not found: %s", batchID)
			}
			return fmt.Errorf("failed to load batch: %w", findErr)
		}

		if req.Quantity > batch.Quantity {
			return apperr.New(apperr.KindNegativeStockInvariant,
				"decrement of %d would drive batch %s below zero (on hand: %d)",
				req.Quantity, batch.BatchNumber, batch.Quantity)
		}

		if updateErr := s.batchRepo.AddQuantity(txCtx, batch.ID, -req.Quantity); updateErr != nil {
			return fmt.Errorf("failed to decrement batch: %w", updateErr)
		}

		reason := req.Reason
		if reason == "" {
			reason = "stock consumption"
		}
		entry := &model.StockAdjustment{
			MedicineID:     batch.MedicineID,
			BatchID:        batch.ID,
			AdjustmentType: model.AdjustmentTypeDeduction,
			Quantity:       req.Quantity,
			Reason:         reason,
			Reference:      batch.BatchNumber,
			CreatedBy:      uid,
		}
		if appendErr := s.adjustmentRepo.Append(txCtx, entry); appendErr != nil {
			return fmt.Errorf("failed to append stock adjustment: %w", appendErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"batch_number": batch.BatchNumber,
			"quantity":     req.Quantity,
			"reason":       reason,
		})
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionDecrementBatch,
			EntityID:   batch.ID.String(),
			EntityName: batch.BatchNumber,
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

	return s.GetBatch(ctx, batchID)
}

func (s *batchService) toBatchResponse(batch *model.Batch) *BatchResponse {
	medicineName := ""
	if batch.Medicine != nil {
		medicineName = batch.Medicine.Name
	}
	sourceOrder := ""
	if batch.SourceOrderID != nil {
		sourceOrder = batch.SourceOrderID.String()
	}
	return &BatchResponse{
		ID:            batch.ID.String(),
		MedicineID:    batch.MedicineID.String(),
		MedicineName:  medicineName,
		BatchNumber:   batch.BatchNumber,
		Quantity:      batch.Quantity,
		ExpiryDate:    batch.ExpiryDate.Format("2006-01-02"),
		ExpiryStatus:  batch.Classify(s.now()),
		SourceOrderID: sourceOrder,
		SupplierName:  batch.SupplierName,
		CreatedAt:     batch.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
