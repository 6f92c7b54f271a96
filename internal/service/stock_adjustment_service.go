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

type CreateAdjustmentRequest struct {
	BatchID        string `json:"batch_id" binding:"required"`
	AdjustmentType string `json:"adjustment_type" binding:"required,oneof=ADDITION DEDUCTION CORRECTION"`
	Quantity       int    `json:"quantity" binding:"required,gt=0"`
	Reason         string `json:"reason" binding:"required"`
	Reference      string `json:"reference"`
}

type AdjustmentResponse struct {
	ID             string `json:"id"`
	MedicineID     string `json:"medicine_id"`
	MedicineName   string `json:"medicine_name,omitempty"`
	BatchID        string `json:"batch_id"`
	BatchNumber    string `json:"batch_number,omitempty"`
	AdjustmentType string `json:"adjustment_type"`
	Quantity       int    `json:"quantity"`
	Reason         string `json:"reason"`
	Reference      string `json:"reference"`
	CreatedAt      string `json:"created_at"`
}

type AdjustmentQuery struct {
	MedicineID string
	BatchID    string
	From       string // YYYY-MM-DD inclusive
	To         string // YYYY-MM-DD exclusive
	Page       int
	Limit      int
}

// --- Interface ---

// StockAdjustmentService is the public surface of the append-only stock
// ledger. There is no update or delete: a mistake is fixed by appending a
// CORRECTION entry (or an opposing ADDITION/DEDUCTION), never by rewriting
// history.
type StockAdjustmentService interface {
	Append(ctx context.Context, userID string, req CreateAdjustmentRequest) (*AdjustmentResponse, error)
	ListAdjustments(ctx context.Context, query AdjustmentQuery) ([]AdjustmentResponse, int64, error)
}

type stockAdjustmentService struct {
	adjustmentRepo repository.StockAdjustmentRepository
	batchRepo      repository.BatchRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
}

func NewStockAdjustmentService(
	adjustmentRepo repository.StockAdjustmentRepository,
	batchRepo repository.BatchRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) StockAdjustmentService {
	return &stockAdjustmentService{
		adjustmentRepo: adjustmentRepo,
		batchRepo:      batchRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
	}
}

// Append records a manual ledger entry and, for ADDITION/DEDUCTION types,
// moves the batch quantity with it so the cached counter stays reconciled
// with the log. DEDUCTION below zero is rejected, never clamped.
func (s *stockAdjustmentService) Append(ctx context.Context, userID string, req CreateAdjustmentRequest) (*AdjustmentResponse, error) {
	bid, err := uuid.Parse(req.BatchID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "invalid batch_id: %s", req.BatchID)
	}

	var uid *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		uid = &parsed
	}

	var entry model.StockAdjustment
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		batch, findErr := s.batchRepo.FindByIDForUpdate(txCtx, bid)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "batch not found: %s", req.BatchID)
			}
			return fmt.Errorf("failed to load batch: %w", findErr)
		}

		switch req.AdjustmentType {
		case model.AdjustmentTypeAddition:
			if updateErr := s.batchRepo.AddQuantity(txCtx, batch.ID, req.Quantity); updateErr != nil {
				return fmt.Errorf("failed to apply addition: %w", updateErr)
			}
		case model.AdjustmentTypeDeduction:
			if req.Quantity > batch.Quantity {
				return apperr.New(apperr.KindNegativeStockInvariant,
					"deduction of %d would drive batch %s below zero (on hand: %d)",
					req.Quantity, batch.BatchNumber, batch.Quantity)
			}
			if updateErr := s.batchRepo.AddQuantity(txCtx, batch.ID, -req.Quantity); updateErr != nil {
				return fmt.Errorf("failed to apply deduction: %w", updateErr)
			}
		case model.AdjustmentTypeCorrection:
			// Corrections annotate the ledger without moving the counter;
			// the paired ADDITION/DEDUCTION carries the movement.
		}

		entry = model.StockAdjustment{
			MedicineID:     batch.MedicineID,
			BatchID:        batch.ID,
			AdjustmentType: req.AdjustmentType,
			Quantity:       req.Quantity,
			Reason:         req.Reason,
			Reference:      req.Reference,
			CreatedBy:      uid,
		}
		if appendErr := s.adjustmentRepo.Append(txCtx, &entry); appendErr != nil {
			return fmt.Errorf("failed to append stock adjustment: %w", appendErr)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionStockCorrection,
			EntityID:   entry.ID.String(),
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

	return toAdjustmentResponse(&entry), nil
}

func (s *stockAdjustmentService) ListAdjustments(ctx context.Context, query AdjustmentQuery) ([]AdjustmentResponse, int64, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	var filter repository.AdjustmentFilter
	if query.MedicineID != "" {
		parsed, err := uuid.Parse(query.MedicineID)
		if err != nil {
			return nil, 0, apperr.New(apperr.KindValidation, "invalid medicine_id: %s", query.MedicineID)
		}
		filter.MedicineID = &parsed
	}
	if query.BatchID != "" {
		parsed, err := uuid.Parse(query.BatchID)
		if err != nil {
			return nil, 0, apperr.New(apperr.KindValidation, "invalid batch_id: %s", query.BatchID)
		}
		filter.BatchID = &parsed
	}
	if query.From != "" {
		parsed, err := time.Parse("2006-01-02", query.From)
		if err != nil {
			return nil, 0, apperr.New(apperr.KindValidation, "from %q is not a valid date", query.From)
		}
		filter.From = &parsed
	}
	if query.To != "" {
		parsed, err := time.Parse("2006-01-02", query.To)
		if err != nil {
			return nil, 0, apperr.New(apperr.KindValidation, "to %q is not a valid date", query.To)
		}
		filter.To = &parsed
	}

	entries, total, err := s.adjustmentRepo.List(ctx, query.Page, query.Limit, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stock adjustments: %w", err)
	}

	res := make([]AdjustmentResponse, 0, len(entries))
	for i := range entries {
		res = append(res, *toAdjustmentResponse(&entries[i]))
	}
	return res, total, nil
}

func toAdjustmentResponse(entry *model.StockAdjustment) *AdjustmentResponse {
	medicineName := ""
	if entry.Medicine != nil {
		medicineName = entry.Medicine.Name
	}
	batchNumber := ""
	if entry.Batch != nil {
		batchNumber = entry.Batch.BatchNumber
	}
	return &AdjustmentResponse{
		ID:             entry.ID.String(),
		MedicineID:     entry.MedicineID.String(),
		MedicineName:   medicineName,
		BatchID:        entry.BatchID.String(),
		BatchNumber:    batchNumber,
		AdjustmentType: entry.AdjustmentType,
		Quantity:       entry.Quantity,
		Reason:         entry.Reason,
		Reference:      entry.Reference,
		CreatedAt:      entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
