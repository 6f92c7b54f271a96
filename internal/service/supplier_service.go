package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SupplierRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" binding:"omitempty,email"`
	Address       string `json:"address"`
	IsActive      *bool  `json:"is_active"`
}

type SupplierResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	IsActive      bool   `json:"is_active"`
}

type SupplierService interface {
	GetSuppliers(ctx context.Context, page, limit int, search string) ([]SupplierResponse, int64, error)
	CreateSupplier(ctx context.Context, userID string, req SupplierRequest) (SupplierResponse, error)
	UpdateSupplier(ctx context.Context, userID string, id string, req SupplierRequest) (SupplierResponse, error)
	DeleteSupplier(ctx context.Context, userID string, id string) error
}

type supplierService struct {
	supplierRepo repository.SupplierRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewSupplierService(
	supplierRepo repository.SupplierRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) SupplierService {
	return &supplierService{
		supplierRepo: supplierRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

func (s *supplierService) GetSuppliers(ctx context.Context, page, limit int, search string) ([]SupplierResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	suppliers, total, err := s.supplierRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	res := make([]SupplierResponse, 0, len(suppliers))
	for i := range suppliers {
		res = append(res, toSupplierResponse(&suppliers[i]))
	}
	return res, total, nil
}

func (s *supplierService) CreateSupplier(ctx context.Context, userID string, req SupplierRequest) (SupplierResponse, error) {
	supplier := model.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		IsActive:      true,
	}
	if req.IsActive != nil {
		supplier.IsActive = *req.IsActive
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.supplierRepo.Create(txCtx, &supplier); createErr != nil {
			return fmt.Errorf("failed to create supplier: %w", createErr)
		}
		return s.logAction(txCtx, userID, model.ActionCreateSupplier, &supplier, req)
	})
	if err != nil {
		return SupplierResponse{}, err
	}

	return toSupplierResponse(&supplier), nil
}

func (s *supplierService) UpdateSupplier(ctx context.Context, userID string, id string, req SupplierRequest) (SupplierResponse, error) {
	sid, err := uuid.Parse(id)
	if err != nil {
		return SupplierResponse{}, apperr.New(apperr.KindValidation, "invalid supplier id: %s", id)
	}

	supplier, err := s.supplierRepo.FindByID(ctx, sid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SupplierResponse{}, apperr.New(apperr.KindNotFound, "supplier not found: %s", id)
		}
		return SupplierResponse{}, fmt.Errorf("database error: %w", err)
	}

	supplier.Name = req.Name
	supplier.ContactPerson = req.ContactPerson
	supplier.Phone = req.Phone
	supplier.Email = req.Email
	supplier.Address = req.Address
	if req.IsActive != nil {
		supplier.IsActive = *req.IsActive
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.supplierRepo.Update(txCtx, supplier); updateErr != nil {
			return fmt.Errorf("failed to update supplier: %w", updateErr)
		}
		return s.logAction(txCtx, userID, model.ActionUpdateSupplier, supplier, req)
	})
	if err != nil {
		return SupplierResponse{}, err
	}

	return toSupplierResponse(supplier), nil
}

func (s *supplierService) DeleteSupplier(ctx context.Context, userID string, id string) error {
	sid, err := uuid.Parse(id)
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid supplier id: %s", id)
	}

	supplier, err := s.supplierRepo.FindByID(ctx, sid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "supplier not found: %s", id)
		}
		return fmt.Errorf("database error: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if deleteErr := s.supplierRepo.Delete(txCtx, sid); deleteErr != nil {
			return fmt.Errorf("failed to delete supplier: %w", deleteErr)
		}
		return s.logAction(txCtx, userID, model.ActionDeleteSupplier, supplier, map[string]bool{"deleted": true})
	})
}

func (s *supplierService) logAction(txCtx context.Context, userID, action string, supplier *model.Supplier, payload interface{}) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	details, _ := json.Marshal(payload)
	audit := &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   supplier.ID.String(),
		EntityName: supplier.Name,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(txCtx, audit); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func toSupplierResponse(supplier *model.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:            supplier.ID.String(),
		Name:          supplier.Name,
		ContactPerson: supplier.ContactPerson,
		Phone:         supplier.Phone,
		Email:         supplier.Email,
		Address:       supplier.Address,
		IsActive:      supplier.IsActive,
	}
}
