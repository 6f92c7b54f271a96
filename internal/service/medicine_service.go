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

type CreateMedicineRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Category     string `json:"category"`
	Manufacturer string `json:"manufacturer"`
	Unit         string `json:"unit"`
}

type UpdateMedicineRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Category     string `json:"category"`
	Manufacturer string `json:"manufacturer"`
	Unit         string `json:"unit"`
}

type MedicineResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Manufacturer string `json:"manufacturer"`
	Unit         string `json:"unit"`
}

type MedicineService interface {
	GetMedicines(ctx context.Context, page, limit int, search string) ([]MedicineResponse, int64, error)
	CreateMedicine(ctx context.Context, userID string, req CreateMedicineRequest) (MedicineResponse, error)
	UpdateMedicine(ctx context.Context, userID string, id string, req UpdateMedicineRequest) (MedicineResponse, error)
	DeleteMedicine(ctx context.Context, userID string, id string) error
}

type medicineService struct {
	medicineRepo repository.MedicineRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewMedicineService(
	medicineRepo repository.MedicineRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) MedicineService {
	return &medicineService{
		medicineRepo: medicineRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

func (s *medicineService) GetMedicines(ctx context.Context, page, limit int, search string) ([]MedicineResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	medicines, total, err := s.medicineRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	res := make([]MedicineResponse, 0, len(medicines))
	for i := range medicines {
		res = append(res, toMedicineResponse(&medicines[i]))
	}
	return res, total, nil
}

func (s *medicineService) CreateMedicine(ctx context.Context, userID string, req CreateMedicineRequest) (MedicineResponse, error) {
	medicine := model.Medicine{
		Code:         req.Code,
		Name:         req.Name,
		Category:     req.Category,
		Manufacturer: req.Manufacturer,
		Unit:         req.Unit,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, findErr := s.medicineRepo.FindByCode(txCtx, req.Code); findErr == nil {
			return apperr.New(apperr.KindConflict, "medicine code already exists: %s", req.Code)
		}

		if createErr := s.medicineRepo.Create(txCtx, &medicine); createErr != nil {
			return fmt.Errorf("failed to create medicine: %w", createErr)
		}
		return s.logAction(txCtx, userID, model.ActionCreateMedicine, &medicine, req)
	})
	if err != nil {
		return MedicineResponse{}, err
	}

	return toMedicineResponse(&medicine), nil
}

func (s *medicineService) UpdateMedicine(ctx context.Context, userID string, id string, req UpdateMedicineRequest) (MedicineResponse, error) {
	mid, err := uuid.Parse(id)
	if err != nil {
		return MedicineResponse{}, apperr.New(apperr.KindValidation, "invalid medicine id: %s", id)
	}

	medicine, err := s.medicineRepo.FindByID(ctx, mid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MedicineResponse{}, apperr.New(apperr.KindNotFound, "medicine not found: %s", id)
		}
		return MedicineResponse{}, fmt.Errorf("database error: %w", err)
	}

	medicine.Code = req.Code
	medicine.Name = req.Name
	medicine.Category = req.Category
	medicine.Manufacturer = req.Manufacturer
	medicine.Unit = req.Unit

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.medicineRepo.Update(txCtx, medicine); updateErr != nil {
			return fmt.Errorf("failed to update medicine: %w", updateErr)
		}
		return s.logAction(txCtx, userID, model.ActionUpdateMedicine, medicine, req)
	})
	if err != nil {
		return MedicineResponse{}, err
	}

	return toMedicineResponse(medicine), nil
}

func (s *medicineService) DeleteMedicine(ctx context.Context, userID string, id string) error {
	mid, err := uuid.Parse(id)
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid medicine id: %s", id)
	}

	medicine, err := s.medicineRepo.FindByID(ctx, mid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "medicine not found: %s", id)
		}
		return fmt.Errorf("database error: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if deleteErr := s.medicineRepo.Delete(txCtx, mid); deleteErr != nil {
			return fmt.Errorf("failed to delete medicine: %w", deleteErr)
		}
		return s.logAction(txCtx, userID, model.ActionDeleteMedicine, medicine, map[string]bool{"deleted": true})
	})
}

func (s *medicineService) logAction(txCtx context.Context, userID, action string, medicine *model.Medicine, payload interface{}) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	details, _ := json.Marshal(payload)
	audit := &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   medicine.ID.String(),
		EntityName: medicine.Name,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(txCtx, audit); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func toMedicineResponse(medicine *model.Medicine) MedicineResponse {
	return MedicineResponse{
		ID:           medicine.ID.String(),
		Code:         medicine.Code,
		Name:         medicine.Name,
		Category:     medicine.Category,
		Manufacturer: medicine.Manufacturer,
		Unit:         medicine.Unit,
	}
}
