package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BatchRepository interface {
	Create(ctx context.Context, batch *model.Batch) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	FindByMedicineAndNumberForUpdate(ctx context.Context, medicineID uuid.UUID, batchNumber string) (*model.Batch, error)
	AddQuantity(ctx context.Context, id uuid.UUID, delta int) error
	List(ctx context.Context, page, limit int, medicineID *uuid.UUID) ([]model.Batch, int64, error)
}

type batchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, batch *model.Batch) error {
	return GetDB(ctx, r.db).Create(batch).Error
}

func (r *batchRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	var batch model.Batch
	if err := GetDB(ctx, r.db).Preload("Medicine").First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	var batch model.Batch
	if err := r.lockingQuery(ctx).First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) FindByMedicineAndNumberForUpdate(ctx context.Context, medicineID uuid.UUID, batchNumber string) (*model.Batch, error) {
	var batch model.Batch
	if err := r.lockingQuery(ctx).
		Where("medicine_id = ? AND batch_number = ?", medicineID, batchNumber).
		First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) AddQuantity(ctx context.Context, id uuid.UUID, delta int) error {
	return GetDB(ctx, r.db).Model(&model.Batch{}).
		Where("id = ?", id).
		Update("quantity", gorm.Expr("quantity + ?", delta)).Error
}

func (r *batchRepository) List(ctx context.Context, page, limit int, medicineID *uuid.UUID) ([]model.Batch, int64, error) {
	var batches []model.Batch
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Batch{})
	if medicineID != nil {
		db = db.Where("medicine_id = ?", *medicineID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Medicine").
		Order("expiry_date asc"). // FEFO ordering for the batch-management view
		Offset(offset).Limit(limit).
		Find(&batches).Error; err != nil {
		return nil, 0, err
	}

	return batches, total, nil
}

func (r *batchRepository) lockingQuery(ctx context.Context) *gorm.DB {
	db := GetDB(ctx, r.db)
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}
