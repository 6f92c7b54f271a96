package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdjustmentFilter narrows the read-side ledger queries. Zero values mean
// "no filter".
type AdjustmentFilter struct {
	MedicineID *uuid.UUID
	BatchID    *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// StockAdjustmentRepository is deliberately append-only: the interface has no
// update or delete. Corrections enter the ledger as new rows.
type StockAdjustmentRepository interface {
	Append(ctx context.Context, entry *model.StockAdjustment) error
	List(ctx context.Context, page, limit int, filter AdjustmentFilter) ([]model.StockAdjustment, int64, error)
}

type stockAdjustmentRepository struct {
	db *gorm.DB
}

func NewStockAdjustmentRepository(db *gorm.DB) StockAdjustmentRepository {
	return &stockAdjustmentRepository{db: db}
}

func (r *stockAdjustmentRepository) Append(ctx context.Context, entry *model.StockAdjustment) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *stockAdjustmentRepository) List(ctx context.Context, page, limit int, filter AdjustmentFilter) ([]model.StockAdjustment, int64, error) {
	var entries []model.StockAdjustment
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockAdjustment{})
	if filter.MedicineID != nil {
		db = db.Where("medicine_id = ?", *filter.MedicineID)
	}
	if filter.BatchID != nil {
		db = db.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.From != nil {
		db = db.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("created_at < ?", *filter.To)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Medicine").
		Preload("Batch").
		Order("created_at desc").
		Offset(offset).Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
