package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBatchManualEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	medicine := env.seedMedicine(t, "CET-10")
	supplier := env.seedSupplier(t)

	res, err := env.batchService.CreateBatch(ctx, "tester", CreateBatchRequest{
		MedicineID:  medicine.ID.String(),
		BatchNumber: "MB-001",
		Quantity:    50,
		ExpiryDate:  futureDate(24),
		SupplierID:  supplier.ID.String(),
		Reason:      "opening stock",
	})
	require.NoError(t, err)

	assert.Equal(t, 50, res.Quantity)
	assert.Equal(t, model.ExpiryStatusActive, res.ExpiryStatus)
	assert.Equal(t, supplier.Name, res.SupplierName)
	assert.Empty(t, res.SourceOrderID) // manual entry, no originating order

	// An ADDITION ledger entry commits with the batch.
	var entry model.StockAdjustment
	require.NoError(t, env.db.First(&entry, "batch_id = ?", res.ID).Error)
	assert.Equal(t, model.AdjustmentTypeAddition, entry.AdjustmentType)
	assert.Equal(t, 50, entry.Quantity)
}

func TestCreateBatchDuplicateRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	medicine := env.seedMedicine(t, "CET-20")

	_, err := env.batchService.CreateBatch(ctx, "tester", CreateBatchRequest{
		MedicineID:  medicine.ID.String(),
		BatchNumber: "MB-002",
		Quantity:    10,
		ExpiryDate:  futureDate(24),
	})
	require.NoError(t, err)

	_, err = env.batchService.CreateBatch(ctx, "tester", CreateBatchRequest{
		MedicineID:  medicine.ID.String(),
		BatchNumber: "MB-002",
		Quantity:    5,
		ExpiryDate:  futureDate(24),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestDecrement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	medicine := env.seedMedicine(t, "CET-30")

	created, err := env.batchService.CreateBatch(ctx, "tester", CreateBatchRequest{
		MedicineID:  medicine.ID.String(),
		BatchNumber: "MB-003",
		Quantity:    10,
		ExpiryDate:  futureDate(24),
	})
	require.NoError(t, err)

	t.Run("below zero is rejected and nothing moves", func(t *testing.T) {
		before := env.ledgerCount(t)
		_, err := env.batchService.Decrement(ctx, "tester", created.ID, DecrementBatchRequest{Quantity: 11})
		require.Error(t, err)
		assert.Equal(t, apperr.KindNegativeStockInvariant, apperr.KindOf(err))
		assert.Equal(t, before, env.ledgerCount(t))

		current, err := env.batchService.GetBatch(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, current.Quantity)
	})

	t.Run("exact drain to zero becomes sold out", func(t *testing.T) {
		res, err := env.batchService.Decrement(ctx, "tester", created.ID, DecrementBatchRequest{Quantity: 10, Reason: "dispensed"})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Quantity)
		assert.Equal(t, model.ExpiryStatusSoldOut, res.ExpiryStatus)

		var entry model.StockAdjustment
		require.NoError(t, env.db.Where("batch_id = ? AND adjustment_type = ?", created.ID, model.AdjustmentTypeDeduction).First(&entry).Error)
		assert.Equal(t, 10, entry.Quantity)
		assert.Equal(t, "dispensed", entry.Reason)
	})

	t.Run("sold out batch rejects any further decrement", func(t *testing.T) {
		_, err := env.batchService.Decrement(ctx, "tester", created.ID, DecrementBatchRequest{Quantity: 1})
		require.Error(t, err)
		assert.Equal(t, apperr.KindNegativeStockInvariant, apperr.KindOf(err))
	})
}

func TestListBatchesClassifiesAtReadTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	medicine := env.seedMedicine(t, "CET-40")

	now := time.Now()
	batches := []model.Batch{
		{MedicineID: medicine.ID, BatchNumber: "LB-EXP", Quantity: 5, ExpiryDate: now.AddDate(0, 0, -1)},
		{MedicineID: medicine.ID, BatchNumber: "LB-CRIT", Quantity: 5, ExpiryDate: now.AddDate(0, 0, 3)},
		{MedicineID: medicine.ID, BatchNumber: "LB-SOON", Quantity: 5, ExpiryDate: now.AddDate(0, 0, 20)},
		{MedicineID: medicine.ID, BatchNumber: "LB-ACT", Quantity: 5, ExpiryDate: now.AddDate(1, 0, 0)},
		{MedicineID: medicine.ID, BatchNumber: "LB-OUT", Quantity: 0, ExpiryDate: now.AddDate(1, 0, 0)},
	}
	for i := range batches {
		require.NoError(t, env.db.Create(&batches[i]).Error)
	}

	res, total, err := env.batchService.ListBatches(ctx, BatchFilter{MedicineID: medicine.ID.String()})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)

	byNumber := make(map[string]string, len(res))
	for _, b := range res {
		byNumber[b.BatchNumber] = b.ExpiryStatus
	}
	assert.Equal(t, model.ExpiryStatusExpired, byNumber["LB-EXP"])
	assert.Equal(t, model.ExpiryStatusCritical, byNumber["LB-CRIT"])
	assert.Equal(t, model.ExpiryStatusExpiringSoon, byNumber["LB-SOON"])
	assert.Equal(t, model.ExpiryStatusActive, byNumber["LB-ACT"])
	assert.Equal(t, model.ExpiryStatusSoldOut, byNumber["LB-OUT"])

	// List comes back in first-expiry-first order.
	require.Len(t, res, 5)
	for i := 1; i < len(res); i++ {
		assert.LessOrEqual(t, res[i-1].ExpiryDate, res[i].ExpiryDate)
	}
}
