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

func (e *testEnv) seedBatch(t *testing.T, number string, quantity int) *model.Batch {
	t.Helper()
	medicine := e.seedMedicine(t, "ADJ-"+number)
	batch := model.Batch{
		MedicineID:  medicine.ID,
		BatchNumber: number,
		Quantity:    quantity,
		ExpiryDate:  time.Now().AddDate(1, 0, 0),
	}
	require.NoError(t, e.db.Create(&batch).Error)
	return &batch
}

func TestAppendAddition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, "AB-1", 10)

	res, err := env.adjustments.Append(ctx, "tester", CreateAdjustmentRequest{
		BatchID:        batch.ID.String(),
		AdjustmentType: model.AdjustmentTypeAddition,
		Quantity:       5,
		Reason:         "found during stocktake",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AdjustmentTypeAddition, res.AdjustmentType)

	var reloaded model.Batch
	require.NoError(t, env.db.First(&reloaded, "id = ?", batch.ID).Error)
	assert.Equal(t, 15, reloaded.Quantity)
}

func TestAppendDeduction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, "AB-1", 10)

	t.Run("within stock succeeds", func(t *testing.T) {
		_, err := env.adjustments.Append(ctx, "tester", CreateAdjustmentRequest{
			BatchID:        batch.ID.String(),
			AdjustmentType: model.AdjustmentTypeDeduction,
			Quantity:       4,
			Reason:         "damaged in storage",
		})
		require.NoError(t, err)

		var reloaded model.Batch
		require.NoError(t, env.db.First(&reloaded, "id = ?", batch.ID).Error)
		assert.Equal(t, 6, reloaded.Quantity)
	})

	t.Run("below zero is rejected", func(t *testing.T) {
		_, err := env.adjustments.Append(ctx, "tester", CreateAdjustmentRequest{
			BatchID:        batch.ID.String(),
			AdjustmentType: model.AdjustmentTypeDeduction,
			Quantity:       7,
			Reason:         "write-off",
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindNegativeStockInvariant, apperr.KindOf(err))
	})
}

func TestAppendCorrectionLeavesCounterAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, "AB-1", 10)

	_, err := env.adjustments.Append(ctx, "tester", CreateAdjustmentRequest{
		BatchID:        batch.ID.String(),
		AdjustmentType: model.AdjustmentTypeCorrection,
		Quantity:       3,
		Reason:         "entry AB-123 recorded against the wrong batch",
		Reference:      "AB-123",
	})
	require.NoError(t, err)

	var reloaded model.Batch
	require.NoError(t, env.db.First(&reloaded, "id = ?", batch.ID).Error)
	assert.Equal(t, 10, reloaded.Quantity)
}

func TestListAdjustmentsFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, "AB-1", 100)
	other := env.seedBatch(t, "AB-2", 100)

	for _, b := range []*model.Batch{batch, other} {
		_, err := env.adjustments.Append(ctx, "tester", CreateAdjustmentRequest{
			BatchID:        b.ID.String(),
			AdjustmentType: model.AdjustmentTypeDeduction,
			Quantity:       1,
			Reason:         "sample",
		})
		require.NoError(t, err)
	}

	t.Run("by batch", func(t *testing.T) {
		entries, total, err := env.adjustments.ListAdjustments(ctx, AdjustmentQuery{BatchID: batch.ID.String()})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, entries, 1)
		assert.Equal(t, batch.ID.String(), entries[0].BatchID)
	})

	t.Run("by medicine", func(t *testing.T) {
		entries, total, err := env.adjustments.ListAdjustments(ctx, AdjustmentQuery{MedicineID: other.MedicineID.String()})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, entries, 1)
		assert.Equal(t, other.MedicineID.String(), entries[0].MedicineID)
	})

	t.Run("unfiltered returns everything", func(t *testing.T) {
		_, total, err := env.adjustments.ListAdjustments(ctx, AdjustmentQuery{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
	})
}
