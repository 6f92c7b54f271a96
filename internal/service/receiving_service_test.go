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

func futureDate(months int) string {
	return time.Now().AddDate(0, months, 0).Format("2006-01-02")
}

func TestReceiveFullOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.seedOrder(t, model.OrderStatusOrdered, 10, 5)

	result, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
		Items: []ReceiveItemRequest{
			{ItemID: order.Items[0].ID.String(), QuantityReceived: 10, BatchNumber: "B-001", ExpiryDate: futureDate(12)},
			{ItemID: order.Items[1].ID.String(), QuantityReceived: 5, BatchNumber: "B-002", ExpiryDate: futureDate(12)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusReceived, result.OrderStatus)
	assert.Len(t, result.BatchesTouched, 2)
	assert.Empty(t, result.Warnings)

	reloaded := env.reloadOrder(t, order)
	assert.Equal(t, model.OrderStatusReceived, reloaded.Status)
	assert.Equal(t, 1, reloaded.Version)
	assert.Equal(t, 10, reloaded.Items[0].QuantityReceived)
	assert.Equal(t, 5, reloaded.Items[1].QuantityReceived)

	// One ledger entry per received line
	assert.EqualValues(t, 2, env.ledgerCount(t))
}

func TestReceivePartialThenComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.seedOrder(t, model.OrderStatusOrdered, 10)
	itemID := order.Items[0].ID.String()

	first, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
		Items: []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: 4, BatchNumber: "B-100", ExpiryDate: futureDate(12)}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPartiallyReceived, first.OrderStatus)

	second, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
		Items: []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: 6, BatchNumber: "B-100", ExpiryDate: futureDate(12)}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusReceived, second.OrderStatus)
	assert.Equal(t, 2, second.OrderVersion)

	// Both receipts landed in the same batch; quantities aggregate.
	var batch model.Batch
	require.NoError(t, env.db.First(&batch, "batch_number = ?", "B-100").Error)
	assert.Equal(t, 10, batch.Quantity)
}

func TestReceiveQuantityExceedsPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.seedOrder(t, model.OrderStatusOrdered, 10)
	itemID := order.Items[0].ID.String()

	_, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
		Items: []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: 4, BatchNumber: "B-200", ExpiryDate: futureDate(12)}},
	})
	require.NoError(t, err)

	before := env.ledgerCount(t)
	_, err = env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
		Items: []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: 7, BatchNumber: "B-200", ExpiryDate: futureDate(12)}},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindQuantityExceedsPending, apperr.KindOf(err))

	domainErr, ok := apperr.AsError(err)
	require.True(t, ok)
	require.NotNil(t, domainErr.MaxAllowed)
	assert.Equal(t, 6, *domainErr.MaxAllowed)
	assert.Equal(t, itemID, domainErr.ItemID)

	// The rejected call wrote nothing.
	assert.Equal(t, before, env.ledgerCount(t))
	reloaded := env.reloadOrder(t, order)
	assert.Equal(t, 4, reloaded.Items[0].QuantityReceived)
	assert.Equal(t, model.OrderStatusPartiallyReceived, reloaded.Status)
}

func TestReceiveDuplicateLinesShareThePendingBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.seedOrder(t, model.OrderStatusOrdered, 10)
	itemID := order.Items[0].ID.String()

	t.Run("two lines within pending succeed", func(t *testing.T) {
		result, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
			Items: []ReceiveItemRequest{
				{ItemID: itemID, QuantityReceived: 4, BatchNumber: "B-300", ExpiryDate: futureDate(12)},
				{ItemID: itemID, QuantityReceived: 3, BatchNumber: "B-301", ExpiryDate: futureDate(12)},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPartiallyReceived, result.OrderStatus)
	})

	t.Run("two lines jointly overshooting are rejected", func(t *testing.T) {
		_, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
			Items: []ReceiveItemRequest{
				{ItemID: itemID, QuantityReceived: 2, BatchNumber: "B-300", ExpiryDate: futureDate(12)},
				{ItemID: itemID, QuantityReceived: 2, BatchNumber: "B-301", ExpiryDate: futureDate(12)},
			},
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindQuantityExceedsPending, apperr.KindOf(err))

		domainErr, ok := apperr.AsError(err)
		require.True(t, ok)
		require.NotNil(t, domainErr.MaxAllowed)
		// 3 pending after the first receipt, 2 already claimed by the first line.
		assert.Equal(t, 1, *domainErr.MaxAllowed)
	})
}

func TestReceiveUnknownLineItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.seedOrder(t, model.OrderStatusOrdered, 10)
	other := env.seedOrder(t, model.OrderStatusOrdered, 5)

	_, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
		Items: []ReceiveItemRequest{
			{ItemID: other.Items[0].ID.String(), QuantityReceived: 1, BatchNumber: "B-400", ExpiryDate: futureDate(12)},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnknownLineItem, apperr.KindOf(err))
}

func TestReceiveRejectedByOrderState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, status := range []string{model.OrderStatusDraft, model.OrderStatusReceived, model.OrderStatusCancelled} {
		t.Run(status, func(t *testing.T) {
			order := env.seedOrder(t, status, 10)
			_, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
				Items: []ReceiveItemRequest{
					{ItemID: order.Items[0].ID.String(), QuantityReceived: 1, BatchNumber: "B-500", ExpiryDate: futureDate(12)},
				},
			})
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalidOrderState, apperr.KindOf(err))
		})
	}
}

func TestReceiveExpiredOnArrivalWarns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.seedOrder(t, model.OrderStatusOrdered, 10)

	past := time.Now().AddDate(0, -1, 0).Format("2006-01-02")
	result, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
		Items: []ReceiveItemRequest{
			{ItemID: order.Items[0].ID.String(), QuantityReceived: 10, BatchNumber: "B-600", ExpiryDate: past},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningExpiredOnArrival, result.Warnings[0].Code)

	// The stock is still recorded.
	var batch model.Batch
	require.NoError(t, env.db.First(&batch, "batch_number = ?", "B-600").Error)
	assert.Equal(t, 10, batch.Quantity)
	assert.Equal(t, model.ExpiryStatusExpired, batch.Classify(time.Now()))
}

func TestReceiveExpiryMismatchKeepsFirstExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.seedOrder(t, model.OrderStatusOrdered, 10)
	itemID := order.Items[0].ID.String()

	firstExpiry := futureDate(12)
	_, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
		Items: []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: 4, BatchNumber: "B-700", ExpiryDate: firstExpiry}},
	})
	require.NoError(t, err)

	result, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
		Items: []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: 6, BatchNumber: "B-700", ExpiryDate: futureDate(18)}},
	})
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningExpiryMismatch, result.Warnings[0].Code)

	var batch model.Batch
	require.NoError(t, env.db.First(&batch, "batch_number = ?", "B-700").Error)
	assert.Equal(t, 10, batch.Quantity)
	assert.Equal(t, firstExpiry, batch.ExpiryDate.Format("2006-01-02"))
}

func TestReceiveStaleVersionRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.seedOrder(t, model.OrderStatusOrdered, 10)
	itemID := order.Items[0].ID.String()

	_, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
		Items: []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: 4, BatchNumber: "B-800", ExpiryDate: futureDate(12)}},
	})
	require.NoError(t, err)

	// A caller still holding version 0 must be told to re-fetch.
	stale := 0
	_, err = env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
		Items:           []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: 1, BatchNumber: "B-800", ExpiryDate: futureDate(12)}},
		ExpectedVersion: &stale,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConcurrentModification, apperr.KindOf(err))

	current := 1
	_, err = env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
		Items:           []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: 1, BatchNumber: "B-800", ExpiryDate: futureDate(12)}},
		ExpectedVersion: &current,
	})
	require.NoError(t, err)
}

func TestReceiveValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.seedOrder(t, model.OrderStatusOrdered, 10)
	itemID := order.Items[0].ID.String()

	t.Run("all zero quantities is rejected", func(t *testing.T) {
		_, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
			Items: []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: 0, BatchNumber: "B-900", ExpiryDate: futureDate(12)}},
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("negative quantity is rejected", func(t *testing.T) {
		_, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
			Items: []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: -1, BatchNumber: "B-900", ExpiryDate: futureDate(12)}},
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("missing batch number is rejected", func(t *testing.T) {
		_, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
			Items: []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: 1, ExpiryDate: futureDate(12)}},
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("malformed expiry date is rejected", func(t *testing.T) {
		_, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
			Items: []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: 1, BatchNumber: "B-900", ExpiryDate: "31-12-2026"}},
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("zero quantity lines are skipped not rejected", func(t *testing.T) {
		result, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
			Items: []ReceiveItemRequest{
				{ItemID: itemID, QuantityReceived: 0},
				{ItemID: itemID, QuantityReceived: 2, BatchNumber: "B-901", ExpiryDate: futureDate(12)},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPartiallyReceived, result.OrderStatus)
	})
}

// Receiving in many small increments must never drive received past ordered,
// and the ledger must grow by exactly one entry per accepted line.
func TestReceiveIncrementsNeverOvershoot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.seedOrder(t, model.OrderStatusOrdered, 7)
	itemID := order.Items[0].ID.String()

	accepted := 0
	for i := 0; i < 10; i++ {
		_, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
			Items: []ReceiveItemRequest{{ItemID: itemID, QuantityReceived: 2, BatchNumber: "B-950", ExpiryDate: futureDate(12)}},
		})
		if err != nil {
			assert.Equal(t, apperr.KindQuantityExceedsPending, apperr.KindOf(err))
			break
		}
		accepted++
	}

	assert.Equal(t, 3, accepted) // 2+2+2 fits in 7, the fourth try does not

	reloaded := env.reloadOrder(t, order)
	assert.Equal(t, 6, reloaded.Items[0].QuantityReceived)
	assert.LessOrEqual(t, reloaded.Items[0].QuantityReceived, reloaded.Items[0].QuantityOrdered)
	assert.EqualValues(t, int64(accepted), env.ledgerCount(t))
}

func TestReceiveNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.receiving.Receive(ctx, "tester", "2f9cc6a7-48f5-44a8-9aa2-3f1c6f2e6a01", ReceiveStockRequest{
		Items: []ReceiveItemRequest{{ItemID: "x", QuantityReceived: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
