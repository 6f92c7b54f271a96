package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	medicine := env.seedMedicine(t, "PARA-500")

	res, err := env.orderService.CreateOrder(ctx, "tester", CreatePurchaseOrderRequest{
		OrderNo:    "PO-2026-001",
		SupplierID: supplier.ID.String(),
		Items: []OrderItemRequest{
			{MedicineID: medicine.ID.String(), QuantityOrdered: 100, UnitCost: "0.45"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusDraft, res.Status)
	assert.Equal(t, 0, res.Version)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 100, res.Items[0].QuantityPending)
	assert.Equal(t, "45.0000", res.TotalCost)
}

func TestCreateOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	medicine := env.seedMedicine(t, "IBU-200")

	t.Run("unknown supplier", func(t *testing.T) {
		_, err := env.orderService.CreateOrder(ctx, "tester", CreatePurchaseOrderRequest{
			OrderNo:    "PO-X",
			SupplierID: "5b8e96f1-38e4-4d8e-b2bb-111111111111",
			Items:      []OrderItemRequest{{MedicineID: medicine.ID.String(), QuantityOrdered: 1, UnitCost: "1"}},
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("unknown medicine", func(t *testing.T) {
		_, err := env.orderService.CreateOrder(ctx, "tester", CreatePurchaseOrderRequest{
			OrderNo:    "PO-Y",
			SupplierID: supplier.ID.String(),
			Items:      []OrderItemRequest{{MedicineID: "5b8e96f1-38e4-4d8e-b2bb-222222222222", QuantityOrdered: 1, UnitCost: "1"}},
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("negative unit cost", func(t *testing.T) {
		_, err := env.orderService.CreateOrder(ctx, "tester", CreatePurchaseOrderRequest{
			OrderNo:    "PO-Z",
			SupplierID: supplier.ID.String(),
			Items:      []OrderItemRequest{{MedicineID: medicine.ID.String(), QuantityOrdered: 1, UnitCost: "-3"}},
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestSubmitOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("draft with items moves to ordered", func(t *testing.T) {
		order := env.seedOrder(t, model.OrderStatusDraft, 10)
		res, err := env.orderService.SubmitOrder(ctx, "tester", order.ID.String())
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusOrdered, res.Status)
		assert.Equal(t, 1, res.Version)
	})

	t.Run("draft without items is rejected", func(t *testing.T) {
		order := env.seedOrder(t, model.OrderStatusDraft)
		_, err := env.orderService.SubmitOrder(ctx, "tester", order.ID.String())
		require.Error(t, err)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("non draft is rejected", func(t *testing.T) {
		order := env.seedOrder(t, model.OrderStatusOrdered, 10)
		_, err := env.orderService.SubmitOrder(ctx, "tester", order.ID.String())
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidOrderState, apperr.KindOf(err))
	})
}

func TestCancelOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("draft cancels", func(t *testing.T) {
		order := env.seedOrder(t, model.OrderStatusDraft, 10)
		res, err := env.orderService.CancelOrder(ctx, "tester", order.ID.String(), "supplier discontinued")
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, res.Status)
	})

	t.Run("ordered with nothing received cancels", func(t *testing.T) {
		order := env.seedOrder(t, model.OrderStatusOrdered, 10)
		res, err := env.orderService.CancelOrder(ctx, "tester", order.ID.String(), "")
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, res.Status)
	})

	t.Run("received stock blocks cancellation", func(t *testing.T) {
		order := env.seedOrder(t, model.OrderStatusOrdered, 10)
		_, err := env.receiving.Receive(ctx, "tester", order.ID.String(), ReceiveStockRequest{
			Items: []ReceiveItemRequest{
				{ItemID: order.Items[0].ID.String(), QuantityReceived: 3, BatchNumber: "B-CX", ExpiryDate: futureDate(12)},
			},
		})
		require.NoError(t, err)

		_, err = env.orderService.CancelOrder(ctx, "tester", order.ID.String(), "changed our minds")
		require.Error(t, err)
		assert.Equal(t, apperr.KindCannotCancelAfterReceipt, apperr.KindOf(err))

		reloaded := env.reloadOrder(t, order)
		assert.Equal(t, model.OrderStatusPartiallyReceived, reloaded.Status)
	})

	t.Run("cancelled order cannot cancel again", func(t *testing.T) {
		order := env.seedOrder(t, model.OrderStatusCancelled, 10)
		_, err := env.orderService.CancelOrder(ctx, "tester", order.ID.String(), "")
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidOrderState, apperr.KindOf(err))
	})
}

func TestAddItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("appends to draft order", func(t *testing.T) {
		order := env.seedOrder(t, model.OrderStatusDraft, 10)
		medicine := env.seedMedicine(t, "AMOX-250")

		res, err := env.orderService.AddItem(ctx, "tester", order.ID.String(), AddOrderItemRequest{
			MedicineID:      medicine.ID.String(),
			QuantityOrdered: 30,
			UnitCost:        "1.20",
		})
		require.NoError(t, err)
		require.Len(t, res.Items, 2)
		assert.Equal(t, 2, res.Items[1].LineNo)
		assert.Equal(t, 30, res.Items[1].QuantityPending)
	})

	t.Run("rejected once submitted", func(t *testing.T) {
		order := env.seedOrder(t, model.OrderStatusOrdered, 10)
		medicine := env.seedMedicine(t, "AMOX-500")

		_, err := env.orderService.AddItem(ctx, "tester", order.ID.String(), AddOrderItemRequest{
			MedicineID:      medicine.ID.String(),
			QuantityOrdered: 5,
			UnitCost:        "2",
		})
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidOrderState, apperr.KindOf(err))
	})
}

func TestListOrdersFilterByStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedOrder(t, model.OrderStatusDraft, 1)
	env.seedOrder(t, model.OrderStatusOrdered, 1)
	env.seedOrder(t, model.OrderStatusOrdered, 1)

	ordered, total, err := env.orderService.ListOrders(ctx, OrderFilter{Status: model.OrderStatusOrdered})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, o := range ordered {
		assert.Equal(t, model.OrderStatusOrdered, o.Status)
	}

	_, total, err = env.orderService.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}
