package service

import (
	"fmt"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testEnv wires real repositories and services against an in-memory database
// so transactional behavior is exercised, not mocked away.
type testEnv struct {
	db           *gorm.DB
	orderRepo    repository.PurchaseOrderRepository
	batchRepo    repository.BatchRepository
	adjustRepo   repository.StockAdjustmentRepository
	receiving    ReceivingService
	orderService PurchaseOrderService
	batchService BatchService
	adjustments  StockAdjustmentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps every session on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Medicine{},
		&model.Supplier{},
		&model.PurchaseOrder{},
		&model.PurchaseOrderItem{},
		&model.Batch{},
		&model.StockAdjustment{},
		&model.AuditLog{},
	))

	txManager := repository.NewTransactionManager(db)
	medicineRepo := repository.NewMedicineRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	orderRepo := repository.NewPurchaseOrderRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	adjustRepo := repository.NewStockAdjustmentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	return &testEnv{
		db:           db,
		orderRepo:    orderRepo,
		batchRepo:    batchRepo,
		adjustRepo:   adjustRepo,
		receiving:    NewReceivingService(orderRepo, batchRepo, adjustRepo, supplierRepo, auditRepo, txManager, nil),
		orderService: NewPurchaseOrderService(orderRepo, medicineRepo, supplierRepo, auditRepo, txManager),
		batchService: NewBatchService(batchRepo, medicineRepo, supplierRepo, adjustRepo, auditRepo, txManager),
		adjustments:  NewStockAdjustmentService(adjustRepo, batchRepo, auditRepo, txManager),
	}
}

func (e *testEnv) seedSupplier(t *testing.T) *model.Supplier {
	t.Helper()
	supplier := model.Supplier{Name: "Medline Distributors", IsActive: true}
	require.NoError(t, e.db.Create(&supplier).Error)
	return &supplier
}

func (e *testEnv) seedMedicine(t *testing.T, code string) *model.Medicine {
	t.Helper()
	medicine := model.Medicine{Code: code, Name: "Medicine " + code, Unit: "tablet"}
	require.NoError(t, e.db.Create(&medicine).Error)
	return &medicine
}

// seedOrder creates an order in the given status with one line per ordered
// quantity, each against its own medicine.
func (e *testEnv) seedOrder(t *testing.T, status string, quantities ...int) *model.PurchaseOrder {
	t.Helper()
	supplier := e.seedSupplier(t)

	order := model.PurchaseOrder{
		OrderNo:    fmt.Sprintf("PO-%d", time.Now().UnixNano()),
		SupplierID: supplier.ID,
		Status:     status,
		OrderDate:  time.Now(),
	}
	require.NoError(t, e.db.Create(&order).Error)

	for i, qty := range quantities {
		medicine := e.seedMedicine(t, fmt.Sprintf("%s-MED-%d", order.OrderNo, i+1))
		item := model.PurchaseOrderItem{
			OrderID:         order.ID,
			MedicineID:      medicine.ID,
			LineNo:          i + 1,
			QuantityOrdered: qty,
			UnitCost:        decimal.NewFromFloat(2.5),
		}
		require.NoError(t, e.db.Create(&item).Error)
		order.Items = append(order.Items, item)
	}
	return &order
}

func (e *testEnv) reloadOrder(t *testing.T, order *model.PurchaseOrder) *model.PurchaseOrder {
	t.Helper()
	var reloaded model.PurchaseOrder
	require.NoError(t, e.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_no asc")
	}).First(&reloaded, "id = ?", order.ID).Error)
	return &reloaded
}

func (e *testEnv) ledgerCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&model.StockAdjustment{}).Count(&count).Error)
	return count
}
