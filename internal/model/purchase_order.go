package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseOrder status constants. DRAFT and CANCELLED are the only states a
// client sets directly (submission and explicit cancel); the rest are derived
// from the item set after every accepted receipt.
const (
	OrderStatusDraft             = "DRAFT"
	OrderStatusOrdered           = "ORDERED"
	OrderStatusPartiallyReceived = "PARTIALLY_RECEIVED"
	OrderStatusReceived          = "RECEIVED"
	OrderStatusCancelled         = "CANCELLED"
)

// PurchaseOrder is the receiving aggregate: header, line items, and a derived
// status. Version increments on every receive/cancel/submit so callers holding
// a stale copy can be rejected.
type PurchaseOrder struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNo      string              `gorm:"type:varchar(100);uniqueIndex;not null" json:"order_no"`
	SupplierID   uuid.UUID           `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier     *Supplier           `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Status       string              `gorm:"type:varchar(30);not null;default:'DRAFT';index" json:"status"`
	OrderDate    time.Time           `gorm:"not null" json:"order_date"`
	ExpectedDate *time.Time          `json:"expected_date"`
	Note         string              `gorm:"type:text" json:"note"`
	Version      int                 `gorm:"not null;default:0" json:"version"`
	Items        []PurchaseOrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (o *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Receivable reports whether stock may be received against this order.
func (o *PurchaseOrder) Receivable() bool {
	return o.Status == OrderStatusOrdered || o.Status == OrderStatusPartiallyReceived
}

// Terminal reports whether the order can no longer change.
func (o *PurchaseOrder) Terminal() bool {
	return o.Status == OrderStatusReceived || o.Status == OrderStatusCancelled
}

// Cancellable reports whether an explicit cancel is allowed. Once any line has
// received stock the order can only run to completion.
func (o *PurchaseOrder) Cancellable() bool {
	if o.Status != OrderStatusDraft && o.Status != OrderStatusOrdered {
		return false
	}
	for _, item := range o.Items {
		if item.QuantityReceived > 0 {
			return false
		}
	}
	return true
}

// DeriveStatus recomputes the order status from the full item set. It is
// always evaluated from scratch, never patched incrementally, so a retried
// receipt or a Draft-time item addition cannot cause drift. DRAFT and
// CANCELLED are caller-set states and are passed through untouched.
func DeriveStatus(current string, items []PurchaseOrderItem) string {
	if current == OrderStatusDraft || current == OrderStatusCancelled {
		return current
	}
	if len(items) == 0 {
		return OrderStatusOrdered
	}

	allReceived := true
	anyReceived := false
	for _, item := range items {
		if item.QuantityReceived < item.QuantityOrdered {
			allReceived = false
		}
		if item.QuantityReceived > 0 {
			anyReceived = true
		}
	}

	switch {
	case allReceived:
		return OrderStatusReceived
	case anyReceived:
		return OrderStatusPartiallyReceived
	default:
		return OrderStatusOrdered
	}
}

// PurchaseOrderItem is one order line. QuantityReceived only ever grows, and
// only through the receiving service; 0 <= received <= ordered holds at all
// times.
type PurchaseOrderItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	MedicineID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"medicine_id"`
	Medicine         *Medicine       `gorm:"foreignKey:MedicineID" json:"medicine,omitempty"`
	LineNo           int             `gorm:"not null" json:"line_no"`
	QuantityOrdered  int             `gorm:"not null" json:"quantity_ordered"`
	QuantityReceived int             `gorm:"not null;default:0" json:"quantity_received"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"unit_cost"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (i *PurchaseOrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Pending returns the quantity still outstanding on this line.
func (i *PurchaseOrderItem) Pending() int {
	return i.QuantityOrdered - i.QuantityReceived
}
