package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Expiry classification buckets, in precedence order. SoldOut and Expired win
// over the time-window buckets regardless of remaining days.
const (
	ExpiryStatusSoldOut      = "SOLD_OUT"
	ExpiryStatusExpired      = "EXPIRED"
	ExpiryStatusCritical     = "CRITICAL"
	ExpiryStatusExpiringSoon = "EXPIRING_SOON"
	ExpiryStatusActive       = "ACTIVE"
)

// Classification thresholds measured from "now", not from receipt date.
const (
	CriticalExpiryWindow     = 7 * 24 * time.Hour
	ExpiringSoonExpiryWindow = 30 * 24 * time.Hour
)

// Batch is one physical lot of a medicine sharing a single expiry date.
// Batches are never deleted; quantity only moves through receiving (up) and
// downstream consumption (down). SupplierName is denormalized for display
// only; everything else is referenced by id.
type Batch struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	MedicineID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_medicine_batch_no" json:"medicine_id"`
	Medicine      *Medicine  `gorm:"foreignKey:MedicineID" json:"medicine,omitempty"`
	BatchNumber   string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_medicine_batch_no" json:"batch_number"`
	Quantity      int        `gorm:"not null;default:0" json:"quantity"`
	ExpiryDate    time.Time  `gorm:"not null;index" json:"expiry_date"`
	SourceOrderID *uuid.UUID `gorm:"type:uuid;index" json:"source_order_id"` // nil for manually entered batches
	SupplierID    *uuid.UUID `gorm:"type:uuid;index" json:"supplier_id"`
	SupplierName  string     `gorm:"type:varchar(255)" json:"supplier_name"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (b *Batch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Classify buckets the batch by expiry risk as of now. Pure read-side
// derivation; the result is never stored.
func (b *Batch) Classify(now time.Time) string {
	switch {
	case b.Quantity == 0:
		return ExpiryStatusSoldOut
	case b.ExpiryDate.Before(now):
		return ExpiryStatusExpired
	case b.ExpiryDate.Before(now.Add(CriticalExpiryWindow)):
		return ExpiryStatusCritical
	case b.ExpiryDate.Before(now.Add(ExpiringSoonExpiryWindow)):
		return ExpiryStatusExpiringSoon
	default:
		return ExpiryStatusActive
	}
}
