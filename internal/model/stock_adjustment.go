package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Adjustment type constants. Quantity is always positive; direction comes
// from the type. Corrections are new entries, never edits of history.
const (
	AdjustmentTypeAddition   = "ADDITION"
	AdjustmentTypeDeduction  = "DEDUCTION"
	AdjustmentTypeCorrection = "CORRECTION"
)

// StockAdjustment is one immutable entry in the stock ledger. The table is
// append-only: no repository or service exposes an update or delete, and the
// row has no UpdatedAt. Current stock levels are a projection over this log.
type StockAdjustment struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	MedicineID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"medicine_id"`
	Medicine       *Medicine  `gorm:"foreignKey:MedicineID" json:"medicine,omitempty"`
	BatchID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"batch_id"`
	Batch          *Batch     `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
	AdjustmentType string     `gorm:"type:varchar(20);not null;index" json:"adjustment_type"`
	Quantity       int        `gorm:"not null" json:"quantity"` // always positive
	Reason         string     `gorm:"type:varchar(255)" json:"reason"`
	Reference      string     `gorm:"type:varchar(255)" json:"reference"` // e.g. "PO-2024-001/B1"
	CreatedBy      *uuid.UUID `gorm:"type:uuid;index" json:"created_by"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}

func (a *StockAdjustment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
