package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreatePurchaseOrder = "CREATE_PURCHASE_ORDER"
	ActionSubmitPurchaseOrder = "SUBMIT_PURCHASE_ORDER"
	ActionCancelPurchaseOrder = "CANCEL_PURCHASE_ORDER"
	ActionReceiveStock        = "RECEIVE_STOCK"
	ActionCreateBatch         = "CREATE_BATCH"
	ActionDecrementBatch      = "DECREMENT_BATCH"
	ActionStockCorrection     = "STOCK_CORRECTION"

	ActionCreateMedicine = "CREATE_MEDICINE"
	ActionUpdateMedicine = "UPDATE_MEDICINE"
	ActionDeleteMedicine = "DELETE_MEDICINE"
	ActionCreateSupplier = "CREATE_SUPPLIER"
	ActionUpdateSupplier = "UPDATE_SUPPLIER"
	ActionDeleteSupplier = "DELETE_SUPPLIER"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated job
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:text" json:"details"`                       // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
