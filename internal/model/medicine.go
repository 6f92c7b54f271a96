package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Medicine is master data referenced by orders, batches, and adjustments.
// The receiving flow only ever reads it; CRUD lives in its own service.
type Medicine struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Code         string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Category     string         `gorm:"type:varchar(100);index" json:"category"`
	Manufacturer string         `gorm:"type:varchar(255)" json:"manufacturer"`
	Unit         string         `gorm:"type:varchar(50)" json:"unit"` // tablet, bottle, vial...
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (m *Medicine) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
