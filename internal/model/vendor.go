package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Vendor is identified by name (unique, matched case-insensitively).
// Vendors are created or updated during sync reconciliation, or when first
// referenced by a purchase order. They are never hard-deleted, only deactivated.
type Vendor struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name           string    `gorm:"uniqueIndex;not null"`
	Email          *string
	Phone          *string
	LeadTimeDays   int             `gorm:"not null;default:7"`
	MinOrderAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Active         bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Items []InventoryItem `gorm:"foreignKey:VendorID"`
}

func (Vendor) TableName() string { return "vendors" }
