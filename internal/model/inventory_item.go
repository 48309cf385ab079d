package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem is one row per SKU. Sync upserts key on SKU; stock from
// multiple external locations is aggregated before it lands here.
// Derived reorder metrics (status, velocity, suggested quantity) are computed
// on read by the reorder package and never persisted.
type InventoryItem struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU             string    `gorm:"uniqueIndex;not null"`
	ProductName     string    `gorm:"not null"`
	CurrentStock    int       `gorm:"not null;default:0"`
	ReorderPoint    int       `gorm:"not null;default:0"`
	ReorderQuantity int       `gorm:"not null;default:0"`
	VendorID        *uuid.UUID `gorm:"type:uuid;index"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Location        string          `gorm:"not null;default:'main'"`
	SalesLast30Days int             `gorm:"not null;default:0"`
	SalesLast90Days int             `gorm:"not null;default:0"`
	LeadTimeDays    int             `gorm:"not null;default:7"`
	MinOrderQty     int             `gorm:"not null;default:0"`
	OrderIncrement  int             `gorm:"not null;default:1"`
	MaxStock        *int
	QuantityReserved int `gorm:"not null;default:0"`
	QuantityOnOrder  int `gorm:"not null;default:0"`
	LastOrderedAt   *time.Time
	LastOrderedQty  int `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Vendor *Vendor `gorm:"foreignKey:VendorID"`
}

func (InventoryItem) TableName() string { return "inventory_items" }
