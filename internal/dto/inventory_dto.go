package dto

import (
	"restock/internal/reorder"

	"github.com/shopspring/decimal"
)

// InventoryItemResponse is a stored item plus its derived reorder metrics.
type InventoryItemResponse struct {
	SKU             string          `json:"sku"`
	ProductName     string          `json:"product_name"`
	CurrentStock    int             `json:"current_stock"`
	ReorderPoint    int             `json:"reorder_point"`
	ReorderQuantity int             `json:"reorder_quantity"`
	VendorName      *string         `json:"vendor,omitempty"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	Location        string          `json:"location"`
	SalesLast30Days int             `json:"sales_last_30_days"`
	SalesLast90Days int             `json:"sales_last_90_days"`
	LeadTimeDays    int             `json:"lead_time_days"`
	LastOrderedAt   *string         `json:"last_ordered_at,omitempty"`
	LastOrderedQty  int             `json:"last_ordered_quantity"`
	UpdatedAt       string          `json:"updated_at"`

	reorder.Metrics
}

// InventoryFilter narrows item listings.
type InventoryFilter struct {
	SKU      string `form:"sku"`
	Vendor   string `form:"vendor"`
	Status   string `form:"status"` // critical | low | adequate | overstocked
	Reorder  bool   `form:"reorder_needed"`
	Page     int    `form:"page,default=1"`
	Limit    int    `form:"limit,default=50"`
}

// InventoryListResponse pages item results.
type InventoryListResponse struct {
	Items []InventoryItemResponse `json:"items"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}
