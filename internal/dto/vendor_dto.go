package dto

import "github.com/shopspring/decimal"

// UpsertVendorRequest creates or updates a vendor by name.
type UpsertVendorRequest struct {
	Name           string          `json:"name" validate:"required"`
	Email          *string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone          *string         `json:"phone,omitempty"`
	LeadTimeDays   int             `json:"lead_time_days" validate:"gte=0"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount" validate:"min=0"`
}

// VendorResponse is the vendor view.
type VendorResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          *string         `json:"email,omitempty"`
	Phone          *string         `json:"phone,omitempty"`
	LeadTimeDays   int             `json:"lead_time_days"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	Active         bool            `json:"active"`
}
