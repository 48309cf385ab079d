package dto

import "github.com/shopspring/decimal"

// SuggestionItem is one reorder-flagged SKU within a vendor suggestion.
type SuggestionItem struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Urgency   string          `json:"urgency"`
}

// ReorderSuggestion groups reorder-flagged items for one vendor.
type ReorderSuggestion struct {
	VendorID    string           `json:"vendor_id"`
	VendorName  string           `json:"vendor_name"`
	Items       []SuggestionItem `json:"items"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Urgency     string           `json:"urgency_level"`
	TotalItems  int              `json:"total_items"`
}

// POItemRequest carries one line of a creation request.
type POItemRequest struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// Adjustment overrides the quantity of one suggested line before creation.
// Overrides never bypass recomputation of line and order totals.
type Adjustment struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// CreatePORequest turns a vendor suggestion into a draft purchase order.
type CreatePORequest struct {
	VendorID    string          `json:"vendor_id" validate:"required,uuid"`
	Items       []POItemRequest `json:"items" validate:"required,min=1,dive"`
	Adjustments []Adjustment    `json:"adjustments,omitempty" validate:"omitempty,dive"`
}

// RejectPORequest carries the mandatory rejection reason.
type RejectPORequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ReceiveLine reports received quantity for one SKU.
type ReceiveLine struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// ReceivePORequest records a partial or full receipt.
type ReceivePORequest struct {
	Lines []ReceiveLine `json:"lines" validate:"required,min=1,dive"`
}

// POLineResponse is one line item of an order.
type POLineResponse struct {
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	LineTotal   decimal.Decimal `json:"line_total"`
	ReceivedQty int             `json:"received_quantity"`
}

// PurchaseOrderResponse is the full order view.
type PurchaseOrderResponse struct {
	ID              string           `json:"id"`
	PONumber        string           `json:"po_number"`
	VendorID        string           `json:"vendor_id"`
	VendorName      string           `json:"vendor_name,omitempty"`
	Status          string           `json:"status"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	Urgency         string           `json:"urgency_level"`
	Items           []POLineResponse `json:"items"`
	CreatedBy       string           `json:"created_by"`
	ApprovedBy      *string          `json:"approved_by,omitempty"`
	ApprovedAt      *string          `json:"approved_at,omitempty"`
	RejectedBy      *string          `json:"rejected_by,omitempty"`
	RejectedAt      *string          `json:"rejected_at,omitempty"`
	RejectionReason *string          `json:"rejection_reason,omitempty"`
	SentAt          *string          `json:"sent_at,omitempty"`
	ReceivedAt      *string          `json:"received_at,omitempty"`
	CreatedAt       string           `json:"created_at"`
}

// POFilter narrows order listings.
type POFilter struct {
	Status string `form:"status"`
	Vendor string `form:"vendor"`
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=50"`
}

// AuditEntryResponse is one audit-trail row.
type AuditEntryResponse struct {
	Action    string  `json:"action"`
	Status    string  `json:"status"`
	Actor     string  `json:"actor"`
	Origin    *string `json:"origin,omitempty"`
	CreatedAt string  `json:"created_at"`
}
