package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase order lifecycle states. Terminal: received, cancelled, rejected.
const (
	POStatusDraft           = "draft"
	POStatusPendingApproval = "pending_approval"
	POStatusApproved        = "approved"
	POStatusRejected        = "rejected"
	POStatusSent            = "sent"
	POStatusPartial         = "partial"
	POStatusReceived        = "received"
	POStatusCancelled       = "cancelled"
)

// PurchaseOrder is identified by PONumber (unique, immutable once assigned,
// format PO-{year}-{6-digit sequence}). Line items are owned by the order and
// do not outlive it.
type PurchaseOrder struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PONumber    string    `gorm:"uniqueIndex;not null"`
	VendorID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Status      string    `gorm:"index;not null;default:'draft'"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Urgency     string          `gorm:"not null;default:'low'"`

	CreatedBy       string `gorm:"not null"`
	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectedBy      *string
	RejectedAt      *time.Time
	RejectionReason *string
	SentAt          *time.Time
	ReceivedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Vendor *Vendor      `gorm:"foreignKey:VendorID"`
	Items  []POLineItem `gorm:"foreignKey:POID;constraint:OnDelete:CASCADE"`
}

func (PurchaseOrder) TableName() string { return "purchase_orders" }

// Terminal reports whether no further transitions are allowed from the
// order's current status.
func (po *PurchaseOrder) Terminal() bool {
	switch po.Status {
	case POStatusReceived, POStatusCancelled, POStatusRejected:
		return true
	}
	return false
}

// POLineItem is one ordered SKU on a purchase order.
type POLineItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	POID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU         string          `gorm:"not null"`
	Quantity    int             `gorm:"not null"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ReceivedQty int             `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (POLineItem) TableName() string { return "po_line_items" }
