package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions, one per accepted purchase-order state transition.
const (
	AuditActionCreated           = "created"
	AuditActionSubmitted         = "submitted"
	AuditActionApproved          = "approved"
	AuditActionRejected          = "rejected"
	AuditActionSent              = "sent"
	AuditActionPartiallyReceived = "partially_received"
	AuditActionReceived          = "received"
	AuditActionCancelled         = "cancelled"
)

// AuditTrailEntry is append-only: exactly one entry per accepted state
// transition, never updated or deleted. Rejected transition attempts write
// nothing.
type AuditTrailEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	POID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Action    string    `gorm:"not null"`
	Status    string    `gorm:"not null"` // resulting status
	Actor     string    `gorm:"not null"`
	Origin    *string   // supporting detail (rejection reason, request origin), when known
	CreatedAt time.Time
}

func (AuditTrailEntry) TableName() string { return "audit_trail_entries" }
