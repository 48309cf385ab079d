package repository

import (
	"context"
	"fmt"
	"time"

	"restock/internal/apierror"
	"restock/internal/dto"
	"restock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseOrderRepository owns the PO table and the append-only audit trail
// writes that accompany every accepted state change. Transitions are applied
// with an optimistic status precondition inside one transaction, so concurrent
// approve/reject/cancel attempts on the same order cannot both succeed.
type PurchaseOrderRepository interface {
	// CreateWithAudit persists a draft order, its line items, and the
	// "created" audit entry atomically.
	CreateWithAudit(ctx context.Context, po *model.PurchaseOrder, entry *model.AuditTrailEntry) error

	FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	List(ctx context.Context, filter dto.POFilter) ([]model.PurchaseOrder, int64, error)

	// LastNumberForYear returns the highest assigned po_number with the given
	// year prefix, or "" when none exists.
	LastNumberForYear(ctx context.Context, year int) (string, error)

	// Transition updates the order iff its status still equals fromStatus and
	// appends the audit entry in the same transaction. A stale precondition
	// yields a validation error and no writes.
	Transition(ctx context.Context, id uuid.UUID, fromStatus string, updates map[string]interface{}, entry *model.AuditTrailEntry) error

	// ApplyReceipt records received quantities on the order's lines, moves the
	// order to toStatus, and appends the audit entry, all atomically.
	ApplyReceipt(ctx context.Context, po *model.PurchaseOrder, received map[string]int, toStatus string, receivedAt *time.Time, entry *model.AuditTrailEntry) error

	ListAudit(ctx context.Context, poID uuid.UUID) ([]model.AuditTrailEntry, error)
}

type poRepo struct{ db *gorm.DB }

func NewPurchaseOrderRepository(db *gorm.DB) PurchaseOrderRepository { return &poRepo{db: db} }

func (r *poRepo) CreateWithAudit(ctx context.Context, po *model.PurchaseOrder, entry *model.AuditTrailEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(po).Error; err != nil {
			return err
		}
		entry.POID = po.ID
		return tx.Create(entry).Error
	})
}

func (r *poRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := r.db.WithContext(ctx).Preload("Items").Preload("Vendor").First(&po, id).Error
	return &po, err
}

func (r *poRepo) List(ctx context.Context, filter dto.POFilter) ([]model.PurchaseOrder, int64, error) {
	var orders []model.PurchaseOrder
	var total int64

	q := r.db.WithContext(ctx).Model(&model.PurchaseOrder{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Vendor != "" {
		q = q.Joins("JOIN vendors ON vendors.id = purchase_orders.vendor_id").
			Where("LOWER(vendors.name) = LOWER(?)", filter.Vendor)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Items").Preload("Vendor").
		Order("created_at DESC").Limit(filter.Limit).Offset(offset).Find(&orders).Error
	return orders, total, err
}

func (r *poRepo) LastNumberForYear(ctx context.Context, year int) (string, error) {
	var number string
	err := r.db.WithContext(ctx).Model(&model.PurchaseOrder{}).
		Where("po_number LIKE ?", fmt.Sprintf("PO-%d-%%", year)).
		Order("po_number DESC").Limit(1).
		Pluck("po_number", &number).Error
	return number, err
}

func (r *poRepo) Transition(ctx context.Context, id uuid.UUID, fromStatus string, updates map[string]interface{}, entry *model.AuditTrailEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.PurchaseOrder{}).
			Where("id = ? AND status = ?", id, fromStatus).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apierror.Validation("purchase order %s is no longer in status %s", id, fromStatus)
		}
		entry.POID = id
		return tx.Create(entry).Error
	})
}

func (r *poRepo) ApplyReceipt(ctx context.Context, po *model.PurchaseOrder, received map[string]int, toStatus string, receivedAt *time.Time, entry *model.AuditTrailEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.PurchaseOrder{}).
			Where("id = ? AND status = ?", po.ID, po.Status).
			Updates(map[string]interface{}{"status": toStatus, "received_at": receivedAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apierror.Validation("purchase order %s is no longer in status %s", po.ID, po.Status)
		}
		for sku, qty := range received {
			if err := tx.Model(&model.POLineItem{}).
				Where("po_id = ? AND sku = ?", po.ID, sku).
				Update("received_qty", gorm.Expr("received_qty + ?", qty)).Error; err != nil {
				return err
			}
		}
		entry.POID = po.ID
		return tx.Create(entry).Error
	})
}

func (r *poRepo) ListAudit(ctx context.Context, poID uuid.UUID) ([]model.AuditTrailEntry, error) {
	var entries []model.AuditTrailEntry
	err := r.db.WithContext(ctx).
		Where("po_id = ?", poID).Order("created_at ASC").Find(&entries).Error
	return entries, err
}
