package repository

import (
	"context"

	"restock/internal/dto"
	"restock/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository is the data-access contract for inventory items.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type InventoryRepository interface {
	FindBySKU(ctx context.Context, sku string) (*model.InventoryItem, error)
	List(ctx context.Context, filter dto.InventoryFilter) ([]model.InventoryItem, int64, error)

	// UpsertBatch writes one batch keyed on SKU, overwrite-on-conflict.
	// All rows in the batch succeed or fail together; the sync coordinator
	// records a failed batch and moves on to the next.
	UpsertBatch(ctx context.Context, items []model.InventoryItem) error

	// FindReorderNeeded returns items with current_stock <= reorder_point.
	FindReorderNeeded(ctx context.Context) ([]model.InventoryItem, error)

	CountOutOfStock(ctx context.Context) (int64, error)
	CountReorderNeeded(ctx context.Context) (int64, error)

	// RecordOrder stamps last-ordered date and quantity after a PO is created.
	RecordOrder(ctx context.Context, sku string, qty int) error

	// AddStock increments stock on receipt.
	AddStock(ctx context.Context, sku string, delta int) error
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepository(db *gorm.DB) InventoryRepository { return &inventoryRepo{db: db} }

func (r *inventoryRepo) FindBySKU(ctx context.Context, sku string) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.WithContext(ctx).Preload("Vendor").Where("sku = ?", sku).First(&item).Error
	return &item, err
}

func (r *inventoryRepo) List(ctx context.Context, filter dto.InventoryFilter) ([]model.InventoryItem, int64, error) {
	var items []model.InventoryItem
	var total int64

	q := r.db.WithContext(ctx).Model(&model.InventoryItem{})

	if filter.SKU != "" {
		q = q.Where("sku = ?", filter.SKU)
	}
	if filter.Vendor != "" {
		q = q.Joins("JOIN vendors ON vendors.id = inventory_items.vendor_id").
			Where("LOWER(vendors.name) = LOWER(?)", filter.Vendor)
	}
	if filter.Reorder {
		q = q.Where("current_stock <= reorder_point")
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
	err := q.Preload("Vendor").Order("sku ASC").Limit(filter.Limit).Offset(offset).Find(&items).Error
	return items, total, err
}

// upsert columns overwritten on SKU conflict. Reorder configuration columns
// are included: the external platform is the source of truth for them.
var upsertColumns = []string{
	"product_name", "current_stock", "quantity_reserved", "quantity_on_order",
	"reorder_point", "reorder_quantity", "vendor_id", "unit_cost", "location",
	"sales_last_30_days", "sales_last_90_days", "lead_time_days",
	"min_order_qty", "order_increment", "updated_at",
}

func (r *inventoryRepo) UpsertBatch(ctx context.Context, items []model.InventoryItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(&items).Error
}

func (r *inventoryRepo) FindReorderNeeded(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.WithContext(ctx).Preload("Vendor").
		Where("current_stock <= reorder_point").
		Order("sku ASC").Find(&items).Error
	return items, err
}

func (r *inventoryRepo) CountOutOfStock(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.InventoryItem{}).
		Where("current_stock = 0").Count(&n).Error
	return n, err
}

func (r *inventoryRepo) CountReorderNeeded(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.InventoryItem{}).
		Where("current_stock <= reorder_point").Count(&n).Error
	return n, err
}

func (r *inventoryRepo) RecordOrder(ctx context.Context, sku string, qty int) error {
	return r.db.WithContext(ctx).Model(&model.InventoryItem{}).
		Where("sku = ?", sku).
		Updates(map[string]interface{}{
			"last_ordered_at":  gorm.Expr("NOW()"),
			"last_ordered_qty": qty,
		}).Error
}

func (r *inventoryRepo) AddStock(ctx context.Context, sku string, delta int) error {
	return r.db.WithContext(ctx).Model(&model.InventoryItem{}).
		Where("sku = ?", sku).
		Update("current_stock", gorm.Expr("current_stock + ?", delta)).Error
}
