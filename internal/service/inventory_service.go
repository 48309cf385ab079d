package service

import (
	"context"
	"errors"
	"time"

	"restock/internal/apierror"
	"restock/internal/dto"
	"restock/internal/model"
	"restock/internal/reorder"
	"restock/internal/repository"

	"gorm.io/gorm"
)

// InventoryService serves read views of stored items enriched with derived
// reorder metrics. Metrics are computed on every read, never persisted.
type InventoryService interface {
	Get(ctx context.Context, sku string) (*dto.InventoryItemResponse, error)
	List(ctx context.Context, filter dto.InventoryFilter) (*dto.InventoryListResponse, error)
}

type inventoryService struct {
	inventory repository.InventoryRepository
}

func NewInventoryService(inventory repository.InventoryRepository) InventoryService {
	return &inventoryService{inventory: inventory}
}

func (s *inventoryService) Get(ctx context.Context, sku string) (*dto.InventoryItemResponse, error) {
	item, err := s.inventory.FindBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("sku %s not found", sku)
		}
		return nil, apierror.Database("load inventory item", err)
	}
	resp := toInventoryResponse(item)
	return &resp, nil
}

func (s *inventoryService) List(ctx context.Context, filter dto.InventoryFilter) (*dto.InventoryListResponse, error) {
	items, total, err := s.inventory.List(ctx, filter)
	if err != nil {
		return nil, apierror.Database("list inventory", err)
	}

	out := make([]dto.InventoryItemResponse, 0, len(items))
	for i := range items {
		resp := toInventoryResponse(&items[i])
		// Status is derived, so the filter applies after computation.
		if filter.Status != "" && resp.Status != filter.Status {
			total--
			continue
		}
		out = append(out, resp)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return &dto.InventoryListResponse{
		Items: out,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func toInventoryResponse(item *model.InventoryItem) dto.InventoryItemResponse {
	resp := dto.InventoryItemResponse{
		SKU:             item.SKU,
		ProductName:     item.ProductName,
		CurrentStock:    item.CurrentStock,
		ReorderPoint:    item.ReorderPoint,
		ReorderQuantity: item.ReorderQuantity,
		UnitCost:        item.UnitCost,
		Location:        item.Location,
		SalesLast30Days: item.SalesLast30Days,
		SalesLast90Days: item.SalesLast90Days,
		LeadTimeDays:    item.LeadTimeDays,
		LastOrderedQty:  item.LastOrderedQty,
		UpdatedAt:       item.UpdatedAt.UTC().Format(time.RFC3339),
		Metrics: reorder.Analyze(reorder.Input{
			CurrentStock:    item.CurrentStock,
			ReorderPoint:    item.ReorderPoint,
			ReorderQuantity: item.ReorderQuantity,
			SalesLast30Days: item.SalesLast30Days,
			SalesLast90Days: item.SalesLast90Days,
			LeadTimeDays:    item.LeadTimeDays,
			MinOrderQty:     item.MinOrderQty,
			OrderIncrement:  item.OrderIncrement,
			MaxStock:        item.MaxStock,
		}),
	}
	if item.Vendor != nil {
		resp.VendorName = &item.Vendor.Name
	}
	if item.LastOrderedAt != nil {
		t := item.LastOrderedAt.UTC().Format(time.RFC3339)
		resp.LastOrderedAt = &t
	}
	return resp
}
