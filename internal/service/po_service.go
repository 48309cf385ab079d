package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"restock/internal/apierror"
	"restock/internal/dto"
	"restock/internal/model"
	"restock/internal/reorder"
	"restock/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// POCourier delivers the order document to the vendor. Delivery is
// synchronous: the "sent" transition is recorded only after it succeeds.
type POCourier interface {
	DeliverPurchaseOrder(ctx context.Context, po *model.PurchaseOrder, vendor *model.Vendor, recipient string) error
}

// PurchaseOrderService owns reorder suggestions and the purchase-order
// lifecycle: draft → pending_approval → approved → sent → partial → received,
// with rejected and cancelled as terminal exits. Every accepted transition
// appends one audit-trail entry.
type PurchaseOrderService interface {
	Suggestions(ctx context.Context) ([]dto.ReorderSuggestion, error)

	Create(ctx context.Context, req dto.CreatePORequest, actor string) (*dto.PurchaseOrderResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.PurchaseOrderResponse, error)
	List(ctx context.Context, filter dto.POFilter) ([]dto.PurchaseOrderResponse, int64, error)
	Audit(ctx context.Context, id uuid.UUID) ([]dto.AuditEntryResponse, error)

	Submit(ctx context.Context, id uuid.UUID, actor string) (*dto.PurchaseOrderResponse, error)
	Approve(ctx context.Context, id uuid.UUID, actor string) (*dto.PurchaseOrderResponse, error)
	Reject(ctx context.Context, id uuid.UUID, actor, reason string) (*dto.PurchaseOrderResponse, error)
	Send(ctx context.Context, id uuid.UUID, actor string) (*dto.PurchaseOrderResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, actor string) (*dto.PurchaseOrderResponse, error)
	Receive(ctx context.Context, id uuid.UUID, actor string, req dto.ReceivePORequest) (*dto.PurchaseOrderResponse, error)
}

type poService struct {
	orders    repository.PurchaseOrderRepository
	inventory repository.InventoryRepository
	vendors   repository.VendorRepository
	courier   POCourier
	now       func() time.Time // test seam
}

func NewPurchaseOrderService(
	orders repository.PurchaseOrderRepository,
	inventory repository.InventoryRepository,
	vendors repository.VendorRepository,
	courier POCourier,
) PurchaseOrderService {
	return &poService{
		orders:    orders,
		inventory: inventory,
		vendors:   vendors,
		courier:   courier,
		now:       time.Now,
	}
}

// Suggestions groups reorder-flagged items by vendor. Each group carries the
// most urgent level among its items. Items without a vendor cannot be ordered
// and are left out.
func (s *poService) Suggestions(ctx context.Context) ([]dto.ReorderSuggestion, error) {
	items, err := s.inventory.FindReorderNeeded(ctx)
	if err != nil {
		return nil, apierror.Database("list reorder candidates", err)
	}

	groups := map[uuid.UUID]*dto.ReorderSuggestion{}
	for i := range items {
		item := &items[i]
		if item.VendorID == nil {
			continue
		}

		m := reorder.Analyze(reorder.Input{
			CurrentStock:    item.CurrentStock,
			ReorderPoint:    item.ReorderPoint,
			ReorderQuantity: item.ReorderQuantity,
			SalesLast30Days: item.SalesLast30Days,
			SalesLast90Days: item.SalesLast90Days,
			LeadTimeDays:    item.LeadTimeDays,
			MinOrderQty:     item.MinOrderQty,
			OrderIncrement:  item.OrderIncrement,
			MaxStock:        item.MaxStock,
		})
		if m.SuggestedQty <= 0 {
			continue
		}

		g, ok := groups[*item.VendorID]
		if !ok {
			g = &dto.ReorderSuggestion{
				VendorID:    item.VendorID.String(),
				TotalAmount: decimal.Zero,
				Urgency:     reorder.UrgencyLow,
			}
			if item.Vendor != nil {
				g.VendorName = item.Vendor.Name
			}
			groups[*item.VendorID] = g
		}

		lineTotal := item.UnitCost.Mul(decimal.NewFromInt(int64(m.SuggestedQty)))
		g.Items = append(g.Items, dto.SuggestionItem{
			SKU:       item.SKU,
			Quantity:  m.SuggestedQty,
			UnitCost:  item.UnitCost,
			TotalCost: lineTotal,
			Urgency:   m.Urgency,
		})
		g.TotalAmount = g.TotalAmount.Add(lineTotal)
		g.Urgency = reorder.MaxUrgency(g.Urgency, m.Urgency)
		g.TotalItems = len(g.Items)
	}

	out := make([]dto.ReorderSuggestion, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	// Most urgent vendors first, name as tiebreak for stable output.
	sort.Slice(out, func(i, j int) bool {
		ri, rj := reorder.UrgencyRank(out[i].Urgency), reorder.UrgencyRank(out[j].Urgency)
		if ri != rj {
			return ri > rj
		}
		return out[i].VendorName < out[j].VendorName
	})
	return out, nil
}

// Create builds a draft order from requested lines, recomputing every line
// total and the order total server-side. Quantity adjustments override the
// requested quantity before totals are computed, never after.
func (s *poService) Create(ctx context.Context, req dto.CreatePORequest, actor string) (*dto.PurchaseOrderResponse, error) {
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		return nil, apierror.Validation("invalid vendor id %q", req.VendorID)
	}
	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("vendor %s not found", req.VendorID)
		}
		return nil, apierror.Database("load vendor", err)
	}
	if !vendor.Active {
		return nil, apierror.Validation("vendor %s is inactive", vendor.Name)
	}

	overrides := map[string]int{}
	for _, adj := range req.Adjustments {
		overrides[adj.SKU] = adj.Quantity
	}

	po := &model.PurchaseOrder{
		VendorID:    vendorID,
		Status:      model.POStatusDraft,
		TotalAmount: decimal.Zero,
		Urgency:     reorder.UrgencyLow,
		CreatedBy:   actor,
	}

	seen := map[string]bool{}
	for _, line := range req.Items {
		if seen[line.SKU] {
			return nil, apierror.Validation("duplicate sku %s in order", line.SKU)
		}
		seen[line.SKU] = true

		item, err := s.inventory.FindBySKU(ctx, line.SKU)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierror.NotFound("sku %s not found", line.SKU)
			}
			return nil, apierror.Database("load inventory item", err)
		}
		if item.VendorID == nil || *item.VendorID != vendorID {
			return nil, apierror.Validation("sku %s does not belong to vendor %s", line.SKU, vendor.Name)
		}

		qty := line.Quantity
		if o, ok := overrides[line.SKU]; ok {
			qty = o
		}
		if qty <= 0 {
			return nil, apierror.Validation("sku %s: quantity must be positive", line.SKU)
		}

		lineTotal := item.UnitCost.Mul(decimal.NewFromInt(int64(qty)))
		po.Items = append(po.Items, model.POLineItem{
			SKU:       line.SKU,
			Quantity:  qty,
			UnitCost:  item.UnitCost,
			LineTotal: lineTotal,
		})
		po.TotalAmount = po.TotalAmount.Add(lineTotal)

		m := reorder.Analyze(reorder.Input{
			CurrentStock:    item.CurrentStock,
			ReorderPoint:    item.ReorderPoint,
			ReorderQuantity: item.ReorderQuantity,
			SalesLast30Days: item.SalesLast30Days,
			SalesLast90Days: item.SalesLast90Days,
			LeadTimeDays:    item.LeadTimeDays,
			MinOrderQty:     item.MinOrderQty,
			OrderIncrement:  item.OrderIncrement,
			MaxStock:        item.MaxStock,
		})
		po.Urgency = reorder.MaxUrgency(po.Urgency, m.Urgency)
	}

	if err := s.createWithNumber(ctx, po, actor); err != nil {
		return nil, err
	}

	for _, line := range po.Items {
		if err := s.inventory.RecordOrder(ctx, line.SKU, line.Quantity); err != nil {
			log.Error().Err(err).Str("sku", line.SKU).Msg("po: failed to stamp last order")
		}
	}

	return s.respond(ctx, po.ID)
}

// createWithNumber assigns the next PO-{year}-{seq} number and persists the
// order. The number column is unique; on a duplicate-key race the sequence is
// advanced once and retried.
func (s *poService) createWithNumber(ctx context.Context, po *model.PurchaseOrder, actor string) error {
	year := s.now().Year()
	seq, err := s.nextSequence(ctx, year)
	if err != nil {
		return apierror.Database("allocate order number", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		po.PONumber = fmt.Sprintf("PO-%d-%06d", year, seq)
		entry := &model.AuditTrailEntry{
			Action: model.AuditActionCreated,
			Status: model.POStatusDraft,
			Actor:  actor,
		}
		err = s.orders.CreateWithAudit(ctx, po, entry)
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			seq++
			continue
		}
		return apierror.Database("create purchase order", err)
	}
	return apierror.Database("create purchase order", err)
}

func (s *poService) nextSequence(ctx context.Context, year int) (int, error) {
	last, err := s.orders.LastNumberForYear(ctx, year)
	if err != nil {
		return 0, err
	}
	if last == "" {
		return 1, nil
	}
	parts := strings.Split(last, "-")
	n, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, fmt.Errorf("malformed order number %q", last)
	}
	return n + 1, nil
}

func (s *poService) Get(ctx context.Context, id uuid.UUID) (*dto.PurchaseOrderResponse, error) {
	return s.respond(ctx, id)
}

func (s *poService) List(ctx context.Context, filter dto.POFilter) ([]dto.PurchaseOrderResponse, int64, error) {
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, apierror.Database("list purchase orders", err)
	}
	out := make([]dto.PurchaseOrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, *toPOResponse(&orders[i]))
	}
	return out, total, nil
}

func (s *poService) Audit(ctx context.Context, id uuid.UUID) ([]dto.AuditEntryResponse, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.orders.ListAudit(ctx, id)
	if err != nil {
		return nil, apierror.Database("list audit trail", err)
	}
	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.AuditEntryResponse{
			Action:    e.Action,
			Status:    e.Status,
			Actor:     e.Actor,
			Origin:    e.Origin,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

func (s *poService) Submit(ctx context.Context, id uuid.UUID, actor string) (*dto.PurchaseOrderResponse, error) {
	po, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if po.Status != model.POStatusDraft {
		return nil, apierror.Validation("only draft orders can be submitted; %s is %s", po.PONumber, po.Status)
	}
	err = s.orders.Transition(ctx, id, model.POStatusDraft,
		map[string]interface{}{"status": model.POStatusPendingApproval},
		&model.AuditTrailEntry{
			Action: model.AuditActionSubmitted,
			Status: model.POStatusPendingApproval,
			Actor:  actor,
		})
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, id)
}

func (s *poService) Approve(ctx context.Context, id uuid.UUID, actor string) (*dto.PurchaseOrderResponse, error) {
	po, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if po.Status != model.POStatusPendingApproval {
		return nil, apierror.Validation("only pending orders can be approved; %s is %s", po.PONumber, po.Status)
	}
	now := s.now()
	err = s.orders.Transition(ctx, id, model.POStatusPendingApproval,
		map[string]interface{}{
			"status":      model.POStatusApproved,
			"approved_by": actor,
			"approved_at": now,
		},
		&model.AuditTrailEntry{
			Action: model.AuditActionApproved,
			Status: model.POStatusApproved,
			Actor:  actor,
		})
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, id)
}

func (s *poService) Reject(ctx context.Context, id uuid.UUID, actor, reason string) (*dto.PurchaseOrderResponse, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apierror.Validation("rejection requires a reason")
	}
	po, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if po.Status != model.POStatusPendingApproval {
		return nil, apierror.Validation("only pending orders can be rejected; %s is %s", po.PONumber, po.Status)
	}
	now := s.now()
	err = s.orders.Transition(ctx, id, model.POStatusPendingApproval,
		map[string]interface{}{
			"status":           model.POStatusRejected,
			"rejected_by":      actor,
			"rejected_at":      now,
			"rejection_reason": reason,
		},
		&model.AuditTrailEntry{
			Action: model.AuditActionRejected,
			Status: model.POStatusRejected,
			Actor:  actor,
			Origin: &reason,
		})
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, id)
}

// Send delivers the order document to the vendor, then records the "sent"
// transition. Delivery failure leaves the order approved and untouched.
func (s *poService) Send(ctx context.Context, id uuid.UUID, actor string) (*dto.PurchaseOrderResponse, error) {
	po, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if po.Status != model.POStatusApproved {
		return nil, apierror.Validation("only approved orders can be sent; %s is %s", po.PONumber, po.Status)
	}
	if po.Vendor == nil || po.Vendor.Email == nil || strings.TrimSpace(*po.Vendor.Email) == "" {
		return nil, apierror.Validation("vendor for %s has no email address on file", po.PONumber)
	}

	if err := s.courier.DeliverPurchaseOrder(ctx, po, po.Vendor, *po.Vendor.Email); err != nil {
		return nil, err
	}

	now := s.now()
	err = s.orders.Transition(ctx, id, model.POStatusApproved,
		map[string]interface{}{
			"status":  model.POStatusSent,
			"sent_at": now,
		},
		&model.AuditTrailEntry{
			Action: model.AuditActionSent,
			Status: model.POStatusSent,
			Actor:  actor,
		})
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, id)
}

// Cancel withdraws an order that has not yet gone out to the vendor.
func (s *poService) Cancel(ctx context.Context, id uuid.UUID, actor string) (*dto.PurchaseOrderResponse, error) {
	po, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch po.Status {
	case model.POStatusDraft, model.POStatusPendingApproval, model.POStatusApproved:
	default:
		return nil, apierror.Validation("order %s cannot be cancelled from status %s", po.PONumber, po.Status)
	}
	err = s.orders.Transition(ctx, id, po.Status,
		map[string]interface{}{"status": model.POStatusCancelled},
		&model.AuditTrailEntry{
			Action: model.AuditActionCancelled,
			Status: model.POStatusCancelled,
			Actor:  actor,
		})
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, id)
}

// Receive records delivered quantities against the order's lines and moves
// stock. Full coverage of every line closes the order as received; anything
// less marks it partial and leaves it open for further receipts.
func (s *poService) Receive(ctx context.Context, id uuid.UUID, actor string, req dto.ReceivePORequest) (*dto.PurchaseOrderResponse, error) {
	po, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if po.Status != model.POStatusSent && po.Status != model.POStatusPartial {
		return nil, apierror.Validation("order %s cannot receive stock in status %s", po.PONumber, po.Status)
	}

	lines := map[string]*model.POLineItem{}
	for i := range po.Items {
		lines[po.Items[i].SKU] = &po.Items[i]
	}

	received := map[string]int{}
	for _, rl := range req.Lines {
		line, ok := lines[rl.SKU]
		if !ok {
			return nil, apierror.Validation("sku %s is not on order %s", rl.SKU, po.PONumber)
		}
		if _, dup := received[rl.SKU]; dup {
			return nil, apierror.Validation("duplicate receipt line for sku %s", rl.SKU)
		}
		remaining := line.Quantity - line.ReceivedQty
		if rl.Quantity > remaining {
			return nil, apierror.Validation("sku %s: receiving %d exceeds remaining %d", rl.SKU, rl.Quantity, remaining)
		}
		received[rl.SKU] = rl.Quantity
	}

	complete := true
	for _, line := range po.Items {
		if line.ReceivedQty+received[line.SKU] < line.Quantity {
			complete = false
			break
		}
	}

	toStatus := model.POStatusPartial
	action := model.AuditActionPartiallyReceived
	var receivedAt *time.Time
	if complete {
		toStatus = model.POStatusReceived
		action = model.AuditActionReceived
		now := s.now()
		receivedAt = &now
	}

	err = s.orders.ApplyReceipt(ctx, po, received, toStatus, receivedAt, &model.AuditTrailEntry{
		Action: action,
		Status: toStatus,
		Actor:  actor,
	})
	if err != nil {
		return nil, err
	}

	for sku, qty := range received {
		if err := s.inventory.AddStock(ctx, sku, qty); err != nil {
			log.Error().Err(err).Str("sku", sku).Int("qty", qty).
				Msg("po: receipt recorded but stock increment failed")
		}
	}

	return s.respond(ctx, id)
}

func (s *poService) load(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	po, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("purchase order %s not found", id)
		}
		return nil, apierror.Database("load purchase order", err)
	}
	return po, nil
}

func (s *poService) respond(ctx context.Context, id uuid.UUID) (*dto.PurchaseOrderResponse, error) {
	po, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPOResponse(po), nil
}

func toPOResponse(po *model.PurchaseOrder) *dto.PurchaseOrderResponse {
	resp := &dto.PurchaseOrderResponse{
		ID:              po.ID.String(),
		PONumber:        po.PONumber,
		VendorID:        po.VendorID.String(),
		Status:          po.Status,
		TotalAmount:     po.TotalAmount,
		Urgency:         po.Urgency,
		CreatedBy:       po.CreatedBy,
		ApprovedBy:      po.ApprovedBy,
		RejectedBy:      po.RejectedBy,
		RejectionReason: po.RejectionReason,
		CreatedAt:       po.CreatedAt.UTC().Format(time.RFC3339),
	}
	if po.Vendor != nil {
		resp.VendorName = po.Vendor.Name
	}
	resp.ApprovedAt = formatTimePtr(po.ApprovedAt)
	resp.RejectedAt = formatTimePtr(po.RejectedAt)
	resp.SentAt = formatTimePtr(po.SentAt)
	resp.ReceivedAt = formatTimePtr(po.ReceivedAt)
	for _, line := range po.Items {
		resp.Items = append(resp.Items, dto.POLineResponse{
			SKU:         line.SKU,
			Quantity:    line.Quantity,
			UnitCost:    line.UnitCost,
			LineTotal:   line.LineTotal,
			ReceivedQty: line.ReceivedQty,
		})
	}
	return resp
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
