package service

// In-memory repository and infrastructure stubs shared by the service tests.

import (
	"context"
	"strings"
	"time"

	"restock/internal/apierror"
	"restock/internal/dto"
	"restock/internal/infra"
	"restock/internal/model"
	"restock/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── InventoryRepository stub ─────────────────────────────────────────────────

type stubInventoryRepo struct {
	items     map[string]*model.InventoryItem
	upsertErr func(batchIdx int) error // nil batch passes
	batches   int
}

func newStubInventoryRepo() *stubInventoryRepo {
	return &stubInventoryRepo{items: map[string]*model.InventoryItem{}}
}

func (r *stubInventoryRepo) FindBySKU(_ context.Context, sku string) (*model.InventoryItem, error) {
	item, ok := r.items[sku]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (r *stubInventoryRepo) List(_ context.Context, _ dto.InventoryFilter) ([]model.InventoryItem, int64, error) {
	var out []model.InventoryItem
	for _, item := range r.items {
		out = append(out, *item)
	}
	return out, int64(len(out)), nil
}

func (r *stubInventoryRepo) UpsertBatch(_ context.Context, batch []model.InventoryItem) error {
	idx := r.batches
	r.batches++
	if r.upsertErr != nil {
		if err := r.upsertErr(idx); err != nil {
			return err
		}
	}
	for i := range batch {
		copied := batch[i]
		if existing, ok := r.items[copied.SKU]; ok {
			copied.ID = existing.ID
		} else if copied.ID == uuid.Nil {
			copied.ID = uuid.New()
		}
		r.items[copied.SKU] = &copied
	}
	return nil
}

func (r *stubInventoryRepo) FindReorderNeeded(_ context.Context) ([]model.InventoryItem, error) {
	var out []model.InventoryItem
	for _, item := range r.items {
		if item.CurrentStock <= item.ReorderPoint {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *stubInventoryRepo) CountOutOfStock(_ context.Context) (int64, error) {
	var n int64
	for _, item := range r.items {
		if item.CurrentStock == 0 {
			n++
		}
	}
	return n, nil
}

func (r *stubInventoryRepo) CountReorderNeeded(_ context.Context) (int64, error) {
	var n int64
	for _, item := range r.items {
		if item.CurrentStock <= item.ReorderPoint {
			n++
		}
	}
	return n, nil
}

func (r *stubInventoryRepo) RecordOrder(_ context.Context, sku string, qty int) error {
	item, ok := r.items[sku]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	item.LastOrderedAt = &now
	item.LastOrderedQty = qty
	return nil
}

func (r *stubInventoryRepo) AddStock(_ context.Context, sku string, delta int) error {
	item, ok := r.items[sku]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.CurrentStock += delta
	return nil
}

// ── VendorRepository stub ────────────────────────────────────────────────────

type stubVendorRepo struct {
	vendors   map[uuid.UUID]*model.Vendor
	upsertErr error
}

func newStubVendorRepo() *stubVendorRepo {
	return &stubVendorRepo{vendors: map[uuid.UUID]*model.Vendor{}}
}

func (r *stubVendorRepo) add(v *model.Vendor) *model.Vendor {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	r.vendors[v.ID] = v
	return v
}

func (r *stubVendorRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return v, nil
}

func (r *stubVendorRepo) FindByName(_ context.Context, name string) (*model.Vendor, error) {
	for _, v := range r.vendors {
		if strings.EqualFold(v.Name, strings.TrimSpace(name)) {
			return v, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubVendorRepo) List(_ context.Context, includeInactive bool) ([]model.Vendor, error) {
	var out []model.Vendor
	for _, v := range r.vendors {
		if v.Active || includeInactive {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *stubVendorRepo) Create(_ context.Context, v *model.Vendor) error {
	r.add(v)
	return nil
}

func (r *stubVendorRepo) Update(_ context.Context, v *model.Vendor) error {
	r.vendors[v.ID] = v
	return nil
}

func (r *stubVendorRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	v, ok := r.vendors[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	v.Active = false
	return nil
}

func (r *stubVendorRepo) UpsertByName(ctx context.Context, v *model.Vendor) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	existing, err := r.FindByName(ctx, v.Name)
	if err == nil {
		v.ID = existing.ID
		return nil
	}
	r.add(v)
	return nil
}

// ── SyncLogRepository stub ───────────────────────────────────────────────────

type stubSyncLogRepo struct {
	logs []*model.SyncLog
}

func (r *stubSyncLogRepo) Create(_ context.Context, lg *model.SyncLog) error {
	if lg.ID == uuid.Nil {
		lg.ID = uuid.New()
	}
	copied := *lg
	r.logs = append(r.logs, &copied)
	return nil
}

func (r *stubSyncLogRepo) Update(_ context.Context, lg *model.SyncLog) error {
	for i, existing := range r.logs {
		if existing.ID == lg.ID {
			copied := *lg
			r.logs[i] = &copied
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubSyncLogRepo) List(_ context.Context, _ int) ([]model.SyncLog, error) {
	out := make([]model.SyncLog, 0, len(r.logs))
	for _, lg := range r.logs {
		out = append(out, *lg)
	}
	return out, nil
}

func (r *stubSyncLogRepo) FindStuck(_ context.Context, cutoff time.Time) ([]model.SyncLog, error) {
	var out []model.SyncLog
	for _, lg := range r.logs {
		if lg.Status == model.SyncStatusRunning && lg.StartedAt.Before(cutoff) {
			out = append(out, *lg)
		}
	}
	return out, nil
}

func (r *stubSyncLogRepo) HasFailureSince(_ context.Context, syncType string, since time.Time) (bool, error) {
	for _, lg := range r.logs {
		if lg.SyncType == syncType && lg.Status == model.SyncStatusFailed && !lg.StartedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubSyncLogRepo) byID(id uuid.UUID) *model.SyncLog {
	for _, lg := range r.logs {
		if lg.ID == id {
			return lg
		}
	}
	return nil
}

// ── Gateway stub ─────────────────────────────────────────────────────────────

type stubGateway struct {
	pages   [][]infra.StockRecord
	failAt  int // page index that errors; -1 disables
	calls   int
	lastErr error
}

func newStubGateway(pages ...[]infra.StockRecord) *stubGateway {
	return &stubGateway{pages: pages, failAt: -1}
}

func (g *stubGateway) FetchPage(_ context.Context, offset, limit int) ([]infra.StockRecord, bool, error) {
	idx := offset / limit
	g.calls++
	if g.failAt >= 0 && idx == g.failAt {
		g.lastErr = apierror.ExternalAPI("gateway: returned 503", nil)
		return nil, false, g.lastErr
	}
	if idx >= len(g.pages) {
		return nil, false, nil
	}
	return g.pages[idx], idx < len(g.pages)-1, nil
}

// ── AlertSink stub ───────────────────────────────────────────────────────────

type stubAlerts struct {
	sent []worker.Alert
}

func (a *stubAlerts) EnqueueAlert(_ context.Context, alert worker.Alert) error {
	a.sent = append(a.sent, alert)
	return nil
}

func (a *stubAlerts) byType(alertType string) *worker.Alert {
	for i := range a.sent {
		if a.sent[i].Type == alertType {
			return &a.sent[i]
		}
	}
	return nil
}

// ── PurchaseOrderRepository stub ─────────────────────────────────────────────

type stubPORepo struct {
	orders     map[uuid.UUID]*model.PurchaseOrder
	audits     []model.AuditTrailEntry
	vendors    *stubVendorRepo
	dupeOnce   bool // first create fails with a duplicate-key error
	lastNumber string
}

func newStubPORepo(vendors *stubVendorRepo) *stubPORepo {
	return &stubPORepo{orders: map[uuid.UUID]*model.PurchaseOrder{}, vendors: vendors}
}

func (r *stubPORepo) CreateWithAudit(_ context.Context, po *model.PurchaseOrder, entry *model.AuditTrailEntry) error {
	if r.dupeOnce {
		r.dupeOnce = false
		return gorm.ErrDuplicatedKey
	}
	if po.ID == uuid.Nil {
		po.ID = uuid.New()
	}
	for i := range po.Items {
		if po.Items[i].ID == uuid.Nil {
			po.Items[i].ID = uuid.New()
		}
		po.Items[i].POID = po.ID
	}
	po.CreatedAt = time.Now()
	r.orders[po.ID] = po
	r.lastNumber = po.PONumber
	entry.POID = po.ID
	entry.CreatedAt = time.Now()
	r.audits = append(r.audits, *entry)
	return nil
}

func (r *stubPORepo) FindByID(_ context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *po
	copied.Items = append([]model.POLineItem(nil), po.Items...)
	if v, ok := r.vendors.vendors[po.VendorID]; ok {
		copied.Vendor = v
	}
	return &copied, nil
}

func (r *stubPORepo) List(_ context.Context, _ dto.POFilter) ([]model.PurchaseOrder, int64, error) {
	var out []model.PurchaseOrder
	for _, po := range r.orders {
		out = append(out, *po)
	}
	return out, int64(len(out)), nil
}

func (r *stubPORepo) LastNumberForYear(_ context.Context, _ int) (string, error) {
	return r.lastNumber, nil
}

func (r *stubPORepo) Transition(_ context.Context, id uuid.UUID, fromStatus string, updates map[string]interface{}, entry *model.AuditTrailEntry) error {
	po, ok := r.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if po.Status != fromStatus {
		return apierror.Validation("purchase order %s is no longer in status %s", id, fromStatus)
	}
	applyPOUpdates(po, updates)
	entry.POID = id
	entry.CreatedAt = time.Now()
	r.audits = append(r.audits, *entry)
	return nil
}

func (r *stubPORepo) ApplyReceipt(_ context.Context, po *model.PurchaseOrder, received map[string]int, toStatus string, receivedAt *time.Time, entry *model.AuditTrailEntry) error {
	stored, ok := r.orders[po.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if stored.Status != po.Status {
		return apierror.Validation("purchase order %s is no longer in status %s", po.ID, po.Status)
	}
	stored.Status = toStatus
	stored.ReceivedAt = receivedAt
	for i := range stored.Items {
		stored.Items[i].ReceivedQty += received[stored.Items[i].SKU]
	}
	entry.POID = po.ID
	entry.CreatedAt = time.Now()
	r.audits = append(r.audits, *entry)
	return nil
}

func (r *stubPORepo) ListAudit(_ context.Context, poID uuid.UUID) ([]model.AuditTrailEntry, error) {
	var out []model.AuditTrailEntry
	for _, e := range r.audits {
		if e.POID == poID {
			out = append(out, e)
		}
	}
	return out, nil
}

func applyPOUpdates(po *model.PurchaseOrder, updates map[string]interface{}) {
	for k, v := range updates {
		switch k {
		case "status":
			po.Status = v.(string)
		case "approved_by":
			s := v.(string)
			po.ApprovedBy = &s
		case "approved_at":
			t := v.(time.Time)
			po.ApprovedAt = &t
		case "rejected_by":
			s := v.(string)
			po.RejectedBy = &s
		case "rejected_at":
			t := v.(time.Time)
			po.RejectedAt = &t
		case "rejection_reason":
			s := v.(string)
			po.RejectionReason = &s
		case "sent_at":
			t := v.(time.Time)
			po.SentAt = &t
		}
	}
}

// ── Courier stub ─────────────────────────────────────────────────────────────

type stubCourier struct {
	err       error
	delivered []string // recipients, in order
}

func (c *stubCourier) DeliverPurchaseOrder(_ context.Context, po *model.PurchaseOrder, _ *model.Vendor, recipient string) error {
	if c.err != nil {
		return c.err
	}
	c.delivered = append(c.delivered, recipient)
	return nil
}
