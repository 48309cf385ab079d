package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restock/internal/apierror"
	"restock/internal/config"
	"restock/internal/dto"
	"restock/internal/infra"
	"restock/internal/model"
	"restock/internal/repository"
	"restock/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AlertSink enqueues operational alerts. *worker.Dispatcher satisfies it;
// tests substitute a recorder.
type AlertSink interface {
	EnqueueAlert(ctx context.Context, a worker.Alert) error
}

// SyncService coordinates reconciliation runs against the external inventory
// platform: stuck-run recovery, paginated fetch, per-product aggregation,
// batched upserts, and post-run alerting. At most one live run per sync type
// is assumed; liveness is derived from sync_logs rows, not process state.
type SyncService interface {
	// Run executes one full reconciliation of the given type ("manual",
	// "scheduled"). Batch-level failures are recorded in the run's error
	// list; a gateway-level fetch error fails the run outright, even when
	// pages fetched before the failure were upserted.
	Run(ctx context.Context, syncType string) (*dto.SyncResult, error)

	History(ctx context.Context, limit int) ([]dto.SyncLogResponse, error)
}

type syncService struct {
	gateway   infra.InventoryGateway
	breaker   *infra.CircuitBreaker
	inventory repository.InventoryRepository
	vendors   repository.VendorRepository
	syncLogs  repository.SyncLogRepository
	alerts    AlertSink
	cfg       *config.Config
	now       func() time.Time // test seam
}

func NewSyncService(
	gateway infra.InventoryGateway,
	breaker *infra.CircuitBreaker,
	inventory repository.InventoryRepository,
	vendors repository.VendorRepository,
	syncLogs repository.SyncLogRepository,
	alerts AlertSink,
	cfg *config.Config,
) SyncService {
	return &syncService{
		gateway:   gateway,
		breaker:   breaker,
		inventory: inventory,
		vendors:   vendors,
		syncLogs:  syncLogs,
		alerts:    alerts,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *syncService) Run(ctx context.Context, syncType string) (*dto.SyncResult, error) {
	started := s.now()

	recovered, err := s.sweepStuck(ctx, started)
	if err != nil {
		// Sweep trouble never blocks a new run.
		log.Error().Err(err).Msg("sync: stuck-run sweep failed")
	}

	lg := &model.SyncLog{
		SyncType:  syncType,
		Status:    model.SyncStatusRunning,
		StartedAt: started,
		Errors:    model.SyncErrorList{},
	}
	if err := s.syncLogs.Create(ctx, lg); err != nil {
		return nil, fmt.Errorf("sync: create run log: %w", err)
	}

	// The log row must never be left running by this process: finalize runs
	// on every exit path, panic included.
	var (
		itemsSynced int
		runErrs     model.SyncErrorList
		finalStatus = model.SyncStatusFailed
	)
	defer func() {
		done := s.now()
		lg.Status = finalStatus
		lg.CompletedAt = &done
		lg.ItemsSynced = itemsSynced
		lg.DurationMs = done.Sub(started).Milliseconds()
		lg.Errors = runErrs
		if err := s.syncLogs.Update(context.WithoutCancel(ctx), lg); err != nil {
			log.Error().Err(err).Str("sync_log_id", lg.ID.String()).
				Msg("sync: failed to finalize run log")
		}
	}()

	preOutOfStock, preReorderNeeded := s.stockCounts(ctx)

	records, fetchErr := s.fetchAll(ctx)
	if fetchErr != nil {
		runErrs = append(runErrs, model.SyncError{Phase: "fetch", Message: fetchErr.Error()})
	}

	aggregated := aggregateByProduct(records)
	items, transformErrs := s.transform(ctx, aggregated)
	runErrs = append(runErrs, transformErrs...)

	synced, upsertErrs := s.upsertBatches(ctx, items)
	itemsSynced = synced
	runErrs = append(runErrs, upsertErrs...)

	// A gateway-level fetch error is fatal: rows upserted before the failure
	// stay, but the run is marked failed. Batch-level upsert trouble stays in
	// the error list of a completed run unless nothing landed at all.
	switch {
	case fetchErr != nil:
		finalStatus = model.SyncStatusFailed
	case len(items) > 0 && itemsSynced == 0:
		finalStatus = model.SyncStatusFailed
	default:
		finalStatus = model.SyncStatusCompleted
	}

	s.dispatchPostRunAlerts(ctx, syncType, finalStatus, itemsSynced, runErrs, recovered, preOutOfStock, preReorderNeeded)

	log.Info().
		Str("sync_type", syncType).
		Str("status", finalStatus).
		Int("items_synced", itemsSynced).
		Int("errors", len(runErrs)).
		Msg("sync: run finished")

	return &dto.SyncResult{
		SyncLogID:   lg.ID.String(),
		Status:      finalStatus,
		ItemsSynced: itemsSynced,
		DurationMs:  s.now().Sub(started).Milliseconds(),
		Errors:      runErrs,
	}, nil
}

// sweepStuck reclassifies running rows older than the stuck timeout as failed,
// with a synthetic error entry. Returns how many rows were reclaimed.
func (s *syncService) sweepStuck(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-time.Duration(s.cfg.StuckSyncMinutes) * time.Minute)
	stuck, err := s.syncLogs.FindStuck(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for i := range stuck {
		lg := &stuck[i]
		done := now
		lg.Status = model.SyncStatusFailed
		lg.CompletedAt = &done
		lg.DurationMs = done.Sub(lg.StartedAt).Milliseconds()
		reason := apierror.StuckSync(fmt.Sprintf("run exceeded %d minutes without completing; reclassified as failed", s.cfg.StuckSyncMinutes))
		lg.Errors = append(lg.Errors, model.SyncError{Phase: "sweep", Message: reason.Error()})
		if err := s.syncLogs.Update(ctx, lg); err != nil {
			return 0, err
		}
		log.Warn().Str("sync_log_id", lg.ID.String()).
			Time("started_at", lg.StartedAt).
			Msg("sync: reclaimed stuck run")
	}
	return len(stuck), nil
}

// fetchAll pages through the gateway behind the circuit breaker. Pagination
// stops when the platform reports no more pages or returns a short page.
// Anything fetched before a failure is kept.
func (s *syncService) fetchAll(ctx context.Context) ([]infra.StockRecord, error) {
	var all []infra.StockRecord
	offset := 0
	for {
		var (
			page    []infra.StockRecord
			hasMore bool
		)
		err := s.breaker.Execute(func() error {
			var ferr error
			page, hasMore, ferr = s.gateway.FetchPage(ctx, offset, s.cfg.SyncPageSize)
			return ferr
		})
		if err != nil {
			return all, err
		}
		all = append(all, page...)
		if !hasMore || len(page) < s.cfg.SyncPageSize {
			return all, nil
		}
		offset += s.cfg.SyncPageSize
	}
}

// aggregateByProduct collapses per-facility rows into one record per product,
// summing on-hand, reserved, and on-order quantities. Scalar attributes come
// from the first row seen for the product.
func aggregateByProduct(records []infra.StockRecord) []infra.StockRecord {
	index := map[string]int{}
	out := make([]infra.StockRecord, 0, len(records))
	for _, rec := range records {
		key := rec.ProductID
		if key == "" {
			key = rec.SKU
		}
		if key == "" {
			continue
		}
		if i, seen := index[key]; seen {
			out[i].QuantityOnHand += rec.QuantityOnHand
			out[i].QuantityReserved += rec.QuantityReserved
			out[i].QuantityOnOrder += rec.QuantityOnOrder
			continue
		}
		index[key] = len(out)
		out = append(out, rec)
	}
	return out
}

// transform maps aggregated gateway records onto inventory rows, applying
// deterministic defaults for absent optionals and resolving vendors by name.
// A record that cannot be transformed is skipped with an error entry.
func (s *syncService) transform(ctx context.Context, records []infra.StockRecord) ([]model.InventoryItem, model.SyncErrorList) {
	var errs model.SyncErrorList
	vendorCache := map[string]*uuid.UUID{}
	items := make([]model.InventoryItem, 0, len(records))

	for _, rec := range records {
		if rec.SKU == "" {
			errs = append(errs, model.SyncError{
				Phase:   "transform",
				Message: fmt.Sprintf("product %s has no SKU; skipped", rec.ProductID),
			})
			continue
		}

		item := model.InventoryItem{
			SKU:              rec.SKU,
			ProductName:      rec.Name,
			CurrentStock:     rec.QuantityOnHand,
			QuantityReserved: rec.QuantityReserved,
			QuantityOnOrder:  rec.QuantityOnOrder,
			SalesLast30Days:  rec.Sales30Days,
			SalesLast90Days:  rec.Sales90Days,
			Location:         "main",
			UnitCost:         decimal.Zero,
			LeadTimeDays:     7,
			OrderIncrement:   1,
		}
		if rec.FacilityName != "" {
			item.Location = rec.FacilityName
		}
		if rec.UnitCost != nil {
			item.UnitCost = decimal.NewFromFloat(*rec.UnitCost)
		}
		if rec.ReorderPoint != nil {
			item.ReorderPoint = *rec.ReorderPoint
		}
		if rec.ReorderQuantity != nil {
			item.ReorderQuantity = *rec.ReorderQuantity
		}
		if rec.LeadTimeDays != nil {
			item.LeadTimeDays = *rec.LeadTimeDays
		}
		if rec.MinOrderQty != nil {
			item.MinOrderQty = *rec.MinOrderQty
		}
		if rec.OrderIncrement != nil && *rec.OrderIncrement > 0 {
			item.OrderIncrement = *rec.OrderIncrement
		}

		if rec.VendorName != nil && strings.TrimSpace(*rec.VendorName) != "" {
			id, err := s.resolveVendor(ctx, vendorCache, rec)
			if err != nil {
				// Missing vendor link is not worth dropping stock data over.
				errs = append(errs, model.SyncError{
					Phase:   "transform",
					Message: fmt.Sprintf("sku %s: vendor %q: %v", rec.SKU, *rec.VendorName, err),
				})
			} else {
				item.VendorID = id
			}
		}

		items = append(items, item)
	}
	return items, errs
}

func (s *syncService) resolveVendor(ctx context.Context, cache map[string]*uuid.UUID, rec infra.StockRecord) (*uuid.UUID, error) {
	name := strings.TrimSpace(*rec.VendorName)
	key := strings.ToLower(name)
	if id, ok := cache[key]; ok {
		return id, nil
	}
	v := &model.Vendor{Name: name, Active: true}
	if rec.VendorEmail != nil {
		v.Email = rec.VendorEmail
	}
	if rec.LeadTimeDays != nil {
		v.LeadTimeDays = *rec.LeadTimeDays
	}
	if err := s.vendors.UpsertByName(ctx, v); err != nil {
		return nil, err
	}
	id := v.ID
	cache[key] = &id
	return &id, nil
}

// upsertBatches writes items in fixed-size batches. A failed batch is recorded
// and skipped; later batches still run.
func (s *syncService) upsertBatches(ctx context.Context, items []model.InventoryItem) (int, model.SyncErrorList) {
	var errs model.SyncErrorList
	synced := 0
	batchSize := s.cfg.SyncBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[i:end]
		if err := s.inventory.UpsertBatch(ctx, batch); err != nil {
			errs = append(errs, model.SyncError{
				Phase:   "upsert",
				Batch:   i / batchSize,
				Message: err.Error(),
			})
			continue
		}
		synced += len(batch)
	}
	return synced, errs
}

// stockCounts snapshots the out-of-stock and reorder-needed totals. A count
// failure is logged and reported as zero.
func (s *syncService) stockCounts(ctx context.Context) (outOfStock, reorderNeeded int) {
	if n, err := s.inventory.CountOutOfStock(ctx); err == nil {
		outOfStock = int(n)
	} else {
		log.Error().Err(err).Msg("sync: out-of-stock count failed")
	}
	if n, err := s.inventory.CountReorderNeeded(ctx); err == nil {
		reorderNeeded = int(n)
	} else {
		log.Error().Err(err).Msg("sync: reorder-needed count failed")
	}
	return outOfStock, reorderNeeded
}

// dispatchPostRunAlerts evaluates alert conditions after a run. Stock alerts
// fire on items that degraded during this run, not on standing totals, so a
// chronically empty SKU does not page on every sync. Enqueue failures are
// logged, never propagated: alerting must not fail a sync.
func (s *syncService) dispatchPostRunAlerts(ctx context.Context, syncType, status string, itemsSynced int, errs model.SyncErrorList, recovered, preOutOfStock, preReorderNeeded int) {
	recipients := s.cfg.AlertRecipientList()
	send := func(a worker.Alert) {
		a.Recipients = recipients
		if err := s.alerts.EnqueueAlert(ctx, a); err != nil {
			log.Error().Err(err).Str("alert_type", a.Type).Msg("sync: failed to enqueue alert")
		}
	}

	if recovered > 0 {
		send(worker.Alert{
			Type:     worker.AlertStuck,
			Priority: 3,
			Subject:  "Stuck sync run recovered",
			Payload:  map[string]interface{}{"recovered_runs": recovered},
		})
	}

	if status == model.SyncStatusFailed {
		send(worker.Alert{
			Type:     worker.AlertFailure,
			Priority: 2,
			Subject:  fmt.Sprintf("Inventory sync failed (%s)", syncType),
			Payload:  map[string]interface{}{"errors": len(errs), "items_synced": itemsSynced},
		})
		return
	}

	postOutOfStock, postReorderNeeded := s.stockCounts(ctx)

	if newOut := postOutOfStock - preOutOfStock; newOut > 0 {
		send(worker.Alert{
			Type:     worker.AlertOutOfStock,
			Priority: 1,
			Subject:  fmt.Sprintf("%d item(s) newly out of stock", newOut),
			Payload:  map[string]interface{}{"out_of_stock": postOutOfStock, "newly_out_of_stock": newOut},
		})
	}

	if newReorder := postReorderNeeded - preReorderNeeded; newReorder >= s.cfg.ReorderAlertCount {
		send(worker.Alert{
			Type:     worker.AlertReorderNeeded,
			Priority: 4,
			Subject:  fmt.Sprintf("%d item(s) newly at or below reorder point", newReorder),
			Payload:  map[string]interface{}{"reorder_needed": postReorderNeeded, "newly_reorder_needed": newReorder},
		})
	}

	// Recovered-success alert: only meaningful when a recent run of the same
	// type failed; otherwise routine success stays quiet.
	since := s.now().Add(-24 * time.Hour)
	if failed, err := s.syncLogs.HasFailureSince(ctx, syncType, since); err == nil && failed {
		send(worker.Alert{
			Type:     worker.AlertSuccess,
			Priority: 8,
			Subject:  fmt.Sprintf("Inventory sync recovered (%s)", syncType),
			Payload:  map[string]interface{}{"items_synced": itemsSynced},
		})
	}
}

func (s *syncService) History(ctx context.Context, limit int) ([]dto.SyncLogResponse, error) {
	logs, err := s.syncLogs.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SyncLogResponse, 0, len(logs))
	for _, lg := range logs {
		resp := dto.SyncLogResponse{
			ID:          lg.ID.String(),
			SyncType:    lg.SyncType,
			Status:      lg.Status,
			StartedAt:   lg.StartedAt.UTC().Format(time.RFC3339),
			ItemsSynced: lg.ItemsSynced,
			DurationMs:  lg.DurationMs,
			Errors:      lg.Errors,
		}
		if lg.CompletedAt != nil {
			t := lg.CompletedAt.UTC().Format(time.RFC3339)
			resp.CompletedAt = &t
		}
		out = append(out, resp)
	}
	return out, nil
}
