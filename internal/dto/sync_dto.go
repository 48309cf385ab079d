package dto

import "restock/internal/model"

// SyncResult summarizes one reconciliation run.
type SyncResult struct {
	SyncLogID   string              `json:"sync_log_id"`
	Status      string              `json:"status"`
	ItemsSynced int                 `json:"items_synced"`
	DurationMs  int64               `json:"duration_ms"`
	Errors      model.SyncErrorList `json:"errors"`
}

// SyncLogResponse is one historical run row.
type SyncLogResponse struct {
	ID          string              `json:"id"`
	SyncType    string              `json:"sync_type"`
	Status      string              `json:"status"`
	StartedAt   string              `json:"started_at"`
	CompletedAt *string             `json:"completed_at,omitempty"`
	ItemsSynced int                 `json:"items_synced"`
	DurationMs  int64               `json:"duration_ms"`
	Errors      model.SyncErrorList `json:"errors"`
}
