package repository

import (
	"context"
	"time"

	"restock/internal/model"

	"gorm.io/gorm"
)

// SyncLogRepository persists the run registry. Sync liveness is derived from
// these rows rather than in-memory flags, so coordination survives process
// restarts.
type SyncLogRepository interface {
	Create(ctx context.Context, lg *model.SyncLog) error
	Update(ctx context.Context, lg *model.SyncLog) error
	List(ctx context.Context, limit int) ([]model.SyncLog, error)

	// FindStuck returns running rows started before cutoff.
	FindStuck(ctx context.Context, cutoff time.Time) ([]model.SyncLog, error)

	// HasFailureSince reports whether a run of syncType failed after since.
	// Drives the recovered-success alert suppression window.
	HasFailureSince(ctx context.Context, syncType string, since time.Time) (bool, error)
}

type syncLogRepo struct{ db *gorm.DB }

func NewSyncLogRepository(db *gorm.DB) SyncLogRepository { return &syncLogRepo{db: db} }

func (r *syncLogRepo) Create(ctx context.Context, lg *model.SyncLog) error {
	return r.db.WithContext(ctx).Create(lg).Error
}

func (r *syncLogRepo) Update(ctx context.Context, lg *model.SyncLog) error {
	return r.db.WithContext(ctx).Save(lg).Error
}

func (r *syncLogRepo) List(ctx context.Context, limit int) ([]model.SyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []model.SyncLog
	err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

func (r *syncLogRepo) FindStuck(ctx context.Context, cutoff time.Time) ([]model.SyncLog, error) {
	var logs []model.SyncLog
	err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", model.SyncStatusRunning, cutoff).
		Find(&logs).Error
	return logs, err
}

func (r *syncLogRepo) HasFailureSince(ctx context.Context, syncType string, since time.Time) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.SyncLog{}).
		Where("sync_type = ? AND status = ? AND started_at >= ?", syncType, model.SyncStatusFailed, since).
		Count(&n).Error
	return n > 0, err
}
