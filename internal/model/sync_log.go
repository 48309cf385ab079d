package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// SyncError is one structured entry in a run's error list.
type SyncError struct {
	Phase   string `json:"phase"` // fetch | transform | upsert | sweep
	Batch   int    `json:"batch,omitempty"`
	Message string `json:"message"`
}

// SyncErrorList is stored as a JSON column.
type SyncErrorList []SyncError

func (l SyncErrorList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *SyncErrorList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("sync_errors: unsupported scan type %T", src)
	}
}

// SyncLog is one row per reconciliation run. Liveness is derived from these
// rows: at most one running row per sync type is considered live, and any
// running row older than the stuck timeout is reclassified failed by the sweep.
type SyncLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SyncType    string    `gorm:"index;not null"`
	Status      string    `gorm:"index;not null;default:'running'"`
	StartedAt   time.Time `gorm:"not null"`
	CompletedAt *time.Time
	ItemsSynced int           `gorm:"not null;default:0"`
	DurationMs  int64         `gorm:"not null;default:0"`
	Errors      SyncErrorList `gorm:"type:jsonb"`
}

func (SyncLog) TableName() string { return "sync_logs" }
