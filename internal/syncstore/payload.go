package syncstore

import (
	"time"

	"gorm.io/datatypes"
)

// Payload is one uploaded snapshot of a user's study data.
type Payload struct {
	ID        string         `gorm:"column:id;primaryKey;size:36"`
	UserID    string         `gorm:"column:user_id;size:36;not null;index:idx_sync_user_created,priority:1"`
	Payload   datatypes.JSON `gorm:"column:payload;not null"`
	Version   int64          `gorm:"column:version;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;index:idx_sync_user_created,priority:2"`
}

// TableName exposes the table backing sync payloads.
func (Payload) TableName() string {
	return "sync_payloads"
}
