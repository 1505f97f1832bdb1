package database

import (
	"time"

	"gorm.io/datatypes"
)

// DraftRecord is a persisted admin draft snapshot, one row per browser tab.
type DraftRecord struct {
	TabID     string         `gorm:"primaryKey;size:64"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt time.Time      `gorm:"index"`
}

// TableName keeps drafts out of the job tables managed by the hosted backend.
func (DraftRecord) TableName() string {
	return "admin_drafts"
}
