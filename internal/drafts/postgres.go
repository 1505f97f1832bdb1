package drafts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ltgsite/internal/database"
)

// PostgresStore keeps snapshots in the admin_drafts table. Rows older than
// ttl are ignored on load and removed by Purge.
type PostgresStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewPostgresStore migrates the drafts table and returns the store.
func NewPostgresStore(db *gorm.DB, ttl time.Duration) (*PostgresStore, error) {
	if err := db.AutoMigrate(&database.DraftRecord{}); err != nil {
		return nil, fmt.Errorf("migrate drafts: %w", err)
	}
	return &PostgresStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *PostgresStore) Save(ctx context.Context, tabID string, data []byte) error {
	if err := checkTab(tabID); err != nil {
		return err
	}
	rec := database.DraftRecord{TabID: tabID, Payload: datatypes.JSON(data), UpdatedAt: s.now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tab_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, tabID string) ([]byte, error) {
	var rec database.DraftRecord
	q := s.db.WithContext(ctx).Where("tab_id = ?", tabID)
	if s.ttl > 0 {
		q = q.Where("updated_at > ?", s.now().Add(-s.ttl))
	}
	if err := q.First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return []byte(rec.Payload), nil
}

func (s *PostgresStore) Delete(ctx context.Context, tabID string) error {
	err := s.db.WithContext(ctx).Where("tab_id = ?", tabID).Delete(&database.DraftRecord{}).Error
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

func (s *PostgresStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("updated_at < ?", before).Delete(&database.DraftRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge drafts: %w", res.Error)
	}
	return res.RowsAffected, nil
}
